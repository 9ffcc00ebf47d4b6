package wizard

import (
	"fmt"
	"os"
	"time"

	"github.com/Lllllllleong/pitchflow/internal/models"
	"gopkg.in/yaml.v3"
)

// Profile holds the per-deployment rules of the wizard.
type Profile struct {
	Name string `yaml:"name"`
	// RequireDeckFile disables the rich-text alternative for the deck step.
	RequireDeckFile bool `yaml:"requireDeckFile"`
	// ExtraRequiredFields are keys of FormState.Extra that must be filled
	// on the general information step.
	ExtraRequiredFields    []string `yaml:"extraRequiredFields"`
	MaxSupportingDocuments int      `yaml:"maxSupportingDocuments"`
	MaxCoverBytes          int64    `yaml:"maxCoverBytes"`
	MaxDocumentBytes       int64    `yaml:"maxDocumentBytes"`
	CoverTypes             []string `yaml:"coverTypes"`
	DocumentTypes          []string `yaml:"documentTypes"`
	Timezone               string   `yaml:"timezone"`

	location *time.Location
}

// DefaultProfile is used when no profile file is configured.
func DefaultProfile() Profile {
	return Profile{
		Name:                   "default",
		MaxSupportingDocuments: 5,
		MaxCoverBytes:          10 << 20,
		MaxDocumentBytes:       25 << 20,
		CoverTypes:             []string{"image/jpeg", "image/png", "image/webp", "video/mp4"},
		DocumentTypes: []string{
			"application/pdf",
			"application/vnd.openxmlformats-officedocument.presentationml.presentation",
			"application/vnd.ms-powerpoint",
		},
		Timezone: "UTC",
		location: time.UTC,
	}
}

// LoadProfile reads a YAML profile from path. Unset values fall back to
// DefaultProfile. An empty path returns the default profile.
func LoadProfile(path string) (Profile, error) {
	p := DefaultProfile()
	if path == "" {
		return p, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return Profile{}, fmt.Errorf("failed to read profile %s: %w", path, err)
	}
	if err := yaml.Unmarshal(raw, &p); err != nil {
		return Profile{}, fmt.Errorf("failed to parse profile %s: %w", path, err)
	}
	if err := p.init(); err != nil {
		return Profile{}, err
	}
	return p, nil
}

func (p *Profile) init() error {
	if p.Timezone == "" {
		p.Timezone = "UTC"
	}
	loc, err := time.LoadLocation(p.Timezone)
	if err != nil {
		return fmt.Errorf("invalid profile timezone %q: %w", p.Timezone, err)
	}
	p.location = loc
	if p.MaxSupportingDocuments < 0 {
		return fmt.Errorf("maxSupportingDocuments must not be negative")
	}
	return nil
}

// Location returns the time zone used to decide what "today" is.
func (p Profile) Location() *time.Location {
	if p.location == nil {
		return time.UTC
	}
	return p.location
}

func (p Profile) maxBytes(slot models.Slot) int64 {
	if slot == models.SlotCover {
		return p.MaxCoverBytes
	}
	return p.MaxDocumentBytes
}

func (p Profile) allowedTypes(slot models.Slot) []string {
	if slot == models.SlotCover {
		return p.CoverTypes
	}
	return p.DocumentTypes
}
