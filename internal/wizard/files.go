package wizard

import (
	"bytes"
	"fmt"
	"io"
	"mime"
	"path/filepath"
	"strings"

	"github.com/Lllllllleong/pitchflow/internal/models"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// SelectionError reports a file the user may not attach. It never changes
// wizard state; the caller shows it and lets the user pick another file.
type SelectionError struct {
	Slot   models.Slot
	File   string
	Reason string
}

func (e *SelectionError) Error() string {
	return fmt.Sprintf("%s %q rejected: %s", e.Slot, e.File, e.Reason)
}

// CheckSelection validates a newly selected file against the profile.
// already is the number of files the slot currently holds.
func CheckSelection(profile Profile, slot models.Slot, file models.PendingFile, already int) error {
	reject := func(format string, args ...interface{}) error {
		return &SelectionError{Slot: slot, File: file.Name, Reason: fmt.Sprintf(format, args...)}
	}

	if slot == models.SlotSupporting && profile.MaxSupportingDocuments > 0 && already >= profile.MaxSupportingDocuments {
		return reject("at most %d supporting documents allowed", profile.MaxSupportingDocuments)
	}
	if file.Size <= 0 {
		return reject("file is empty")
	}
	if limit := profile.maxBytes(slot); limit > 0 && file.Size > limit {
		return reject("file is %d bytes, limit is %d", file.Size, limit)
	}

	contentType := ContentType(file)
	if !typeAllowed(profile.allowedTypes(slot), contentType) {
		return reject("type %s not allowed", contentType)
	}

	if slot == models.SlotPresentation && contentType == "application/pdf" {
		pages, err := countPDFPages(file)
		if err != nil {
			return reject("unreadable PDF: %v", err)
		}
		if pages == 0 {
			return reject("PDF has no pages")
		}
	}
	return nil
}

// ContentType returns the declared media type of file, falling back to
// the extension.
func ContentType(file models.PendingFile) string {
	if file.ContentType != "" {
		if mediaType, _, err := mime.ParseMediaType(file.ContentType); err == nil {
			return mediaType
		}
	}
	if byExt := mime.TypeByExtension(strings.ToLower(filepath.Ext(file.Name))); byExt != "" {
		mediaType, _, _ := mime.ParseMediaType(byExt)
		return mediaType
	}
	return "application/octet-stream"
}

func typeAllowed(allowed []string, contentType string) bool {
	if len(allowed) == 0 {
		return true
	}
	for _, t := range allowed {
		if strings.EqualFold(t, contentType) {
			return true
		}
		if strings.HasSuffix(t, "/*") && strings.HasPrefix(contentType, strings.TrimSuffix(t, "*")) {
			return true
		}
	}
	return false
}

func countPDFPages(file models.PendingFile) (int, error) {
	if file.Open == nil {
		return 0, fmt.Errorf("file has no content")
	}
	rc, err := file.Open()
	if err != nil {
		return 0, err
	}
	defer rc.Close()

	rs, ok := rc.(io.ReadSeeker)
	if !ok {
		raw, err := io.ReadAll(rc)
		if err != nil {
			return 0, err
		}
		rs = bytes.NewReader(raw)
	}

	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	return api.PageCount(rs, conf)
}
