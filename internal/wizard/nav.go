package wizard

import (
	"net/url"
	"strconv"

	"github.com/Lllllllleong/pitchflow/internal/models"
)

// NavState is the part of the wizard kept in the URL so a reload restores
// the position.
type NavState struct {
	Step     models.Step
	EditID   string
	AdminID  string
	IssuerID string
}

// ParseNav reads navigation state from query parameters. Unknown or out
// of range steps fall back to the first step.
func ParseNav(q url.Values) NavState {
	nav := NavState{
		EditID:   q.Get("edit"),
		AdminID:  q.Get("admin"),
		IssuerID: q.Get("issuer"),
	}
	if raw := q.Get("step"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && models.Step(n).Valid() {
			nav.Step = models.Step(n)
		}
	}
	return nav
}

// Query encodes the state back into query parameters.
func (n NavState) Query() url.Values {
	q := url.Values{}
	q.Set("step", strconv.Itoa(int(n.Step)))
	if n.EditID != "" {
		q.Set("edit", n.EditID)
	}
	if n.AdminID != "" {
		q.Set("admin", n.AdminID)
	}
	if n.IssuerID != "" {
		q.Set("issuer", n.IssuerID)
	}
	return q
}

// OnBehalf reports whether an admin is creating a record for an issuer.
func (n NavState) OnBehalf() bool {
	return n.AdminID != "" && n.IssuerID != ""
}
