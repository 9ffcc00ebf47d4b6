// Package wizard holds the pitch wizard's form rules: step validation,
// file selection checks, navigation state and the session that ties them
// together.
package wizard

import (
	"strings"
	"time"

	"github.com/Lllllllleong/pitchflow/internal/models"
)

// DateLayout is the format of the expiry date field.
const DateLayout = "2006-01-02"

// Validator decides whether a wizard step may be left.
type Validator struct {
	profile Profile
	now     func() time.Time
}

// NewValidator returns a validator for the given deployment profile.
func NewValidator(profile Profile) *Validator {
	return &Validator{profile: profile, now: time.Now}
}

// WithClock overrides the time source used for the expiry date check.
func (v *Validator) WithClock(now func() time.Time) *Validator {
	v.now = now
	return v
}

// Validate checks step against the current form values.
func (v *Validator) Validate(step models.Step, form *models.FormState, edit models.EditContext) models.ValidationResult {
	switch step {
	case models.StepGeneralInfo:
		return v.generalInfo(form, edit)
	case models.StepCover:
		return v.cover(form)
	case models.StepDeck:
		return v.deck(form)
	case models.StepSupportingDocs:
		// Editing a published record skips the terms page.
		return models.ValidationResult{OK: true, Submit: edit.EditingLive()}
	case models.StepTerms:
		if !form.AcceptedTerms {
			return fail(models.ReasonTermsNotAccepted)
		}
		return models.ValidationResult{OK: true, Submit: true}
	}
	return fail(models.ReasonInvalidStep)
}

// ValidateAll runs every blocking step and returns the first failure.
func (v *Validator) ValidateAll(form *models.FormState, edit models.EditContext) models.ValidationResult {
	steps := []models.Step{models.StepGeneralInfo, models.StepCover, models.StepDeck}
	if !edit.EditingLive() {
		steps = append(steps, models.StepTerms)
	}
	for _, step := range steps {
		if res := v.Validate(step, form, edit); !res.OK {
			return res
		}
	}
	return models.ValidationResult{OK: true, Submit: true}
}

func (v *Validator) generalInfo(form *models.FormState, edit models.EditContext) models.ValidationResult {
	required := []string{
		form.Sector,
		form.Course,
		form.Name,
		form.Description,
		form.ExpiryDate,
		form.FinancialRound,
	}
	for _, key := range v.profile.ExtraRequiredFields {
		required = append(required, form.Extra[key])
	}
	for _, value := range required {
		if strings.TrimSpace(value) == "" {
			return fail(models.ReasonMissingFields)
		}
	}

	expiry := strings.TrimSpace(form.ExpiryDate)
	date, err := time.ParseInLocation(DateLayout, expiry, v.profile.Location())
	if err != nil {
		return fail(models.ReasonInvalidDate)
	}
	// An unchanged expiry date on an existing record is not re-checked.
	if edit.Existing != nil && edit.Existing.Pitch.ExpiryDate != nil && *edit.Existing.Pitch.ExpiryDate == expiry {
		return models.ValidationResult{OK: true}
	}
	if date.Before(v.tomorrow()) {
		return fail(models.ReasonInvalidDate)
	}
	return models.ValidationResult{OK: true}
}

func (v *Validator) tomorrow() time.Time {
	now := v.now().In(v.profile.Location())
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	return today.AddDate(0, 0, 1)
}

func (v *Validator) cover(form *models.FormState) models.ValidationResult {
	active := form.Existing(models.SlotCover).Active()
	var ok bool
	switch form.CoverChoice {
	case models.CoverFile:
		// A stored video does not count as a file cover.
		ok = len(form.PendingCover) > 0 || hasStoredFile(active)
	case models.CoverVideoURL:
		ok = form.TrimmedVideoURL() != ""
	default:
		ok = len(active) > 0
	}
	if !ok {
		return fail(models.ReasonMissingCover)
	}
	return models.ValidationResult{OK: true}
}

func hasStoredFile(l models.Attachments) bool {
	for _, a := range l {
		if a.Type != models.VideoType {
			return true
		}
	}
	return false
}

func (v *Validator) deck(form *models.FormState) models.ValidationResult {
	hasFile := len(form.PendingPresentation) > 0 || form.Existing(models.SlotPresentation).HasActive()
	if v.profile.RequireDeckFile {
		if !hasFile {
			return fail(models.ReasonMissingDeck)
		}
		return models.ValidationResult{OK: true}
	}
	if !hasFile && !HasText(form.PresentationText) {
		return fail(models.ReasonMissingDeck)
	}
	return models.ValidationResult{OK: true}
}

func fail(reason models.ReasonCode) models.ValidationResult {
	return models.ValidationResult{OK: false, Reason: reason}
}
