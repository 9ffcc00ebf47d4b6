package wizard

import (
	"testing"
	"time"

	"github.com/Lllllllleong/pitchflow/internal/models"
	"github.com/stretchr/testify/assert"
)

var today = time.Date(2026, 3, 10, 15, 30, 0, 0, time.UTC)

func fixedValidator(p Profile) *Validator {
	return NewValidator(p).WithClock(func() time.Time { return today })
}

func generalForm() models.FormState {
	form := models.NewFormState()
	form.Sector = "health"
	form.Course = "medicine"
	form.Name = "Pulse"
	form.Description = "Wearable monitor"
	form.ExpiryDate = "2026-04-01"
	form.FinancialRound = "series-a"
	return form
}

func TestValidator_GeneralInfoMissingFields(t *testing.T) {
	v := fixedValidator(DefaultProfile())
	blank := []struct {
		name  string
		clear func(f *models.FormState)
	}{
		{"sector", func(f *models.FormState) { f.Sector = "" }},
		{"course", func(f *models.FormState) { f.Course = "  " }},
		{"name", func(f *models.FormState) { f.Name = "" }},
		{"description", func(f *models.FormState) { f.Description = "\n" }},
		{"expiry", func(f *models.FormState) { f.ExpiryDate = "" }},
		{"round", func(f *models.FormState) { f.FinancialRound = "" }},
		{"everything", func(f *models.FormState) { *f = models.NewFormState() }},
	}
	for _, tt := range blank {
		t.Run(tt.name, func(t *testing.T) {
			form := generalForm()
			tt.clear(&form)
			res := v.Validate(models.StepGeneralInfo, &form, models.EditContext{})
			assert.False(t, res.OK)
			assert.Equal(t, models.ReasonMissingFields, res.Reason)
		})
	}

	form := generalForm()
	assert.True(t, v.Validate(models.StepGeneralInfo, &form, models.EditContext{}).OK)
}

func TestValidator_ExtraRequiredFields(t *testing.T) {
	p := DefaultProfile()
	p.ExtraRequiredFields = []string{"companyNumber"}
	v := fixedValidator(p)

	form := generalForm()
	res := v.Validate(models.StepGeneralInfo, &form, models.EditContext{})
	assert.Equal(t, models.ReasonMissingFields, res.Reason)

	form.Extra = map[string]string{"companyNumber": "0123"}
	assert.True(t, v.Validate(models.StepGeneralInfo, &form, models.EditContext{}).OK)
}

func TestValidator_ExpiryDate(t *testing.T) {
	v := fixedValidator(DefaultProfile())
	tests := []struct {
		date string
		ok   bool
	}{
		{"2026-03-09", false},
		{"2026-03-10", false},
		{"2026-03-11", true},
		{"2027-01-01", true},
		{"10/03/2026", false},
		{"tomorrow", false},
	}
	for _, tt := range tests {
		t.Run(tt.date, func(t *testing.T) {
			form := generalForm()
			form.ExpiryDate = tt.date
			res := v.Validate(models.StepGeneralInfo, &form, models.EditContext{})
			assert.Equal(t, tt.ok, res.OK)
			if !tt.ok {
				assert.Equal(t, models.ReasonInvalidDate, res.Reason)
			}
		})
	}
}

func TestValidator_ExpiryDateUsesProfileZone(t *testing.T) {
	p := DefaultProfile()
	p.Timezone = "Pacific/Auckland"
	if err := p.init(); err != nil {
		t.Skipf("zone data unavailable: %v", err)
	}
	// 15:30 UTC on the 10th is already the 11th in Auckland.
	v := fixedValidator(p)
	form := generalForm()
	form.ExpiryDate = "2026-03-11"
	assert.False(t, v.Validate(models.StepGeneralInfo, &form, models.EditContext{}).OK)
}

func TestValidator_UnchangedPastExpiryOnEdit(t *testing.T) {
	v := fixedValidator(DefaultProfile())
	stored := "2026-01-01"
	edit := models.EditContext{Existing: &models.Project{Status: models.StatusPitchPhase, Pitch: models.Pitch{ExpiryDate: &stored}}}

	form := generalForm()
	form.ExpiryDate = stored
	assert.True(t, v.Validate(models.StepGeneralInfo, &form, edit).OK)

	form.ExpiryDate = "2026-02-01"
	assert.Equal(t, models.ReasonInvalidDate, v.Validate(models.StepGeneralInfo, &form, edit).Reason)
}

func TestValidator_Cover(t *testing.T) {
	v := fixedValidator(DefaultProfile())
	active := models.Attachments{{URL: "u", StorageID: "s", Path: "p", State: models.AttachmentActive}}

	tests := []struct {
		name  string
		setup func(f *models.FormState)
		ok    bool
	}{
		{"nothing", func(f *models.FormState) {}, false},
		{"file choice without file", func(f *models.FormState) { f.CoverChoice = models.CoverFile }, false},
		{"pending file", func(f *models.FormState) {
			f.CoverChoice = models.CoverFile
			f.AddPending(models.SlotCover, models.PendingFile{Name: "c.png"})
		}, true},
		{"stored file", func(f *models.FormState) {
			f.CoverChoice = models.CoverFile
			f.ExistingCover = active
		}, true},
		{"stored file removed", func(f *models.FormState) {
			f.CoverChoice = models.CoverFile
			f.ExistingCover = active
			f.RemovedAttachments = []string{"s"}
		}, false},
		{"file choice over stored video", func(f *models.FormState) {
			f.CoverChoice = models.CoverFile
			f.ExistingCover = models.Attachments{{URL: "https://video.test/v", Type: models.VideoType, State: models.AttachmentActive}}
		}, false},
		{"no choice keeps stored video", func(f *models.FormState) {
			f.ExistingCover = models.Attachments{{URL: "https://video.test/v", Type: models.VideoType, State: models.AttachmentActive}}
		}, true},
		{"blank video url", func(f *models.FormState) {
			f.CoverChoice = models.CoverVideoURL
			f.VideoURL = "   "
		}, false},
		{"video url", func(f *models.FormState) {
			f.CoverChoice = models.CoverVideoURL
			f.VideoURL = "https://video.test/x"
		}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			form := models.NewFormState()
			tt.setup(&form)
			res := v.Validate(models.StepCover, &form, models.EditContext{})
			assert.Equal(t, tt.ok, res.OK)
			if !tt.ok {
				assert.Equal(t, models.ReasonMissingCover, res.Reason)
			}
		})
	}
}

func TestValidator_Deck(t *testing.T) {
	withFile := func(f *models.FormState) { f.AddPending(models.SlotPresentation, models.PendingFile{Name: "d.pdf"}) }
	withText := func(f *models.FormState) { f.PresentationText = "<p>We sell <b>pulses</b></p>" }
	emptyEditor := func(f *models.FormState) { f.PresentationText = "<p><br></p>" }

	tests := []struct {
		name        string
		requireFile bool
		setup       func(f *models.FormState)
		ok          bool
	}{
		{"nothing", false, func(*models.FormState) {}, false},
		{"file", false, withFile, true},
		{"text", false, withText, true},
		{"empty editor markup", false, emptyEditor, false},
		{"text when file required", true, withText, false},
		{"file when file required", true, withFile, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := DefaultProfile()
			p.RequireDeckFile = tt.requireFile
			form := models.NewFormState()
			tt.setup(&form)
			res := fixedValidator(p).Validate(models.StepDeck, &form, models.EditContext{})
			assert.Equal(t, tt.ok, res.OK)
			if !tt.ok {
				assert.Equal(t, models.ReasonMissingDeck, res.Reason)
			}
		})
	}
}

func TestValidator_SupportingDocsAndTerms(t *testing.T) {
	v := fixedValidator(DefaultProfile())
	form := models.NewFormState()
	live := models.EditContext{Existing: &models.Project{Status: models.StatusPrimaryOffer}}
	draft := models.EditContext{Existing: &models.Project{Status: models.StatusDraft}}

	assert.Equal(t, models.ValidationResult{OK: true}, v.Validate(models.StepSupportingDocs, &form, draft))
	assert.Equal(t, models.ValidationResult{OK: true, Submit: true}, v.Validate(models.StepSupportingDocs, &form, live))

	assert.Equal(t, models.ReasonTermsNotAccepted, v.Validate(models.StepTerms, &form, draft).Reason)
	form.AcceptedTerms = true
	assert.Equal(t, models.ValidationResult{OK: true, Submit: true}, v.Validate(models.StepTerms, &form, draft))

	assert.Equal(t, models.ReasonInvalidStep, v.Validate(models.Step(-1), &form, draft).Reason)
}

func TestValidator_ValidateAll(t *testing.T) {
	v := fixedValidator(DefaultProfile())
	form := generalForm()
	form.CoverChoice = models.CoverVideoURL
	form.VideoURL = "https://video.test/x"
	form.PresentationText = "<p>deck</p>"

	assert.Equal(t, models.ReasonTermsNotAccepted, v.ValidateAll(&form, models.EditContext{}).Reason)

	live := models.EditContext{Existing: &models.Project{Status: models.StatusPitchPhase}}
	assert.True(t, v.ValidateAll(&form, live).OK)

	form.VideoURL = ""
	assert.Equal(t, models.ReasonMissingCover, v.ValidateAll(&form, live).Reason)
}
