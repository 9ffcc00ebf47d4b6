package models

import (
	"io"
	"strings"
)

// Step is a wizard page index.
type Step int

const (
	StepGeneralInfo Step = iota
	StepCover
	StepDeck
	StepSupportingDocs
	StepTerms
)

// LastStep is the terminal wizard step.
const LastStep = StepTerms

func (s Step) String() string {
	switch s {
	case StepGeneralInfo:
		return "general-info"
	case StepCover:
		return "cover"
	case StepDeck:
		return "deck"
	case StepSupportingDocs:
		return "supporting-documents"
	case StepTerms:
		return "terms"
	}
	return "unknown"
}

// Valid reports whether s is within the wizard range.
func (s Step) Valid() bool {
	return s >= StepGeneralInfo && s <= LastStep
}

// ReasonCode identifies why a step failed validation.
type ReasonCode string

const (
	ReasonNone             ReasonCode = ""
	ReasonMissingFields    ReasonCode = "missing-fields"
	ReasonInvalidDate      ReasonCode = "invalid-date"
	ReasonMissingCover     ReasonCode = "missing-cover"
	ReasonMissingDeck      ReasonCode = "missing-presentation"
	ReasonTermsNotAccepted ReasonCode = "terms-not-accepted"
	ReasonInvalidStep      ReasonCode = "invalid-step"
)

// ValidationResult is the outcome of validating one step.
type ValidationResult struct {
	OK     bool       `json:"ok"`
	Reason ReasonCode `json:"reasonCode,omitempty"`
	// Submit is set when passing this step should submit the wizard
	// instead of moving to the next page.
	Submit bool `json:"submit,omitempty"`
}

// CoverChoice is how the user wants to provide a cover.
type CoverChoice string

const (
	CoverNone     CoverChoice = ""
	CoverFile     CoverChoice = "file"
	CoverVideoURL CoverChoice = "video-url"
)

// Slot names an attachment list.
type Slot string

const (
	SlotCover        Slot = "cover"
	SlotSupporting   Slot = "supportingDocuments"
	SlotPresentation Slot = "presentationDocument"
)

// UploadStage reports where a submission currently is.
type UploadStage string

const (
	StageIdle         UploadStage = "idle"
	StageCover        UploadStage = "cover"
	StageSupporting   UploadStage = "supporting-documents"
	StagePresentation UploadStage = "presentation"
	StageSaving       UploadStage = "saving"
	StageNotifying    UploadStage = "notifying"
	StageDone         UploadStage = "done"
	StageFailed       UploadStage = "failed"
)

// SaveMode selects how a submission is persisted.
type SaveMode string

const (
	ModeSaveDraft SaveMode = "draft"
	ModePublish   SaveMode = "publish"
)

// PendingFile is a file selected by the user but not uploaded yet.
type PendingFile struct {
	Name        string `json:"name"`
	ContentType string `json:"contentType"`
	Size        int64  `json:"size"`

	Open func() (io.ReadCloser, error) `json:"-"`
}

// FormState holds the wizard's current values. Text fields are plain
// strings; conversion to nullable record fields happens on save.
type FormState struct {
	Step Step `json:"step"`

	Sector         string            `json:"sector"`
	Course         string            `json:"course"`
	Name           string            `json:"name"`
	Description    string            `json:"description"`
	ExpiryDate     string            `json:"expiryDate"`
	FinancialRound string            `json:"financialRound"`
	Extra          map[string]string `json:"extra,omitempty"`
	Visible        bool              `json:"visible"`

	CoverChoice      CoverChoice `json:"coverChoice"`
	VideoURL         string      `json:"videoUrl"`
	PresentationText string      `json:"presentationText"`
	AcceptedTerms    bool        `json:"acceptedTerms"`
	MarketingOptIn   bool        `json:"marketingOptIn"`

	PendingCover        []PendingFile `json:"-"`
	PendingSupporting   []PendingFile `json:"-"`
	PendingPresentation []PendingFile `json:"-"`

	ExistingCover        Attachments `json:"existingCover,omitempty"`
	ExistingSupporting   Attachments `json:"existingSupporting,omitempty"`
	ExistingPresentation Attachments `json:"existingPresentation,omitempty"`
	// RemovedAttachments lists storage ids (or video URLs) the user removed.
	RemovedAttachments []string `json:"removedAttachments,omitempty"`

	ReasonCode  ReasonCode  `json:"reasonCode,omitempty"`
	ShowPopover bool        `json:"showPopover"`
	Progress    float64     `json:"progress"`
	Stage       UploadStage `json:"stage"`
	Error       string      `json:"error,omitempty"`
	Retryable   bool        `json:"retryable,omitempty"`
}

// NewFormState returns the state a fresh wizard starts with.
func NewFormState() FormState {
	return FormState{Step: StepGeneralInfo, Stage: StageIdle}
}

// Pending returns the pending-file buffer for slot.
func (f *FormState) Pending(slot Slot) []PendingFile {
	switch slot {
	case SlotCover:
		return f.PendingCover
	case SlotSupporting:
		return f.PendingSupporting
	case SlotPresentation:
		return f.PendingPresentation
	}
	return nil
}

// AddPending appends a file to the slot's buffer. Cover and presentation
// slots hold a single file, so a new selection replaces the old one.
func (f *FormState) AddPending(slot Slot, file PendingFile) {
	switch slot {
	case SlotCover:
		f.PendingCover = []PendingFile{file}
	case SlotSupporting:
		f.PendingSupporting = append(f.PendingSupporting, file)
	case SlotPresentation:
		f.PendingPresentation = []PendingFile{file}
	}
}

// Existing returns the hydrated attachment list for slot with the user's
// removals applied.
func (f *FormState) Existing(slot Slot) Attachments {
	var l Attachments
	switch slot {
	case SlotCover:
		l = f.ExistingCover
	case SlotSupporting:
		l = f.ExistingSupporting
	case SlotPresentation:
		l = f.ExistingPresentation
	}
	for _, key := range f.RemovedAttachments {
		l = l.Remove(key)
	}
	return l
}

// ClearPending drops all buffered files.
func (f *FormState) ClearPending() {
	f.PendingCover = nil
	f.PendingSupporting = nil
	f.PendingPresentation = nil
}

// TrimmedVideoURL returns the video URL without surrounding whitespace.
func (f *FormState) TrimmedVideoURL() string {
	return strings.TrimSpace(f.VideoURL)
}

// UploadProgress is emitted while a submission uploads files.
type UploadProgress struct {
	Stage   UploadStage `json:"stage"`
	Percent float64     `json:"percent"`
}
