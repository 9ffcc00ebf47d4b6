package models

import "time"

// These structs define the JSON payloads exchanged with the wizard's
// HTTP and CloudEvent functions.

// SubmitPitchRequest is the JSON "form" part of a submit-pitch request.
// Files travel as separate multipart parts.
type SubmitPitchRequest struct {
	Actor  Actor    `json:"actor"`
	Mode   SaveMode `json:"mode"`
	EditID string   `json:"editId,omitempty"`
	// IssuerID is set when an admin creates a record on behalf of an issuer.
	IssuerID string    `json:"issuerId,omitempty"`
	Form     FormState `json:"form"`
}

// SubmitPitchResponse is the output of the submit-pitch function.
type SubmitPitchResponse struct {
	Status    string `json:"status"`
	ProjectID string `json:"projectId,omitempty"`
	// RecordStatus is the lifecycle status the record was written with.
	RecordStatus Status      `json:"recordStatus,omitempty"`
	Stage        UploadStage `json:"stage"`
	Retryable    bool        `json:"retryable,omitempty"`
	Error        string      `json:"error,omitempty"`
	Notified     int         `json:"notified,omitempty"`
}

// ValidateStepRequest is the input for the step-validator function.
type ValidateStepRequest struct {
	Actor  Actor     `json:"actor"`
	Step   Step      `json:"step"`
	EditID string    `json:"editId,omitempty"`
	Form   FormState `json:"form"`
	// Selected describes files picked in the browser but not uploaded yet.
	Selected map[Slot][]PendingFile `json:"selected,omitempty"`
}

// ValidateStepResponse is the output of the step-validator function.
type ValidateStepResponse struct {
	ValidationResult
	NextStep    Step `json:"nextStep"`
	ShowPopover bool `json:"showPopover"`
}

// DeleteDraftRequest is the input for the draft-deleter function.
type DeleteDraftRequest struct {
	Actor     Actor  `json:"actor"`
	ProjectID string `json:"projectId"`
}

// DeleteDraftResponse is the output of the draft-deleter function.
type DeleteDraftResponse struct {
	Status       string `json:"status"`
	BlobsDeleted int    `json:"blobsDeleted"`
}

// PitchUpdatedEvent is the CloudEvent data that triggers investor notifications.
type PitchUpdatedEvent struct {
	ProjectID   string `json:"projectId"`
	ProjectName string `json:"projectName"`
}

// Notification is the hand-off record for the external delivery service.
type Notification struct {
	Title     string    `firestore:"title" json:"title"`
	Message   string    `firestore:"message" json:"message"`
	UserID    string    `firestore:"userId" json:"userId"`
	Action    string    `firestore:"action" json:"action"`
	ProjectID string    `firestore:"projectId" json:"projectId"`
	CreatedAt time.Time `firestore:"createdAt" json:"createdAt"`
}

// ActivityEntry is a row of the activity log.
type ActivityEntry struct {
	ActorID   string    `firestore:"actorId"`
	ProjectID string    `firestore:"projectId"`
	Action    string    `firestore:"action"`
	At        time.Time `firestore:"at"`
}

// TermsAcceptance records that an actor accepted the terms for a project.
type TermsAcceptance struct {
	ActorID   string    `firestore:"actorId"`
	ProjectID string    `firestore:"projectId"`
	Kind      string    `firestore:"kind"` // "publish" or "edit"
	At        time.Time `firestore:"at"`
}
