package models

import "time"

// Status is the lifecycle status of a project record.
type Status string

const (
	StatusDraft               Status = "draft"
	StatusBeingChecked        Status = "being-checked"
	StatusPitchPhase          Status = "pitch-phase"
	StatusPitchPhaseExpired   Status = "pitch-phase-expired"
	StatusPrimaryOffer        Status = "primary-offer-phase"
	StatusPrimaryOfferExpired Status = "primary-offer-expired"
)

var statusRank = map[Status]int{
	StatusDraft:               0,
	StatusBeingChecked:        1,
	StatusPitchPhase:          2,
	StatusPitchPhaseExpired:   3,
	StatusPrimaryOffer:        4,
	StatusPrimaryOfferExpired: 5,
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	_, ok := statusRank[s]
	return ok
}

// CanTransition reports whether a record in status s may move to next.
// Statuses only move forward; staying put is always allowed.
func (s Status) CanTransition(next Status) bool {
	from, ok := statusRank[s]
	if !ok {
		return false
	}
	to, ok := statusRank[next]
	if !ok {
		return false
	}
	return to >= from
}

// Live reports whether the record is past the draft stage.
func (s Status) Live() bool {
	return s != StatusDraft && s != ""
}

// Project is the main record for a pitch in Firestore.
// Optional text fields are pointers so that empty values are stored as null.
type Project struct {
	ID          string             `firestore:"id" json:"id"`
	IssuerID    string             `firestore:"issuerId" json:"issuerId"`
	CreatedBy   string             `firestore:"createdBy" json:"createdBy"`
	Visible     bool               `firestore:"visible" json:"visible"`
	Status      Status             `firestore:"status" json:"status"`
	Sector      *string            `firestore:"sector" json:"sector"`
	Course      *string            `firestore:"course" json:"course"`
	ProjectName *string            `firestore:"projectName" json:"projectName"`
	Description *string            `firestore:"description" json:"description"`
	Extra       map[string]*string `firestore:"extra,omitempty" json:"extra,omitempty"`
	Pitch       Pitch              `firestore:"pitch" json:"pitch"`
	CreatedAt   time.Time          `firestore:"createdAt" json:"createdAt"`
	UpdatedAt   time.Time          `firestore:"updatedAt" json:"updatedAt"`
}

// Name returns the project name or an empty string.
func (p *Project) Name() string {
	if p == nil || p.ProjectName == nil {
		return ""
	}
	return *p.ProjectName
}

// Pitch is the fundraising package attached to a project.
type Pitch struct {
	FinancialRound       *string     `firestore:"financialRound" json:"financialRound"`
	InvestorsCommitted   int         `firestore:"investorsCommitted" json:"investorsCommitted"`
	Cover                Attachments `firestore:"cover" json:"cover"`
	SupportingDocuments  Attachments `firestore:"supportingDocuments" json:"supportingDocuments"`
	PresentationDocument Attachments `firestore:"presentationDocument" json:"presentationDocument"`
	PresentationText     *string     `firestore:"presentationText" json:"presentationText"`
	PostedDate           *time.Time  `firestore:"postedDate" json:"postedDate"`
	ExpiryDate           *string     `firestore:"expiryDate" json:"expiryDate"` // YYYY-MM-DD
	Status               Status      `firestore:"status" json:"status"`
}

// Role identifies who is acting on a record.
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleIssuer   Role = "issuer"
	RoleInvestor Role = "investor"
)

// Actor is the authenticated user performing an operation.
type Actor struct {
	ID   string `json:"id"`
	Role Role   `json:"role"`
}

// EditContext describes what the wizard is working on.
type EditContext struct {
	Actor Actor
	// OwnerID is the issuer the record belongs to. An admin creating a
	// record on behalf of an issuer sets it to that issuer's id.
	OwnerID  string
	Existing *Project
}

// Editing reports whether an existing record is being edited.
func (e EditContext) Editing() bool {
	return e.Existing != nil
}

// EditingLive reports whether an already published record is being edited.
func (e EditContext) EditingLive() bool {
	return e.Existing != nil && e.Existing.Status.Live()
}

// Owner returns the issuer id the record should be stored under.
func (e EditContext) Owner() string {
	if e.Existing != nil && e.Existing.IssuerID != "" {
		return e.Existing.IssuerID
	}
	if e.OwnerID != "" {
		return e.OwnerID
	}
	return e.Actor.ID
}
