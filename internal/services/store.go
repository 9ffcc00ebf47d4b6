package services

import (
	"context"
	"errors"
	"io"

	"github.com/Lllllllleong/pitchflow/internal/gcp"
	"github.com/Lllllllleong/pitchflow/internal/models"
)

var (
	ErrNotFound          = gcp.ErrNotFound
	ErrNotDraft          = errors.New("record is not a draft")
	ErrForbidden         = errors.New("actor may not modify this record")
	ErrInvalidTransition = errors.New("invalid status transition")
)

// Collection names of the auxiliary documents written around a pitch.
const (
	VotesCollection          = "votes"
	PledgesCollection        = "pledges"
	NotificationsCollection  = "notifications"
	ActivityCollection       = "activityLog"
	TermsCollection          = "termsAcceptances"
	TermsEditAuditCollection = "termsEditAudits"
	UsersCollection          = "users"
)

// RecordStore is the realtime document store holding project records.
type RecordStore interface {
	// NewProjectID reserves an id for a record that has not been written yet.
	NewProjectID() string
	GetProject(ctx context.Context, id string) (*models.Project, error)
	SetProject(ctx context.Context, p *models.Project) error
	RemoveProject(ctx context.Context, id string) error
	// WatchProject streams the full record each time it changes. The
	// channel closes when ctx is done.
	WatchProject(ctx context.Context, id string) (<-chan *models.Project, error)
	// InvestorIDs returns the investorId field of every document in
	// collection whose projectId equals projectID, oldest first.
	InvestorIDs(ctx context.Context, collection, projectID string) ([]string, error)
	Append(ctx context.Context, collection string, doc interface{}) error
	Put(ctx context.Context, collection, id string, doc interface{}) error
	Merge(ctx context.Context, collection, id string, fields map[string]interface{}) error
}

// BlobStore stores uploaded files.
type BlobStore interface {
	// Put writes r to path. progress, if set, receives the number of bytes
	// written so far.
	Put(ctx context.Context, path string, r io.Reader, contentType string, progress func(written int64)) error
	DownloadURL(ctx context.Context, path string) (string, error)
	Delete(ctx context.Context, path string) error
}

// ReviewTrigger hands a record entering review to the checking workflow.
type ReviewTrigger interface {
	TriggerReview(ctx context.Context, projectID, issuerID string) error
}
