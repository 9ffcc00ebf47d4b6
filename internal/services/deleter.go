package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/Lllllllleong/pitchflow/internal/models"
	"golang.org/x/sync/errgroup"
)

// DraftDeleter removes draft records together with their files.
type DraftDeleter struct {
	store RecordStore
	blobs BlobStore
	now   func() time.Time
}

// NewDraftDeleter returns a deleter working on store and blobs.
func NewDraftDeleter(store RecordStore, blobs BlobStore) *DraftDeleter {
	return &DraftDeleter{store: store, blobs: blobs, now: time.Now}
}

// Process loads the record, checks that the actor may delete it and deletes it.
func (d *DraftDeleter) Process(ctx context.Context, req *models.DeleteDraftRequest) (*models.DeleteDraftResponse, error) {
	logCtx := slog.With("projectId", req.ProjectID, "actorId", req.Actor.ID)
	record, err := d.store.GetProject(ctx, req.ProjectID)
	if err != nil {
		logCtx.Error("Failed to load draft", "error", err)
		return nil, err
	}
	if req.Actor.Role != models.RoleAdmin && record.IssuerID != req.Actor.ID {
		logCtx.Warn("Refusing to delete a draft owned by someone else.", "issuerId", record.IssuerID)
		return nil, ErrForbidden
	}

	deleted, err := d.deleteDraft(ctx, record)
	if err != nil {
		return nil, err
	}
	entry := models.ActivityEntry{ActorID: req.Actor.ID, ProjectID: record.ID, Action: ActionDeleted, At: d.now()}
	if err := d.store.Append(ctx, ActivityCollection, entry); err != nil {
		logCtx.Error("Failed to record activity", "action", ActionDeleted, "error", err)
	}
	return &models.DeleteDraftResponse{Status: "success", BlobsDeleted: deleted}, nil
}

// DeleteDraft deletes cover, presentation and supporting document blobs,
// one list after the other, then the record itself. External video covers
// have no blob and are skipped.
func (d *DraftDeleter) DeleteDraft(ctx context.Context, record *models.Project) error {
	_, err := d.deleteDraft(ctx, record)
	return err
}

func (d *DraftDeleter) deleteDraft(ctx context.Context, record *models.Project) (int, error) {
	if record.Status != models.StatusDraft {
		return 0, fmt.Errorf("project %s is %s: %w", record.ID, record.Status, ErrNotDraft)
	}
	logCtx := slog.With("projectId", record.ID)

	stages := []struct {
		name  string
		items models.Attachments
	}{
		{"cover", record.Pitch.Cover},
		{"presentationDocument", record.Pitch.PresentationDocument},
		{"supportingDocuments", record.Pitch.SupportingDocuments},
	}
	var deleted atomic.Int64
	for _, stage := range stages {
		if stage.items == nil {
			continue
		}
		if err := d.deleteBlobs(ctx, stage.items, &deleted); err != nil {
			logCtx.Error("Failed to delete draft files", "stage", stage.name, "error", err)
			return int(deleted.Load()), fmt.Errorf("%s: %w", stage.name, err)
		}
	}

	if err := d.store.RemoveProject(ctx, record.ID); err != nil {
		logCtx.Error("Failed to delete draft record", "error", err)
		return int(deleted.Load()), err
	}
	logCtx.Info("Draft deleted.", "blobsDeleted", deleted.Load())
	return int(deleted.Load()), nil
}

func (d *DraftDeleter) deleteBlobs(ctx context.Context, items models.Attachments, deleted *atomic.Int64) error {
	eg, gctx := errgroup.WithContext(ctx)
	for _, a := range items {
		if !a.Stored() {
			continue
		}
		path := a.Path
		eg.Go(func() error {
			if err := d.blobs.Delete(gctx, path); err != nil {
				return err
			}
			deleted.Add(1)
			return nil
		})
	}
	return eg.Wait()
}
