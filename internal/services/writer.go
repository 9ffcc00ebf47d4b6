package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Lllllllleong/pitchflow/internal/models"
	"github.com/Lllllllleong/pitchflow/internal/wizard"
)

// Activity log actions.
const (
	ActionDraftSaved = "draft-saved"
	ActionPublished  = "published"
	ActionEdited     = "edited"
	ActionDeleted    = "draft-deleted"
)

// BuildRecord shapes the record to persist from the form and the files
// uploaded for it. id is used for new records only.
func BuildRecord(edit models.EditContext, form *models.FormState, assets UploadedAssets, mode models.SaveMode, id string, now time.Time) (*models.Project, error) {
	var p models.Project
	if edit.Existing != nil {
		p = *edit.Existing
	} else {
		p = models.Project{
			ID:        id,
			IssuerID:  edit.Owner(),
			CreatedBy: edit.Actor.ID,
			CreatedAt: now,
		}
	}

	next, err := nextStatus(edit, mode)
	if err != nil {
		return nil, err
	}
	current := models.StatusDraft
	if edit.Existing != nil && edit.Existing.Status != "" {
		current = edit.Existing.Status
	}
	if !current.CanTransition(next) {
		return nil, fmt.Errorf("%s -> %s: %w", current, next, ErrInvalidTransition)
	}

	text := textField
	if mode == models.ModeSaveDraft {
		text = nullableField
	}

	p.Status = next
	p.Visible = form.Visible
	p.Sector = text(form.Sector)
	p.Course = text(form.Course)
	p.ProjectName = text(form.Name)
	p.Description = text(form.Description)
	p.Extra = nil
	if len(form.Extra) > 0 {
		p.Extra = make(map[string]*string, len(form.Extra))
		for k, v := range form.Extra {
			p.Extra[k] = text(v)
		}
	}
	p.UpdatedAt = now

	pitch := p.Pitch
	pitch.Status = next
	pitch.FinancialRound = text(form.FinancialRound)
	pitch.ExpiryDate = text(form.ExpiryDate)
	pitch.PresentationText = text(wizard.SanitizePresentation(form.PresentationText))
	if next == models.StatusPitchPhase && pitch.PostedDate == nil {
		posted := now
		pitch.PostedDate = &posted
	}
	pitch.Cover = mergeAttachments(form.Existing(models.SlotCover), assets.Cover, true)
	pitch.SupportingDocuments = mergeAttachments(form.Existing(models.SlotSupporting), assets.SupportingDocuments, false)
	pitch.PresentationDocument = mergeAttachments(form.Existing(models.SlotPresentation), assets.PresentationDocument, true)
	p.Pitch = pitch

	return &p, nil
}

func nextStatus(edit models.EditContext, mode models.SaveMode) (models.Status, error) {
	if edit.EditingLive() {
		if mode == models.ModeSaveDraft {
			return "", fmt.Errorf("cannot save a published record as draft: %w", ErrInvalidTransition)
		}
		return edit.Existing.Status, nil
	}
	switch mode {
	case models.ModeSaveDraft:
		return models.StatusDraft, nil
	case models.ModePublish:
		switch edit.Actor.Role {
		case models.RoleAdmin:
			return models.StatusPitchPhase, nil
		case models.RoleIssuer:
			return models.StatusBeingChecked, nil
		}
		return "", fmt.Errorf("role %q cannot publish: %w", edit.Actor.Role, ErrForbidden)
	}
	return "", fmt.Errorf("unknown save mode %q", mode)
}

// mergeAttachments keeps the stored history and appends new uploads.
// For single-item slots a new upload supersedes every earlier entry.
func mergeAttachments(existing, uploaded models.Attachments, single bool) models.Attachments {
	if single && len(uploaded) > 0 {
		existing = existing.Supersede()
	}
	if len(existing) == 0 && len(uploaded) == 0 {
		return nil
	}
	out := make(models.Attachments, 0, len(existing)+len(uploaded))
	out = append(out, existing...)
	return append(out, uploaded...)
}

func textField(s string) *string {
	v := strings.TrimSpace(s)
	return &v
}

// nullableField maps empty input to nil so it is stored as null.
func nullableField(s string) *string {
	v := strings.TrimSpace(s)
	if v == "" {
		return nil
	}
	return &v
}

// CommitResult reports side effects of a commit.
type CommitResult struct {
	Notified int
}

// Writer commits records and runs the follow-up writes.
type Writer struct {
	store    RecordStore
	notifier *Notifier
	review   ReviewTrigger
	now      func() time.Time
}

// NewWriter returns a writer. notifier and review may be nil.
func NewWriter(store RecordStore, notifier *Notifier, review ReviewTrigger) *Writer {
	return &Writer{store: store, notifier: notifier, review: review, now: time.Now}
}

// Commit writes the record, then records terms acceptance, activity and
// notifications depending on what kind of save it was. Failures after the
// record write are logged and do not fail the commit.
func (w *Writer) Commit(ctx context.Context, edit models.EditContext, record *models.Project, form *models.FormState) (CommitResult, error) {
	logCtx := slog.With("projectId", record.ID, "actorId", edit.Actor.ID, "status", record.Status)
	var res CommitResult

	if err := w.store.SetProject(ctx, record); err != nil {
		logCtx.Error("Failed to write project", "error", err)
		return res, err
	}
	logCtx.Info("Project written.")

	now := w.now()
	switch {
	case record.Status == models.StatusDraft:
		w.activity(ctx, logCtx, edit, record.ID, ActionDraftSaved, now)

	case edit.EditingLive():
		audit := models.TermsAcceptance{ActorID: edit.Actor.ID, ProjectID: record.ID, Kind: "edit", At: now}
		if err := w.store.Append(ctx, TermsEditAuditCollection, audit); err != nil {
			logCtx.Error("Failed to record terms edit audit", "error", err)
		}
		w.activity(ctx, logCtx, edit, record.ID, ActionEdited, now)
		if w.notifier != nil {
			fanout, err := w.notifier.Notify(ctx, record.ID, record.Name())
			if err != nil {
				logCtx.Error("Notification fan-out failed", "error", err)
			}
			res.Notified = fanout.Sent
		}

	default:
		acceptance := models.TermsAcceptance{ActorID: edit.Actor.ID, ProjectID: record.ID, Kind: "publish", At: now}
		if err := w.store.Put(ctx, TermsCollection, record.ID, acceptance); err != nil {
			logCtx.Error("Failed to record terms acceptance", "error", err)
		}
		w.activity(ctx, logCtx, edit, record.ID, ActionPublished, now)
		if edit.Actor.Role == models.RoleIssuer {
			prefs := map[string]interface{}{"marketingOptIn": form.MarketingOptIn}
			if err := w.store.Merge(ctx, UsersCollection, edit.Actor.ID, prefs); err != nil {
				logCtx.Error("Failed to update marketing preference", "error", err)
			}
		}
		if record.Status == models.StatusBeingChecked && w.review != nil {
			if err := w.review.TriggerReview(ctx, record.ID, record.IssuerID); err != nil {
				logCtx.Error("Failed to hand record to review", "error", err)
			}
		}
	}
	return res, nil
}

func (w *Writer) activity(ctx context.Context, logCtx *slog.Logger, edit models.EditContext, projectID, action string, at time.Time) {
	entry := models.ActivityEntry{ActorID: edit.Actor.ID, ProjectID: projectID, Action: action, At: at}
	if err := w.store.Append(ctx, ActivityCollection, entry); err != nil {
		logCtx.Error("Failed to record activity", "action", action, "error", err)
	}
}
