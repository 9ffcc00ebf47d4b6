package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/Lllllllleong/pitchflow/internal/gcp"
	"github.com/Lllllllleong/pitchflow/internal/models"
	"github.com/Lllllllleong/pitchflow/internal/wizard"
)

// SubmitterConfig holds configuration for the pitch submitter service.
type SubmitterConfig struct {
	ProjectID          string
	AssetsBucket       string
	ProjectsCollection string
	UploadConcurrency  int
	WorkflowLocation   string
	ReviewWorkflowID   string
	ProfilePath        string
}

// ValidationError is returned when a publish request fails a wizard step.
type ValidationError struct {
	Result models.ValidationResult
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed: %s", e.Result.Reason)
}

// PitchSubmitter runs a wizard submission: upload, build, commit.
type PitchSubmitter struct {
	store     RecordStore
	uploader  *Uploader
	writer    *Writer
	validator *wizard.Validator
	profile   wizard.Profile
	now       func() time.Time
}

// loadSubmitterConfig loads and validates all necessary environment variables for this service.
func loadSubmitterConfig() (*SubmitterConfig, error) {
	projectID, err := requireProjectID()
	if err != nil {
		return nil, err
	}
	bucket := gcp.GetEnv("PITCH_ASSETS_BUCKET", "")
	if bucket == "" {
		return nil, fmt.Errorf("PITCH_ASSETS_BUCKET environment variable must be set")
	}
	return &SubmitterConfig{
		ProjectID:          projectID,
		AssetsBucket:       bucket,
		ProjectsCollection: gcp.GetEnv("PROJECTS_COLLECTION", "projects"),
		UploadConcurrency:  gcp.GetEnvInt("UPLOAD_CONCURRENCY", 4),
		WorkflowLocation:   gcp.GetEnv("WORKFLOW_LOCATION", "us-central1"),
		ReviewWorkflowID:   gcp.GetEnv("REVIEW_WORKFLOW_ID", ""),
		ProfilePath:        gcp.GetEnv("PITCH_PROFILE", ""),
	}, nil
}

// NewPitchSubmitter creates a PitchSubmitter backed by Firestore and Cloud Storage.
func NewPitchSubmitter(ctx context.Context) (*PitchSubmitter, error) {
	config, err := loadSubmitterConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	profile, err := wizard.LoadProfile(config.ProfilePath)
	if err != nil {
		return nil, err
	}

	b, err := newBackends(ctx, config.ProjectID, config.ProjectsCollection, config.AssetsBucket)
	if err != nil {
		return nil, err
	}

	var review ReviewTrigger
	if config.ReviewWorkflowID != "" {
		trigger, err := gcp.NewReviewTrigger(ctx, config.ProjectID, config.WorkflowLocation, config.ReviewWorkflowID)
		if err != nil {
			return nil, err
		}
		review = trigger
	}

	s := NewPitchSubmitterWith(b.store, b.blobs, review, profile, config.UploadConcurrency)
	slog.Info("Pitch submitter initialized.", "bucket", config.AssetsBucket, "profile", profile.Name, "reviewWorkflow", config.ReviewWorkflowID)
	return s, nil
}

// NewPitchSubmitterWith assembles a submitter from existing stores.
func NewPitchSubmitterWith(store RecordStore, blobs BlobStore, review ReviewTrigger, profile wizard.Profile, concurrency int) *PitchSubmitter {
	notifier := NewNotifier(store, StoreDispatcher{Store: store}, 0)
	return &PitchSubmitter{
		store:     store,
		uploader:  NewUploader(blobs, concurrency),
		writer:    NewWriter(store, notifier, review),
		validator: wizard.NewValidator(profile),
		profile:   profile,
		now:       time.Now,
	}
}

// Profile returns the deployment profile the submitter validates with.
func (s *PitchSubmitter) Profile() wizard.Profile {
	return s.profile
}

// ResolveEdit builds the edit context for a request.
func (s *PitchSubmitter) ResolveEdit(ctx context.Context, actor models.Actor, editID, issuerID string) (models.EditContext, error) {
	return resolveEdit(ctx, s.store, actor, editID, issuerID)
}

// Process handles a submit request whose files arrived separately.
func (s *PitchSubmitter) Process(ctx context.Context, req *models.SubmitPitchRequest, files map[models.Slot][]models.PendingFile) (*models.SubmitPitchResponse, error) {
	logCtx := slog.With("actorId", req.Actor.ID, "editId", req.EditID, "mode", req.Mode)
	logCtx.Info("Processing pitch submission.")

	edit, err := s.ResolveEdit(ctx, req.Actor, req.EditID, req.IssuerID)
	if err != nil {
		logCtx.Warn("Could not resolve edit context", "error", err)
		return nil, err
	}

	form := req.Form
	form.ClearPending()
	useStoredAttachments(&form, edit)

	for _, slot := range []models.Slot{models.SlotCover, models.SlotSupporting, models.SlotPresentation} {
		for _, file := range files[slot] {
			already := len(form.Pending(slot))
			if slot == models.SlotSupporting {
				already += len(form.Existing(slot).Active())
			}
			if err := wizard.CheckSelection(s.profile, slot, file, already); err != nil {
				logCtx.Warn("Rejected file", "error", err)
				return nil, err
			}
			form.AddPending(slot, file)
		}
	}

	return s.Submit(ctx, edit, req.Mode, &form)
}

// Submit uploads the form's pending files and commits the record. On
// failure the form is left in a failed, retryable state.
func (s *PitchSubmitter) Submit(ctx context.Context, edit models.EditContext, mode models.SaveMode, form *models.FormState) (*models.SubmitPitchResponse, error) {
	if mode == "" {
		mode = models.ModePublish
	}
	if mode == models.ModePublish {
		if res := s.validator.ValidateAll(form, edit); !res.OK {
			form.ReasonCode = res.Reason
			form.ShowPopover = true
			return nil, &ValidationError{Result: res}
		}
	}

	projectID := ""
	if edit.Existing != nil {
		projectID = edit.Existing.ID
	} else {
		projectID = s.store.NewProjectID()
	}
	logCtx := slog.With("projectId", projectID, "actorId", edit.Actor.ID, "mode", mode)

	var mu sync.Mutex
	setProgress := func(p models.UploadProgress) {
		mu.Lock()
		form.Stage = p.Stage
		form.Progress = p.Percent
		mu.Unlock()
	}
	form.Error, form.Retryable = "", false

	target := UploadTarget{OwnerID: edit.Owner(), ProjectID: projectID}
	assets, err := s.uploader.UploadAll(ctx, target, form, setProgress)
	if err != nil {
		return s.fail(logCtx, projectID, form, "upload failed", err)
	}

	setProgress(models.UploadProgress{Stage: models.StageSaving, Percent: 100})
	record, err := BuildRecord(edit, form, assets, mode, projectID, s.now())
	if err != nil {
		return s.fail(logCtx, projectID, form, "failed to build record", err)
	}
	result, err := s.writer.Commit(ctx, edit, record, form)
	if err != nil {
		return s.fail(logCtx, projectID, form, "failed to save record", err)
	}

	logCtx.Info("Pitch saved.", "status", record.Status, "notified", result.Notified)
	*form = models.NewFormState()
	form.Stage = models.StageDone
	return &models.SubmitPitchResponse{
		Status:       "success",
		ProjectID:    projectID,
		RecordStatus: record.Status,
		Stage:        models.StageDone,
		Notified:     result.Notified,
	}, nil
}

// WizardSubmit adapts Submit to a wizard session.
func (s *PitchSubmitter) WizardSubmit() wizard.SubmitFunc {
	return func(ctx context.Context, edit models.EditContext, mode models.SaveMode, form *models.FormState) error {
		_, err := s.Submit(ctx, edit, mode, form)
		return err
	}
}

func (s *PitchSubmitter) fail(logCtx *slog.Logger, projectID string, form *models.FormState, message string, err error) (*models.SubmitPitchResponse, error) {
	logCtx.Error(message, "error", err)
	form.Stage = models.StageFailed
	form.Error = fmt.Sprintf("%s: %v", message, err)
	// Validation and permission problems need the user to change something.
	form.Retryable = !errors.Is(err, ErrForbidden) && !errors.Is(err, ErrInvalidTransition)
	return &models.SubmitPitchResponse{
		Status:    "failed",
		ProjectID: projectID,
		Stage:     models.StageFailed,
		Retryable: form.Retryable,
		Error:     form.Error,
	}, fmt.Errorf("%s: %w", message, err)
}
