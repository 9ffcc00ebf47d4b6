package services

import (
	"context"
	"log/slog"

	"github.com/Lllllllleong/pitchflow/internal/gcp"
	"github.com/Lllllllleong/pitchflow/internal/models"
	"github.com/Lllllllleong/pitchflow/internal/wizard"
)

// StepValidatorFunction answers whether a wizard step may be left.
type StepValidatorFunction struct {
	store     RecordStore
	validator *wizard.Validator
}

// NewStepValidator returns a step validator reading edited records from store.
func NewStepValidator(store RecordStore, validator *wizard.Validator) *StepValidatorFunction {
	return &StepValidatorFunction{store: store, validator: validator}
}

// NewStepValidatorFromEnv creates a StepValidatorFunction configured from the environment.
func NewStepValidatorFromEnv(ctx context.Context) (*StepValidatorFunction, error) {
	projectID, err := requireProjectID()
	if err != nil {
		return nil, err
	}
	profile, err := wizard.LoadProfile(gcp.GetEnv("PITCH_PROFILE", ""))
	if err != nil {
		return nil, err
	}
	b, err := newBackends(ctx, projectID, gcp.GetEnv("PROJECTS_COLLECTION", "projects"), "")
	if err != nil {
		return nil, err
	}
	return NewStepValidator(b.store, wizard.NewValidator(profile)), nil
}

// Process validates req.Step and reports the step the wizard should show next.
func (f *StepValidatorFunction) Process(ctx context.Context, req *models.ValidateStepRequest) (*models.ValidateStepResponse, error) {
	edit, err := resolveEdit(ctx, f.store, req.Actor, req.EditID, "")
	if err != nil {
		slog.Warn("Could not resolve edit context", "editId", req.EditID, "error", err)
		return nil, err
	}
	form := req.Form
	form.ClearPending()
	useStoredAttachments(&form, edit)
	for slot, files := range req.Selected {
		for _, file := range files {
			form.AddPending(slot, file)
		}
	}

	res := f.validator.Validate(req.Step, &form, edit)
	out := &models.ValidateStepResponse{ValidationResult: res, NextStep: req.Step, ShowPopover: !res.OK}
	if res.OK && !res.Submit && req.Step < models.LastStep {
		out.NextStep = req.Step + 1
	}
	return out, nil
}
