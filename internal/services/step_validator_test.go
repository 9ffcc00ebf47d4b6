package services

import (
	"context"
	"testing"

	"github.com/Lllllllleong/pitchflow/internal/models"
	"github.com/Lllllllleong/pitchflow/internal/wizard"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStepValidator_Process(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	live := &models.Project{
		ID: "l", IssuerID: "issuer-1", Status: models.StatusPitchPhase,
		Pitch: models.Pitch{Cover: models.Attachments{stored("cover")}},
	}
	require.NoError(t, store.SetProject(ctx, live))
	f := NewStepValidator(store, wizard.NewValidator(wizard.DefaultProfile()))

	tests := []struct {
		name       string
		req        models.ValidateStepRequest
		wantOK     bool
		wantReason models.ReasonCode
		wantNext   models.Step
		wantSubmit bool
	}{
		{
			name:       "general info incomplete",
			req:        models.ValidateStepRequest{Actor: issuer(), Step: models.StepGeneralInfo, Form: models.NewFormState()},
			wantReason: models.ReasonMissingFields,
			wantNext:   models.StepGeneralInfo,
		},
		{
			name:     "general info complete",
			req:      models.ValidateStepRequest{Actor: issuer(), Step: models.StepGeneralInfo, Form: completeForm()},
			wantOK:   true,
			wantNext: models.StepCover,
		},
		{
			name: "cover from selected file",
			req: models.ValidateStepRequest{
				Actor: issuer(), Step: models.StepCover,
				Form:     models.FormState{CoverChoice: models.CoverFile},
				Selected: map[models.Slot][]models.PendingFile{models.SlotCover: {memFile("c.png", "image/png", "x")}},
			},
			wantOK:   true,
			wantNext: models.StepDeck,
		},
		{
			name:     "cover kept from stored record",
			req:      models.ValidateStepRequest{Actor: issuer(), Step: models.StepCover, EditID: "l", Form: models.FormState{CoverChoice: models.CoverFile}},
			wantOK:   true,
			wantNext: models.StepDeck,
		},
		{
			name:       "supporting docs submit a live edit",
			req:        models.ValidateStepRequest{Actor: issuer(), Step: models.StepSupportingDocs, EditID: "l"},
			wantOK:     true,
			wantNext:   models.StepSupportingDocs,
			wantSubmit: true,
		},
		{
			name:     "supporting docs lead to terms",
			req:      models.ValidateStepRequest{Actor: issuer(), Step: models.StepSupportingDocs},
			wantOK:   true,
			wantNext: models.StepTerms,
		},
		{
			name:       "out of range",
			req:        models.ValidateStepRequest{Actor: issuer(), Step: models.Step(9)},
			wantReason: models.ReasonInvalidStep,
			wantNext:   models.Step(9),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := f.Process(ctx, &tt.req)
			require.NoError(t, err)
			assert.Equal(t, tt.wantOK, resp.OK)
			assert.Equal(t, tt.wantReason, resp.Reason)
			assert.Equal(t, tt.wantNext, resp.NextStep)
			assert.Equal(t, tt.wantSubmit, resp.Submit)
			assert.Equal(t, !tt.wantOK, resp.ShowPopover)
		})
	}
}

func TestStepValidator_ForeignRecord(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	require.NoError(t, store.SetProject(ctx, &models.Project{ID: "x", IssuerID: "other"}))
	f := NewStepValidator(store, wizard.NewValidator(wizard.DefaultProfile()))

	_, err := f.Process(ctx, &models.ValidateStepRequest{Actor: issuer(), EditID: "x"})
	require.ErrorIs(t, err, ErrForbidden)
}
