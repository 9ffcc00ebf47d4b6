package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Lllllllleong/pitchflow/internal/models"
	"github.com/Lllllllleong/pitchflow/internal/wizard"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const pptx = "application/vnd.openxmlformats-officedocument.presentationml.presentation"

func newTestSubmitter(store *memStore, blobs *memBlobs, review ReviewTrigger) *PitchSubmitter {
	s := NewPitchSubmitterWith(store, blobs, review, wizard.DefaultProfile(), 2)
	return s
}

func TestPitchSubmitter_IssuerPublishesNewPitch(t *testing.T) {
	store := newMemStore()
	blobs := newMemBlobs()
	review := &recordingReview{}
	s := newTestSubmitter(store, blobs, review)

	form := completeForm()
	form.CoverChoice = models.CoverFile
	form.AddPending(models.SlotCover, memFile("cover.png", "image/png", "png-bytes"))
	form.AddPending(models.SlotSupporting, memFile("plan.pdf", "application/pdf", "plan"))
	form.AddPending(models.SlotPresentation, memFile("deck.pptx", pptx, "deck"))

	resp, err := s.Submit(context.Background(), models.EditContext{Actor: issuer(), OwnerID: "issuer-1"}, models.ModePublish, &form)
	require.NoError(t, err)

	assert.Equal(t, "success", resp.Status)
	assert.Equal(t, models.StatusBeingChecked, resp.RecordStatus)
	assert.Equal(t, models.StageDone, form.Stage)
	assert.Empty(t, form.Pending(models.SlotCover))
	assert.Equal(t, 3, blobs.count())

	saved, err := store.GetProject(context.Background(), resp.ProjectID)
	require.NoError(t, err)
	assert.Equal(t, "issuer-1", saved.IssuerID)
	require.Len(t, saved.Pitch.Cover, 1)
	assert.Contains(t, saved.Pitch.Cover[0].Path, "issuer-1/projects/"+resp.ProjectID+"/cover/")
	assert.Len(t, saved.Pitch.SupportingDocuments, 1)
	assert.Len(t, saved.Pitch.PresentationDocument, 1)
	assert.Equal(t, []string{resp.ProjectID}, review.calls)
}

func TestPitchSubmitter_PublishRejectsIncompleteForm(t *testing.T) {
	store := newMemStore()
	blobs := newMemBlobs()
	s := newTestSubmitter(store, blobs, nil)

	form := completeForm()
	form.AcceptedTerms = false

	_, err := s.Submit(context.Background(), models.EditContext{Actor: issuer()}, models.ModePublish, &form)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, models.ReasonTermsNotAccepted, verr.Result.Reason)
	assert.Equal(t, models.ReasonTermsNotAccepted, form.ReasonCode)
	assert.True(t, form.ShowPopover)
	assert.Empty(t, store.projects)
}

func TestPitchSubmitter_DraftSkipsValidation(t *testing.T) {
	store := newMemStore()
	s := newTestSubmitter(store, newMemBlobs(), nil)

	form := models.NewFormState()
	form.Name = "Half done"

	resp, err := s.Submit(context.Background(), models.EditContext{Actor: issuer()}, models.ModeSaveDraft, &form)
	require.NoError(t, err)
	assert.Equal(t, models.StatusDraft, resp.RecordStatus)
	activity := store.appendedTo(ActivityCollection)
	require.Len(t, activity, 1)
	assert.Equal(t, ActionDraftSaved, activity[0].(models.ActivityEntry).Action)
}

func TestPitchSubmitter_UploadFailureIsRetryable(t *testing.T) {
	store := newMemStore()
	blobs := newMemBlobs()
	blobs.failOn = "supportingDocuments"
	s := newTestSubmitter(store, blobs, nil)

	form := completeForm()
	form.AddPending(models.SlotSupporting, memFile("plan.pdf", "application/pdf", "plan"))

	resp, err := s.Submit(context.Background(), models.EditContext{Actor: issuer()}, models.ModePublish, &form)
	require.Error(t, err)
	require.NotNil(t, resp)

	assert.Equal(t, "failed", resp.Status)
	assert.True(t, resp.Retryable)
	assert.Equal(t, models.StageFailed, form.Stage)
	assert.True(t, form.Retryable)
	assert.NotEmpty(t, form.Error)
	assert.Empty(t, store.projects)
	// The form keeps its files so the user can retry.
	assert.Len(t, form.Pending(models.SlotSupporting), 1)
}

func TestPitchSubmitter_SaveFailureIsRetryable(t *testing.T) {
	store := newMemStore()
	store.setErr = errors.New("deadline exceeded")
	s := newTestSubmitter(store, newMemBlobs(), nil)

	form := completeForm()
	resp, err := s.Submit(context.Background(), models.EditContext{Actor: issuer()}, models.ModePublish, &form)
	require.Error(t, err)
	assert.Equal(t, models.StageFailed, resp.Stage)
	assert.True(t, resp.Retryable)
}

func TestPitchSubmitter_LiveRecordCannotBecomeDraft(t *testing.T) {
	store := newMemStore()
	s := newTestSubmitter(store, newMemBlobs(), nil)

	live := &models.Project{ID: "l", IssuerID: "issuer-1", Status: models.StatusPitchPhase}
	form := wizard.Hydrate(live)
	resp, err := s.Submit(context.Background(), models.EditContext{Actor: issuer(), Existing: live}, models.ModeSaveDraft, &form)
	require.ErrorIs(t, err, ErrInvalidTransition)
	assert.False(t, resp.Retryable)
}

func TestPitchSubmitter_ProcessEditUsesStoredAttachments(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	blobs := newMemBlobs()
	s := newTestSubmitter(store, blobs, nil)

	existing := &models.Project{
		ID: "l", IssuerID: "issuer-1", Status: models.StatusPitchPhase,
		Pitch: models.Pitch{
			Status:               models.StatusPitchPhase,
			Cover:                models.Attachments{stored("cover")},
			PresentationDocument: models.Attachments{stored("deck")},
			ExpiryDate:           strPtr("2020-01-01"),
		},
	}
	require.NoError(t, store.SetProject(ctx, existing))
	store.addInvestor(VotesCollection, "l", "inv-1")

	form := wizard.Hydrate(existing)
	form.Sector, form.Course, form.Name, form.Description = "s", "c", "New name", "d"
	form.FinancialRound = "seed"
	// A client cannot smuggle attachments in; the stored ones are used.
	form.ExistingSupporting = models.Attachments{stored("forged")}

	req := &models.SubmitPitchRequest{Actor: issuer(), Mode: models.ModePublish, EditID: "l", Form: form}
	resp, err := s.Process(ctx, req, map[models.Slot][]models.PendingFile{
		models.SlotSupporting: {memFile("extra.pdf", "application/pdf", "x")},
	})
	require.NoError(t, err)
	assert.Equal(t, models.StatusPitchPhase, resp.RecordStatus)
	assert.Equal(t, 1, resp.Notified)

	saved, err := store.GetProject(ctx, "l")
	require.NoError(t, err)
	assert.Equal(t, "New name", *saved.ProjectName)
	require.Len(t, saved.Pitch.SupportingDocuments, 1)
	assert.Equal(t, "extra.pdf", saved.Pitch.SupportingDocuments[0].Name)
	assert.Equal(t, existing.Pitch.Cover, saved.Pitch.Cover)
}

func TestPitchSubmitter_ProcessRejectsBadSelection(t *testing.T) {
	s := newTestSubmitter(newMemStore(), newMemBlobs(), nil)
	req := &models.SubmitPitchRequest{Actor: issuer(), Mode: models.ModePublish, Form: completeForm()}

	_, err := s.Process(context.Background(), req, map[models.Slot][]models.PendingFile{
		models.SlotCover: {memFile("cover.exe", "application/x-msdownload", "MZ")},
	})
	var selErr *wizard.SelectionError
	require.ErrorAs(t, err, &selErr)
	assert.Equal(t, models.SlotCover, selErr.Slot)
}

func TestPitchSubmitter_ProcessRefusesForeignRecord(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	require.NoError(t, store.SetProject(ctx, &models.Project{ID: "x", IssuerID: "someone-else", Status: models.StatusDraft}))
	s := newTestSubmitter(store, newMemBlobs(), nil)

	_, err := s.Process(ctx, &models.SubmitPitchRequest{Actor: issuer(), EditID: "x", Form: completeForm()}, nil)
	require.ErrorIs(t, err, ErrForbidden)
}

func TestPitchSubmitter_AdminOnBehalfOfIssuer(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	s := newTestSubmitter(store, newMemBlobs(), nil)
	s.now = func() time.Time { return writeTime }

	req := &models.SubmitPitchRequest{Actor: admin(), Mode: models.ModePublish, IssuerID: "issuer-7", Form: completeForm()}
	resp, err := s.Process(ctx, req, nil)
	require.NoError(t, err)

	saved, err := store.GetProject(ctx, resp.ProjectID)
	require.NoError(t, err)
	assert.Equal(t, "issuer-7", saved.IssuerID)
	assert.Equal(t, "admin-1", saved.CreatedBy)
	assert.Equal(t, models.StatusPitchPhase, saved.Status)
	assert.Equal(t, writeTime, *saved.Pitch.PostedDate)
}
