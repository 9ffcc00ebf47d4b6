package services

import (
	"context"
	"testing"

	"github.com/Lllllllleong/pitchflow/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenSession_NewPitchRunsToSubmit(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	s := newTestSubmitter(store, newMemBlobs(), nil)

	session, err := s.OpenSession(ctx, issuer(), "", "")
	require.NoError(t, err)

	filled := completeForm()
	session.Update(func(f *models.FormState) { *f = filled })
	for i := 0; i <= int(models.LastStep); i++ {
		res, err := session.Advance(ctx)
		require.NoError(t, err)
		require.True(t, res.OK, "step %d: %s", i, res.Reason)
	}

	require.Len(t, store.projects, 1)
	for _, p := range store.projects {
		assert.Equal(t, models.StatusBeingChecked, p.Status)
	}
	assert.Equal(t, models.NewFormState(), session.Form())
}

func TestOpenSession_FollowsDraft(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	store := newMemStore()
	require.NoError(t, store.SetProject(ctx, &models.Project{ID: "d", IssuerID: "issuer-1", Status: models.StatusDraft, ProjectName: strPtr("Draft")}))
	s := newTestSubmitter(store, newMemBlobs(), nil)

	session, err := s.OpenSession(ctx, issuer(), "d", "")
	require.NoError(t, err)
	defer session.Detach()
	assert.Equal(t, "Draft", session.Form().Name)

	// An incomplete draft can be saved from any step.
	session.Update(func(f *models.FormState) { f.Description = "  " })
	require.NoError(t, session.SaveDraft(ctx))
	saved, err := store.GetProject(ctx, "d")
	require.NoError(t, err)
	assert.Equal(t, models.StatusDraft, saved.Status)
	assert.Equal(t, "Draft", *saved.ProjectName)
	assert.Nil(t, saved.Description)
	assert.Equal(t, models.NewFormState(), session.Form())
}

func TestOpenSession_LiveRecordCannotBeSavedAsDraft(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	require.NoError(t, store.SetProject(ctx, &models.Project{ID: "l", IssuerID: "issuer-1", Status: models.StatusPitchPhase, ProjectName: strPtr("Live")}))
	s := newTestSubmitter(store, newMemBlobs(), nil)

	session, err := s.OpenSession(ctx, issuer(), "l", "")
	require.NoError(t, err)

	require.ErrorIs(t, session.SaveDraft(ctx), ErrInvalidTransition)
	form := session.Form()
	assert.Equal(t, "Live", form.Name)
	assert.Equal(t, models.StageFailed, form.Stage)
	assert.False(t, form.Retryable)
}

func TestOpenSession_ForeignDraft(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	require.NoError(t, store.SetProject(ctx, &models.Project{ID: "d", IssuerID: "other", Status: models.StatusDraft}))
	s := newTestSubmitter(store, newMemBlobs(), nil)

	_, err := s.OpenSession(ctx, issuer(), "d", "")
	require.ErrorIs(t, err, ErrForbidden)
}
