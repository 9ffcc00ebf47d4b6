package main

import (
	"bytes"
	"context"
	"testing"

	"github.com/Lllllllleong/pitchflow/internal/models"
	"github.com/Lllllllleong/pitchflow/internal/wizard"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordedSave struct {
	mode models.SaveMode
	form models.FormState
}

func recordingSession(saves *[]recordedSave) *wizard.Session {
	submit := func(_ context.Context, _ models.EditContext, mode models.SaveMode, form *models.FormState) error {
		*saves = append(*saves, recordedSave{mode: mode, form: *form})
		return nil
	}
	return wizard.NewSession(wizard.DefaultProfile(), wizard.NewValidator(wizard.DefaultProfile()), models.EditContext{}, submit)
}

func TestDriveSession_DraftSavesIncompleteForm(t *testing.T) {
	var saves []recordedSave
	session := recordingSession(&saves)
	session.Update(func(f *models.FormState) { f.Name = "Only a name" })

	var out bytes.Buffer
	require.NoError(t, driveSession(context.Background(), session, true, &out))

	require.Len(t, saves, 1)
	assert.Equal(t, models.ModeSaveDraft, saves[0].mode)
	assert.Equal(t, "Only a name", saves[0].form.Name)
	assert.Equal(t, "saved draft\n", out.String())
}

func TestDriveSession_PublishStopsAtFailingStep(t *testing.T) {
	var saves []recordedSave
	session := recordingSession(&saves)
	session.Update(func(f *models.FormState) { f.Name = "Only a name" })

	var out bytes.Buffer
	require.Error(t, driveSession(context.Background(), session, false, &out))
	assert.Empty(t, saves)
	assert.Equal(t, "FAIL missing-fields at general-info\n", out.String())
}

func TestActorFlagsAreKeptPerCommand(t *testing.T) {
	require.NoError(t, submitCmd.Flags().Set("actor", "issuer-1"))
	require.NoError(t, deleteDraftCmd.Flags().Set("actor", "admin-1"))

	assert.Equal(t, "issuer-1", submitActorID)
	assert.Equal(t, "admin-1", deleteActorID)
	assert.Equal(t, string(models.RoleIssuer), submitRole)
	assert.Equal(t, string(models.RoleAdmin), deleteActorRole)
}
