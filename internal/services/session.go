package services

import (
	"context"
	"log/slog"

	"github.com/Lllllllleong/pitchflow/internal/models"
	"github.com/Lllllllleong/pitchflow/internal/wizard"
)

// OpenSession starts a wizard session for actor that submits through s.
// When a draft is being edited the session follows the stored record
// until ctx is done.
func (s *PitchSubmitter) OpenSession(ctx context.Context, actor models.Actor, editID, issuerID string) (*wizard.Session, error) {
	edit, err := s.ResolveEdit(ctx, actor, editID, issuerID)
	if err != nil {
		return nil, err
	}
	session := wizard.NewSession(s.profile, s.validator, edit, s.WizardSubmit())
	if !edit.Editing() || edit.EditingLive() {
		return session, nil
	}

	updates, err := s.store.WatchProject(ctx, edit.Existing.ID)
	if err != nil {
		slog.Warn("Could not follow draft; remote changes will not be shown", "projectId", edit.Existing.ID, "error", err)
		return session, nil
	}
	session.Follow(ctx, updates)
	return session, nil
}
