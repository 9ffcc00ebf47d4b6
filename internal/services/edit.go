package services

import (
	"context"
	"fmt"

	"github.com/Lllllllleong/pitchflow/internal/models"
)

// resolveEdit builds the edit context for a request. editID loads an
// existing record; issuerID lets an admin create a record for an issuer.
func resolveEdit(ctx context.Context, store RecordStore, actor models.Actor, editID, issuerID string) (models.EditContext, error) {
	edit := models.EditContext{Actor: actor, OwnerID: actor.ID}
	if editID != "" {
		record, err := store.GetProject(ctx, editID)
		if err != nil {
			return edit, err
		}
		if actor.Role != models.RoleAdmin && record.IssuerID != actor.ID {
			return edit, fmt.Errorf("project %s: %w", editID, ErrForbidden)
		}
		edit.Existing = record
		edit.OwnerID = record.IssuerID
		return edit, nil
	}
	if issuerID != "" && issuerID != actor.ID {
		if actor.Role != models.RoleAdmin {
			return edit, fmt.Errorf("only admins may create records for another issuer: %w", ErrForbidden)
		}
		edit.OwnerID = issuerID
	}
	return edit, nil
}

// useStoredAttachments replaces client-sent attachment lists with the
// stored ones.
func useStoredAttachments(form *models.FormState, edit models.EditContext) {
	form.ExistingCover, form.ExistingSupporting, form.ExistingPresentation = nil, nil, nil
	if edit.Existing == nil {
		return
	}
	form.ExistingCover = edit.Existing.Pitch.Cover
	form.ExistingSupporting = edit.Existing.Pitch.SupportingDocuments
	form.ExistingPresentation = edit.Existing.Pitch.PresentationDocument
}
