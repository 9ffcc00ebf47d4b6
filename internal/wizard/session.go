package wizard

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/Lllllllleong/pitchflow/internal/models"
)

// SubmitFunc persists the wizard form. Publishing happens once the last
// step passes; drafts may be saved at any step.
type SubmitFunc func(ctx context.Context, edit models.EditContext, mode models.SaveMode, form *models.FormState) error

// DraftRemover deletes a draft record together with its blobs.
type DraftRemover interface {
	DeleteDraft(ctx context.Context, record *models.Project) error
}

// Session is the wizard's form state store for a single user.
type Session struct {
	mu        sync.Mutex
	form      models.FormState
	edit      models.EditContext
	profile   Profile
	validator *Validator
	submit    SubmitFunc
	navigate  func(NavState)

	dirty    bool
	conflict bool
	stop     context.CancelFunc
	// following identifies the active Follow call; updates from an
	// earlier call are ignored.
	following int
}

// NewSession starts a wizard. When edit carries an existing record the
// form is hydrated from it.
func NewSession(profile Profile, validator *Validator, edit models.EditContext, submit SubmitFunc) *Session {
	s := &Session{
		profile:   profile,
		validator: validator,
		edit:      edit,
		submit:    submit,
		form:      models.NewFormState(),
	}
	if edit.Existing != nil {
		s.form = Hydrate(edit.Existing)
	}
	return s
}

// OnNavigate registers a callback receiving the navigation state after
// every step change.
func (s *Session) OnNavigate(fn func(NavState)) {
	s.mu.Lock()
	s.navigate = fn
	s.mu.Unlock()
}

// Form returns a copy of the current form state.
func (s *Session) Form() models.FormState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.form
}

// Conflict reports whether a remote update was dropped because of
// unsaved local edits.
func (s *Session) Conflict() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conflict
}

// Update applies a user edit to the form.
func (s *Session) Update(fn func(form *models.FormState)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(&s.form)
	s.dirty = true
}

// AddFile checks a selected file and buffers it for upload.
func (s *Session) AddFile(slot models.Slot, file models.PendingFile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	already := len(s.form.Pending(slot))
	if slot == models.SlotSupporting {
		already += len(s.form.Existing(slot).Active())
	}
	if err := CheckSelection(s.profile, slot, file, already); err != nil {
		return err
	}
	s.form.AddPending(slot, file)
	s.dirty = true
	return nil
}

// RemoveExisting tags a stored attachment for removal on the next save.
func (s *Session) RemoveExisting(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.form.RemovedAttachments = append(s.form.RemovedAttachments, key)
	s.dirty = true
}

// Advance validates the current step. On success it moves to the next
// step, or submits when the step is terminal.
func (s *Session) Advance(ctx context.Context) (models.ValidationResult, error) {
	s.mu.Lock()
	res := s.validator.Validate(s.form.Step, &s.form, s.edit)
	if !res.OK {
		s.form.ReasonCode = res.Reason
		s.form.ShowPopover = true
		s.mu.Unlock()
		return res, nil
	}
	s.form.ReasonCode = models.ReasonNone
	s.form.ShowPopover = false

	if !res.Submit {
		s.form.Step++
		nav, navigate := s.navState(), s.navigate
		s.mu.Unlock()
		if navigate != nil {
			navigate(nav)
		}
		return res, nil
	}

	s.mu.Unlock()
	return res, s.save(ctx, models.ModePublish)
}

// SaveDraft saves the form as it is, at any step and without step
// validation.
func (s *Session) SaveDraft(ctx context.Context) error {
	return s.save(ctx, models.ModeSaveDraft)
}

func (s *Session) save(ctx context.Context, mode models.SaveMode) error {
	if s.submit == nil {
		return fmt.Errorf("wizard has no submit handler")
	}
	s.mu.Lock()
	form := s.form
	edit := s.edit
	s.mu.Unlock()

	err := s.submit(ctx, edit, mode, &form)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.form.ReasonCode = form.ReasonCode
		s.form.ShowPopover = form.ShowPopover
		s.form.Stage = form.Stage
		s.form.Progress = form.Progress
		s.form.Error = form.Error
		s.form.Retryable = form.Retryable
		return err
	}
	// Stop following so the saved record's own snapshot cannot refill the form.
	s.detachLocked()
	s.edit = models.EditContext{Actor: edit.Actor, OwnerID: edit.OwnerID}
	s.resetLocked()
	return nil
}

// Back moves to the previous step.
func (s *Session) Back() {
	s.mu.Lock()
	if s.form.Step == models.StepGeneralInfo {
		s.mu.Unlock()
		return
	}
	s.form.Step--
	s.form.ReasonCode = models.ReasonNone
	s.form.ShowPopover = false
	nav, navigate := s.navState(), s.navigate
	s.mu.Unlock()
	if navigate != nil {
		navigate(nav)
	}
}

// Reset discards all form values and buffered files.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resetLocked()
}

func (s *Session) resetLocked() {
	s.form = models.NewFormState()
	s.dirty = false
	s.conflict = false
}

func (s *Session) navState() NavState {
	nav := NavState{Step: s.form.Step}
	if s.edit.Existing != nil {
		nav.EditID = s.edit.Existing.ID
	}
	if s.edit.Actor.Role == models.RoleAdmin && s.edit.OwnerID != "" && s.edit.OwnerID != s.edit.Actor.ID {
		nav.AdminID = s.edit.Actor.ID
		nav.IssuerID = s.edit.OwnerID
	}
	return nav
}

// Follow applies remote updates of the draft being edited until ctx is
// done, the channel closes or Detach is called. Updates arriving while
// the user has unsaved edits are dropped and flagged as a conflict
// instead of overwriting local work.
func (s *Session) Follow(ctx context.Context, updates <-chan *models.Project) {
	ctx, cancel := context.WithCancel(ctx)
	s.mu.Lock()
	s.detachLocked()
	s.stop = cancel
	s.following++
	id := s.following
	s.mu.Unlock()

	go func() {
		defer cancel()
		for {
			select {
			case <-ctx.Done():
				return
			case p, ok := <-updates:
				if !ok {
					return
				}
				s.applyRemote(id, p)
			}
		}
	}()
}

func (s *Session) applyRemote(id int, p *models.Project) {
	if p == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stop == nil || id != s.following {
		return
	}
	if s.dirty {
		s.conflict = true
		slog.Warn("Remote update dropped, local edits pending.", "projectId", p.ID)
		return
	}
	step := s.form.Step
	s.edit.Existing = p
	s.form = Hydrate(p)
	s.form.Step = step
}

// Detach stops following remote updates.
func (s *Session) Detach() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.detachLocked()
}

func (s *Session) detachLocked() {
	if s.stop != nil {
		s.stop()
		s.stop = nil
	}
}

// DeleteDraft removes the draft being edited, then clears the session.
func (s *Session) DeleteDraft(ctx context.Context, remover DraftRemover) error {
	s.mu.Lock()
	record := s.edit.Existing
	s.mu.Unlock()
	if record == nil {
		return fmt.Errorf("no draft loaded")
	}
	if err := remover.DeleteDraft(ctx, record); err != nil {
		return err
	}
	s.Detach()
	s.mu.Lock()
	s.edit.Existing = nil
	s.resetLocked()
	s.mu.Unlock()
	return nil
}

// Hydrate builds form state from a stored record. Null fields become
// empty strings.
func Hydrate(p *models.Project) models.FormState {
	form := models.NewFormState()
	form.Sector = deref(p.Sector)
	form.Course = deref(p.Course)
	form.Name = deref(p.ProjectName)
	form.Description = deref(p.Description)
	form.Visible = p.Visible
	form.FinancialRound = deref(p.Pitch.FinancialRound)
	form.ExpiryDate = deref(p.Pitch.ExpiryDate)
	form.PresentationText = deref(p.Pitch.PresentationText)
	if len(p.Extra) > 0 {
		form.Extra = make(map[string]string, len(p.Extra))
		for k, v := range p.Extra {
			form.Extra[k] = deref(v)
		}
	}
	form.ExistingCover = p.Pitch.Cover
	form.ExistingSupporting = p.Pitch.SupportingDocuments
	form.ExistingPresentation = p.Pitch.PresentationDocument
	for _, c := range p.Pitch.Cover.Active() {
		if c.Type == models.VideoType {
			form.CoverChoice = models.CoverVideoURL
			form.VideoURL = c.URL
		} else {
			form.CoverChoice = models.CoverFile
		}
	}
	// Editing a published record has already been through the terms page.
	form.AcceptedTerms = p.Status.Live()
	return form
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
