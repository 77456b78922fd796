// Package session holds the working copy of a profile while it is being
// edited and decides whether that copy differs from what was loaded.
package session

import (
	"time"

	"dossier/internal/profile/models"
	id "dossier/pkg/domain"
	dErrors "dossier/pkg/domain-errors"
)

// State is the lifecycle position of an edit session.
type State string

const (
	StatePristine  State = "pristine"
	StateDirty     State = "dirty"
	StateCommitted State = "committed"
	StateDiscarded State = "discarded"
)

func (s State) String() string { return string(s) }

// IsTerminal reports whether no further edits are accepted.
func (s State) IsTerminal() bool {
	return s == StateCommitted || s == StateDiscarded
}

// Session is one editing pass over a profile.
//
// Invariants:
//   - working is a deep copy; the original is never mutated through it
//   - state is dirty iff the working copy differs from the baseline
//     (the original, or the all-default profile when there was none)
//   - committed and discarded are terminal
//   - a failed commit leaves the session open so the caller can retry
type Session struct {
	id       id.EditSessionID
	original *models.Profile
	working  models.Profile
	state    State
	openedAt time.Time
}

// Open starts a session over a copy of original. A nil original means no
// profile exists yet and editing starts from the all-default profile.
func Open(original *models.Profile) *Session {
	return OpenAt(original, time.Now())
}

// OpenAt is Open with an explicit open time.
func OpenAt(original *models.Profile, now time.Time) *Session {
	s := &Session{
		id:       id.NewEditSessionID(),
		state:    StatePristine,
		openedAt: now,
	}
	if original != nil {
		o := original.Clone()
		s.original = &o
		s.working = original.Clone()
	}
	return s
}

func (s *Session) ID() id.EditSessionID { return s.id }
func (s *Session) State() State         { return s.state }
func (s *Session) OpenedAt() time.Time  { return s.openedAt }

// Working returns a copy of the working profile.
func (s *Session) Working() models.Profile { return s.working.Clone() }

// Original returns a copy of the profile the session was opened with, or nil.
func (s *Session) Original() *models.Profile {
	if s.original == nil {
		return nil
	}
	o := s.original.Clone()
	return &o
}

// Get reads a field of the working copy.
func (s *Session) Get(f models.Field) models.Value {
	return s.working.Get(f)
}

// Edit applies value to field on the working copy. A value of the wrong kind
// is rejected with *models.FieldTypeError and nothing changes.
func (s *Session) Edit(f models.Field, v models.Value) error {
	if err := s.ensureOpen("edit"); err != nil {
		return err
	}
	if err := s.working.Set(f, v); err != nil {
		return err
	}
	s.refreshState()
	return nil
}

// IsChanged reports whether the working copy differs from the baseline.
func (s *Session) IsChanged() bool {
	return !s.working.Equal(s.baseline())
}

// NeedsSavePrompt reports whether leaving now would lose edits.
func (s *Session) NeedsSavePrompt() bool {
	return !s.state.IsTerminal() && s.IsChanged()
}

// Validate checks the working copy's required fields.
func (s *Session) Validate() error {
	return s.working.Validate()
}

// IsValid reports whether the working copy would pass Validate.
func (s *Session) IsValid() bool {
	return s.working.IsValid()
}

// Commit returns the working copy for persistence and closes the session.
// An invalid working copy yields *models.ValidationError and the session
// stays open.
func (s *Session) Commit() (models.Profile, error) {
	if err := s.ensureOpen("commit"); err != nil {
		return models.Profile{}, err
	}
	if err := s.working.Validate(); err != nil {
		return models.Profile{}, err
	}
	s.state = StateCommitted
	return s.working.Clone(), nil
}

// Discard closes the session and drops the working copy.
func (s *Session) Discard() error {
	if err := s.ensureOpen("discard"); err != nil {
		return err
	}
	s.state = StateDiscarded
	s.working = models.Profile{}
	return nil
}

func (s *Session) baseline() models.Profile {
	if s.original == nil {
		return models.Profile{}
	}
	return *s.original
}

func (s *Session) refreshState() {
	if s.IsChanged() {
		s.state = StateDirty
	} else {
		s.state = StatePristine
	}
}

func (s *Session) ensureOpen(op string) error {
	if s.state.IsTerminal() {
		return dErrors.New(dErrors.CodeInvalidState, "cannot "+op+": session is "+s.state.String())
	}
	return nil
}
