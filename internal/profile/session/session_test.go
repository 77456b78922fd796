package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"dossier/internal/profile/models"
	dErrors "dossier/pkg/domain-errors"
)

type SessionSuite struct {
	suite.Suite
	original models.Profile
}

func TestSessionSuite(t *testing.T) {
	suite.Run(t, new(SessionSuite))
}

func (s *SessionSuite) SetupTest() {
	dob, err := models.NewDate(1990, time.July, 4)
	s.Require().NoError(err)
	s.original = models.Profile{
		LastName:    "Smirnova",
		FirstName:   "Anna",
		DateOfBirth: &dob,
		Gender:      models.GenderFemale,
	}
}

func (s *SessionSuite) TestOpen() {
	s.Run("copies the original", func() {
		sess := Open(&s.original)
		s.False(sess.ID().IsNil())
		s.Equal(StatePristine, sess.State())
		s.True(sess.Working().Equal(s.original))
		s.Require().NotNil(sess.Original())
		s.True(sess.Original().Equal(s.original))
		s.False(sess.IsChanged())
		s.False(sess.NeedsSavePrompt())
	})

	s.Run("edits never reach the caller's original", func() {
		sess := Open(&s.original)
		s.Require().NoError(sess.Edit(models.FieldLastName, models.StringValue("Petrova")))
		s.Equal("Smirnova", s.original.LastName)
		s.Equal("Smirnova", sess.Original().LastName)
	})

	s.Run("nil original starts from the default profile", func() {
		sess := Open(nil)
		s.Nil(sess.Original())
		s.True(sess.Working().Equal(models.Profile{}))
		s.False(sess.IsChanged())
	})

	s.Run("records the open time", func() {
		now := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
		s.Equal(now, OpenAt(nil, now).OpenedAt())
	})

	s.Run("each session gets its own id", func() {
		s.NotEqual(Open(nil).ID(), Open(nil).ID())
	})
}

func (s *SessionSuite) TestChangeDetection() {
	s.Run("an edit makes the session dirty", func() {
		sess := Open(&s.original)
		s.Require().NoError(sess.Edit(models.FieldFirstName, models.StringValue("Maria")))
		s.Equal(StateDirty, sess.State())
		s.True(sess.IsChanged())
		s.True(sess.NeedsSavePrompt())
	})

	s.Run("editing back to the original clears the change", func() {
		sess := Open(&s.original)
		s.Require().NoError(sess.Edit(models.FieldFirstName, models.StringValue("Maria")))
		s.Require().NoError(sess.Edit(models.FieldFirstName, models.StringValue("Anna")))
		s.Equal(StatePristine, sess.State())
		s.False(sess.IsChanged())
		s.False(sess.NeedsSavePrompt())
	})

	s.Run("setting a field to its current value is not a change", func() {
		sess := Open(&s.original)
		s.Require().NoError(sess.Edit(models.FieldGender, models.GenderValue(models.GenderFemale)))
		s.False(sess.IsChanged())
	})

	s.Run("empty middle name equals an absent one", func() {
		sess := Open(&s.original)
		s.Require().NoError(sess.Edit(models.FieldMiddleName, models.StringValue("")))
		s.False(sess.IsChanged())
	})

	s.Run("clearing the date of birth is a change", func() {
		sess := Open(&s.original)
		s.Require().NoError(sess.Edit(models.FieldDateOfBirth, models.Null()))
		s.True(sess.IsChanged())
		s.True(sess.Get(models.FieldDateOfBirth).IsNull())
	})

	s.Run("without an original any non-default value is a change", func() {
		sess := Open(nil)
		s.Require().NoError(sess.Edit(models.FieldGender, models.GenderValue(models.GenderMale)))
		s.True(sess.IsChanged())
		s.Require().NoError(sess.Edit(models.FieldGender, models.GenderValue(models.GenderUnspecified)))
		s.False(sess.IsChanged())
	})
}

func (s *SessionSuite) TestCommitGating() {
	s.Run("invalid working copy is rejected and the session stays open", func() {
		sess := Open(&s.original)
		s.Require().NoError(sess.Edit(models.FieldLastName, models.StringValue("")))

		_, err := sess.Commit()
		s.Require().Error(err)
		var verr *models.ValidationError
		s.Require().ErrorAs(err, &verr)
		s.Equal([]models.Field{models.FieldLastName}, verr.Missing)
		s.Equal(StateDirty, sess.State())
		s.False(sess.IsValid())

		s.Require().NoError(sess.Edit(models.FieldLastName, models.StringValue("Kuznetsova")))
		committed, err := sess.Commit()
		s.Require().NoError(err)
		s.Equal("Kuznetsova", committed.LastName)
		s.Equal(StateCommitted, sess.State())
	})

	s.Run("unchanged valid session can be committed", func() {
		sess := Open(&s.original)
		committed, err := sess.Commit()
		s.Require().NoError(err)
		s.True(committed.Equal(s.original))
	})

	s.Run("committed profile is independent of the session", func() {
		sess := Open(&s.original)
		s.Require().NoError(sess.Edit(models.FieldMiddleName, models.StringValue("Ivanovna")))
		committed, err := sess.Commit()
		s.Require().NoError(err)
		*committed.MiddleName = "changed"
		s.Equal("Ivanovna", *sess.Working().MiddleName)
	})
}

func (s *SessionSuite) TestTerminalStates() {
	s.Run("committed session rejects further operations", func() {
		sess := Open(&s.original)
		_, err := sess.Commit()
		s.Require().NoError(err)

		err = sess.Edit(models.FieldLastName, models.StringValue("X"))
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidState))
		_, err = sess.Commit()
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidState))
		s.True(dErrors.HasCode(sess.Discard(), dErrors.CodeInvalidState))
		s.False(sess.NeedsSavePrompt())
	})

	s.Run("discarded session drops the working copy", func() {
		sess := Open(&s.original)
		s.Require().NoError(sess.Edit(models.FieldLastName, models.StringValue("Changed")))
		s.Require().NoError(sess.Discard())

		s.Equal(StateDiscarded, sess.State())
		s.True(sess.State().IsTerminal())
		s.False(sess.NeedsSavePrompt())
		s.True(sess.Original().Equal(s.original))

		err := sess.Edit(models.FieldLastName, models.StringValue("Again"))
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidState))
	})
}

// A first run: nothing stored, the user fills the form in stages.
func (s *SessionSuite) TestFreshInstallScenario() {
	sess := Open(nil)
	s.False(sess.NeedsSavePrompt())

	s.Require().NoError(sess.Edit(models.FieldLastName, models.StringValue("Orlov")))
	s.True(sess.NeedsSavePrompt())

	_, err := sess.Commit()
	var verr *models.ValidationError
	s.Require().ErrorAs(err, &verr)
	s.Equal([]models.Field{models.FieldFirstName, models.FieldGender}, verr.Missing)

	s.Require().NoError(sess.Edit(models.FieldFirstName, models.StringValue("Ilya")))
	s.Require().NoError(sess.Edit(models.FieldGender, models.GenderValue(models.GenderMale)))
	s.NoError(sess.Validate())

	committed, err := sess.Commit()
	s.Require().NoError(err)
	s.Equal("Orlov", committed.LastName)
	s.Equal("Ilya", committed.FirstName)
	s.Equal(models.GenderMale, committed.Gender)
	s.Nil(committed.MiddleName)
	s.Nil(committed.DateOfBirth)
	s.Nil(committed.Photo)
}

// A value of the wrong kind never lands in the working copy.
func (s *SessionSuite) TestInvalidEditScenario() {
	sess := Open(&s.original)
	dob, err := models.NewDate(2000, time.January, 1)
	s.Require().NoError(err)

	err = sess.Edit(models.FieldFirstName, models.DateValue(dob))
	var typeErr *models.FieldTypeError
	s.Require().ErrorAs(err, &typeErr)
	s.Equal(models.FieldFirstName, typeErr.Field)
	s.Equal(models.KindDate, typeErr.Got)

	s.Equal(StatePristine, sess.State())
	s.False(sess.IsChanged())
	got, ok := sess.Get(models.FieldFirstName).AsString()
	s.True(ok)
	s.Equal("Anna", got)

	s.Error(sess.Edit(models.FieldGender, models.StringValue("female")))
	s.Error(sess.Edit(models.FieldLastName, models.Null()))
	s.False(sess.IsChanged())
}
