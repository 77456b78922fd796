package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"dossier/internal/profile/gateway"
	"dossier/internal/profile/handler/mocks"
	"dossier/internal/profile/models"
	"dossier/internal/profile/service"
	"dossier/internal/profile/session"
	id "dossier/pkg/domain"
	dErrors "dossier/pkg/domain-errors"
	"dossier/pkg/testutil"
)

//go:generate mockgen -source=handler.go -destination=mocks/mocks.go -package=mocks Service
type ProfileHandlerSuite struct {
	suite.Suite
	service *mocks.MockService
	router  chi.Router
}

func TestProfileHandlerSuite(t *testing.T) {
	suite.Run(t, new(ProfileHandlerSuite))
}

func (s *ProfileHandlerSuite) SetupTest() {
	ctrl := gomock.NewController(s.T())
	s.service = mocks.NewMockService(ctrl)
	h := New(s.service, slog.New(slog.NewTextHandler(io.Discard, nil)), nil, 0)
	s.router = chi.NewRouter()
	h.Register(s.router)
}

func (s *ProfileHandlerSuite) do(method, path string, body io.Reader) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, body)
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *ProfileHandlerSuite) decode(w *httptest.ResponseRecorder) map[string]any {
	var body map[string]any
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func sampleProfile() models.Profile {
	dob, _ := models.NewDate(1975, 11, 30)
	return models.Profile{
		LastName:    "Morozov",
		FirstName:   "Oleg",
		DateOfBirth: &dob,
		Gender:      models.GenderMale,
	}
}

func sampleView(state session.State) service.SessionView {
	p := sampleProfile()
	return service.SessionView{
		ID:         id.NewEditSessionID(),
		State:      state,
		LoadStatus: gateway.StatusFound,
		Working:    p,
		Valid:      true,
	}
}

func (s *ProfileHandlerSuite) TestGetProfile() {
	s.Run("found", func() {
		s.service.EXPECT().Load(gomock.Any()).
			Return(gateway.LoadResult{Status: gateway.StatusFound, Profile: sampleProfile()}, nil)

		w := s.do(http.MethodGet, "/profile", nil)
		s.Equal(http.StatusOK, w.Code)
		body := s.decode(w)
		s.Equal("found", body["status"])
		s.Equal(true, body["valid"])
		profile := body["profile"].(map[string]any)
		s.Equal("Morozov", profile["lastName"])
		s.Equal("1975-11-30", profile["dateOfBirth"])
		s.Equal("male", profile["gender"])
		s.NotContains(profile, "middleName")

		rows := body["rows"].([]any)
		s.Len(rows, len(models.Fields()))
		dobRow := rows[models.FieldDateOfBirth.Ordinal()].(map[string]any)
		s.Equal("Date of birth", dobRow["label"])
		s.Equal("30.11.1975", dobRow["text"])
	})

	s.Run("corrupt reports the default profile", func() {
		s.service.EXPECT().Load(gomock.Any()).
			Return(gateway.LoadResult{Status: gateway.StatusCorrupt, Cause: errors.New("bad")}, nil)

		w := s.do(http.MethodGet, "/profile", nil)
		s.Equal(http.StatusOK, w.Code)
		body := s.decode(w)
		s.Equal("corrupt", body["status"])
		s.Equal(false, body["valid"])
	})

	s.Run("storage failure", func() {
		s.service.EXPECT().Load(gomock.Any()).
			Return(gateway.LoadResult{}, dErrors.New(dErrors.CodeUnavailable, "read profile slot"))

		w := s.do(http.MethodGet, "/profile", nil)
		s.Equal(http.StatusServiceUnavailable, w.Code)
	})
}

func (s *ProfileHandlerSuite) TestListFields() {
	w := s.do(http.MethodGet, "/profile/fields", nil)
	s.Equal(http.StatusOK, w.Code)

	fields := *testutil.UnmarshalResponse[[]fieldResponse](s.T(), w)
	s.Require().Len(fields, 6)
	s.Equal(fieldResponse{Ordinal: 0, Key: "lastName", Label: "Last name", Kind: "string", Required: true}, fields[0])
	s.Equal("gender", fields[4].Key)
	s.Equal("photo", fields[5].Key)
	s.True(fields[5].Nullable)
}

func (s *ProfileHandlerSuite) TestGetPhoto() {
	s.Run("returns bytes with a sniffed content type", func() {
		png := []byte("\x89PNG\r\n\x1a\n0000")
		s.service.EXPECT().Photo(gomock.Any()).Return(png, nil)

		w := s.do(http.MethodGet, "/profile/photo", nil)
		s.Equal(http.StatusOK, w.Code)
		s.Equal("image/png", w.Header().Get("Content-Type"))
		s.Equal(png, w.Body.Bytes())
	})

	s.Run("no photo", func() {
		s.service.EXPECT().Photo(gomock.Any()).Return(nil, dErrors.New(dErrors.CodeNotFound, "profile has no photo"))
		w := s.do(http.MethodGet, "/profile/photo", nil)
		s.Equal(http.StatusNotFound, w.Code)
	})
}

func (s *ProfileHandlerSuite) TestBeginSession() {
	view := sampleView(session.StatePristine)
	s.service.EXPECT().Begin(gomock.Any()).Return(view, nil)

	w := s.do(http.MethodPost, "/profile/sessions", nil)
	s.Equal(http.StatusCreated, w.Code)
	body := s.decode(w)
	s.Equal(view.ID.String(), body["id"])
	s.Equal("pristine", body["state"])
	s.Equal("found", body["load_status"])
	s.Equal(false, body["needs_save_prompt"])
}

func (s *ProfileHandlerSuite) TestGetSession() {
	s.Run("known session", func() {
		view := sampleView(session.StateDirty)
		view.Changed = true
		view.NeedsSavePrompt = true
		s.service.EXPECT().Session(gomock.Any(), view.ID).Return(view, nil)

		w := s.do(http.MethodGet, "/profile/sessions/"+view.ID.String(), nil)
		s.Equal(http.StatusOK, w.Code)
		body := s.decode(w)
		s.Equal("dirty", body["state"])
		s.Equal(true, body["changed"])
		s.Equal(true, body["needs_save_prompt"])
	})

	s.Run("malformed id never reaches the service", func() {
		w := s.do(http.MethodGet, "/profile/sessions/not-a-uuid", nil)
		testutil.AssertStatusAndError(s.T(), w, http.StatusBadRequest, "invalid_input")
	})

	s.Run("unknown session", func() {
		sessionID := id.NewEditSessionID()
		s.service.EXPECT().Session(gomock.Any(), sessionID).
			Return(service.SessionView{}, dErrors.New(dErrors.CodeNotFound, "edit session not found"))
		w := s.do(http.MethodGet, "/profile/sessions/"+sessionID.String(), nil)
		s.Equal(http.StatusNotFound, w.Code)
	})
}

func (s *ProfileHandlerSuite) TestEditField() {
	view := sampleView(session.StateDirty)
	path := "/profile/sessions/" + view.ID.String() + "/fields/"

	s.Run("parses the value for the field's kind", func() {
		dob, _ := models.NewDate(1980, 2, 29)
		s.service.EXPECT().Edit(gomock.Any(), view.ID, models.FieldDateOfBirth, models.DateValue(dob)).Return(view, nil)

		w := s.do(http.MethodPut, path+"dateOfBirth", strings.NewReader(`{"value":"1980-02-29"}`))
		s.Equal(http.StatusOK, w.Code)
	})

	s.Run("null clears an optional field", func() {
		s.service.EXPECT().Edit(gomock.Any(), view.ID, models.FieldMiddleName, models.Null()).Return(view, nil)

		w := s.do(http.MethodPut, path+"middleName", strings.NewReader(`{"value":null}`))
		s.Equal(http.StatusOK, w.Code)
	})

	s.Run("gender by name", func() {
		s.service.EXPECT().Edit(gomock.Any(), view.ID, models.FieldGender, models.GenderValue(models.GenderFemale)).Return(view, nil)

		w := testutil.DoRequest(s.router, testutil.EditValueRequest(s.T(), path+"gender", "female"))
		s.Equal(http.StatusOK, w.Code)
	})

	s.Run("unknown field", func() {
		w := s.do(http.MethodPut, path+"nickname", strings.NewReader(`{"value":"x"}`))
		s.Equal(http.StatusBadRequest, w.Code)
	})

	s.Run("unparseable value", func() {
		w := testutil.DoRequest(s.router, testutil.EditValueRequest(s.T(), path+"dateOfBirth", "31.12.1999"))
		testutil.AssertStatusAndError(s.T(), w, http.StatusBadRequest, "invalid_input")
	})

	s.Run("malformed body", func() {
		w := s.do(http.MethodPut, path+"lastName", strings.NewReader(`{"value":`))
		testutil.AssertStatusAndError(s.T(), w, http.StatusBadRequest, "bad_request")
	})

	s.Run("terminal session", func() {
		s.service.EXPECT().Edit(gomock.Any(), view.ID, models.FieldLastName, models.StringValue("X")).
			Return(service.SessionView{}, dErrors.New(dErrors.CodeInvalidState, "cannot edit: session is committed"))

		w := s.do(http.MethodPut, path+"lastName", strings.NewReader(`{"value":"X"}`))
		s.Equal(http.StatusConflict, w.Code)
	})
}

func (s *ProfileHandlerSuite) TestUploadPhoto() {
	view := sampleView(session.StateDirty)
	s.service.EXPECT().UploadPhoto(gomock.Any(), view.ID, []byte("jpeg")).Return(view, nil)

	w := s.do(http.MethodPut, "/profile/sessions/"+view.ID.String()+"/photo", bytes.NewReader([]byte("jpeg")))
	s.Equal(http.StatusOK, w.Code)
}

func (s *ProfileHandlerSuite) TestCommit() {
	sessionID := id.NewEditSessionID()
	path := "/profile/sessions/" + sessionID.String() + "/commit"

	s.Run("saved", func() {
		s.service.EXPECT().Commit(gomock.Any(), sessionID).Return(sampleProfile(), nil)

		w := s.do(http.MethodPost, path, nil)
		s.Equal(http.StatusOK, w.Code)
		profile := s.decode(w)["profile"].(map[string]any)
		s.Equal("Oleg", profile["firstName"])
	})

	s.Run("incomplete profile lists the missing fields", func() {
		verr := &models.ValidationError{Missing: []models.Field{models.FieldFirstName, models.FieldGender}}
		s.service.EXPECT().Commit(gomock.Any(), sessionID).
			Return(models.Profile{}, dErrors.Wrap(verr, dErrors.CodeValidation, "profile is incomplete"))

		w := s.do(http.MethodPost, path, nil)
		s.Equal(http.StatusUnprocessableEntity, w.Code)
		body := s.decode(w)
		s.Equal("validation", body["error"])
		s.Equal([]any{"firstName", "gender"}, body["missing"])
	})

	s.Run("save failure", func() {
		s.service.EXPECT().Commit(gomock.Any(), sessionID).
			Return(models.Profile{}, dErrors.New(dErrors.CodeUnavailable, "write profile slot"))

		w := s.do(http.MethodPost, path, nil)
		testutil.AssertStatusAndError(s.T(), w, http.StatusServiceUnavailable, "unavailable")
	})
}

func (s *ProfileHandlerSuite) TestDiscardSession() {
	sessionID := id.NewEditSessionID()
	s.service.EXPECT().Discard(gomock.Any(), sessionID).Return(nil)

	w := s.do(http.MethodDelete, "/profile/sessions/"+sessionID.String(), nil)
	s.Equal(http.StatusNoContent, w.Code)
}

func TestRegisterWithoutMetrics(t *testing.T) {
	ctrl := gomock.NewController(t)
	svc := mocks.NewMockService(ctrl)
	svc.EXPECT().Load(gomock.Any()).Return(gateway.LoadResult{Status: gateway.StatusAbsent}, nil)

	r := chi.NewRouter()
	New(svc, slog.New(slog.NewTextHandler(io.Discard, nil)), nil, 0).Register(r)

	req := httptest.NewRequest(http.MethodGet, "/profile", nil).WithContext(context.Background())
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if w.Header().Get("X-Request-ID") == "" {
		t.Fatal("expected a request id header")
	}
}
