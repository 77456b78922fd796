package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"dossier/internal/platform/metrics"
	"dossier/internal/platform/middleware"
	"dossier/internal/profile/gateway"
	"dossier/internal/profile/models"
	"dossier/internal/profile/service"
	id "dossier/pkg/domain"
	dErrors "dossier/pkg/domain-errors"
	"dossier/pkg/platform/httputil"
)

// maxPhotoBytes bounds a photo upload body.
const maxPhotoBytes = 10 << 20

// maxEditBytes bounds a field edit body.
const maxEditBytes = 64 << 10

// Service defines the profile operations the HTTP layer drives.
type Service interface {
	Load(ctx context.Context) (gateway.LoadResult, error)
	Begin(ctx context.Context) (service.SessionView, error)
	Session(ctx context.Context, sessionID id.EditSessionID) (service.SessionView, error)
	Edit(ctx context.Context, sessionID id.EditSessionID, field models.Field, value models.Value) (service.SessionView, error)
	UploadPhoto(ctx context.Context, sessionID id.EditSessionID, data []byte) (service.SessionView, error)
	Commit(ctx context.Context, sessionID id.EditSessionID) (models.Profile, error)
	Discard(ctx context.Context, sessionID id.EditSessionID) error
	Photo(ctx context.Context) ([]byte, error)
}

// Handler exposes the profile and its edit session over HTTP.
type Handler struct {
	profiles Service
	logger   *slog.Logger
	metrics  *metrics.Metrics
	timeout  time.Duration
}

// New creates a profile Handler.
func New(profiles Service, logger *slog.Logger, m *metrics.Metrics, timeout time.Duration) *Handler {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Handler{
		profiles: profiles,
		logger:   logger,
		metrics:  m,
		timeout:  timeout,
	}
}

// Register mounts the profile routes on r.
func (h *Handler) Register(r chi.Router) {
	profileRouter := chi.NewRouter()
	profileRouter.Use(middleware.Recovery(h.logger))
	profileRouter.Use(middleware.RequestID)
	profileRouter.Use(middleware.RequestTime)
	profileRouter.Use(middleware.Logger(h.logger))
	profileRouter.Use(middleware.Timeout(h.timeout))
	profileRouter.Use(middleware.ContentTypeJSON)
	profileRouter.Use(middleware.Latency(h.metrics))

	profileRouter.Get("/", h.handleGetProfile)
	profileRouter.Get("/fields", h.handleListFields)
	profileRouter.Get("/photo", h.handleGetPhoto)
	profileRouter.Post("/sessions", h.handleBeginSession)
	profileRouter.Route("/sessions/{sessionID}", func(sr chi.Router) {
		sr.Get("/", h.handleGetSession)
		sr.Delete("/", h.handleDiscardSession)
		sr.Put("/fields/{field}", h.handleEditField)
		sr.Put("/photo", h.handleUploadPhoto)
		sr.Post("/commit", h.handleCommit)
	})

	r.Mount("/profile", profileRouter)
}

func (h *Handler) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	result, err := h.profiles.Load(ctx)
	if err != nil {
		h.writeError(ctx, w, "failed to load profile", err)
		return
	}
	resp, err := toProfileResponse(result)
	if err != nil {
		h.writeError(ctx, w, "failed to render profile", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleListFields(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, fieldCatalog())
}

func (h *Handler) handleGetPhoto(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	data, err := h.profiles.Photo(ctx)
	if err != nil {
		h.writeError(ctx, w, "failed to load photo", err)
		return
	}
	w.Header().Set("Content-Type", http.DetectContentType(data))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (h *Handler) handleBeginSession(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	view, err := h.profiles.Begin(ctx)
	if err != nil {
		h.writeError(ctx, w, "failed to open edit session", err)
		return
	}
	h.writeSession(ctx, w, http.StatusCreated, view)
}

func (h *Handler) handleGetSession(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sessionID, ok := h.sessionID(w, r)
	if !ok {
		return
	}
	view, err := h.profiles.Session(ctx, sessionID)
	if err != nil {
		h.writeError(ctx, w, "failed to read edit session", err)
		return
	}
	h.writeSession(ctx, w, http.StatusOK, view)
}

func (h *Handler) handleEditField(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sessionID, ok := h.sessionID(w, r)
	if !ok {
		return
	}
	field, err := models.ParseField(chi.URLParam(r, "field"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	var req editFieldRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxEditBytes)).Decode(&req); err != nil {
		h.logger.WarnContext(ctx, "invalid edit request",
			"request_id", middleware.GetRequestID(ctx),
			"error", err.Error(),
		)
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	value, err := models.ParseValue(field, req.Value)
	if err != nil {
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInvalidInput, err.Error()))
		return
	}

	view, err := h.profiles.Edit(ctx, sessionID, field, value)
	if err != nil {
		h.writeError(ctx, w, "failed to edit field", err)
		return
	}
	h.writeSession(ctx, w, http.StatusOK, view)
}

func (h *Handler) handleUploadPhoto(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sessionID, ok := h.sessionID(w, r)
	if !ok {
		return
	}
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxPhotoBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "photo is too large"))
			return
		}
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "failed to read photo"))
		return
	}

	view, err := h.profiles.UploadPhoto(ctx, sessionID, data)
	if err != nil {
		h.writeError(ctx, w, "failed to upload photo", err)
		return
	}
	h.writeSession(ctx, w, http.StatusOK, view)
}

func (h *Handler) handleCommit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sessionID, ok := h.sessionID(w, r)
	if !ok {
		return
	}
	profile, err := h.profiles.Commit(ctx, sessionID)
	if err != nil {
		var verr *models.ValidationError
		if errors.As(err, &verr) {
			httputil.WriteJSON(w, http.StatusUnprocessableEntity, toValidationResponse(verr))
			return
		}
		h.writeError(ctx, w, "failed to commit edit session", err)
		return
	}
	body, err := models.Encode(profile)
	if err != nil {
		h.writeError(ctx, w, "failed to render profile", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, commitResponse{Profile: body})
}

func (h *Handler) handleDiscardSession(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sessionID, ok := h.sessionID(w, r)
	if !ok {
		return
	}
	if err := h.profiles.Discard(ctx, sessionID); err != nil {
		h.writeError(ctx, w, "failed to discard edit session", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) sessionID(w http.ResponseWriter, r *http.Request) (id.EditSessionID, bool) {
	sessionID, err := id.ParseEditSessionID(chi.URLParam(r, "sessionID"))
	if err != nil {
		httputil.WriteError(w, err)
		return id.EditSessionID{}, false
	}
	return sessionID, true
}

func (h *Handler) writeSession(ctx context.Context, w http.ResponseWriter, status int, view service.SessionView) {
	resp, err := toSessionResponse(view)
	if err != nil {
		h.writeError(ctx, w, "failed to render edit session", err)
		return
	}
	httputil.WriteJSON(w, status, resp)
}

// writeError logs server-side failures and writes the coded response.
func (h *Handler) writeError(ctx context.Context, w http.ResponseWriter, msg string, err error) {
	code, ok := dErrors.CodeOf(err)
	if !ok || code == dErrors.CodeInternal || code == dErrors.CodeUnavailable {
		h.logger.ErrorContext(ctx, msg,
			"request_id", middleware.GetRequestID(ctx),
			"error", err.Error(),
		)
	}
	httputil.WriteError(w, err)
}
