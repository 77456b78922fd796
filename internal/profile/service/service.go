package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"

	"dossier/internal/platform/metrics"
	"dossier/internal/profile/gateway"
	"dossier/internal/profile/models"
	"dossier/internal/profile/session"
	id "dossier/pkg/domain"
	dErrors "dossier/pkg/domain-errors"
	"dossier/pkg/platform/sentinel"
	"dossier/pkg/requestcontext"
)

// ProfileGateway loads and saves the persisted profile.
type ProfileGateway interface {
	Load(ctx context.Context) (gateway.LoadResult, error)
	Save(ctx context.Context, p models.Profile) error
}

// PhotoStore keeps photo bytes under opaque references.
type PhotoStore interface {
	Save(ctx context.Context, data []byte) (string, error)
	Load(ctx context.Context, ref string) ([]byte, error)
	Delete(ctx context.Context, ref string) error
	Sweep(ctx context.Context, keep ...string) (int, error)
}

// SessionView is a point-in-time snapshot of the active edit session.
type SessionView struct {
	ID              id.EditSessionID
	State           session.State
	LoadStatus      gateway.Status
	Working         models.Profile
	Changed         bool
	Valid           bool
	NeedsSavePrompt bool
	OpenedAt        time.Time
}

// Service runs the load, edit and commit cycle over the single profile.
// At most one edit session is active; opening another replaces it.
type Service struct {
	gateway ProfileGateway
	photos  PhotoStore
	logger  *slog.Logger
	metrics *metrics.Metrics

	mu     sync.Mutex
	active *activeSession
}

type activeSession struct {
	sess       *session.Session
	loadStatus gateway.Status
	// uploads are photo references stored during this session.
	uploads []string
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithPhotoStore enables photo upload and retrieval.
func WithPhotoStore(photos PhotoStore) Option {
	return func(s *Service) {
		s.photos = photos
	}
}

// New constructs a Service.
func New(gw ProfileGateway, opts ...Option) *Service {
	s := &Service{
		gateway: gw,
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load returns the persisted profile outcome.
func (s *Service) Load(ctx context.Context) (gateway.LoadResult, error) {
	return s.gateway.Load(ctx)
}

// Begin loads the profile and opens an edit session over it. Absent or
// corrupt data opens the session over the all-default profile.
func (s *Service) Begin(ctx context.Context) (SessionView, error) {
	result, err := s.gateway.Load(ctx)
	if err != nil {
		return SessionView{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.active != nil {
		s.logger.WarnContext(ctx, "replacing stale edit session",
			"session_id", s.active.sess.ID().String(),
			"state", s.active.sess.State().String(),
		)
		s.discardLocked(ctx)
	}

	s.active = &activeSession{
		sess:       session.OpenAt(result.Existing(), requestcontext.Now(ctx)),
		loadStatus: result.Status,
	}
	s.metrics.IncrementSessionsOpened()
	s.logger.InfoContext(ctx, "edit session opened",
		"session_id", s.active.sess.ID().String(),
		"load_status", result.Status.String(),
	)
	return s.active.view(), nil
}

// Session returns a snapshot of the active session.
func (s *Service) Session(ctx context.Context, sessionID id.EditSessionID) (SessionView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, err := s.lookupLocked(sessionID)
	if err != nil {
		return SessionView{}, err
	}
	return a.view(), nil
}

// Edit sets one field of the working copy. The photo field can only be
// cleared here; new photos arrive through UploadPhoto.
func (s *Service) Edit(ctx context.Context, sessionID id.EditSessionID, field models.Field, value models.Value) (SessionView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, err := s.lookupLocked(sessionID)
	if err != nil {
		return SessionView{}, err
	}
	if field == models.FieldPhoto && !value.IsNull() {
		return SessionView{}, dErrors.New(dErrors.CodeInvalidInput, "photo is set by uploading an image")
	}
	if err := a.sess.Edit(field, value); err != nil {
		var typeErr *models.FieldTypeError
		if errors.As(err, &typeErr) {
			return SessionView{}, dErrors.Wrap(err, dErrors.CodeInvalidInput, "invalid value for "+typeErr.Field.Key())
		}
		return SessionView{}, err
	}
	return a.view(), nil
}

// UploadPhoto stores data and points the working copy's photo at it.
func (s *Service) UploadPhoto(ctx context.Context, sessionID id.EditSessionID, data []byte) (SessionView, error) {
	if s.photos == nil {
		return SessionView{}, dErrors.New(dErrors.CodeUnavailable, "photo storage is not configured")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	a, err := s.lookupLocked(sessionID)
	if err != nil {
		return SessionView{}, err
	}
	if a.sess.State().IsTerminal() {
		return SessionView{}, dErrors.New(dErrors.CodeInvalidState, "session is "+a.sess.State().String())
	}

	ref, err := s.photos.Save(ctx, data)
	if err != nil {
		if _, ok := dErrors.CodeOf(err); ok {
			return SessionView{}, err
		}
		return SessionView{}, dErrors.Wrap(err, dErrors.CodeUnavailable, "store photo")
	}
	if err := a.sess.Edit(models.FieldPhoto, models.StringValue(ref)); err != nil {
		s.deletePhoto(ctx, ref)
		return SessionView{}, err
	}
	a.uploads = append(a.uploads, ref)
	return a.view(), nil
}

// Commit validates the working copy, persists it and closes the session.
// A validation failure leaves the session open so the caller can fix the
// missing fields; a save failure does too.
func (s *Service) Commit(ctx context.Context, sessionID id.EditSessionID) (models.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, err := s.lookupLocked(sessionID)
	if err != nil {
		return models.Profile{}, err
	}
	if a.sess.State().IsTerminal() {
		return models.Profile{}, dErrors.New(dErrors.CodeInvalidState, "session is "+a.sess.State().String())
	}
	if err := a.sess.Validate(); err != nil {
		s.metrics.IncrementValidationFailures()
		return models.Profile{}, dErrors.Wrap(err, dErrors.CodeValidation, "profile is incomplete")
	}
	if err := s.gateway.Save(ctx, a.sess.Working()); err != nil {
		return models.Profile{}, err
	}
	committed, err := a.sess.Commit()
	if err != nil {
		return models.Profile{}, err
	}

	s.releasePhotos(ctx, a, committed.Photo)
	s.active = nil
	s.metrics.IncrementSessionsCommitted()
	s.logger.InfoContext(ctx, "profile saved", "session_id", sessionID.String())
	return committed, nil
}

// Discard closes the session without saving and deletes photos uploaded
// during it.
func (s *Service) Discard(ctx context.Context, sessionID id.EditSessionID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.lookupLocked(sessionID); err != nil {
		return err
	}
	s.discardLocked(ctx)
	return nil
}

// Photo returns the image bytes referenced by the persisted profile.
func (s *Service) Photo(ctx context.Context) ([]byte, error) {
	if s.photos == nil {
		return nil, dErrors.New(dErrors.CodeNotFound, "profile has no photo")
	}
	result, err := s.gateway.Load(ctx)
	if err != nil {
		return nil, err
	}
	if !result.Found() || result.Profile.Photo == nil {
		return nil, dErrors.New(dErrors.CodeNotFound, "profile has no photo")
	}
	ref := *result.Profile.Photo
	if _, err := id.ParsePhotoID(ref); err != nil {
		// Legacy or hand-edited data can name a photo this store never wrote.
		s.logger.WarnContext(ctx, "stored photo reference is not a managed photo", "ref", ref)
		return nil, dErrors.New(dErrors.CodeNotFound, "photo file is missing")
	}
	data, err := s.photos.Load(ctx, ref)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.New(dErrors.CodeNotFound, "photo file is missing")
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "load photo")
	}
	return data, nil
}

// SweepPhotos removes stored photos the persisted profile no longer
// references. Call at startup before any session is open.
func (s *Service) SweepPhotos(ctx context.Context) (int, error) {
	if s.photos == nil {
		return 0, nil
	}
	result, err := s.gateway.Load(ctx)
	if err != nil {
		return 0, err
	}
	if result.Status == gateway.StatusCorrupt {
		// The reference may still be recoverable from the raw bytes.
		return 0, nil
	}
	var keep []string
	if result.Found() && result.Profile.Photo != nil {
		keep = append(keep, *result.Profile.Photo)
	}

	s.mu.Lock()
	if s.active != nil {
		keep = append(keep, s.active.uploads...)
	}
	s.mu.Unlock()

	removed, err := s.photos.Sweep(ctx, keep...)
	if err != nil {
		return removed, dErrors.Wrap(err, dErrors.CodeUnavailable, "sweep photos")
	}
	if removed > 0 {
		s.logger.InfoContext(ctx, "removed orphaned photos", "count", removed)
	}
	return removed, nil
}

func (s *Service) lookupLocked(sessionID id.EditSessionID) (*activeSession, error) {
	if s.active == nil || s.active.sess.ID() != sessionID {
		return nil, dErrors.New(dErrors.CodeNotFound, "edit session not found")
	}
	return s.active, nil
}

func (s *Service) discardLocked(ctx context.Context) {
	a := s.active
	s.active = nil
	if err := a.sess.Discard(); err != nil {
		return
	}
	for _, ref := range a.uploads {
		s.deletePhoto(ctx, ref)
	}
	s.metrics.IncrementSessionsDiscarded()
	s.logger.InfoContext(ctx, "edit session discarded", "session_id", a.sess.ID().String())
}

// releasePhotos deletes every photo the committed profile no longer uses:
// the one it replaced and uploads that were superseded within the session.
func (s *Service) releasePhotos(ctx context.Context, a *activeSession, kept *string) {
	var candidates []string
	if original := a.sess.Original(); original != nil && original.Photo != nil {
		candidates = append(candidates, *original.Photo)
	}
	candidates = append(candidates, a.uploads...)
	for _, ref := range candidates {
		if kept != nil && ref == *kept {
			continue
		}
		s.deletePhoto(ctx, ref)
	}
}

func (s *Service) deletePhoto(ctx context.Context, ref string) {
	if s.photos == nil {
		return
	}
	if err := s.photos.Delete(ctx, ref); err != nil {
		s.logger.WarnContext(ctx, "failed to delete photo", "photo", ref, "error", err)
	}
}

func (a *activeSession) view() SessionView {
	return SessionView{
		ID:              a.sess.ID(),
		State:           a.sess.State(),
		LoadStatus:      a.loadStatus,
		Working:         a.sess.Working(),
		Changed:         a.sess.IsChanged(),
		Valid:           a.sess.IsValid(),
		NeedsSavePrompt: a.sess.NeedsSavePrompt(),
		OpenedAt:        a.sess.OpenedAt(),
	}
}
