// Package gateway loads and saves the profile record in its single durable
// slot and turns encode/decode failures into explicit outcomes.
package gateway

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"dossier/internal/platform/metrics"
	"dossier/internal/profile/models"
	dErrors "dossier/pkg/domain-errors"
	"dossier/pkg/platform/sentinel"
)

// Slot is the durable key-value cell holding the encoded profile. Read
// returns sentinel.ErrNotFound when nothing has been written yet.
type Slot interface {
	Read(ctx context.Context) ([]byte, error)
	Write(ctx context.Context, data []byte) error
}

// Status is the outcome of a load.
type Status int

const (
	StatusAbsent Status = iota
	StatusCorrupt
	StatusFound
)

func (s Status) String() string {
	switch s {
	case StatusAbsent:
		return metrics.LoadAbsent
	case StatusCorrupt:
		return metrics.LoadCorrupt
	case StatusFound:
		return metrics.LoadFound
	default:
		return "unknown"
	}
}

// LoadResult distinguishes an empty slot from one holding undecodable bytes.
// Cause is set only for StatusCorrupt.
type LoadResult struct {
	Status  Status
	Profile models.Profile
	Cause   error
}

func (r LoadResult) Found() bool { return r.Status == StatusFound }

// ProfileOrDefault returns the loaded profile, or the all-default profile
// when the slot was absent or corrupt.
func (r LoadResult) ProfileOrDefault() models.Profile {
	if r.Status != StatusFound {
		return models.Profile{}
	}
	return r.Profile.Clone()
}

// Existing returns a copy of the loaded profile, or nil when none was found.
func (r LoadResult) Existing() *models.Profile {
	if r.Status != StatusFound {
		return nil
	}
	p := r.Profile.Clone()
	return &p
}

// Gateway owns exactly one slot, handed in by the caller.
type Gateway struct {
	slot    Slot
	logger  *slog.Logger
	metrics *metrics.Metrics
	tracer  trace.Tracer
	decode  []models.DecodeOption
}

type Option func(*Gateway)

func WithLogger(logger *slog.Logger) Option {
	return func(g *Gateway) {
		g.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(g *Gateway) {
		g.metrics = m
	}
}

func WithTracer(tracer trace.Tracer) Option {
	return func(g *Gateway) {
		g.tracer = tracer
	}
}

// WithLegacyLocation sets the zone timestamps written by earlier releases
// are read in.
func WithLegacyLocation(loc *time.Location) Option {
	return func(g *Gateway) {
		g.decode = append(g.decode, models.WithLegacyLocation(loc))
	}
}

// New constructs a Gateway over slot.
func New(slot Slot, opts ...Option) *Gateway {
	g := &Gateway{
		slot:   slot,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		tracer: otel.Tracer("dossier/internal/profile/gateway"),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(g)
		}
	}
	return g
}

// Load reads the slot. Absent and corrupt data are reported through the
// result; the error return is reserved for slot I/O failures.
func (g *Gateway) Load(ctx context.Context) (LoadResult, error) {
	ctx, span := g.tracer.Start(ctx, "profile.gateway.Load")
	defer span.End()

	start := time.Now()
	data, err := g.slot.Read(ctx)
	g.metrics.ObserveSlot("read", start)

	if errors.Is(err, sentinel.ErrNotFound) {
		return g.finishLoad(span, LoadResult{Status: StatusAbsent}), nil
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "slot read failed")
		g.metrics.ObserveLoad(metrics.LoadError)
		g.logger.ErrorContext(ctx, "profile slot read failed", "error", err)
		return LoadResult{}, dErrors.Wrap(err, dErrors.CodeUnavailable, "read profile slot")
	}

	profile, err := models.Decode(data, g.decode...)
	if err != nil {
		g.logger.WarnContext(ctx, "stored profile is corrupt, starting fresh",
			"error", err,
			"bytes", len(data),
		)
		return g.finishLoad(span, LoadResult{Status: StatusCorrupt, Cause: err}), nil
	}
	return g.finishLoad(span, LoadResult{Status: StatusFound, Profile: profile}), nil
}

func (g *Gateway) finishLoad(span trace.Span, result LoadResult) LoadResult {
	span.SetAttributes(attribute.String("profile.load_status", result.Status.String()))
	g.metrics.ObserveLoad(result.Status.String())
	return result
}

// Save encodes p and overwrites the slot. An encode failure aborts before
// anything is written, so the prior value stays intact.
func (g *Gateway) Save(ctx context.Context, p models.Profile) error {
	ctx, span := g.tracer.Start(ctx, "profile.gateway.Save")
	defer span.End()

	data, err := models.Encode(p)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "encode failed")
		g.metrics.ObserveSave(err)
		return dErrors.Wrap(err, dErrors.CodeInternal, "encode profile")
	}

	start := time.Now()
	err = g.slot.Write(ctx, data)
	g.metrics.ObserveSlot("write", start)
	g.metrics.ObserveSave(err)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "slot write failed")
		g.logger.ErrorContext(ctx, "profile slot write failed", "error", err)
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "write profile slot")
	}
	span.SetAttributes(attribute.Int("profile.bytes", len(data)))
	return nil
}
