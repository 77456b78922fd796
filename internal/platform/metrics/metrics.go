package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Load outcome label values.
const (
	LoadAbsent  = "absent"
	LoadCorrupt = "corrupt"
	LoadFound   = "found"
	LoadError   = "error"
)

// Metrics provides observability for the profile module.
// Tracks load outcomes, saves, session terminations and slot latency.
type Metrics struct {
	LoadOutcomes       *prometheus.CounterVec
	Saves              *prometheus.CounterVec
	SessionsOpened     prometheus.Counter
	SessionsCommitted  prometheus.Counter
	SessionsDiscarded  prometheus.Counter
	ValidationFailures prometheus.Counter
	SlotDuration       *prometheus.HistogramVec
	HTTPDuration       *prometheus.HistogramVec
}

// New creates the profile metrics and registers them with reg. Pass
// prometheus.DefaultRegisterer in production and a fresh registry in tests.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		LoadOutcomes: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "dossier_profile_loads_total",
			Help: "Profile loads by outcome (absent, corrupt, found, error)",
		}, []string{"outcome"}),
		Saves: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "dossier_profile_saves_total",
			Help: "Profile saves by result",
		}, []string{"result"}),
		SessionsOpened: factory.NewCounter(prometheus.CounterOpts{
			Name: "dossier_edit_sessions_opened_total",
			Help: "Edit sessions opened",
		}),
		SessionsCommitted: factory.NewCounter(prometheus.CounterOpts{
			Name: "dossier_edit_sessions_committed_total",
			Help: "Edit sessions committed and persisted",
		}),
		SessionsDiscarded: factory.NewCounter(prometheus.CounterOpts{
			Name: "dossier_edit_sessions_discarded_total",
			Help: "Edit sessions discarded without saving",
		}),
		ValidationFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "dossier_commit_validation_failures_total",
			Help: "Commits rejected because required fields were missing",
		}),
		SlotDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "dossier_profile_slot_duration_seconds",
			Help:    "Duration of slot reads and writes",
			Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}, []string{"op"}),
		HTTPDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "dossier_http_request_duration_seconds",
			Help:    "HTTP request latency by route and status",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
	}
}

// ObserveLoad records a load outcome. Safe on a nil receiver.
func (m *Metrics) ObserveLoad(outcome string) {
	if m == nil {
		return
	}
	m.LoadOutcomes.WithLabelValues(outcome).Inc()
}

// ObserveSave records a save attempt by its error.
func (m *Metrics) ObserveSave(err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.Saves.WithLabelValues(result).Inc()
}

// ObserveSlot records the duration of a slot operation.
// Call with time.Now() at the start of the operation.
func (m *Metrics) ObserveSlot(op string, start time.Time) {
	if m == nil {
		return
	}
	m.SlotDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
}

// ObserveHTTP records the duration of one HTTP request.
func (m *Metrics) ObserveHTTP(method, route, status string, start time.Time) {
	if m == nil {
		return
	}
	m.HTTPDuration.WithLabelValues(method, route, status).Observe(time.Since(start).Seconds())
}

func (m *Metrics) IncrementSessionsOpened() {
	if m != nil {
		m.SessionsOpened.Inc()
	}
}

func (m *Metrics) IncrementSessionsCommitted() {
	if m != nil {
		m.SessionsCommitted.Inc()
	}
}

func (m *Metrics) IncrementSessionsDiscarded() {
	if m != nil {
		m.SessionsDiscarded.Inc()
	}
}

func (m *Metrics) IncrementValidationFailures() {
	if m != nil {
		m.ValidationFailures.Inc()
	}
}
