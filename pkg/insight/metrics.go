package insight

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus metrics for the orchestrator. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	RequestsTotal     *prometheus.CounterVec
	RequestSeconds    *prometheus.HistogramVec
	AutoTriggersTotal *prometheus.CounterVec
	ConfidenceScores  *prometheus.HistogramVec
}

// DefaultMetrics creates metrics on the default registerer.
func DefaultMetrics() *Metrics {
	return NewMetrics(prometheus.DefaultRegisterer)
}

// NewMetrics creates orchestrator metrics on the given registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "roundtable_insight_requests_total",
				Help: "Total insight requests by type and outcome",
			},
			[]string{"type", "outcome"},
		),
		RequestSeconds: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "roundtable_insight_request_seconds",
				Help:    "Analysis request latency per endpoint",
				Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 15, 30, 60},
			},
			[]string{"type", "endpoint"},
		),
		AutoTriggersTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "roundtable_insight_auto_triggers_total",
				Help: "Auto-trigger evaluations by type and action",
			},
			[]string{"type", "action"},
		),
		ConfidenceScores: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "roundtable_insight_confidence",
				Help:    "Confidence scores of stored insights",
				Buckets: []float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 0.95, 1.0},
			},
			[]string{"type"},
		),
	}
}

// Request outcomes.
const (
	outcomePrimary    = "primary"
	outcomeFallback   = "fallback"
	outcomeError      = "error"
	outcomeRejected   = "rejected"
	outcomeDuplicate  = "duplicate"
	outcomeInFlight   = "in_flight"
	outcomeSuperseded = "superseded"
)

// Auto-trigger actions.
const (
	actionDispatched = "dispatched"
	actionSuppressed = "suppressed"
)

func (m *Metrics) recordRequest(typ Type, outcome string) {
	if m == nil {
		return
	}
	m.RequestsTotal.WithLabelValues(string(typ), outcome).Inc()
}

func (m *Metrics) recordLatency(typ Type, endpoint string, seconds float64) {
	if m == nil {
		return
	}
	m.RequestSeconds.WithLabelValues(string(typ), endpoint).Observe(seconds)
}

func (m *Metrics) recordAutoTrigger(typ Type, action string) {
	if m == nil {
		return
	}
	m.AutoTriggersTotal.WithLabelValues(string(typ), action).Inc()
}

func (m *Metrics) recordConfidence(typ Type, confidence float64) {
	if m == nil {
		return
	}
	m.ConfidenceScores.WithLabelValues(string(typ)).Observe(confidence)
}
