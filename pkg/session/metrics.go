package session

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/otherjamesbrown/roundtable/pkg/attribution"
)

// Metrics holds Prometheus metrics for session activity. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	TransitionsTotal          *prometheus.CounterVec
	EntriesTotal              *prometheus.CounterVec
	AttributionDecisionsTotal *prometheus.CounterVec
}

// DefaultMetrics creates metrics on the default registerer.
func DefaultMetrics() *Metrics {
	return NewMetrics(prometheus.DefaultRegisterer)
}

// NewMetrics creates session metrics on the given registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		TransitionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "roundtable_session_transitions_total",
				Help: "Lifecycle transitions by from/to state",
			},
			[]string{"from", "to"},
		),
		EntriesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "roundtable_transcript_entries_total",
				Help: "Transcript entries appended by source",
			},
			[]string{"source"},
		),
		AttributionDecisionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "roundtable_attribution_decisions_total",
				Help: "Speaker attribution decisions by label, tier, and rule",
			},
			[]string{"speaker", "tier", "rule"},
		),
	}
}

func (m *Metrics) recordTransition(from, to State) {
	if m == nil {
		return
	}
	m.TransitionsTotal.WithLabelValues(string(from), string(to)).Inc()
}

func (m *Metrics) recordEntry(source string) {
	if m == nil {
		return
	}
	m.EntriesTotal.WithLabelValues(source).Inc()
}

func (m *Metrics) recordAttribution(d attribution.Decision) {
	if m == nil {
		return
	}
	m.AttributionDecisionsTotal.WithLabelValues(d.Speaker, string(d.Tier), d.DetectedVia).Inc()
}
