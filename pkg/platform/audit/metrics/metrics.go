package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the audit engine.
type Metrics struct {
	// Recorded events by final (post-classification) type
	EventsRecorded *prometheus.CounterVec

	// Violations by effective severity
	Violations *prometheus.CounterVec

	// Every rule match, including ones overwritten by a later rule
	RuleMatches *prometheus.CounterVec

	RecordLatency prometheus.Histogram
	LogSize       prometheus.Gauge
}

// New registers the audit metrics on reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		EventsRecorded: f.NewCounterVec(prometheus.CounterOpts{
			Name: "pedcare_audit_events_recorded_total",
			Help: "Total audit events recorded by event type",
		}, []string{"event_type"}),

		Violations: f.NewCounterVec(prometheus.CounterOpts{
			Name: "pedcare_audit_violations_total",
			Help: "Total PHI violations detected by severity",
		}, []string{"severity"}),

		RuleMatches: f.NewCounterVec(prometheus.CounterOpts{
			Name: "pedcare_audit_rule_matches_total",
			Help: "Total violation rule matches by rule, before precedence is applied",
		}, []string{"rule"}),

		RecordLatency: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "pedcare_audit_record_duration_seconds",
			Help:    "Duration of recording and classifying one audit event",
			Buckets: []float64{0.00005, 0.0001, 0.00025, 0.0005, 0.001, 0.0025, 0.005, 0.01, 0.05},
		}),

		LogSize: f.NewGauge(prometheus.GaugeOpts{
			Name: "pedcare_audit_log_events",
			Help: "Number of events held in the in-memory audit log",
		}),
	}
}

// ObserveRecorded records one appended event.
func (m *Metrics) ObserveRecorded(eventType, severity string, d time.Duration, logSize int) {
	if m == nil {
		return
	}
	m.EventsRecorded.WithLabelValues(eventType).Inc()
	if severity != "" {
		m.Violations.WithLabelValues(severity).Inc()
	}
	m.RecordLatency.Observe(d.Seconds())
	m.LogSize.Set(float64(logSize))
}

// IncRuleMatch records a rule firing.
func (m *Metrics) IncRuleMatch(rule string) {
	if m != nil {
		m.RuleMatches.WithLabelValues(rule).Inc()
	}
}
