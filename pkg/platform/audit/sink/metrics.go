package sink

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics tracks delivery to external sinks.
type Metrics struct {
	Written      *prometheus.CounterVec
	Failures     *prometheus.CounterVec
	Skipped      *prometheus.CounterVec
	BreakerState *prometheus.GaugeVec
	Dropped      prometheus.Counter
	Buffered     prometheus.Gauge
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Written: f.NewCounterVec(prometheus.CounterOpts{
			Name: "pedcare_audit_sink_written_total",
			Help: "Events successfully written per sink",
		}, []string{"sink"}),
		Failures: f.NewCounterVec(prometheus.CounterOpts{
			Name: "pedcare_audit_sink_failures_total",
			Help: "Failed batch writes per sink",
		}, []string{"sink"}),
		Skipped: f.NewCounterVec(prometheus.CounterOpts{
			Name: "pedcare_audit_sink_skipped_total",
			Help: "Events not sent because the sink's circuit breaker was open",
		}, []string{"sink"}),
		BreakerState: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "pedcare_audit_sink_circuit_breaker_state",
			Help: "Circuit breaker state per sink (0=closed, 1=open)",
		}, []string{"sink"}),
		Dropped: f.NewCounter(prometheus.CounterOpts{
			Name: "pedcare_audit_sink_buffer_dropped_total",
			Help: "Events dropped because the dispatch buffer was full",
		}),
		Buffered: f.NewGauge(prometheus.GaugeOpts{
			Name: "pedcare_audit_sink_buffered",
			Help: "Events waiting in the dispatch buffer",
		}),
	}
}

func (m *Metrics) written(sink string, n int) {
	if m != nil {
		m.Written.WithLabelValues(sink).Add(float64(n))
	}
}

func (m *Metrics) failed(sink string) {
	if m != nil {
		m.Failures.WithLabelValues(sink).Inc()
	}
}

func (m *Metrics) skipped(sink string, n int) {
	if m != nil {
		m.Skipped.WithLabelValues(sink).Add(float64(n))
	}
}

func (m *Metrics) breaker(sink string, open bool) {
	if m == nil {
		return
	}
	v := 0.0
	if open {
		v = 1
	}
	m.BreakerState.WithLabelValues(sink).Set(v)
}

func (m *Metrics) dropped() {
	if m != nil {
		m.Dropped.Inc()
	}
}

func (m *Metrics) buffered(n int) {
	if m != nil {
		m.Buffered.Set(float64(n))
	}
}
