package server

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the server's Prometheus collectors.
type Metrics struct {
	sessionsActive prometheus.Gauge
	sessionsTotal  prometheus.Counter
	eventsTotal    *prometheus.CounterVec
	advanceTotal   *prometheus.CounterVec
	completeTotal  *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		sessionsActive: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "ceph_env",
				Subsystem: "server",
				Name:      "sessions_active",
				Help:      "Number of connected step sessions",
			},
		),
		sessionsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "ceph_env",
				Subsystem: "server",
				Name:      "sessions_total",
				Help:      "Total number of step sessions opened",
			},
		),
		eventsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "ceph_env",
				Subsystem: "step",
				Name:      "events_total",
				Help:      "Total number of client messages by type",
			},
			[]string{"type"},
		),
		advanceTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "ceph_env",
				Subsystem: "step",
				Name:      "advance_total",
				Help:      "Total number of advance attempts by outcome",
			},
			[]string{"outcome"},
		),
		completeTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "ceph_env",
				Subsystem: "step",
				Name:      "complete_total",
				Help:      "Total number of completed steps by installation source",
			},
			[]string{"source"},
		),
	}

	reg.MustRegister(
		m.sessionsActive,
		m.sessionsTotal,
		m.eventsTotal,
		m.advanceTotal,
		m.completeTotal,
	)
	return m
}

func (m *Metrics) sessionOpened() {
	m.sessionsTotal.Inc()
	m.sessionsActive.Inc()
}

func (m *Metrics) sessionClosed() {
	m.sessionsActive.Dec()
}

func (m *Metrics) recordEvent(msgType string) {
	m.eventsTotal.WithLabelValues(msgType).Inc()
}

// recordAdvance records the outcome of an advance or of the scan it started.
// outcome is "ready", "scanning" or the blocking error kind.
func (m *Metrics) recordAdvance(outcome string) {
	m.advanceTotal.WithLabelValues(outcome).Inc()
}

func (m *Metrics) recordComplete(source string) {
	m.completeTotal.WithLabelValues(source).Inc()
}
