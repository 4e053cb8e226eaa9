package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus metrics for the warranty lifecycle engine.
type Metrics struct {
	Registered  prometheus.Counter
	Transitions *prometheus.CounterVec
	SweepRuns   *prometheus.CounterVec
	Reminders   prometheus.Counter
}

func New() *Metrics {
	return &Metrics{
		Registered: promauto.NewCounter(prometheus.CounterOpts{
			Name: "aftersales_warranties_registered_total",
			Help: "Total number of warranty registrations accepted.",
		}),
		Transitions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "aftersales_warranty_transitions_total",
			Help: "Warranty status transitions by previous and new status.",
		}, []string{"from", "to"}),
		SweepRuns: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "aftersales_warranty_sweep_runs_total",
			Help: "Lifecycle sweep executions by sweep name.",
		}, []string{"sweep"}),
		Reminders: promauto.NewCounter(prometheus.CounterOpts{
			Name: "aftersales_warranty_reminders_emitted_total",
			Help: "Expiry reminder events emitted (after dedupe).",
		}),
	}
}

func (m *Metrics) RecordTransition(from, to string) {
	if m == nil {
		return
	}
	m.Transitions.WithLabelValues(from, to).Inc()
}

func (m *Metrics) RecordSweep(name string) {
	if m == nil {
		return
	}
	m.SweepRuns.WithLabelValues(name).Inc()
}
