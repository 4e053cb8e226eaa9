package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics counts scheduled job executions.
type Metrics struct {
	JobRuns *prometheus.CounterVec
}

func New() *Metrics {
	return &Metrics{
		JobRuns: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "aftersales_scheduler_job_runs_total",
			Help: "Scheduled job executions by job name and outcome.",
		}, []string{"job", "outcome"}),
	}
}

func (m *Metrics) Record(job, outcome string) {
	if m == nil {
		return
	}
	m.JobRuns.WithLabelValues(job, outcome).Inc()
}
