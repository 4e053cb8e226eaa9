package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics counts external system pushes.
type Metrics struct {
	Pushes *prometheus.CounterVec
}

func New() *Metrics {
	return &Metrics{
		Pushes: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "aftersales_integration_pushes_total",
			Help: "Pushes to external systems by integration name and outcome.",
		}, []string{"integration", "outcome"}),
	}
}

func (m *Metrics) Record(integration, outcome string) {
	if m == nil {
		return
	}
	m.Pushes.WithLabelValues(integration, outcome).Inc()
}
