package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics counts notification delivery attempts by channel and outcome.
type Metrics struct {
	Attempts *prometheus.CounterVec
}

func New() *Metrics {
	return &Metrics{
		Attempts: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "aftersales_notification_attempts_total",
			Help: "Notification delivery attempts by channel and outcome.",
		}, []string{"channel", "outcome"}),
	}
}

func (m *Metrics) Record(channel, outcome string) {
	if m == nil {
		return
	}
	m.Attempts.WithLabelValues(channel, outcome).Inc()
}
