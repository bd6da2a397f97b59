package notary

import (
	"github.com/prometheus/client_golang/prometheus"
)

const (
	resultAccepted = "accepted"
	resultRejected = "rejected"
	resultDropped  = "dropped"
)

type metrics struct {
	notarizations *prometheus.CounterVec
	notebooks     prometheus.Counter
	pooled        prometheus.Gauge
}

func newMetrics(reg prometheus.Registerer) *metrics {
	m := metrics{
		notarizations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "argon",
			Subsystem: "notary",
			Name:      "notarizations_total",
			Help:      "Notarizations submitted by result.",
		}, []string{"result"}),
		notebooks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "argon",
			Subsystem: "notary",
			Name:      "notebooks_closed_total",
			Help:      "Notebooks closed and signed.",
		}),
		pooled: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "argon",
			Subsystem: "notary",
			Name:      "pooled_notarizations",
			Help:      "Notarizations waiting for the open notebook to close.",
		}),
	}

	if reg != nil {
		reg.MustRegister(m.notarizations, m.notebooks, m.pooled)
	}

	return &m
}
