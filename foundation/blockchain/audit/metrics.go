package audit

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Audit results used as the metric label.
const (
	resultAccepted = "accepted"
	resultLocked   = "locked"
	resultRejected = "rejected"
)

// Metrics holds the prometheus collectors of the auditor.
type Metrics struct {
	audited     *prometheus.CounterVec
	locked      prometheus.Gauge
	tax         prometheus.Counter
	votingPower prometheus.Counter
}

// NewMetrics constructs the collectors and registers them. A nil registerer
// keeps them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := Metrics{
		audited: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "argon",
			Name:      "notebooks_audited_total",
			Help:      "Notebooks audited by result.",
		}, []string{"result"}),
		locked: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "argon",
			Name:      "notaries_locked",
			Help:      "Notaries currently locked by a failed audit.",
		}),
		tax: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "argon",
			Name:      "notebook_tax_milligons_total",
			Help:      "Tax created by accepted notebooks.",
		}),
		votingPower: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "argon",
			Name:      "block_voting_power_total",
			Help:      "Block voting power of accepted notebooks.",
		}),
	}

	if reg != nil {
		reg.MustRegister(m.audited, m.locked, m.tax, m.votingPower)
	}

	return &m
}
