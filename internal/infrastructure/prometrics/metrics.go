// Package prometrics registers the prometheus collectors used by the
// checkout core.
package prometrics

import "github.com/prometheus/client_golang/prometheus"

type Metrics struct {
	CheckoutTotal      *prometheus.CounterVec
	CompensationsTotal *prometheus.CounterVec
	LockWaitSeconds    prometheus.Histogram
}

func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		CheckoutTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "checkout_sagas_total",
				Help: "Total number of checkout saga executions.",
			},
			[]string{"operation", "outcome"},
		),
		CompensationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "checkout_compensations_total",
				Help: "Count of compensating actions run, by step and outcome.",
			},
			[]string{"step", "outcome"},
		),
		LockWaitSeconds: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "lock_wait_seconds",
				Help:    "Time spent waiting to acquire a contended lock.",
				Buckets: prometheus.DefBuckets,
			},
		),
	}

	if reg != nil {
		reg.MustRegister(m.CheckoutTotal, m.CompensationsTotal, m.LockWaitSeconds)
	}
	return m
}

// NewNop returns unregistered collectors, for tests.
func NewNop() *Metrics {
	return New(nil)
}
