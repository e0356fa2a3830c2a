package runtime

import (
	"github.com/prometheus/client_golang/prometheus"
)

type Metrics struct {
	transactions *prometheus.CounterVec
	instructions *prometheus.CounterVec
	duration     prometheus.Histogram
	lockWait     prometheus.Histogram
}

// NewMetrics registers the runtime collectors on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		transactions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "booth",
				Subsystem: "runtime",
				Name:      "transactions_total",
				Help:      "Transactions executed, by outcome and error kind.",
			},
			[]string{"outcome", "kind"},
		),
		instructions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "booth",
				Subsystem: "runtime",
				Name:      "instructions_total",
				Help:      "Instructions processed, including nested invocations, by program.",
			},
			[]string{"program"},
		),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "booth",
			Subsystem: "runtime",
			Name:      "transaction_duration_seconds",
			Help:      "Wall time from lock acquisition to commit or abort.",
			Buckets:   prometheus.DefBuckets,
		}),
		lockWait: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "booth",
			Subsystem: "runtime",
			Name:      "lock_wait_seconds",
			Help:      "Time spent waiting for write-set locks.",
			Buckets:   prometheus.DefBuckets,
		}),
	}
	reg.MustRegister(m.transactions, m.instructions, m.duration, m.lockWait)
	return m
}
