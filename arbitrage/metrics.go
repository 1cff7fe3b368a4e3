package arbitrage

import "github.com/prometheus/client_golang/prometheus"

// Metrics instruments the coordinator. All collectors are registered on the
// injected Registerer so tests can isolate them.
type Metrics struct {
	executionsTotal   *prometheus.CounterVec
	profit            prometheus.Histogram
	executionDuration prometheus.Histogram
}

// NewMetrics creates and registers the coordinator's collectors.
func NewMetrics(registry prometheus.Registerer) *Metrics {
	m := &Metrics{
		executionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "crossarb",
			Subsystem: "coordinator",
			Name:      "executions_total",
			Help:      "Arbitrage executions by outcome.",
		}, []string{"outcome"}),
		profit: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "crossarb",
			Subsystem: "coordinator",
			Name:      "profit_base_units",
			Help:      "Profit of committed executions in base-asset smallest units.",
			Buckets:   prometheus.ExponentialBuckets(1e3, 10, 12),
		}),
		executionDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "crossarb",
			Subsystem: "coordinator",
			Name:      "execution_duration_seconds",
			Help:      "Wall time of one atomic execution.",
			Buckets:   prometheus.DefBuckets,
		}),
	}
	registry.MustRegister(m.executionsTotal, m.profit, m.executionDuration)
	return m
}
