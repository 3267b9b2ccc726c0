package obs

import (
	"github.com/prometheus/client_golang/prometheus"
)

// CalculatorMetrics groups Prometheus collectors for the pricing workflow.
// A nil *CalculatorMetrics is a no-op so services can run without a registry.
type CalculatorMetrics struct {
	BreakdownsTotal       prometheus.Counter
	UnprofitableTotal     prometheus.Counter
	BulkRecomputeRuns     prometheus.Counter
	BulkRecomputeSessions prometheus.Counter
}

// NewCalculatorMetrics initialises and registers the calculator collectors.
func NewCalculatorMetrics(namespace string, reg prometheus.Registerer) *CalculatorMetrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	return &CalculatorMetrics{
		BreakdownsTotal: registerOrReuse(reg, prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pricing_breakdowns_total",
			Help:      "Total number of line-item breakdowns computed.",
		})),
		UnprofitableTotal: registerOrReuse(reg, prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pricing_unprofitable_total",
			Help:      "Breakdowns whose recommended purchase price clamped to zero.",
		})),
		BulkRecomputeRuns: registerOrReuse(reg, prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pricing_bulk_recompute_runs_total",
			Help:      "Number of bulk recompute passes executed.",
		})),
		BulkRecomputeSessions: registerOrReuse(reg, prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pricing_bulk_recompute_sessions_total",
			Help:      "Sessions updated across all bulk recompute passes.",
		})),
	}
}

// ObserveBreakdown records one computed breakdown.
func (m *CalculatorMetrics) ObserveBreakdown(unprofitable bool) {
	if m == nil {
		return
	}
	m.BreakdownsTotal.Inc()
	if unprofitable {
		m.UnprofitableTotal.Inc()
	}
}

// ObserveBulkRecompute records one bulk recompute pass.
func (m *CalculatorMetrics) ObserveBulkRecompute(sessions int) {
	if m == nil {
		return
	}
	m.BulkRecomputeRuns.Inc()
	m.BulkRecomputeSessions.Add(float64(sessions))
}
