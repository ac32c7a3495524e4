package metrics

import "github.com/prometheus/client_golang/prometheus"

// Review outcomes used as label values.
const (
	OutcomeApplied  = "applied"
	OutcomeConflict = "conflict"
	OutcomeFailed   = "failed"
)

// ReviewMetrics counts contribution review decisions and reconciliation results.
type ReviewMetrics struct {
	decisions  *prometheus.CounterVec
	reconciled prometheus.Counter
	orphans    prometheus.Gauge
}

// NewReviewMetrics registers review counters on reg. A nil registerer yields no-op metrics.
func NewReviewMetrics(reg prometheus.Registerer) *ReviewMetrics {
	if reg == nil {
		return &ReviewMetrics{}
	}
	decisions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "review_decisions_total",
		Help:      "Contribution review attempts by action and outcome.",
	}, []string{"action", "outcome"})
	reconciled := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "reconcile_completed_total",
		Help:      "Pending contributions completed by the reconciliation job.",
	})
	orphans := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "reconcile_orphans",
		Help:      "Catalog entries whose source contribution can no longer be completed, as of the last reconcile.",
	})
	reg.MustRegister(decisions, reconciled, orphans)
	return &ReviewMetrics{decisions: decisions, reconciled: reconciled, orphans: orphans}
}

func (m *ReviewMetrics) IncDecision(action, outcome string) {
	if m == nil || m.decisions == nil {
		return
	}
	m.decisions.WithLabelValues(normalizeLabel(action), normalizeLabel(outcome)).Inc()
}

func (m *ReviewMetrics) AddReconciled(n int) {
	if m == nil || m.reconciled == nil || n <= 0 {
		return
	}
	m.reconciled.Add(float64(n))
}

func (m *ReviewMetrics) SetOrphans(n int64) {
	if m == nil || m.orphans == nil {
		return
	}
	m.orphans.Set(float64(n))
}
