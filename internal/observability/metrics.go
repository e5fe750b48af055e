package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics bundles the Prometheus collectors exercised by the orchestrator
// and tool executor. Grounded on the teacher's internal/observability/
// metrics.go registration pattern.
type Metrics struct {
	TurnsTotal        *prometheus.CounterVec
	ToolCallsTotal    *prometheus.CounterVec
	ToolDuration      *prometheus.HistogramVec
	ExecutionDuration prometheus.Histogram
	BudgetHits        *prometheus.CounterVec
}

// NewMetrics constructs and registers the collectors against the given
// registerer. Pass prometheus.NewRegistry() in tests to avoid collisions
// with the default global registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		TurnsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "agentcore_turns_total",
			Help: "Total ReAct loop turns processed, labeled by terminal phase.",
		}, []string{"phase"}),
		ToolCallsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "agentcore_tool_calls_total",
			Help: "Total tool invocations, labeled by tool name and outcome.",
		}, []string{"tool", "outcome"}),
		ToolDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "agentcore_tool_duration_seconds",
			Help:    "Tool invocation duration in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"tool"}),
		ExecutionDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "agentcore_execution_duration_seconds",
			Help:    "Wall-clock duration of a full execution.",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
		}),
		BudgetHits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "agentcore_budget_exceeded_total",
			Help: "Budget ceilings hit, labeled by budget kind.",
		}, []string{"budget"}),
	}
	reg.MustRegister(m.TurnsTotal, m.ToolCallsTotal, m.ToolDuration, m.ExecutionDuration, m.BudgetHits)
	return m
}

// ObserveTool records a completed tool invocation.
func (m *Metrics) ObserveTool(tool, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.ToolCallsTotal.WithLabelValues(tool, outcome).Inc()
	m.ToolDuration.WithLabelValues(tool).Observe(d.Seconds())
}
