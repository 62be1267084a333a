package orchestrator

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RouteDecisions counts routing outcomes.
	// Labels: route (tool, template_sql, agent, llm_routing)
	RouteDecisions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "atlasd",
			Subsystem: "orchestrator",
			Name:      "route_decisions_total",
			Help:      "Total number of routing decisions by chosen route",
		},
		[]string{"route"},
	)

	// Fallbacks counts downgrades from a deterministic route to the
	// generative path.
	// Labels: from (tool, template_sql)
	Fallbacks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "atlasd",
			Subsystem: "orchestrator",
			Name:      "fallbacks_total",
			Help:      "Total number of route downgrades to the generative path",
		},
		[]string{"from"},
	)

	// CapabilityErrors counts classified generation failures.
	// Labels: kind (timeout, provider_unavailable, rate_limited)
	CapabilityErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "atlasd",
			Subsystem: "orchestrator",
			Name:      "capability_errors_total",
			Help:      "Total number of capability client failures by kind",
		},
		[]string{"kind"},
	)

	// AskDuration tracks end-to-end question latency.
	// Labels: route
	AskDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "atlasd",
			Subsystem: "orchestrator",
			Name:      "ask_duration_seconds",
			Help:      "End-to-end latency of answered questions in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"route"},
	)
)
