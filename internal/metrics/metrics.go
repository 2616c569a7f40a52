// Package metrics registers the Prometheus collectors used by the server.
// Collectors register on the default registry at package init, so the
// /metrics handler exposes them as soon as any package imports this one.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Tool-level counters and histograms.
var (
	// ToolCalls counts tool invocations labelled by tool and outcome
	// ("success", "not_found", or an error kind code).
	ToolCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hubmcp_tool_calls_total",
			Help: "Total number of tool invocations.",
		},
		[]string{"tool", "outcome"},
	)

	// ToolDuration observes end-to-end tool latency in seconds.
	ToolDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "hubmcp_tool_duration_seconds",
			Help:    "End-to-end tool call duration in seconds.",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		},
		[]string{"tool"},
	)
)

// Upstream (Docker Hub / GitHub) collectors.
var (
	// UpstreamRequests counts outbound API calls by operation and result
	// kind ("ok" or an error kind code).
	UpstreamRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hubmcp_upstream_requests_total",
			Help: "Total outbound API requests by operation and result.",
		},
		[]string{"operation", "result"},
	)

	// Retries counts retry attempts scheduled by the retry engine.
	Retries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hubmcp_retries_total",
			Help: "Total retry attempts by operation and error kind.",
		},
		[]string{"operation", "kind"},
	)

	// CircuitBreakerState tracks the upstream breaker as a gauge:
	// 0 = closed, 1 = open, 2 = half_open.
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "hubmcp_circuit_breaker_state",
			Help: "Circuit breaker state per upstream (0=closed 1=open 2=half_open).",
		},
		[]string{"upstream"},
	)

	// RateLimitWaits observes time spent waiting for the outbound limiter.
	RateLimitWaits = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "hubmcp_rate_limit_wait_seconds",
			Help:    "Time spent waiting for an outbound rate-limit token.",
			Buckets: []float64{0, .01, .05, .1, .25, .5, 1, 2.5, 5},
		},
		[]string{"upstream"},
	)
)

// Cache collectors.
var (
	// CacheLookups counts cache reads labelled "hit" or "miss".
	CacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hubmcp_cache_lookups_total",
			Help: "Total cache lookups by result.",
		},
		[]string{"result"},
	)

	// CacheEvictions counts removed entries by reason ("expired", "size").
	CacheEvictions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hubmcp_cache_evictions_total",
			Help: "Total cache evictions by reason.",
		},
		[]string{"reason"},
	)

	// CacheBytes is the estimated payload size held by the cache.
	CacheBytes = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "hubmcp_cache_bytes",
			Help: "Estimated bytes held by the response cache.",
		},
	)
)
