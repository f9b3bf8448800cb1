// Package metrics exposes Prometheus collectors for the recommendation
// pipeline and the completion provider.
//
// Usage:
//
//	metrics.RecordCompletion("openai", "recommend", nil, time.Since(start))
//	metrics.RecordRecordCache(true)
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CompletionRequestsTotal counts provider calls by provider, operation and outcome.
	CompletionRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "completion_requests_total",
			Help: "Total number of completion provider calls",
		},
		[]string{"provider", "operation", "outcome"},
	)

	// CompletionDuration tracks provider call latency.
	CompletionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "completion_duration_seconds",
			Help:    "Duration of completion provider calls in seconds",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"provider", "operation"},
	)

	// CompletionFallbacksTotal counts degraded results substituted for failed calls.
	CompletionFallbacksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "completion_fallbacks_total",
			Help: "Total number of rule-based fallbacks used after a provider failure",
		},
		[]string{"operation"},
	)

	// CircuitBreakerState is 0 closed, 1 half-open, 2 open.
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "completion_circuit_breaker_state",
			Help: "Completion provider circuit breaker state (0 closed, 1 half-open, 2 open)",
		},
		[]string{"name"},
	)

	// CircuitBreakerTransitions counts state transitions.
	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "completion_circuit_breaker_transitions_total",
			Help: "Total number of circuit breaker state transitions",
		},
		[]string{"name", "from", "to"},
	)

	// RecordCacheLookupsTotal counts per-(profile, product) record lookups.
	RecordCacheLookupsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recommendation_record_cache_lookups_total",
			Help: "Recommendation record cache lookups by result",
		},
		[]string{"result"},
	)

	// LockFailuresTotal counts generations that ran without the distributed lock.
	LockFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recommendation_lock_failures_total",
			Help: "Record generations that proceeded without the generation lock, by reason",
		},
		[]string{"reason"},
	)

	// GenerationsTotal counts orchestrator runs by path (cache_hit, regenerate).
	GenerationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recommendation_generations_total",
			Help: "Recommendation requests by orchestrator path",
		},
		[]string{"path"},
	)

	// GenerationDuration tracks end-to-end generate latency by path.
	GenerationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "recommendation_generation_duration_seconds",
			Help:    "Duration of recommendation generation in seconds",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 14),
		},
		[]string{"path"},
	)

	// SafetyRejectionsTotal counts products rejected by the safety filter.
	SafetyRejectionsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "recommendation_safety_rejections_total",
			Help: "Products rejected by the safety filter during regeneration",
		},
	)

	// CacheInvalidationsTotal counts profile cache invalidations.
	CacheInvalidationsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "recommendation_cache_invalidations_total",
			Help: "Profile-level recommendation cache invalidations",
		},
	)

	// HTTPRequestsTotal counts API requests by route, method and status.
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"route", "method", "status"},
	)

	// HTTPRequestDuration tracks API latency by route.
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route", "method"},
	)
)

// RecordCompletion records the outcome and latency of one provider call.
func RecordCompletion(provider, operation string, err error, d time.Duration) {
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	CompletionRequestsTotal.WithLabelValues(provider, operation, outcome).Inc()
	CompletionDuration.WithLabelValues(provider, operation).Observe(d.Seconds())
}

// RecordFallback records a degraded completion result.
func RecordFallback(operation string) {
	CompletionFallbacksTotal.WithLabelValues(operation).Inc()
}

// RecordRecordCache records a per-pair cache hit or miss.
func RecordRecordCache(hit bool) {
	if hit {
		RecordCacheLookupsTotal.WithLabelValues("hit").Inc()
		return
	}
	RecordCacheLookupsTotal.WithLabelValues("miss").Inc()
}

// RecordGeneration records one orchestrator run.
func RecordGeneration(path string, d time.Duration) {
	GenerationsTotal.WithLabelValues(path).Inc()
	GenerationDuration.WithLabelValues(path).Observe(d.Seconds())
}

// RecordLockFailure records a generation that proceeded without the lock.
// reason is "busy" or "error".
func RecordLockFailure(reason string) {
	LockFailuresTotal.WithLabelValues(reason).Inc()
}
