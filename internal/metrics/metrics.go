// Package metrics exposes Prometheus instrumentation for the processing
// pipeline and its collaborators.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// JobsProcessedTotal counts finished processing jobs by outcome
	// (completed, failed, rejected).
	JobsProcessedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gifforge_jobs_processed_total",
		Help: "Total number of GIF processing jobs by outcome",
	}, []string{"outcome"})

	// JobStageDuration observes wall-clock time spent per pipeline stage.
	JobStageDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "gifforge_job_stage_duration_seconds",
		Help:    "Duration of GIF processing stages",
		Buckets: prometheus.DefBuckets,
	}, []string{"stage"})

	// RetryTotal counts orchestrator-level retries of the engine call.
	RetryTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gifforge_processing_retries_total",
		Help: "Total number of engine call retries",
	})

	// FallbackPassTotal counts encode attempts that fell back to the
	// system-font pass.
	FallbackPassTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gifforge_font_fallback_total",
		Help: "Total number of encodes that used the system-font fallback pass",
	})

	// CacheRequestsTotal counts cache lookups by cache name and result.
	CacheRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gifforge_cache_requests_total",
		Help: "Cache lookups by cache and result (hit, miss)",
	}, []string{"cache", "result"})

	// ProviderRequestsTotal counts upstream GIF provider calls by status.
	ProviderRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gifforge_provider_requests_total",
		Help: "Upstream provider requests by provider and status (ok, error)",
	}, []string{"provider", "status"})

	// BreakerTransitionsTotal counts circuit breaker state changes.
	BreakerTransitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gifforge_breaker_transitions_total",
		Help: "Circuit breaker state transitions by target state",
	}, []string{"to"})

	// EngineMemoryBytes reports the engine's advisory memory counter.
	EngineMemoryBytes = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "gifforge_engine_memory_bytes",
		Help: "Bytes currently accounted to the processing engine",
	})
)
