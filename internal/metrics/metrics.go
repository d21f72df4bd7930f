/*
Package metrics defines the Prometheus instruments shared by tripsense components.

Counters are registered with the default registry through promauto so the
serve command can expose them without extra wiring.
*/
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CacheHits counts lookups that found an entry, per cache name.
	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tripsense_cache_hits_total",
			Help: "Total number of cache hits",
		},
		[]string{"cache"},
	)

	// CacheMisses counts lookups that found nothing, per cache name.
	CacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tripsense_cache_misses_total",
			Help: "Total number of cache misses",
		},
		[]string{"cache"},
	)

	// CacheEvictions counts entries dropped for capacity, per cache name.
	CacheEvictions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tripsense_cache_evictions_total",
			Help: "Total number of cache evictions",
		},
		[]string{"cache"},
	)

	// Degradations counts silent fallbacks taken by NLP and search components.
	Degradations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tripsense_degradations_total",
			Help: "Total number of fallbacks to a weaker strategy",
		},
		[]string{"component", "reason"}, // reason: "backend_error", "panic", "unavailable", "breaker_open"
	)

	// SearchDuration tracks search latency by the strategy that produced the results.
	SearchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tripsense_search_duration_seconds",
			Help:    "Duration of destination searches in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"strategy"}, // "cache", "semantic", "keyword", "random"
	)

	// RecommendDuration tracks recommendation bundle assembly latency.
	RecommendDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "tripsense_recommend_duration_seconds",
			Help:    "Duration of recommendation bundle assembly in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	// ModelLoads counts lazy model initialisation attempts by outcome.
	ModelLoads = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tripsense_model_loads_total",
			Help: "Total number of optional model load attempts",
		},
		[]string{"model", "outcome"}, // outcome: "ok", "failed"
	)

	// HistoryDropped counts search events dropped because the tracker queue was full.
	HistoryDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tripsense_history_dropped_total",
			Help: "Total number of search events dropped by the history tracker",
		},
	)
)

// RecordDegradation increments the degradation counter for a component.
func RecordDegradation(component, reason string) {
	Degradations.WithLabelValues(component, reason).Inc()
}

// BreakerState reports the circuit breaker state per remote backend (0 closed, 1 half-open, 2 open).
var BreakerState = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Name: "tripsense_breaker_state",
		Help: "Circuit breaker state of remote NLP backends",
	},
	[]string{"backend"},
)
