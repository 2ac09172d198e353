package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains all Prometheus metrics for the paper search gateway.
// Metrics are organized by subsystem: searches, retrieval, enrichment
// lookups, and the result cache. All counters and histograms are registered
// via promauto for automatic registration with the default Prometheus registry.
type Metrics struct {
	// SearchRequests counts inbound search requests by endpoint (search, deep_search).
	SearchRequests *prometheus.CounterVec

	// SearchDuration observes end-to-end request duration in seconds by endpoint.
	SearchDuration *prometheus.HistogramVec

	// SearchFallbacks counts requests answered with static sample data by endpoint.
	SearchFallbacks *prometheus.CounterVec

	// RetrievalRequests counts calls to the remote retrieval service by operation.
	RetrievalRequests *prometheus.CounterVec

	// RetrievalFailures counts failed retrieval calls by operation and error type.
	RetrievalFailures *prometheus.CounterVec

	// RetrievalDuration observes retrieval call duration in seconds by operation.
	RetrievalDuration *prometheus.HistogramVec

	// ResultsPerSearch observes the number of results returned per request by endpoint.
	ResultsPerSearch *prometheus.HistogramVec

	// LookupsTotal counts enrichment database lookups by kind (authors, venue, social).
	LookupsTotal *prometheus.CounterVec

	// LookupFailures counts swallowed lookup errors by kind.
	LookupFailures *prometheus.CounterVec

	// LookupDuration observes lookup duration in seconds by kind.
	LookupDuration *prometheus.HistogramVec

	// SocialScores observes the distribution of computed social scores.
	SocialScores prometheus.Histogram

	// CacheHits counts deep-search requests served from the result cache.
	CacheHits prometheus.Counter

	// CacheMisses counts deep-search requests that missed the result cache.
	CacheMisses prometheus.Counter

	// CacheWriteFailures counts swallowed cache write errors.
	CacheWriteFailures prometheus.Counter

	// CacheEntries tracks the number of entries in the result cache file.
	CacheEntries prometheus.Gauge
}

// NewMetrics creates a new Metrics instance with all metrics initialized.
// The namespace is used as a prefix for all metric names.
func NewMetrics(namespace string) *Metrics {
	return &Metrics{
		// Searches
		SearchRequests: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "search_requests_total",
			Help:      "Total number of inbound search requests by endpoint",
		}, []string{"endpoint"}),
		SearchDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "search_duration_seconds",
			Help:      "End-to-end search request duration in seconds by endpoint",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120, 180},
		}, []string{"endpoint"}),
		SearchFallbacks: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "search_fallbacks_total",
			Help:      "Total number of search requests answered with sample data",
		}, []string{"endpoint"}),

		// Retrieval service
		RetrievalRequests: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "retrieval_requests_total",
			Help:      "Total number of calls to the retrieval service by operation",
		}, []string{"operation"}),
		RetrievalFailures: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "retrieval_failures_total",
			Help:      "Total number of failed retrieval calls by operation and error type",
		}, []string{"operation", "error_type"}),
		RetrievalDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "retrieval_duration_seconds",
			Help:      "Retrieval call duration in seconds by operation",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120, 180},
		}, []string{"operation"}),
		ResultsPerSearch: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "results_per_search",
			Help:      "Number of results returned per request by endpoint",
			Buckets:   []float64{0, 1, 5, 10, 25, 50, 100, 250},
		}, []string{"endpoint"}),

		// Enrichment lookups
		LookupsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "lookups_total",
			Help:      "Total number of enrichment database lookups by kind",
		}, []string{"kind"}),
		LookupFailures: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "lookup_failures_total",
			Help:      "Total number of swallowed enrichment lookup errors by kind",
		}, []string{"kind"}),
		LookupDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "lookup_duration_seconds",
			Help:      "Enrichment lookup duration in seconds by kind",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		}, []string{"kind"}),
		SocialScores: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "social_scores",
			Help:      "Distribution of computed social scores",
			Buckets:   []float64{0, 10, 20, 30, 40, 50, 60, 70, 80, 90, 100},
		}),

		// Result cache
		CacheHits: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_hits_total",
			Help:      "Total number of deep-search requests served from the cache",
		}),
		CacheMisses: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_misses_total",
			Help:      "Total number of deep-search requests that missed the cache",
		}),
		CacheWriteFailures: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_write_failures_total",
			Help:      "Total number of swallowed cache write errors",
		}),
		CacheEntries: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "cache_entries",
			Help:      "Number of entries in the result cache file",
		}),
	}
}

// RecordSearchRequest records an inbound search request and its duration.
func (m *Metrics) RecordSearchRequest(endpoint string, resultCount int, durationSeconds float64) {
	m.SearchRequests.WithLabelValues(endpoint).Inc()
	m.SearchDuration.WithLabelValues(endpoint).Observe(durationSeconds)
	m.ResultsPerSearch.WithLabelValues(endpoint).Observe(float64(resultCount))
}

// RecordSearchFallback records a request answered with sample data.
func (m *Metrics) RecordSearchFallback(endpoint string) {
	m.SearchFallbacks.WithLabelValues(endpoint).Inc()
}

// RecordRetrievalRequest records a call to the retrieval service.
func (m *Metrics) RecordRetrievalRequest(operation string, durationSeconds float64) {
	m.RetrievalRequests.WithLabelValues(operation).Inc()
	m.RetrievalDuration.WithLabelValues(operation).Observe(durationSeconds)
}

// RecordRetrievalFailure records a failed call to the retrieval service.
func (m *Metrics) RecordRetrievalFailure(operation, errorType string) {
	m.RetrievalFailures.WithLabelValues(operation, errorType).Inc()
}

// RecordLookup records a completed enrichment lookup.
func (m *Metrics) RecordLookup(kind string, durationSeconds float64) {
	m.LookupsTotal.WithLabelValues(kind).Inc()
	m.LookupDuration.WithLabelValues(kind).Observe(durationSeconds)
}

// RecordLookupFailure records a swallowed enrichment lookup error.
func (m *Metrics) RecordLookupFailure(kind string) {
	m.LookupFailures.WithLabelValues(kind).Inc()
}

// RecordSocialScore records a computed social score.
func (m *Metrics) RecordSocialScore(score int) {
	m.SocialScores.Observe(float64(score))
}

// RecordCacheHit records a cache hit.
func (m *Metrics) RecordCacheHit() {
	m.CacheHits.Inc()
}

// RecordCacheMiss records a cache miss.
func (m *Metrics) RecordCacheMiss() {
	m.CacheMisses.Inc()
}

// RecordCacheWriteFailure records a swallowed cache write error.
func (m *Metrics) RecordCacheWriteFailure() {
	m.CacheWriteFailures.Inc()
}

// SetCacheEntries updates the cache entry count gauge.
func (m *Metrics) SetCacheEntries(n int) {
	m.CacheEntries.Set(float64(n))
}
