package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// ---------------------------------------------------------------------------
// Registry
// ---------------------------------------------------------------------------

var defaultRegistry = newRegistry()

func newRegistry() *prometheus.Registry {
	r := prometheus.NewRegistry()
	r.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return r
}

// Default returns the application registry.
func Default() *prometheus.Registry {
	return defaultRegistry
}

// Handler serves the registry in Prometheus text format.
func Handler() http.Handler {
	return promhttp.HandlerFor(defaultRegistry, promhttp.HandlerOpts{Registry: defaultRegistry})
}

var factory = promauto.With(defaultRegistry)

// ---------------------------------------------------------------------------
// Pre-defined Application Metrics
// ---------------------------------------------------------------------------

var (
	// Ingestion metrics
	FetchRequests = factory.NewCounterVec(prometheus.CounterOpts{
		Name: "flightinsight_fetch_requests_total",
		Help: "Upstream fetches by source and outcome",
	}, []string{"source", "outcome"})
	FetchErrors = factory.NewCounterVec(prometheus.CounterOpts{
		Name: "flightinsight_fetch_errors_total",
		Help: "Failed upstream fetches by source and error kind",
	}, []string{"source", "kind"})
	FetchLatency = factory.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "flightinsight_fetch_latency_seconds",
		Help:    "Upstream fetch latency",
		Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
	}, []string{"source"})

	// Normalizer metrics
	NormalizedRecords = factory.NewCounterVec(prometheus.CounterOpts{
		Name: "flightinsight_normalized_records_total",
		Help: "Rows kept by the normalizer",
	}, []string{"source"})
	DroppedRecords = factory.NewCounterVec(prometheus.CounterOpts{
		Name: "flightinsight_dropped_records_total",
		Help: "Rows dropped by the normalizer by reason",
	}, []string{"source", "reason"})

	// Cache metrics
	CacheHits = factory.NewCounter(prometheus.CounterOpts{
		Name: "flightinsight_cache_hits_total",
		Help: "Fetch cache hits",
	})
	CacheMisses = factory.NewCounter(prometheus.CounterOpts{
		Name: "flightinsight_cache_misses_total",
		Help: "Fetch cache misses",
	})

	// Insight metrics
	InsightRequests = factory.NewCounterVec(prometheus.CounterOpts{
		Name: "flightinsight_insight_requests_total",
		Help: "Insight sections produced by kind and mode (model, fallback, error, fixed)",
	}, []string{"kind", "mode"})
	InsightLatency = factory.NewHistogram(prometheus.HistogramOpts{
		Name:    "flightinsight_insight_latency_seconds",
		Help:    "Language model call latency",
		Buckets: []float64{0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
	})

	// Query metrics
	QueryRequests = factory.NewCounter(prometheus.CounterOpts{
		Name: "flightinsight_query_requests_total",
		Help: "Table filter requests",
	})
	QueryLatency = factory.NewHistogram(prometheus.HistogramOpts{
		Name:    "flightinsight_query_latency_seconds",
		Help:    "Table filter latency",
		Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1},
	})

	// Session metrics
	SessionRecords = factory.NewGauge(prometheus.GaugeOpts{
		Name: "flightinsight_session_records",
		Help: "Rows in the current session table",
	})

	// Runtime metrics
	HeapBytes = factory.NewGauge(prometheus.GaugeOpts{
		Name: "flightinsight_heap_bytes",
		Help: "Heap allocation at the last memory sample",
	})
	MemoryState = factory.NewGauge(prometheus.GaugeOpts{
		Name: "flightinsight_memory_state",
		Help: "Memory pressure level (0 normal, 1 warning, 2 critical, 3 emergency)",
	})

	// HTTP metrics
	HTTPRequests = factory.NewCounterVec(prometheus.CounterOpts{
		Name: "flightinsight_http_requests_total",
		Help: "HTTP requests by method, route and status code",
	}, []string{"method", "route", "code"})
	HTTPLatency = factory.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "flightinsight_http_latency_seconds",
		Help:    "HTTP request latency",
		Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 5, 30},
	}, []string{"method", "route"})
)
