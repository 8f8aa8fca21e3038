package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector holds all Prometheus metrics for the application. Each collector
// owns its registry, so tests can build as many as they like. Recording
// methods are safe to call on a nil *Collector.
type Collector struct {
	registry *prometheus.Registry

	// HTTP metrics
	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec

	// Graph store metrics
	GraphQueries       *prometheus.CounterVec
	GraphQueryDuration *prometheus.HistogramVec

	// Cache metrics
	CacheHits          *prometheus.CounterVec
	CacheMisses        *prometheus.CounterVec
	CacheErrors        *prometheus.CounterVec
	CacheInvalidations *prometheus.CounterVec
}

// NewCollector creates a new metrics collector with the given namespace
func NewCollector(namespace string) *Collector {
	registry := prometheus.NewRegistry()

	httpRequests := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	httpDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	graphQueries := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "graph_queries_total",
			Help:      "Total number of graph store operations",
		},
		[]string{"operation", "status"},
	)

	graphQueryDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "graph_query_duration_seconds",
			Help:      "Graph store operation duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	cacheHits := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_hits_total",
			Help:      "Total number of cache hits",
		},
		[]string{"kind"},
	)

	cacheMisses := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_misses_total",
			Help:      "Total number of cache misses",
		},
		[]string{"kind"},
	)

	cacheErrors := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_errors_total",
			Help:      "Total number of failed cache operations",
		},
		[]string{"operation"},
	)

	cacheInvalidations := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_invalidations_total",
			Help:      "Total number of cache keys deleted after a mutation",
		},
		[]string{"kind"},
	)

	registry.MustRegister(
		httpRequests,
		httpDuration,
		graphQueries,
		graphQueryDuration,
		cacheHits,
		cacheMisses,
		cacheErrors,
		cacheInvalidations,
	)

	return &Collector{
		registry:           registry,
		HTTPRequests:       httpRequests,
		HTTPDuration:       httpDuration,
		GraphQueries:       graphQueries,
		GraphQueryDuration: graphQueryDuration,
		CacheHits:          cacheHits,
		CacheMisses:        cacheMisses,
		CacheErrors:        cacheErrors,
		CacheInvalidations: cacheInvalidations,
	}
}

func (c *Collector) CacheHit(kind string) {
	if c == nil {
		return
	}
	c.CacheHits.WithLabelValues(kind).Inc()
}

func (c *Collector) CacheMiss(kind string) {
	if c == nil {
		return
	}
	c.CacheMisses.WithLabelValues(kind).Inc()
}

func (c *Collector) CacheError(operation string) {
	if c == nil {
		return
	}
	c.CacheErrors.WithLabelValues(operation).Inc()
}

// CacheInvalidated counts keys deleted for one mutation kind.
func (c *Collector) CacheInvalidated(kind string, keys int) {
	if c == nil {
		return
	}
	c.CacheInvalidations.WithLabelValues(kind).Add(float64(keys))
}

// GraphQuery records one repository call.
func (c *Collector) GraphQuery(operation, status string, duration time.Duration) {
	if c == nil {
		return
	}
	c.GraphQueries.WithLabelValues(operation, status).Inc()
	c.GraphQueryDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// HTTPRequest records one served request.
func (c *Collector) HTTPRequest(method, route string, status int, duration time.Duration) {
	if c == nil {
		return
	}
	c.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	c.HTTPDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// GetRegistry returns the Prometheus registry for this collector
func (c *Collector) GetRegistry() *prometheus.Registry {
	return c.registry
}

// Handler serves the collector's registry in the Prometheus text format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}
