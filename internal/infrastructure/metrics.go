package infrastructure

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus collectors the application emits.
type Metrics struct {
	ProviderRequests *prometheus.CounterVec
	ProviderDuration *prometheus.HistogramVec
	CacheHits        *prometheus.CounterVec
	CacheMisses      *prometheus.CounterVec
	BuildDuration    *prometheus.HistogramVec
	HTTPRequests     *prometheus.CounterVec
	HTTPDuration     *prometheus.HistogramVec
}

// NewMetrics registers the application collectors on the given registerer.
// Pass prometheus.DefaultRegisterer in production; tests use a fresh
// prometheus.NewRegistry so registration never collides.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		ProviderRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "perpscope_provider_requests_total",
			Help: "Upstream provider requests by provider, endpoint and outcome.",
		}, []string{"provider", "endpoint", "status"}),
		ProviderDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "perpscope_provider_request_duration_seconds",
			Help:    "Upstream provider request latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"provider", "endpoint"}),
		CacheHits: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "perpscope_cache_hits_total",
			Help: "Cache hits by cache name.",
		}, []string{"cache"}),
		CacheMisses: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "perpscope_cache_misses_total",
			Help: "Cache misses by cache name.",
		}, []string{"cache"}),
		BuildDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "perpscope_build_duration_seconds",
			Help:    "Time to assemble a derived dataset.",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120},
		}, []string{"dataset"}),
		HTTPRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "perpscope_http_requests_total",
			Help: "HTTP requests by method, route and status code.",
		}, []string{"method", "route", "status"}),
		HTTPDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "perpscope_http_request_duration_seconds",
			Help:    "HTTP request latency by route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
}
