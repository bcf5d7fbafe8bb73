package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus collectors for the analytics service.
type Metrics struct {
	EventsIngested    *prometheus.CounterVec
	Queries           *prometheus.CounterVec
	AuthFailures      *prometheus.CounterVec
	APIKeyCacheHits   prometheus.Counter
	APIKeyCacheMisses prometheus.Counter
	RequestDuration   *prometheus.HistogramVec
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		EventsIngested: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "web_analytics",
			Subsystem: "ingest",
			Name:      "events_total",
			Help:      "Total number of ingestion attempts by outcome.",
		}, []string{"status"}), // status: stored, invalid, error, rate_limited
		Queries: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "web_analytics",
			Subsystem: "query",
			Name:      "requests_total",
			Help:      "Total number of aggregation queries by kind and outcome.",
		}, []string{"kind", "status"}),
		AuthFailures: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "web_analytics",
			Subsystem: "auth",
			Name:      "failures_total",
			Help:      "Total number of rejected API keys by reason.",
		}, []string{"reason"}), // reason: missing, invalid, expired, error
		APIKeyCacheHits: f.NewCounter(prometheus.CounterOpts{
			Namespace: "web_analytics",
			Subsystem: "auth",
			Name:      "api_key_cache_hits_total",
			Help:      "Total number of API key cache hits.",
		}),
		APIKeyCacheMisses: f.NewCounter(prometheus.CounterOpts{
			Namespace: "web_analytics",
			Subsystem: "auth",
			Name:      "api_key_cache_misses_total",
			Help:      "Total number of API key cache misses.",
		}),
		RequestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "web_analytics",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency by route and status code.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route", "code"}),
	}
}

// NewNop returns collectors registered nowhere, for tests and tools.
func NewNop() *Metrics {
	return New(prometheus.NewRegistry())
}
