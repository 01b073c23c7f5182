// Package metrics exposes the service's Prometheus collectors.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "luse"

// Metrics is the collector set. A nil *Metrics is valid and records nothing.
type Metrics struct {
	// ProviderFetches counts provider calls by outcome (ok or the error kind).
	ProviderFetches *prometheus.CounterVec
	// Resolutions counts chain resolutions by the source that answered.
	Resolutions *prometheus.CounterVec
	// CacheHits counts requests served from the cache slot.
	CacheHits prometheus.Counter
	// ResolutionDuration is the time spent walking the chain.
	ResolutionDuration prometheus.Histogram
	// HTTPRequests counts served requests by route and status.
	HTTPRequests *prometheus.CounterVec

	registry *prometheus.Registry
}

// New creates the collectors and registers them, with the Go and process
// collectors, on a private registry.
func New() *Metrics {
	m := &Metrics{
		ProviderFetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "provider",
			Name:      "fetches_total",
			Help:      "Provider fetches by outcome",
		}, []string{"provider", "outcome"}),
		Resolutions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "chain",
			Name:      "resolutions_total",
			Help:      "Chain resolutions by answering source",
		}, []string{"source"}),
		CacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "chain",
			Name:      "cache_hits_total",
			Help:      "Requests answered from the cache",
		}),
		ResolutionDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "chain",
			Name:      "resolution_duration_seconds",
			Help:      "Time spent resolving through the provider chain",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}),
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by route and status code",
		}, []string{"route", "code"}),
		registry: prometheus.NewRegistry(),
	}
	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.ProviderFetches,
		m.Resolutions,
		m.CacheHits,
		m.ResolutionDuration,
		m.HTTPRequests,
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		Registry:           m.registry,
		DisableCompression: true, // the server's gzip middleware compresses
	})
}

func (m *Metrics) ProviderFetch(provider, outcome string) {
	if m == nil {
		return
	}
	m.ProviderFetches.WithLabelValues(provider, outcome).Inc()
}

func (m *Metrics) Resolved(source string, took time.Duration) {
	if m == nil {
		return
	}
	m.Resolutions.WithLabelValues(source).Inc()
	m.ResolutionDuration.Observe(took.Seconds())
}

func (m *Metrics) CacheHit() {
	if m == nil {
		return
	}
	m.CacheHits.Inc()
}

func (m *Metrics) HTTPRequest(route string, code int) {
	if m == nil {
		return
	}
	m.HTTPRequests.WithLabelValues(route, strconv.Itoa(code)).Inc()
}
