// Package observability holds the Prometheus metrics of the enrichment
// pipeline and HTTP feed, plus in-process registry lookup statistics.
package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const metricPrefix = "sommarioni_"

// Enrichment outcomes.
const (
	OutcomeKept    = "kept"
	OutcomeDropped = "dropped"
)

// Metrics owns the collectors and the registry they are registered with.
type Metrics struct {
	registry *prometheus.Registry

	enrichFeatures *prometheus.CounterVec
	enrichDuration *prometheus.HistogramVec
	httpRequests   *prometheus.CounterVec
	httpDuration   *prometheus.HistogramVec
	indexRecords   prometheus.Gauge
}

// NewMetrics creates the collectors on a private registry, along with the Go
// runtime and process collectors.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		enrichFeatures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: metricPrefix + "enrich_features_total",
			Help: "Features processed by enrichment passes, by view and outcome",
		}, []string{"view", "outcome"}),
		enrichDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    metricPrefix + "enrich_duration_seconds",
			Help:    "Duration of enrichment passes",
			Buckets: prometheus.DefBuckets,
		}, []string{"view"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: metricPrefix + "http_requests_total",
			Help: "HTTP requests served, by route pattern and status code",
		}, []string{"route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    metricPrefix + "http_request_duration_seconds",
			Help:    "HTTP request latency by route pattern",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
		indexRecords: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: metricPrefix + "registry_records",
			Help: "Registry records held by the loaded index",
		}),
	}
	m.registry.MustRegister(
		m.enrichFeatures,
		m.enrichDuration,
		m.httpRequests,
		m.httpDuration,
		m.indexRecords,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// ObserveEnrichment records the outcome of one enrichment pass.
func (m *Metrics) ObserveEnrichment(view string, kept, dropped int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.enrichFeatures.WithLabelValues(view, OutcomeKept).Add(float64(kept))
	m.enrichFeatures.WithLabelValues(view, OutcomeDropped).Add(float64(dropped))
	m.enrichDuration.WithLabelValues(view).Observe(elapsed.Seconds())
}

// ObserveHTTP records one served request.
func (m *Metrics) ObserveHTTP(route string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(route, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(route).Observe(elapsed.Seconds())
}

// SetIndexRecords publishes the size of the loaded registry index.
func (m *Metrics) SetIndexRecords(n int) {
	if m == nil {
		return
	}
	m.indexRecords.Set(float64(n))
}

// Registry exposes the underlying registry, e.g. for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
