// Package metrics exposes Prometheus metrics for the gateway. Every
// Collector owns its own registry so multiple gateways can coexist in
// one process without duplicate registration panics.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Buckets tuned for local LLM latencies, sub-second to multi-minute.
var durationBuckets = []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120}

// Collector records request, upstream, and discovery metrics.
type Collector struct {
	registry *prometheus.Registry

	requests         *prometheus.CounterVec
	requestDuration  *prometheus.HistogramVec
	upstreamRequests *prometheus.CounterVec
	fallbackAdvances *prometheus.CounterVec
	providerModels   *prometheus.GaugeVec
	discoveryProbes  *prometheus.CounterVec
}

// NewCollector creates a collector with a fresh registry and all
// gateway metrics registered.
func NewCollector() *Collector {
	registry := prometheus.NewRegistry()

	c := &Collector{
		registry: registry,

		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "relaypoint",
			Name:      "requests_total",
			Help:      "Inbound requests by endpoint and response status.",
		}, []string{"endpoint", "status"}),

		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "relaypoint",
			Name:      "request_duration_seconds",
			Help:      "Inbound request latency by endpoint.",
			Buckets:   durationBuckets,
		}, []string{"endpoint"}),

		upstreamRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "relaypoint",
			Name:      "upstream_requests_total",
			Help:      "Upstream attempts by provider and outcome.",
		}, []string{"provider", "outcome"}),

		fallbackAdvances: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "relaypoint",
			Name:      "fallback_advances_total",
			Help:      "Times an alias advanced past a failed target.",
		}, []string{"alias"}),

		providerModels: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "relaypoint",
			Name:      "provider_models",
			Help:      "Models advertised by each discovered provider.",
		}, []string{"provider"}),

		discoveryProbes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "relaypoint",
			Name:      "discovery_probes_total",
			Help:      "Capability probes by provider, format, and result.",
		}, []string{"provider", "format", "result"}),
	}

	registry.MustRegister(
		c.requests,
		c.requestDuration,
		c.upstreamRequests,
		c.fallbackAdvances,
		c.providerModels,
		c.discoveryProbes,
	)

	return c
}

// RecordRequest records a completed inbound request.
func (c *Collector) RecordRequest(endpoint, status string, duration time.Duration) {
	c.requests.WithLabelValues(endpoint, status).Inc()
	c.requestDuration.WithLabelValues(endpoint).Observe(duration.Seconds())
}

// RecordUpstream records one upstream attempt. Outcome is "success" or
// a failure class name.
func (c *Collector) RecordUpstream(provider, outcome string) {
	c.upstreamRequests.WithLabelValues(provider, outcome).Inc()
}

// RecordFallback records an advance to the next target of an alias.
func (c *Collector) RecordFallback(alias string) {
	c.fallbackAdvances.WithLabelValues(alias).Inc()
}

// SetProviderModels records the size of a provider's model set.
func (c *Collector) SetProviderModels(provider string, count int) {
	c.providerModels.WithLabelValues(provider).Set(float64(count))
}

// RecordProbe records one capability probe. Result is "ok" or "failed".
func (c *Collector) RecordProbe(provider, format, result string) {
	c.discoveryProbes.WithLabelValues(provider, format, result).Inc()
}

// Registry returns the collector's registry for test scraping.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}
