// Package metrics exposes Prometheus counters for the category and location
// engines. A nil *Collector is valid and records nothing, so engines can be
// built in tests without a registry.
package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "marketplace"

// Collector holds all Prometheus metrics for the service.
type Collector struct {
	registry *prometheus.Registry

	HTTPRequests   *prometheus.CounterVec
	TierResults    *prometheus.CounterVec
	LocationCache  *prometheus.CounterVec
	ProviderErrors *prometheus.CounterVec
	TreeCache      *prometheus.CounterVec
}

// NewCollector creates a collector on its own registry, together with the
// Go runtime and process collectors.
func NewCollector() *Collector {
	registry := prometheus.NewRegistry()

	c := &Collector{
		registry: registry,
		HTTPRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		TierResults: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "location_tier_results_total",
				Help:      "Location suggestions returned per source tier",
			},
			[]string{"source"},
		),
		LocationCache: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "location_cache_lookups_total",
				Help:      "Location cache lookups by kind and result",
			},
			[]string{"kind", "result"},
		),
		ProviderErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "geocoder_errors_total",
				Help:      "External geocoding provider failures by operation",
			},
			[]string{"operation"},
		),
		TreeCache: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "category_tree_cache_lookups_total",
				Help:      "Category tree cache lookups by result",
			},
			[]string{"result"},
		),
	}

	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		c.HTTPRequests,
		c.TierResults,
		c.LocationCache,
		c.ProviderErrors,
		c.TreeCache,
	)
	return c
}

// Registry returns the collector's registry.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

func hitLabel(hit bool) string {
	if hit {
		return "hit"
	}
	return "miss"
}

// ObserveTier adds n suggestions returned by the given source tier.
func (c *Collector) ObserveTier(source string, n int) {
	if c == nil || n <= 0 {
		return
	}
	c.TierResults.WithLabelValues(source).Add(float64(n))
}

// ObserveLocationCache records a location cache lookup.
func (c *Collector) ObserveLocationCache(kind string, hit bool) {
	if c == nil {
		return
	}
	c.LocationCache.WithLabelValues(kind, hitLabel(hit)).Inc()
}

// ObserveProviderError records a failed geocoding provider call.
func (c *Collector) ObserveProviderError(operation string) {
	if c == nil {
		return
	}
	c.ProviderErrors.WithLabelValues(operation).Inc()
}

// ObserveTreeCache records a category tree cache lookup.
func (c *Collector) ObserveTreeCache(hit bool) {
	if c == nil {
		return
	}
	c.TreeCache.WithLabelValues(hitLabel(hit)).Inc()
}

// ObserveRequest records a served HTTP request.
func (c *Collector) ObserveRequest(method, route string, status int) {
	if c == nil {
		return
	}
	c.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
}
