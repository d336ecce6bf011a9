// Package metrics implements ports.Metrics with Prometheus collectors.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.trai.ch/predicate/internal/core/domain"
	"go.trai.ch/predicate/internal/core/ports"
	"go.trai.ch/zerr"
)

var _ ports.Metrics = (*Prometheus)(nil)

// Prometheus records pipeline counters in a private registry.
type Prometheus struct {
	registry  *prometheus.Registry
	requests  *prometheus.CounterVec
	cache     *prometheus.CounterVec
	wait      prometheus.Histogram
	citations prometheus.Counter
}

// New creates the collectors and registers them.
func New() *Prometheus {
	p := &Prometheus{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pred",
			Name:      "requests_total",
			Help:      "Outbound registry and document requests by endpoint and outcome.",
		}, []string{"endpoint", "outcome"}),
		cache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pred",
			Name:      "cache_lookups_total",
			Help:      "Cache lookups by data class and result.",
		}, []string{"class", "result"}),
		wait: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "pred",
			Name:      "ratelimit_wait_seconds",
			Help:      "Time spent waiting for rate limiter tokens.",
			Buckets:   []float64{0, 0.01, 0.1, 0.5, 1, 5, 15, 30},
		}),
		citations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "pred",
			Name:      "citations_extracted_total",
			Help:      "Predicate citations extracted from documents.",
		}),
	}
	p.registry.MustRegister(p.requests, p.cache, p.wait, p.citations)
	return p
}

// ObserveRequest counts a registry or document request by outcome.
func (p *Prometheus) ObserveRequest(endpoint, outcome string) {
	p.requests.WithLabelValues(endpoint, outcome).Inc()
}

// ObserveCache counts a cache lookup by data class and result.
func (p *Prometheus) ObserveCache(class domain.DataClass, result string) {
	p.cache.WithLabelValues(string(class), result).Inc()
}

// ObserveRateLimitWait records time spent waiting for tokens.
func (p *Prometheus) ObserveRateLimitWait(d time.Duration) {
	p.wait.Observe(d.Seconds())
}

// ObserveCitations counts citations extracted from one document.
func (p *Prometheus) ObserveCitations(n int) {
	p.citations.Add(float64(n))
}

// Gatherer exposes the registry for tests and exporters.
func (p *Prometheus) Gatherer() prometheus.Gatherer {
	return p.registry
}

// WriteTextfile writes all metrics in the node exporter textfile format.
func (p *Prometheus) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, p.registry); err != nil {
		return zerr.With(zerr.Wrap(err, "failed to write metrics file"), "path", path)
	}
	return nil
}
