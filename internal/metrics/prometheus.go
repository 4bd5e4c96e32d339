package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	requestDurationName = "memc_request_duration_seconds"
	httpDurationName    = "request_duration_seconds"
	cacheSizeName       = "cache_size"
)

// Prometheus is a Sink backed by its own registry.
type Prometheus struct {
	registry *prometheus.Registry
	duration *prometheus.HistogramVec
	http     *prometheus.HistogramVec
	size     prometheus.Gauge
}

// NewPrometheus registers the memcached and admin request histograms and the
// size gauge on a fresh registry.
func NewPrometheus() *Prometheus {
	p := &Prometheus{
		registry: prometheus.NewRegistry(),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    requestDurationName,
			Help:    "memcached request latencies in seconds",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 10),
		}, []string{"method"}),
		http: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    httpDurationName,
			Help:    "admin HTTP request latencies in seconds",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 10),
		}, []string{"method"}),
		size: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: cacheSizeName,
			Help: "number of entries in the cache, including expired entries not yet swept",
		}),
	}
	p.registry.MustRegister(p.duration, p.http, p.size)
	return p
}

func (p *Prometheus) ObserveCommand(command string, d time.Duration) {
	p.duration.WithLabelValues(command).Observe(d.Seconds())
}

// ObserveRequest records one admin HTTP request. method is "get" or "other".
func (p *Prometheus) ObserveRequest(method string, d time.Duration) {
	p.http.WithLabelValues(method).Observe(d.Seconds())
}

func (p *Prometheus) SetCacheSize(n int) {
	p.size.Set(float64(n))
}

// Handler serves the registry in the Prometheus text format.
func (p *Prometheus) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{Registry: p.registry})
}

// Gatherer exposes the registry, mainly for tests.
func (p *Prometheus) Gatherer() prometheus.Gatherer {
	return p.registry
}

var _ Sink = (*Prometheus)(nil)
