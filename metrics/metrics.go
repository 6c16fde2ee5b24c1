// Package metrics exposes gateway counters in Prometheus format.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "gateway"

// Metrics owns a private registry so tests and multiple servers never collide
type Metrics struct {
	registry         *prometheus.Registry
	authAttempts     *prometheus.CounterVec
	upstreamRequests *prometheus.CounterVec
	upstreamDuration *prometheus.HistogramVec
}

// New registers the gateway collectors plus the Go runtime and process collectors
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		authAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "auth_attempts_total",
			Help:      "Authentication attempts by strategy and outcome.",
		}, []string{"strategy", "outcome"}),
		upstreamRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "upstream_requests_total",
			Help:      "Signed upstream requests by upstream and status code (or error class).",
		}, []string{"upstream", "code"}),
		upstreamDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "upstream_request_duration_seconds",
			Help:      "Latency of signed upstream requests.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"upstream"}),
	}
	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.authAttempts,
		m.upstreamRequests,
		m.upstreamDuration,
	)
	return m
}

// AuthAttempt counts one authentication outcome
func (m *Metrics) AuthAttempt(strategy, outcome string) {
	if m == nil {
		return
	}
	m.authAttempts.WithLabelValues(strategy, outcome).Inc()
}

// UpstreamRequest records an upstream call. code is 0 when no response was received,
// in which case errClass labels the failure.
func (m *Metrics) UpstreamRequest(upstream string, code int, errClass string, d time.Duration) {
	if m == nil {
		return
	}
	label := errClass
	if code > 0 {
		label = strconv.Itoa(code)
	}
	m.upstreamRequests.WithLabelValues(upstream, label).Inc()
	m.upstreamDuration.WithLabelValues(upstream).Observe(d.Seconds())
}

// Handler serves the registry
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry exposes the underlying registry for callers adding their own collectors
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
