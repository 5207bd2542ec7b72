// Package metrics exposes Prometheus collectors for check cycles and the
// health endpoint.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "easycheck"

// Metrics owns a private registry and every easycheck collector.
type Metrics struct {
	registry *prometheus.Registry

	cycleDuration prometheus.Histogram
	checkDuration *prometheus.HistogramVec
	checkResults  *prometheus.CounterVec
	healthy       prometheus.Gauge
	verdicts      *prometheus.CounterVec

	httpDuration *prometheus.HistogramVec
	httpRequests *prometheus.CounterVec
}

// New creates the collectors and registers them, together with the Go and
// process collectors, on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry:      prometheus.NewRegistry(),
		cycleDuration: newCycleDuration(),
		checkDuration: newCheckDuration(),
		checkResults:  newCheckResults(),
		healthy:       newHealthy(),
		verdicts:      newVerdicts(),
		httpDuration:  newHTTPDuration(),
		httpRequests:  newHTTPRequests(),
	}
	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.cycleDuration,
		m.checkDuration,
		m.checkResults,
		m.healthy,
		m.verdicts,
		m.httpDuration,
		m.httpRequests,
	)
	return m
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
