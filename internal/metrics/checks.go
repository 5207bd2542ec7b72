package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/hazz-dev/easycheck/internal/checker"
	"github.com/hazz-dev/easycheck/internal/state"
)

func newCycleDuration() prometheus.Histogram {
	return prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "cycle",
		Name:      "duration_seconds",
		Help:      "Wall-clock duration of a full check cycle in seconds",
		Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
	})
}

func newCheckDuration() *prometheus.HistogramVec {
	return prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "check",
			Name:      "duration_seconds",
			Help:      "Duration of a single check in seconds",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		},
		[]string{"check"},
	)
}

func newCheckResults() *prometheus.CounterVec {
	return prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "check",
			Name:      "results_total",
			Help:      "Total number of check results by outcome",
		},
		[]string{"check", "status", "reason"},
	)
}

func newHealthy() prometheus.Gauge {
	return prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "healthy",
		Help:      "1 if the last check cycle was available, 0 otherwise",
	})
}

func newVerdicts() *prometheus.CounterVec {
	return prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "verdicts_total",
			Help:      "Total number of served verdicts by deciding source",
		},
		[]string{"source", "status"},
	)
}

// ObserveCycle records one completed check cycle.
func (m *Metrics) ObserveCycle(results []checker.Result, snap state.Snapshot, elapsed time.Duration) {
	m.cycleDuration.Observe(elapsed.Seconds())
	for _, r := range results {
		reason := string(r.Reason)
		if reason == "" {
			reason = "none"
		}
		m.checkResults.WithLabelValues(r.Check, string(r.Status), reason).Inc()
		m.checkDuration.WithLabelValues(r.Check).Observe(r.ResponseTime.Seconds())
	}
	if snap.Available() {
		m.healthy.Set(1)
	} else {
		m.healthy.Set(0)
	}
}

// ObserveVerdict counts one served verdict.
func (m *Metrics) ObserveVerdict(source string, status state.Status) {
	m.verdicts.WithLabelValues(source, string(status)).Inc()
}
