// Package metrics exposes the checker's Prometheus surface: a counter of
// results by status, a histogram of probe durations, and a gauge of
// work-queue depth. Metrics are purely observational, mirroring the
// teacher's own "metadata emission never feeds back into scheduling
// decisions" invariant in internal/scheduler — nothing here is ever
// read by the checking engine.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/rohmanhakim/linkcheck/internal/checkresult"
	"github.com/rohmanhakim/linkcheck/internal/observe"
)

// Metrics owns one run's Prometheus registry and instruments.
type Metrics struct {
	registry      *prometheus.Registry
	results       *prometheus.CounterVec
	probeDuration prometheus.Histogram
	queueDepth    prometheus.Gauge
}

// New builds a Metrics with its own private registry, so concurrent runs
// in the same process (as in tests) never collide on a default
// registerer.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		results: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "linkcheck_results_total",
			Help: "Count of terminal check results by status.",
		}, []string{"status"}),
		probeDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "linkcheck_probe_duration_seconds",
			Help:    "HTTP probe duration in seconds, one observation per HEAD or GET attempt.",
			Buckets: prometheus.DefBuckets,
		}),
		queueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "linkcheck_queue_depth",
			Help: "Current depth of the work queue.",
		}),
	}

	registry.MustRegister(m.results, m.probeDuration, m.queueDepth)
	return m
}

// Handler serves this run's registry in the Prometheus exposition
// format. cmd/linkcheck mounts it at /metrics for the run's duration
// when metrics_addr is configured.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Sink decorates an observe.Sink, forwarding every event to it
// unchanged while additionally updating Prometheus instruments. Wrap the
// production sink with this when metrics are enabled; the checking
// engine's own code never changes.
type Sink struct {
	observe.Sink
	metrics *Metrics
}

// Wrap returns a Sink that records to m in addition to delegating to
// inner.
func Wrap(inner observe.Sink, m *Metrics) Sink {
	return Sink{Sink: inner, metrics: m}
}

func (s Sink) RecordResult(runID string, result checkresult.CheckResult) {
	s.metrics.results.WithLabelValues(string(result.Status)).Inc()
	s.Sink.RecordResult(runID, result)
}

func (s Sink) RecordFetch(runID, method, uri string, statusCode int, duration time.Duration) {
	s.metrics.probeDuration.Observe(duration.Seconds())
	s.Sink.RecordFetch(runID, method, uri, statusCode, duration)
}

func (s Sink) RecordQueueDepth(runID string, depth int) {
	s.metrics.queueDepth.Set(float64(depth))
	s.Sink.RecordQueueDepth(runID, depth)
}
