package graph

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics collects Prometheus metrics for engine execution.
//
// All metrics are namespaced "recommender":
//   - runs_started_total (counter): runs begun.
//   - runs_finished_total (counter, label status): terminal runs by outcome.
//   - inflight_runs (gauge): runs currently executing.
//   - step_latency_seconds (histogram, labels node/status): node durations.
//   - node_retries_total (counter, label node): retry attempts.
//
// A nil *Metrics is valid and records nothing, so the engine can run without
// a registry in tests.
type Metrics struct {
	runsStarted  prometheus.Counter
	runsFinished *prometheus.CounterVec
	inflightRuns prometheus.Gauge
	stepLatency  *prometheus.HistogramVec
	retries      *prometheus.CounterVec
}

// NewMetrics creates and registers all engine metrics with the given
// registerer. Pass prometheus.DefaultRegisterer for the global registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	return &Metrics{
		runsStarted: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Namespace: "recommender",
			Name:      "runs_started_total",
			Help:      "Total workflow runs started.",
		}),
		runsFinished: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Namespace: "recommender",
			Name:      "runs_finished_total",
			Help:      "Total workflow runs finished, by terminal status.",
		}, []string{"status"}),
		inflightRuns: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Namespace: "recommender",
			Name:      "inflight_runs",
			Help:      "Workflow runs currently executing.",
		}),
		stepLatency: promauto.With(reg).NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "recommender",
			Name:      "step_latency_seconds",
			Help:      "Node execution latency in seconds.",
			Buckets:   []float64{.005, .01, .05, .1, .5, 1, 5, 10, 30},
		}, []string{"node", "status"}),
		retries: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Namespace: "recommender",
			Name:      "node_retries_total",
			Help:      "Node retry attempts, by node.",
		}, []string{"node"}),
	}
}

// RunStarted records a run beginning execution.
func (m *Metrics) RunStarted() {
	if m == nil {
		return
	}
	m.runsStarted.Inc()
	m.inflightRuns.Inc()
}

// RunEnded records a run leaving execution, regardless of outcome.
func (m *Metrics) RunEnded() {
	if m == nil {
		return
	}
	m.inflightRuns.Dec()
}

// RunFinished records a run reaching a terminal status.
func (m *Metrics) RunFinished(status string) {
	if m == nil {
		return
	}
	m.runsFinished.WithLabelValues(status).Inc()
}

// StepObserved records one node execution's duration and outcome.
func (m *Metrics) StepObserved(node, status string, d time.Duration) {
	if m == nil {
		return
	}
	m.stepLatency.WithLabelValues(node, status).Observe(d.Seconds())
}

// RetryRecorded counts a retry attempt for a node.
func (m *Metrics) RetryRecorded(node string) {
	if m == nil {
		return
	}
	m.retries.WithLabelValues(node).Inc()
}
