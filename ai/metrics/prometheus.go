// Package metrics exports engine and gateway metrics to Prometheus.
// The exporter owns its own registry so tests can run in isolation and the
// process default registry stays clean.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "deepsearch"

// PrometheusExporter collects research engine metrics.
type PrometheusExporter struct {
	registry *prometheus.Registry

	tasksTotal    *prometheus.CounterVec
	tasksActive   prometheus.Gauge
	taskDuration  prometheus.Histogram
	searchRounds  prometheus.Histogram
	llmRequests   *prometheus.CounterVec
	llmTokens     *prometheus.CounterVec
	llmLatency    *prometheus.HistogramVec
	eventsDropped prometheus.Counter
}

// NewPrometheusExporter creates an exporter with a fresh registry.
func NewPrometheusExporter() *PrometheusExporter {
	e := &PrometheusExporter{
		registry: prometheus.NewRegistry(),

		tasksTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "tasks_total",
			Help:      "Research tasks finished, by terminal status.",
		}, []string{"status"}),

		tasksActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "tasks_active",
			Help:      "Research tasks currently running.",
		}),

		taskDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "task_duration_seconds",
			Help:      "Wall-clock duration of finished research tasks.",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600},
		}),

		searchRounds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "search_rounds",
			Help:      "Search rounds executed per finished task.",
			Buckets:   []float64{1, 2, 3, 4, 5},
		}),

		llmRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "llm",
			Name:      "requests_total",
			Help:      "Gateway calls, by role and outcome.",
		}, []string{"role", "status"}),

		llmTokens: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "llm",
			Name:      "tokens_total",
			Help:      "Tokens consumed, by role and token type.",
		}, []string{"role", "token_type"}),

		llmLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "llm",
			Name:      "latency_seconds",
			Help:      "Gateway call latency, by role.",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 30, 60, 120},
		}, []string{"role"}),

		eventsDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "events_dropped_total",
			Help:      "Progress events dropped because the consumer lagged.",
		}),
	}

	e.registry.MustRegister(
		e.tasksTotal,
		e.tasksActive,
		e.taskDuration,
		e.searchRounds,
		e.llmRequests,
		e.llmTokens,
		e.llmLatency,
		e.eventsDropped,
	)

	return e
}

// TaskStarted marks a task as running.
func (e *PrometheusExporter) TaskStarted() {
	e.tasksActive.Inc()
}

// TaskFinished records a terminal task.
func (e *PrometheusExporter) TaskFinished(status string, duration time.Duration, rounds int) {
	e.tasksActive.Dec()
	e.tasksTotal.WithLabelValues(status).Inc()
	e.taskDuration.Observe(duration.Seconds())
	e.searchRounds.Observe(float64(rounds))
}

// LLMCall records one gateway call.
func (e *PrometheusExporter) LLMCall(role string, err error, promptTokens, completionTokens int, duration time.Duration) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	e.llmRequests.WithLabelValues(role, status).Inc()
	e.llmLatency.WithLabelValues(role).Observe(duration.Seconds())
	if promptTokens > 0 {
		e.llmTokens.WithLabelValues(role, "prompt").Add(float64(promptTokens))
	}
	if completionTokens > 0 {
		e.llmTokens.WithLabelValues(role, "completion").Add(float64(completionTokens))
	}
}

// EventDropped counts a progress event lost to a slow consumer.
func (e *PrometheusExporter) EventDropped() {
	e.eventsDropped.Inc()
}

// Handler returns the scrape handler for this exporter's registry.
func (e *PrometheusExporter) Handler() http.Handler {
	return promhttp.HandlerFor(e.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry for tests.
func (e *PrometheusExporter) Registry() *prometheus.Registry {
	return e.registry
}
