// Package prometheus registers and exposes the application metrics.  It
// owns a private registry so tests can construct isolated instances and the
// HTTP layer can mount Handler() without touching the default registry.
package prometheus

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "rtbioeval"

var analysisDurationBuckets = []float64{.01, .05, .1, .5, 1, 5, 10, 30, 60}

// Metrics bundles every metric the analyzer emits.
type Metrics struct {
	registry *prometheus.Registry

	// PlansAnalyzed counts analyzed plans by outcome ("ok" or "failed").
	PlansAnalyzed *prometheus.CounterVec

	// AnalysisDuration observes the wall time of a single plan analysis.
	AnalysisDuration prometheus.Histogram

	// PipelineRuns counts full pipeline executions by outcome.
	PipelineRuns *prometheus.CounterVec

	// PatientsSkipped counts patients dropped from a run, by reason.
	PatientsSkipped *prometheus.CounterVec

	// HTTPRequestsTotal counts HTTP requests by method, path and status.
	HTTPRequestsTotal *prometheus.CounterVec

	// HTTPRequestDuration observes HTTP request latency by method and path.
	HTTPRequestDuration *prometheus.HistogramVec
}

// NewMetrics constructs a Metrics instance backed by a fresh registry with
// process and Go runtime collectors attached.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}))
	registry.MustRegister(prometheus.NewGoCollector())

	m := &Metrics{
		registry: registry,
		PlansAnalyzed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "plans_analyzed_total",
			Help:      "Plans analyzed, by outcome.",
		}, []string{"outcome"}),
		AnalysisDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "plan_analysis_duration_seconds",
			Help:      "Wall time spent analyzing a single plan.",
			Buckets:   analysisDurationBuckets,
		}),
		PipelineRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pipeline_runs_total",
			Help:      "Pipeline executions, by outcome.",
		}, []string{"outcome"}),
		PatientsSkipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "patients_skipped_total",
			Help:      "Patients dropped from a pipeline run, by reason.",
		}, []string{"reason"}),
		HTTPRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests, by method, path and status code.",
		}, []string{"method", "path", "status"}),
		HTTPRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency, by method and path.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "path"}),
	}

	registry.MustRegister(
		m.PlansAnalyzed,
		m.AnalysisDuration,
		m.PipelineRuns,
		m.PatientsSkipped,
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
	)
	return m
}

// Registry exposes the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler returns the scrape handler for this instance's registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RecordPlanAnalysis records one plan analysis with its outcome and duration.
func (m *Metrics) RecordPlanAnalysis(d time.Duration, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "failed"
	}
	m.PlansAnalyzed.WithLabelValues(outcome).Inc()
	m.AnalysisDuration.Observe(d.Seconds())
}

// RecordHTTPRequest records one served HTTP request.
func (m *Metrics) RecordHTTPRequest(method, path string, status int, d time.Duration) {
	m.HTTPRequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, path).Observe(d.Seconds())
}
