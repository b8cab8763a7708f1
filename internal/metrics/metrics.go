// Package metrics exposes Prometheus instrumentation for pipeline runs
// and outbound provider calls.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	pipelineRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "docmaker",
		Name:      "pipeline_runs_total",
		Help:      "Pipeline job executions by job and outcome.",
	}, []string{"job", "status"})

	pipelineDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "docmaker",
		Name:      "pipeline_run_seconds",
		Help:      "Pipeline job execution time.",
		Buckets:   []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
	}, []string{"job"})

	llmRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "docmaker",
		Name:      "llm_requests_total",
		Help:      "LLM provider calls by provider and outcome.",
	}, []string{"provider", "outcome"})

	llmDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "docmaker",
		Name:      "llm_request_seconds",
		Help:      "LLM provider call time.",
		Buckets:   []float64{0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
	}, []string{"provider"})

	scraperRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "docmaker",
		Name:      "scraper_requests_total",
		Help:      "Hosted scraping API calls by endpoint and outcome.",
	}, []string{"endpoint", "outcome"})
)

// ObservePipelineRun records one pipeline job execution.
func ObservePipelineRun(job, status string, elapsed time.Duration) {
	pipelineRuns.WithLabelValues(job, status).Inc()
	pipelineDuration.WithLabelValues(job).Observe(elapsed.Seconds())
}

// ObserveLLMRequest records one provider call.
func ObserveLLMRequest(provider, outcome string, elapsed time.Duration) {
	llmRequests.WithLabelValues(provider, outcome).Inc()
	llmDuration.WithLabelValues(provider).Observe(elapsed.Seconds())
}

// ObserveScrape records one scraping API call.
func ObserveScrape(endpoint, outcome string) {
	scraperRequests.WithLabelValues(endpoint, outcome).Inc()
}

// Handler serves the Prometheus exposition endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
