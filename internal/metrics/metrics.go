// Package metrics exposes Prometheus instrumentation for catalog lookups,
// LLM calls and per-stage outcomes of the analysis pipeline.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Stage outcome labels.
const (
	OutcomeOK       = "ok"
	OutcomeDegraded = "degraded"
	OutcomeFailed   = "failed"
	OutcomeSkipped  = "skipped"
)

var (
	// Catalog Metrics
	CatalogRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "appscout_catalog_requests_total",
			Help: "Catalog search requests by result (ok, http_error, error, cache_hit)",
		},
		[]string{"result"},
	)

	CatalogRequestDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "appscout_catalog_request_duration_seconds",
			Help:    "Duration of catalog search requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	// LLM Metrics
	LLMRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "appscout_llm_requests_total",
			Help: "LLM completions by provider and result",
		},
		[]string{"provider", "result"},
	)

	LLMRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "appscout_llm_request_duration_seconds",
			Help:    "Duration of LLM completions in seconds",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 20, 40, 80},
		},
		[]string{"provider"},
	)

	// Stage Metrics
	StageOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "appscout_stage_outcomes_total",
			Help: "Pipeline stage executions by stage and outcome",
		},
		[]string{"stage", "outcome"},
	)

	EnrichmentRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "appscout_enrichment_requests_total",
			Help: "Enrichment fetches by result (ok, empty, error)",
		},
		[]string{"result"},
	)
)

// RecordCatalogRequest records one catalog search.
func RecordCatalogRequest(result string, duration time.Duration) {
	CatalogRequests.WithLabelValues(result).Inc()
	if duration > 0 {
		CatalogRequestDuration.Observe(duration.Seconds())
	}
}

// RecordLLMRequest records one LLM completion.
func RecordLLMRequest(provider, result string, duration time.Duration) {
	LLMRequests.WithLabelValues(provider, result).Inc()
	LLMRequestDuration.WithLabelValues(provider).Observe(duration.Seconds())
}

// RecordStage records the outcome of one stage execution.
func RecordStage(stage, outcome string) {
	StageOutcomes.WithLabelValues(stage, outcome).Inc()
}

// RecordEnrichment records one enrichment fetch.
func RecordEnrichment(result string) {
	EnrichmentRequests.WithLabelValues(result).Inc()
}
