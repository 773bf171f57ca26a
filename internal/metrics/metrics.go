package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	PipelineRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sitebuilder_pipeline_runs_total",
			Help: "Total number of pipeline runs by outcome",
		},
		[]string{"outcome"},
	)

	StageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sitebuilder_stage_duration_seconds",
			Help:    "Duration of pipeline stages in seconds",
			Buckets: []float64{0.5, 1, 5, 15, 30, 60, 120, 300, 600},
		},
		[]string{"stage"},
	)

	LLMTokens = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sitebuilder_llm_tokens_total",
			Help: "Tokens consumed by model calls",
		},
		[]string{"operation", "model", "direction"},
	)

	LLMCostUSD = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sitebuilder_llm_cost_usd_total",
			Help: "Estimated USD cost of model calls",
		},
		[]string{"operation", "model"},
	)

	DeployPolls = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "sitebuilder_deploy_status_polls_total",
			Help: "Deployment status requests sent to the hosting provider",
		},
	)

	ActiveJobs = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "sitebuilder_active_jobs",
			Help: "Pipeline jobs currently being processed by workers",
		},
	)
)
