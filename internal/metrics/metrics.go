// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	AnalyzeRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "feedback_analyze_requests_total",
			Help: "Analyze calls by outcome (ok, partial, invalid, no_data).",
		},
		[]string{"outcome"},
	)

	StageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "feedback_stage_duration_seconds",
			Help:    "Latency of analyze stages (sources, feedback, classification, total).",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 20, 45},
		},
		[]string{"stage"},
	)

	SourcePosts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "feedback_source_posts_total",
			Help: "Posts returned by each connector.",
		},
		[]string{"source"},
	)

	SourceErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "feedback_source_errors_total",
			Help: "Connector calls that failed or returned partial results.",
		},
		[]string{"source"},
	)

	Classifications = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "feedback_classifications_total",
			Help: "Classifier calls by kind (post, case, summary, chat) and outcome.",
		},
		[]string{"kind", "outcome"},
	)

	CSIScore = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "feedback_csi_score",
		Help: "CSI score of the most recent analyze call.",
	})

	CasesSubmitted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "feedback_cases_submitted_total",
		Help: "Direct feedback submissions persisted.",
	})

	CasesClassified = promauto.NewCounter(prometheus.CounterOpts{
		Name: "feedback_cases_classified_total",
		Help: "Cases moved from unclassified to open.",
	})

	CasesResolved = promauto.NewCounter(prometheus.CounterOpts{
		Name: "feedback_cases_resolved_total",
		Help: "Cases moved from open to resolved.",
	})

	UnresolvedCases = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "feedback_unresolved_cases",
		Help: "Open cases seen by the last queue poll.",
	})
)
