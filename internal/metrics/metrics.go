// Package metrics provides Prometheus metrics for corrlog.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "corrlog"

// Analysis run metrics
var (
	// RunsTotal counts analysis runs by terminal status.
	RunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "analysis",
			Name:      "runs_total",
			Help:      "Total number of analysis runs by status",
		},
		[]string{"status"},
	)

	// RunDuration tracks whole-run latency.
	RunDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "analysis",
			Name:      "run_duration_seconds",
			Help:      "Analysis run latency in seconds",
			Buckets:   []float64{.1, .25, .5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		},
	)

	// StageDuration tracks per-stage latency.
	StageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "analysis",
			Name:      "stage_duration_seconds",
			Help:      "Pipeline stage latency in seconds",
			Buckets:   []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		},
		[]string{"stage"},
	)
)

// Detection metrics
var (
	// RecordsParsed counts WARNING/ERROR records surviving the parser.
	RecordsParsed = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "detection",
			Name:      "records_parsed_total",
			Help:      "Total WARNING/ERROR records parsed",
		},
	)

	// AnomaliesDetected counts deduplicated correlated anomalies.
	AnomaliesDetected = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "detection",
			Name:      "anomalies_total",
			Help:      "Total correlated anomalies reported",
		},
	)

	// ProblemsClassified counts distinct root problems per run.
	ProblemsClassified = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "detection",
			Name:      "problems_total",
			Help:      "Total distinct root problems reported",
		},
	)

	// PredictiveAlerts counts emitted predictive alerts.
	PredictiveAlerts = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "detection",
			Name:      "predictive_alerts_total",
			Help:      "Total predictive alerts emitted",
		},
	)

	// NovelAnomalies counts emitted novel-anomaly alerts.
	NovelAnomalies = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "detection",
			Name:      "novel_anomalies_total",
			Help:      "Total novel-anomaly alerts emitted",
		},
	)
)

// Intake metrics
var (
	// IntakeArchives counts archives picked up by the intake watcher.
	IntakeArchives = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "intake",
			Name:      "archives_total",
			Help:      "Total archives picked up from the intake directory",
		},
	)

	// IntakeInFlight tracks analyses currently running from intake.
	IntakeInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "intake",
			Name:      "in_flight",
			Help:      "Intake analyses currently running",
		},
	)
)
