package services

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type PrometheusMetrics struct {
	candidatesGenerated *prometheus.CounterVec
	detectionDuration   prometheus.Histogram
	resolutionWrites    *prometheus.CounterVec
	confirmationsTotal  *prometheus.CounterVec
	patternsLearned     prometheus.Counter
	patternHits         prometheus.Counter
	accountMatchTotal   *prometheus.CounterVec
	activeExclusions    prometheus.Gauge
	activePatterns      prometheus.Gauge
}

func NewPrometheusMetrics() MetricsRecorderInterface {
	return &PrometheusMetrics{
		candidatesGenerated: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "reconciliation_candidates_total",
				Help: "Total number of match candidates generated",
			},
			[]string{"strategy"},
		),
		detectionDuration: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "reconciliation_detection_duration_milliseconds",
				Help:    "Duplicate detection pass duration in milliseconds",
				Buckets: prometheus.ExponentialBuckets(1, 2, 12),
			},
		),
		resolutionWrites: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "reconciliation_resolution_writes_total",
				Help: "Total number of resolution state transitions",
			},
			[]string{"operation", "status"},
		),
		confirmationsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "reconciliation_confirmations_total",
				Help: "Total number of confirmed duplicates by match type",
			},
			[]string{"match_type"},
		),
		patternsLearned: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "reconciliation_patterns_learned_total",
				Help: "Total number of auto-learned patterns",
			},
		),
		patternHits: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "reconciliation_pattern_hits_total",
				Help: "Total number of confirmed pattern contributions",
			},
		),
		accountMatchTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "reconciliation_account_match_total",
				Help: "Total number of account match requests by tier",
			},
			[]string{"tier"},
		),
		activeExclusions: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "reconciliation_active_exclusions",
				Help: "Current number of active exclusion records",
			},
		),
		activePatterns: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "reconciliation_active_patterns",
				Help: "Current number of active patterns",
			},
		),
	}
}

func (m *PrometheusMetrics) IncrementCounter(name string, tags map[string]string) {
	switch name {
	case "detection.candidate":
		m.candidatesGenerated.WithLabelValues(tags["strategy"]).Inc()
	case "resolution.write":
		m.resolutionWrites.WithLabelValues(tags["operation"], tags["status"]).Inc()
	case "resolution.confirmed":
		m.confirmationsTotal.WithLabelValues(tags["match_type"]).Inc()
	case "pattern.learned":
		m.patternsLearned.Inc()
	case "pattern.hit":
		m.patternHits.Inc()
	case "account_match.request":
		m.accountMatchTotal.WithLabelValues(tags["tier"]).Inc()
	}
}

func (m *PrometheusMetrics) RecordProcessingTime(name string, duration time.Duration) {
	switch name {
	case "detection.pass":
		m.detectionDuration.Observe(float64(duration.Milliseconds()))
	}
}

func (m *PrometheusMetrics) RecordGauge(name string, value float64, tags map[string]string) {
	switch name {
	case "exclusions.active":
		m.activeExclusions.Set(value)
	case "patterns.active":
		m.activePatterns.Set(value)
	}
}
