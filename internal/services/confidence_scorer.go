package services

import (
	"clarify-engine/internal/config"
	"clarify-engine/internal/models"

	"github.com/shopspring/decimal"
)

// Decay weights for the linear confidence penalties. A candidate at the very
// edge of both tolerances loses amountDecay+dateDecay from its base.
const (
	amountDecay = 0.10
	dateDecay   = 0.10
)

// confidenceScorer implements ConfidenceScorerInterface
type confidenceScorer struct {
	cfg config.ReconciliationConfig
}

// NewConfidenceScorer creates a new confidence scorer
func NewConfidenceScorer(cfg config.ReconciliationConfig) ConfidenceScorerInterface {
	return &confidenceScorer{
		cfg: cfg,
	}
}

// ScoreAggregate scores an aggregate credit-card-payment candidate. Base
// confidence decays linearly with the amount difference relative to the
// tolerance and with the date distance relative to the window.
func (s *confidenceScorer) ScoreAggregate(amountDiff, tolerance decimal.Decimal, daysApart int) float64 {
	score := s.cfg.AggregateBaseConfidence
	score -= amountDecay * ratio(amountDiff, tolerance)
	score -= dateDecay * daysRatio(daysApart, s.cfg.AggregateDateWindowDays)
	return clamp01(score)
}

// ScorePattern scores a pattern-driven candidate: the pattern's own
// confidence plus a boost that grows with its confirmed match history.
func (s *confidenceScorer) ScorePattern(pattern *models.Pattern) float64 {
	boost := s.cfg.MatchCountBoostStep * float64(pattern.MatchCount)
	if boost > s.cfg.MatchCountBoostCap {
		boost = s.cfg.MatchCountBoostCap
	}
	return clamp01(pattern.Confidence + boost)
}

// ScoreManual scores a heuristic amount/date candidate with the low manual
// base and the same linear decays as aggregates.
func (s *confidenceScorer) ScoreManual(amountDiff, tolerance decimal.Decimal, daysApart int) float64 {
	score := s.cfg.ManualBaseConfidence
	score -= amountDecay * ratio(amountDiff, tolerance)
	score -= dateDecay * daysRatio(daysApart, s.cfg.ManualDateWindowDays)
	return clamp01(score)
}

func ratio(diff, tolerance decimal.Decimal) float64 {
	if tolerance.IsZero() {
		if diff.IsZero() {
			return 0
		}
		return 1
	}
	r, _ := diff.Div(tolerance).Float64()
	if r > 1 {
		r = 1
	}
	if r < 0 {
		r = 0
	}
	return r
}

func daysRatio(days, window int) float64 {
	if window <= 0 {
		return 0
	}
	r := float64(days) / float64(window)
	if r > 1 {
		r = 1
	}
	return r
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
