// Package confidence scores detected form fields from their attributes.
package confidence

import (
	"log/slog"
	"math"

	"github.com/formpipe/formpipe/internal/entity"
)

// additive heuristic weights; tuned against hand-labeled intake batches
const (
	baseScore       = 0.50
	positionBonus   = 0.25
	fieldTypeBonus  = 0.15
	validationBonus = 0.10
	shortValueBonus = 0.05 // near-empty values get low trust
	valueBonus      = 0.15
)

// Scorer computes a deterministic 0..1 confidence per field candidate.
type Scorer struct {
	logger *slog.Logger
}

func NewScorer(logger *slog.Logger) *Scorer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scorer{logger: logger}
}

// Score is pure: the same field attributes always produce the same score.
// A nil field yields 0.0 with a warning instead of panicking.
func (s *Scorer) Score(field *entity.FieldCandidate) float64 {
	if field == nil {
		s.logger.Warn("confidence.score.nil_field")
		return 0.0
	}

	score := baseScore
	if field.Position != nil {
		score += positionBonus
	}
	if field.FieldType != "" {
		score += fieldTypeBonus
	}
	if len(field.Validation) > 0 {
		score += validationBonus
	}
	if field.FieldValue != "" {
		if len(field.FieldValue) <= 1 {
			score += shortValueBonus
		} else {
			score += valueBonus
		}
	}

	return clamp(round2(score))
}

// ScoreAll enriches every field in place and returns the slice.
func (s *Scorer) ScoreAll(fields []entity.FieldCandidate) []entity.FieldCandidate {
	for i := range fields {
		fields[i].ConfidenceScore = s.Score(&fields[i])
	}
	return fields
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
