package mapping

import (
	"time"

	"github.com/formpipe/formpipe/internal/entity"
)

// Mapping confidence stays inside these bounds whatever the outcome
// history looks like.
const (
	MinMappingConfidence = 0.1
	// Learned confidence caps just below certainty; only a pattern rule is
	// ever fully certain.
	MaxMappingConfidence = 0.97
)

// UpdatePolicy decides how a mapping record reacts to an observed outcome.
// The default law is heuristic; isolating it here keeps the resolver
// independent of the exact arithmetic.
type UpdatePolicy interface {
	NewRecord(family, detected, canonical string, accepted bool, now time.Time) *entity.MappingRecord
	Apply(rec *entity.MappingRecord, accepted bool, now time.Time)
}

// HeuristicPolicy is the default update law:
//
//	create:  frequency 1, confidence 0.8 accepted / 0.4 rejected
//	update:  confidence += min(frequency/10, 0.3) +0.1/-0.2, then clamp;
//	         frequency += 1
//
// The frequency bonus reads the pre-increment frequency.
type HeuristicPolicy struct{}

func (HeuristicPolicy) NewRecord(family, detected, canonical string, accepted bool, now time.Time) *entity.MappingRecord {
	confidence := 0.4
	if accepted {
		confidence = 0.8
	}
	return &entity.MappingRecord{
		FormFamily:     family,
		DetectedField:  detected,
		CanonicalField: canonical,
		Confidence:     confidence,
		Frequency:      1,
		LastUsedAt:     now,
		CreatedAt:      now,
	}
}

func (HeuristicPolicy) Apply(rec *entity.MappingRecord, accepted bool, now time.Time) {
	bonus := float64(rec.Frequency) / 10
	if bonus > 0.3 {
		bonus = 0.3
	}
	delta := -0.2
	if accepted {
		delta = 0.1
	}

	rec.Frequency++
	rec.LastUsedAt = now
	rec.Confidence = clampConfidence(rec.Confidence + bonus + delta)
}

func clampConfidence(v float64) float64 {
	if v < MinMappingConfidence {
		return MinMappingConfidence
	}
	if v > MaxMappingConfidence {
		return MaxMappingConfidence
	}
	return v
}
