package confidence

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/formpipe/formpipe/internal/entity"
)

func TestScoreFullyAttributedField(t *testing.T) {
	scorer := NewScorer(nil)

	// position + type + 6-char value: 0.5 + 0.25 + 0.15 + 0.15 = 1.0
	field := &entity.FieldCandidate{
		FieldName:  "applicant_name",
		FieldType:  "text",
		FieldValue: "Marlow",
		Position:   &entity.Position{X: 10, Y: 20},
	}
	assert.Equal(t, 1.0, scorer.Score(field))
}

func TestScoreBareField(t *testing.T) {
	scorer := NewScorer(nil)

	field := &entity.FieldCandidate{FieldName: "mystery"}
	assert.Equal(t, 0.5, scorer.Score(field))
}

func TestScoreShortValueGetsLowTrust(t *testing.T) {
	scorer := NewScorer(nil)

	// no position, no type, 1-char value: 0.5 + 0.05 = 0.55
	field := &entity.FieldCandidate{FieldName: "initial", FieldValue: "X"}
	assert.Equal(t, 0.55, scorer.Score(field))
}

func TestScoreValidationBonus(t *testing.T) {
	scorer := NewScorer(nil)

	field := &entity.FieldCandidate{
		FieldName:  "ssn",
		Validation: map[string]any{"pattern": `^\d{9}$`},
	}
	assert.Equal(t, 0.6, scorer.Score(field))
}

func TestScoreNilFieldDefaultsToZero(t *testing.T) {
	scorer := NewScorer(nil)
	assert.Equal(t, 0.0, scorer.Score(nil))
}

func TestScoreAlwaysWithinBounds(t *testing.T) {
	scorer := NewScorer(nil)

	fields := []entity.FieldCandidate{
		{FieldName: "a"},
		{FieldName: "b", FieldType: "date", FieldValue: "2024-01-01", Position: &entity.Position{X: 1, Y: 1},
			Validation: map[string]any{"pattern": `^\d{4}`}},
		{FieldName: "c", FieldValue: ""},
		{FieldName: "d", FieldValue: "y", Position: &entity.Position{}},
	}
	scorer.ScoreAll(fields)
	for _, f := range fields {
		assert.GreaterOrEqual(t, f.ConfidenceScore, 0.0, f.FieldName)
		assert.LessOrEqual(t, f.ConfidenceScore, 1.0, f.FieldName)
	}
}
