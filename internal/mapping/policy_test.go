package mapping

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPolicyCreateAccepted(t *testing.T) {
	now := time.Now().UTC()
	rec := HeuristicPolicy{}.NewRecord("generic", "applicant_name", "full_name", true, now)

	assert.Equal(t, 0.8, rec.Confidence)
	assert.Equal(t, 1, rec.Frequency)
	assert.Equal(t, now, rec.LastUsedAt)
	assert.Equal(t, now, rec.CreatedAt)
}

func TestPolicyCreateRejected(t *testing.T) {
	now := time.Now().UTC()
	rec := HeuristicPolicy{}.NewRecord("generic", "applicant_name", "full_name", false, now)

	assert.Equal(t, 0.4, rec.Confidence)
	assert.Equal(t, 1, rec.Frequency)
}

func TestPolicyAcceptedReuse(t *testing.T) {
	now := time.Now().UTC()
	policy := HeuristicPolicy{}
	rec := policy.NewRecord("generic", "applicant_name", "full_name", true, now)

	// 0.8 + min(1/10, 0.3) + 0.1, capped at 0.97
	later := now.Add(time.Hour)
	policy.Apply(rec, true, later)

	assert.Equal(t, 2, rec.Frequency)
	assert.Equal(t, later, rec.LastUsedAt)
	assert.InDelta(t, 0.97, rec.Confidence, 1e-9)
}

func TestPolicyRejectionsNeverDropBelowFloor(t *testing.T) {
	now := time.Now().UTC()
	policy := HeuristicPolicy{}
	rec := policy.NewRecord("generic", "applicant_name", "full_name", false, now)

	prevFreq := rec.Frequency
	for i := 0; i < 20; i++ {
		policy.Apply(rec, false, now)
		assert.GreaterOrEqual(t, rec.Confidence, MinMappingConfidence)
		assert.LessOrEqual(t, rec.Confidence, MaxMappingConfidence)
		assert.Greater(t, rec.Frequency, prevFreq)
		prevFreq = rec.Frequency
	}
}

func TestPolicyFrequencyBonusCaps(t *testing.T) {
	now := time.Now().UTC()
	policy := HeuristicPolicy{}
	rec := policy.NewRecord("generic", "x", "y", false, now)

	// Once the bonus saturates at 0.3 each rejection still nets +0.1, so
	// even a rejected-only history converges to the cap.
	for i := 0; i < 50; i++ {
		policy.Apply(rec, false, now)
	}
	assert.Equal(t, 51, rec.Frequency)
	assert.InDelta(t, MaxMappingConfidence, rec.Confidence, 1e-9)
}
