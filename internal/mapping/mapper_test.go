package mapping

import (
	"context"
	"errors"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/formpipe/formpipe/constants"
	"github.com/formpipe/formpipe/internal/common"
	"github.com/formpipe/formpipe/internal/entity"
)

// fakeStore keeps mapping records in memory with the same ordering
// contract as the SQL repository.
type fakeStore struct {
	records map[string]*entity.MappingRecord
	failAll bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{records: make(map[string]*entity.MappingRecord)}
}

func storeKey(family, detected, canonical string) string {
	return family + "\x00" + detected + "\x00" + canonical
}

func (s *fakeStore) Get(_ context.Context, family, detected, canonical string) (*entity.MappingRecord, error) {
	if s.failAll {
		return nil, errors.New("store down")
	}
	rec, ok := s.records[storeKey(family, detected, canonical)]
	if !ok {
		return nil, common.ErrNotFound
	}
	cp := *rec
	return &cp, nil
}

func (s *fakeStore) ListByDetected(_ context.Context, family, detected string) ([]entity.MappingRecord, error) {
	if s.failAll {
		return nil, errors.New("store down")
	}
	var out []entity.MappingRecord
	for _, rec := range s.records {
		if rec.FormFamily == family && rec.DetectedField == detected {
			out = append(out, *rec)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return float64(out[i].Frequency)*out[i].Confidence > float64(out[j].Frequency)*out[j].Confidence
	})
	return out, nil
}

func (s *fakeStore) ListByFamily(_ context.Context, family string) ([]entity.MappingRecord, error) {
	if s.failAll {
		return nil, errors.New("store down")
	}
	var out []entity.MappingRecord
	for _, rec := range s.records {
		if rec.FormFamily == family {
			out = append(out, *rec)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].DetectedField != out[j].DetectedField {
			return out[i].DetectedField < out[j].DetectedField
		}
		return out[i].CanonicalField < out[j].CanonicalField
	})
	return out, nil
}

func (s *fakeStore) Upsert(_ context.Context, rec *entity.MappingRecord) error {
	if s.failAll {
		return errors.New("store down")
	}
	cp := *rec
	s.records[storeKey(rec.FormFamily, rec.DetectedField, rec.CanonicalField)] = &cp
	return nil
}

func (s *fakeStore) seed(family, detected, canonical string, confidence float64, frequency int) {
	now := time.Now().UTC()
	s.records[storeKey(family, detected, canonical)] = &entity.MappingRecord{
		FormFamily:     family,
		DetectedField:  detected,
		CanonicalField: canonical,
		Confidence:     confidence,
		Frequency:      frequency,
		LastUsedAt:     now,
		CreatedAt:      now,
	}
}

func newTestMapper(t *testing.T, store *fakeStore) *Mapper {
	t.Helper()
	rules, err := NewRuleSet(map[string][]entity.PatternRule{
		"generic": {
			{Match: `(?i)^full[_ ]?name$`, Canonical: "applicant_name"},
		},
	})
	require.NoError(t, err)
	return NewMapper(rules, store, nil, nil)
}

func TestResolvePatternBeatsHistory(t *testing.T) {
	store := newFakeStore()
	// A learned record points elsewhere; the rule still wins.
	store.seed("generic", "full_name", "some_other_field", 0.97, 40)
	mapper := newTestMapper(t, store)

	res := mapper.Resolve(context.Background(), "generic", "full_name")

	assert.Equal(t, SourcePattern, res.Source)
	assert.Equal(t, "applicant_name", res.CanonicalField)
	assert.Equal(t, 1.0, res.Confidence)
	require.NotNil(t, res.Rule)
	assert.True(t, res.Mapped())
}

func TestResolveExactHistoryPicksHighestWeight(t *testing.T) {
	store := newFakeStore()
	store.seed("generic", "dob", "date_of_birth", 0.9, 12)
	store.seed("generic", "dob", "document_date", 0.5, 3)
	mapper := newTestMapper(t, store)

	res := mapper.Resolve(context.Background(), "generic", "dob")

	assert.Equal(t, SourceHistory, res.Source)
	assert.Equal(t, "date_of_birth", res.CanonicalField)
	assert.Equal(t, 0.9, res.Confidence)
}

func TestResolveFuzzyMatch(t *testing.T) {
	store := newFakeStore()
	store.seed("generic", "applicant_name", "applicant_name", 0.9, 10)
	mapper := newTestMapper(t, store)

	// One character off the learned key; well above the threshold.
	res := mapper.Resolve(context.Background(), "generic", "applicant_nam")

	assert.Equal(t, SourceFuzzy, res.Source)
	assert.Equal(t, "applicant_name", res.CanonicalField)
	assert.Greater(t, res.Confidence, 0.0)
	assert.Less(t, res.Confidence, 0.9)
}

func TestResolveFuzzyBelowThresholdUnmapped(t *testing.T) {
	store := newFakeStore()
	store.seed("generic", "applicant_name", "applicant_name", 0.9, 10)
	mapper := newTestMapper(t, store)

	res := mapper.Resolve(context.Background(), "generic", "zzqx")

	assert.Equal(t, SourceUnmapped, res.Source)
	assert.Empty(t, res.CanonicalField)
	assert.False(t, res.Mapped())
}

func TestResolveUnmappedCarriesFallbackType(t *testing.T) {
	mapper := newTestMapper(t, newFakeStore())

	res := mapper.Resolve(context.Background(), "generic", "contact_email")

	assert.Equal(t, SourceUnmapped, res.Source)
	assert.Equal(t, constants.FieldTypeEmail, res.FallbackType)
}

func TestResolveStoreFailureDegradesToUnmapped(t *testing.T) {
	store := newFakeStore()
	store.failAll = true
	mapper := newTestMapper(t, store)

	res := mapper.Resolve(context.Background(), "generic", "anything")

	assert.Equal(t, SourceUnmapped, res.Source)
}

func TestRecordOutcomeCreatesThenUpdates(t *testing.T) {
	store := newFakeStore()
	mapper := newTestMapper(t, store)
	ctx := context.Background()

	rec, err := mapper.RecordOutcome(ctx, "generic", "dob", "date_of_birth", true)
	require.NoError(t, err)
	assert.Equal(t, 1, rec.Frequency)
	assert.Equal(t, 0.8, rec.Confidence)

	rec, err = mapper.RecordOutcome(ctx, "generic", "dob", "date_of_birth", true)
	require.NoError(t, err)
	assert.Equal(t, 2, rec.Frequency)
	assert.InDelta(t, MaxMappingConfidence, rec.Confidence, 1e-9)

	// The updated record is what resolution now sees.
	res := mapper.Resolve(ctx, "generic", "dob")
	assert.Equal(t, SourceHistory, res.Source)
	assert.Equal(t, "date_of_birth", res.CanonicalField)
}

func TestRecordOutcomeStoreFailure(t *testing.T) {
	store := newFakeStore()
	store.failAll = true
	mapper := newTestMapper(t, store)

	_, err := mapper.RecordOutcome(context.Background(), "generic", "dob", "date_of_birth", true)
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrMappingStore)
}
