// Package mapping resolves detected field names onto the application's
// canonical vocabulary and learns from user corrections.
package mapping

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/agext/levenshtein"

	"github.com/formpipe/formpipe/constants"
	"github.com/formpipe/formpipe/internal/common"
	"github.com/formpipe/formpipe/internal/entity"
	"github.com/formpipe/formpipe/internal/repository"
)

// DefaultFuzzyThreshold is the minimum normalized similarity a learned key
// must clear before it can serve an approximate match.
const DefaultFuzzyThreshold = 0.72

// Source says which resolution tier produced a canonical name.
type Source string

const (
	SourcePattern  Source = "pattern"
	SourceHistory  Source = "history"
	SourceFuzzy    Source = "fuzzy"
	SourceUnmapped Source = "unmapped"
)

// Resolution is the outcome of resolving one detected field name.
type Resolution struct {
	DetectedField  string              `json:"detected_field"`
	CanonicalField string              `json:"canonical_field,omitempty"`
	Source         Source              `json:"source"`
	Confidence     float64             `json:"confidence"`
	Rule           *entity.PatternRule `json:"rule,omitempty"`
	// FallbackType is the name-derived input type, set when unmapped.
	FallbackType constants.FieldType `json:"fallback_type,omitempty"`
}

// Mapped reports whether the field resolved to a canonical name.
func (r Resolution) Mapped() bool {
	return r.Source != SourceUnmapped
}

// Mapper resolves detected names through three tiers: deterministic
// pattern rules, exact learned history, then fuzzy similarity over the
// known keys. Store failures degrade to unmapped, never to an error for
// the document.
type Mapper struct {
	rules  *RuleSet
	store  repository.MappingRepository
	policy UpdatePolicy

	// FuzzyThreshold gates tier three; tunable per instance.
	FuzzyThreshold float64

	logger *slog.Logger
	now    func() time.Time
}

func NewMapper(rules *RuleSet, store repository.MappingRepository, policy UpdatePolicy, logger *slog.Logger) *Mapper {
	if rules == nil {
		rules, _ = NewRuleSet(nil)
	}
	if policy == nil {
		policy = HeuristicPolicy{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Mapper{
		rules:          rules,
		store:          store,
		policy:         policy,
		FuzzyThreshold: DefaultFuzzyThreshold,
		logger:         logger,
		now:            time.Now,
	}
}

// Resolve maps a detected field name for one form family. The pattern tier
// is authoritative; history and fuzzy tiers consult the learned store; a
// field nothing claims comes back unmapped with a name-derived fallback
// type.
func (m *Mapper) Resolve(ctx context.Context, family, detected string) Resolution {
	if rule, ok := m.rules.Match(family, detected); ok {
		m.logger.Debug("mapping.resolve.pattern", "family", family, "detected", detected, "canonical", rule.Canonical)
		return Resolution{
			DetectedField:  detected,
			CanonicalField: rule.Canonical,
			Source:         SourcePattern,
			Confidence:     1.0,
			Rule:           rule,
		}
	}

	records, err := m.store.ListByDetected(ctx, family, detected)
	if err != nil {
		m.logger.Error("mapping.resolve.store_error", "family", family, "detected", detected, "error", err)
		return m.unmapped(detected)
	}
	if len(records) > 0 {
		// Rows come back ordered by frequency*confidence.
		best := records[0]
		m.logger.Debug("mapping.resolve.history", "family", family, "detected", detected, "canonical", best.CanonicalField)
		return Resolution{
			DetectedField:  detected,
			CanonicalField: best.CanonicalField,
			Source:         SourceHistory,
			Confidence:     best.Confidence,
		}
	}

	if res, ok := m.resolveFuzzy(ctx, family, detected); ok {
		return res
	}
	return m.unmapped(detected)
}

// resolveFuzzy searches all known keys of the family for approximate
// matches; among candidates clearing the threshold, the one maximizing
// frequency x confidence wins.
func (m *Mapper) resolveFuzzy(ctx context.Context, family, detected string) (Resolution, bool) {
	records, err := m.store.ListByFamily(ctx, family)
	if err != nil {
		m.logger.Error("mapping.resolve.store_error", "family", family, "detected", detected, "error", err)
		return Resolution{}, false
	}

	var best *entity.MappingRecord
	var bestWeight, bestSim float64
	for i := range records {
		sim := levenshtein.Similarity(detected, records[i].DetectedField, levenshtein.NewParams())
		if sim < m.FuzzyThreshold {
			continue
		}
		weight := float64(records[i].Frequency) * records[i].Confidence
		if best == nil || weight > bestWeight {
			best = &records[i]
			bestWeight = weight
			bestSim = sim
		}
	}
	if best == nil {
		return Resolution{}, false
	}

	m.logger.Debug("mapping.resolve.fuzzy",
		"family", family, "detected", detected,
		"matched", best.DetectedField, "canonical", best.CanonicalField,
		"similarity", bestSim,
	)
	return Resolution{
		DetectedField:  detected,
		CanonicalField: best.CanonicalField,
		Source:         SourceFuzzy,
		Confidence:     best.Confidence * bestSim,
	}, true
}

func (m *Mapper) unmapped(detected string) Resolution {
	return Resolution{
		DetectedField: detected,
		Source:        SourceUnmapped,
		FallbackType:  ClassifyFieldType(detected),
	}
}

// RecordOutcome applies the update policy to the (detected, canonical)
// record for the family, creating it on first observation. Every
// resolution event may report here, not only explicit user feedback.
func (m *Mapper) RecordOutcome(ctx context.Context, family, detected, canonical string, accepted bool) (*entity.MappingRecord, error) {
	now := m.now().UTC()

	rec, err := m.store.Get(ctx, family, detected, canonical)
	switch {
	case errors.Is(err, common.ErrNotFound):
		rec = m.policy.NewRecord(family, detected, canonical, accepted, now)
	case err != nil:
		m.logger.Error("mapping.outcome.store_error", "family", family, "detected", detected, "error", err)
		return nil, common.NewAppError("MAPPING_STORE", "load mapping record", common.ErrMappingStore)
	default:
		m.policy.Apply(rec, accepted, now)
	}

	if err := m.store.Upsert(ctx, rec); err != nil {
		m.logger.Error("mapping.outcome.store_error", "family", family, "detected", detected, "error", err)
		return nil, common.NewAppError("MAPPING_STORE", "persist mapping record", common.ErrMappingStore)
	}

	m.logger.Info("mapping.outcome.recorded",
		"family", family, "detected", detected, "canonical", canonical,
		"accepted", accepted, "frequency", rec.Frequency, "confidence", rec.Confidence,
	)
	return rec, nil
}

// Records exposes the family's learned records for the mapping editor.
func (m *Mapper) Records(ctx context.Context, family string) ([]entity.MappingRecord, error) {
	records, err := m.store.ListByFamily(ctx, family)
	if err != nil {
		return nil, common.NewAppError("MAPPING_STORE", "list mapping records", common.ErrMappingStore)
	}
	return records, nil
}

// Rules exposes the rule set, e.g. for validating transformed values.
func (m *Mapper) Rules() *RuleSet {
	return m.rules
}
