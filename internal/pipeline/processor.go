// Package pipeline orchestrates one document's run through extraction,
// scoring, clustering, suggestion and mapping, degrading individual stages
// rather than failing the whole document.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/formpipe/formpipe/constants"
	"github.com/formpipe/formpipe/internal/cluster"
	"github.com/formpipe/formpipe/internal/common"
	"github.com/formpipe/formpipe/internal/confidence"
	"github.com/formpipe/formpipe/internal/entity"
	"github.com/formpipe/formpipe/internal/extract"
	"github.com/formpipe/formpipe/internal/fingerprint"
	"github.com/formpipe/formpipe/internal/mapping"
)

// Config holds orchestrator behavior knobs.
type Config struct {
	ExtractAttempts   int           // total attempts for the outer extraction call
	RetryDelay        time.Duration // fixed delay between attempts
	FieldTimeout      time.Duration // bound on the field-inference sub-call
	SuggestTimeout    time.Duration // bound on the whole suggestion stage
	PartitionStrategy string
}

func (c *Config) applyDefaults() {
	if c.ExtractAttempts <= 0 {
		c.ExtractAttempts = 3
	}
	if c.RetryDelay <= 0 {
		c.RetryDelay = 500 * time.Millisecond
	}
	if c.FieldTimeout <= 0 {
		c.FieldTimeout = 30 * time.Second
	}
	if c.SuggestTimeout <= 0 {
		c.SuggestTimeout = 20 * time.Second
	}
	if c.PartitionStrategy == "" {
		c.PartitionStrategy = extract.DefaultStrategy
	}
}

// Processor runs one document at a time; many processors may run
// concurrently, sharing only the cache and the mapping store.
type Processor struct {
	Logger      *slog.Logger
	Cfg         Config
	Cache       *fingerprint.Cache
	Partitioner extract.ElementExtractor
	Inferrer    extract.FieldInferrer
	Suggester   extract.SuggestionGenerator
	Scorer      *confidence.Scorer
	Clusterer   *cluster.Engine
	Mapper      *mapping.Mapper

	now func() time.Time
}

func NewProcessor(
	logger *slog.Logger,
	cfg Config,
	cache *fingerprint.Cache,
	partitioner extract.ElementExtractor,
	inferrer extract.FieldInferrer,
	suggester extract.SuggestionGenerator,
	scorer *confidence.Scorer,
	clusterer *cluster.Engine,
	mapper *mapping.Mapper,
) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	cfg.applyDefaults()
	return &Processor{
		Logger:      logger,
		Cfg:         cfg,
		Cache:       cache,
		Partitioner: partitioner,
		Inferrer:    inferrer,
		Suggester:   suggester,
		Scorer:      scorer,
		Clusterer:   clusterer,
		Mapper:      mapper,
		now:         time.Now,
	}
}

// Process runs the state machine for one document:
// CacheCheck -> [hit: done] / [miss: Extract -> Score -> Cluster ->
// Suggest -> Map -> Persist -> done]. Only invalid input, an exhausted
// extraction call and caller cancellation surface as errors; everything
// else degrades.
func (p *Processor) Process(ctx context.Context, doc *entity.Document) (*entity.ProcessedResult, error) {
	if doc == nil || len(doc.Content) == 0 {
		return nil, common.NewAppError("INVALID_INPUT", "document content is empty", common.ErrInvalidInput)
	}

	start := p.now()
	formType := constants.NormalizeFormType(doc.FormType)
	family := doc.FormFamily
	if family == "" {
		family = common.FormFamilyFromContext(ctx)
	}

	if cached, ok := p.Cache.Lookup(ctx, doc.Content, formType); ok {
		p.Logger.Info("pipeline.cache.hit", "doc_id", doc.ID, "form_type", formType)
		return cached, nil
	}

	elements, fields, outcome := p.extractStage(ctx, doc)
	if outcome.Fatal() {
		p.Logger.Error("pipeline.extract.failed", "doc_id", doc.ID, "err", outcome.Err)
		return nil, common.NewAppError("EXTRACTION_FAILED",
			fmt.Sprintf("extraction failed after %d attempts", p.Cfg.ExtractAttempts),
			errors.Join(common.ErrExtractionFailed, outcome.Err))
	}
	p.logOutcome(doc, outcome, "elements", len(elements), "fields", len(fields))

	outcome = p.scoreStage(fields)
	p.logOutcome(doc, outcome)

	fields, outcome = p.clusterStage(fields)
	p.logOutcome(doc, outcome)

	suggestions, outcome := p.suggestStage(ctx, fields)
	if outcome.Fatal() {
		p.Logger.Warn("pipeline.suggest.aborted", "doc_id", doc.ID, "err", outcome.Err)
		return nil, outcome.Err
	}
	p.logOutcome(doc, outcome, "suggested_fields", len(suggestions))

	fields, outcome = p.mapStage(ctx, family, fields)
	p.logOutcome(doc, outcome)

	result := &entity.ProcessedResult{
		Elements:         elements,
		FormFields:       fields,
		FieldSuggestions: suggestions,
		Metadata: entity.ResultMetadata{
			PageCount:             pageCount(elements),
			TextBlockCount:        len(elements),
			FormType:              formType,
			ProcessingTimeSeconds: p.now().Sub(start).Seconds(),
			FileSizeBytes:         int64(len(doc.Content)),
			ProcessedAt:           p.now().UTC(),
		},
	}

	// Persist is best-effort; a dropped write costs a recomputation later.
	p.Cache.Store(ctx, doc.Content, formType, result)

	p.Logger.Info("pipeline.done",
		"doc_id", doc.ID,
		"form_type", formType,
		"fields", len(result.FormFields),
		"elements", len(result.Elements),
		"elapsed_s", result.Metadata.ProcessingTimeSeconds,
	)
	return result, nil
}

// extractStage runs the outer extraction call (partition + field
// inference) with a bounded fixed-delay retry. An inference timeout is not
// an attempt failure: it degrades the field list to empty and continues.
func (p *Processor) extractStage(ctx context.Context, doc *entity.Document) ([]entity.ExtractedElement, []entity.FieldCandidate, Outcome) {
	var lastErr error
	for attempt := 1; attempt <= p.Cfg.ExtractAttempts; attempt++ {
		if attempt > 1 {
			p.Logger.Warn("pipeline.extract.retry",
				"doc_id", doc.ID, "attempt", attempt, "err", lastErr)
			select {
			case <-time.After(p.Cfg.RetryDelay):
			case <-ctx.Done():
				return nil, nil, stageFailed("extract", ctx.Err())
			}
		}

		elements, err := p.Partitioner.Partition(ctx, doc.Content, p.Cfg.PartitionStrategy)
		if err != nil {
			lastErr = err
			continue
		}

		fieldCtx, cancel := context.WithTimeout(ctx, p.Cfg.FieldTimeout)
		fields, err := p.Inferrer.InferFields(fieldCtx, elements)
		cancel()
		if err != nil {
			if errors.Is(err, context.DeadlineExceeded) {
				p.Logger.Warn("pipeline.infer.timeout", "doc_id", doc.ID, "timeout", p.Cfg.FieldTimeout.String())
				return elements, nil, stageDegraded("extract", common.ErrExtractionTimeout)
			}
			lastErr = err
			continue
		}
		return elements, fields, stageOK("extract")
	}
	return nil, nil, stageFailed("extract", lastErr)
}

// scoreStage enriches fields with confidence scores and bands. It never
// fails the document; a panic inside the scorer leaves scores at zero.
func (p *Processor) scoreStage(fields []entity.FieldCandidate) (outcome Outcome) {
	outcome = stageOK("score")
	defer func() {
		if r := recover(); r != nil {
			outcome = stageDegraded("score", fmt.Errorf("score panic: %v", r))
		}
	}()
	p.Scorer.ScoreAll(fields)
	for i := range fields {
		fields[i].ConfidenceBand = string(constants.BandForScore(fields[i].ConfidenceScore))
	}
	return outcome
}

// clusterStage groups co-located fields. Failure leaves every field
// unclustered and the document continues.
func (p *Processor) clusterStage(fields []entity.FieldCandidate) (out []entity.FieldCandidate, outcome Outcome) {
	out = fields
	outcome = stageOK("cluster")
	defer func() {
		if r := recover(); r != nil {
			for i := range out {
				out[i].Cluster = entity.UnclusteredLabel
				out[i].RelatedFields = nil
			}
			outcome = stageDegraded("cluster", fmt.Errorf("%w: panic: %v", common.ErrClustering, r))
		}
	}()
	out = p.Clusterer.Cluster(fields)
	return out, outcome
}

// suggestStage asks the suggestion collaborator per field within one stage
// deadline. Hitting the deadline empties the whole suggestion map; the
// fields and elements from earlier stages stay populated.
func (p *Processor) suggestStage(ctx context.Context, fields []entity.FieldCandidate) (map[string][]string, Outcome) {
	suggestions := make(map[string][]string)
	if p.Suggester == nil || len(fields) == 0 {
		return suggestions, stageOK("suggest")
	}

	sctx, cancel := context.WithTimeout(ctx, p.Cfg.SuggestTimeout)
	defer cancel()

	byName := make(map[string]string, len(fields))
	for _, f := range fields {
		byName[f.FieldName] = f.FieldValue
	}

	for _, f := range fields {
		// Limited prior-value context: values of spatially related fields.
		var prior []string
		for _, rel := range f.RelatedFields {
			if v := byName[rel]; v != "" {
				prior = append(prior, v)
			}
		}

		ranked, err := p.Suggester.Suggest(sctx, f, prior)
		if err != nil {
			// A caller abort is not a stage timeout; it ends the document.
			if ctx.Err() != nil {
				return nil, stageFailed("suggest", ctx.Err())
			}
			if errors.Is(err, context.DeadlineExceeded) || sctx.Err() != nil {
				p.Logger.Warn("pipeline.suggest.timeout", "timeout", p.Cfg.SuggestTimeout.String())
				return map[string][]string{}, stageDegraded("suggest", common.ErrExtractionTimeout)
			}
			p.Logger.Warn("pipeline.suggest.field_error", "field", f.FieldName, "err", err)
			continue
		}
		if len(ranked) > 0 {
			suggestions[f.FieldName] = ranked
		}
	}
	return suggestions, stageOK("suggest")
}

// mapStage resolves each field to a canonical name. Pattern hits apply
// their value transform; history and fuzzy hits count as accepted reuse;
// unmapped fields get a name-derived type when the collaborator sent none.
func (p *Processor) mapStage(ctx context.Context, family string, fields []entity.FieldCandidate) ([]entity.FieldCandidate, Outcome) {
	if p.Mapper == nil {
		return fields, stageOK("map")
	}
	degradedCount := 0
	for i := range fields {
		res := p.Mapper.Resolve(ctx, family, fields[i].FieldName)
		switch res.Source {
		case mapping.SourcePattern:
			fields[i].CanonicalName = res.CanonicalField
			if res.Rule != nil && res.Rule.Transform != "" && fields[i].FieldValue != "" {
				fields[i].FieldValue = mapping.ApplyTransform(res.Rule.Transform, fields[i].FieldValue)
			}
			if res.Rule != nil && len(res.Rule.Validation) > 0 && fields[i].FieldValue != "" {
				if err := p.Mapper.Rules().ValidateValue(family, res.Rule, fields[i].FieldValue); err != nil {
					p.Logger.Warn("pipeline.map.value_invalid",
						"field", fields[i].FieldName, "canonical", res.CanonicalField, "err", err)
				}
			}
		case mapping.SourceHistory, mapping.SourceFuzzy:
			fields[i].CanonicalName = res.CanonicalField
			// Reuse mutates the record: frequency and recency advance.
			if _, err := p.Mapper.RecordOutcome(ctx, family, fields[i].FieldName, res.CanonicalField, true); err != nil {
				degradedCount++
			}
		case mapping.SourceUnmapped:
			if fields[i].FieldType == "" {
				fields[i].FieldType = string(res.FallbackType)
			}
		}
	}
	if degradedCount > 0 {
		return fields, stageDegraded("map", common.ErrMappingStore)
	}
	return fields, stageOK("map")
}

func (p *Processor) logOutcome(doc *entity.Document, outcome Outcome, extra ...any) {
	args := append([]any{"doc_id", doc.ID, "status", string(outcome.Status)}, extra...)
	if outcome.Err != nil {
		args = append(args, "err", outcome.Err)
	}
	p.Logger.Info("pipeline.stage."+outcome.Stage, args...)
}

// pageCount reports the highest page number seen, treating pages as
// 1-based; 0-based collaborators still yield a sane count via max+0/1
// detection.
func pageCount(elements []entity.ExtractedElement) int {
	maxPage := 0
	sawZero := false
	for _, e := range elements {
		if e.Page == 0 {
			sawZero = true
		}
		if e.Page > maxPage {
			maxPage = e.Page
		}
	}
	if sawZero {
		return maxPage + 1
	}
	return maxPage
}
