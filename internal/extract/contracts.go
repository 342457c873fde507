// Package extract defines the boundary to the external layout, field
// inference and suggestion collaborators, plus their HTTP adapters.
package extract

import (
	"context"

	"github.com/formpipe/formpipe/internal/entity"
)

// ElementExtractor is the layout/partition collaborator: document bytes to
// an ordered list of text elements.
type ElementExtractor interface {
	Partition(ctx context.Context, content []byte, strategy string) ([]entity.ExtractedElement, error)
}

// FieldInferrer turns extracted elements into field candidates.
type FieldInferrer interface {
	InferFields(ctx context.Context, elements []entity.ExtractedElement) ([]entity.FieldCandidate, error)
}

// SuggestionGenerator proposes ranked values for one field given limited
// prior-value context. It is independent of clustering and may run after it.
type SuggestionGenerator interface {
	Suggest(ctx context.Context, field entity.FieldCandidate, priorValues []string) ([]string, error)
}
