package entity

// UnclusteredLabel marks a field that belongs to no spatial cluster.
const UnclusteredLabel = -1

// Position is a field's bounding position on its page, in layout units.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// FieldCandidate is a detected form field. The inference collaborator
// produces the identity attributes; later stages enrich it in place with a
// confidence score, a cluster label, related fields and a canonical name.
type FieldCandidate struct {
	FieldName  string         `json:"field_name"`
	FieldType  string         `json:"field_type,omitempty"`
	FieldValue string         `json:"field_value,omitempty"`
	Position   *Position      `json:"position,omitempty"`
	Page       int            `json:"page"`
	Validation map[string]any `json:"validation,omitempty"`

	// Enrichment, stage by stage.
	ConfidenceScore float64  `json:"confidence_score"`
	ConfidenceBand  string   `json:"confidence_band,omitempty"`
	Cluster         int      `json:"cluster"`
	RelatedFields   []string `json:"related_fields,omitempty"`
	CanonicalName   string   `json:"canonical_name,omitempty"`
}
