package entity

import "time"

// MappingRecord is the learned correspondence between a detected field name
// and a canonical field name, scoped to a form family. Confidence stays
// within [0.1, 0.97]; frequency never decreases.
type MappingRecord struct {
	FormFamily     string    `json:"form_family"`
	DetectedField  string    `json:"detected_field"`
	CanonicalField string    `json:"canonical_field"`
	Confidence     float64   `json:"confidence"`
	Frequency      int       `json:"frequency"`
	LastUsedAt     time.Time `json:"last_used_at"`
	CreatedAt      time.Time `json:"created_at"`
}

// PatternRule is a deterministic mapping rule for a form family. Rules are
// ordered; the first matching expression wins and its target cannot be
// overridden by learned history.
type PatternRule struct {
	Match      string         `toml:"match" json:"match"`
	Canonical  string         `toml:"canonical" json:"canonical"`
	Transform  string         `toml:"transform,omitempty" json:"transform,omitempty"`
	Validation map[string]any `toml:"validation,omitempty" json:"validation,omitempty"`
}
