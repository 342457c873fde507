package entity

import "time"

// ResultMetadata summarizes one pipeline run.
type ResultMetadata struct {
	PageCount             int       `json:"page_count"`
	TextBlockCount        int       `json:"text_block_count"`
	FormType              string    `json:"form_type"`
	ProcessingTimeSeconds float64   `json:"processing_time_seconds"`
	FileSizeBytes         int64     `json:"file_size_bytes"`
	ProcessedAt           time.Time `json:"processed_at"`
}

// ProcessedResult is the full output of one document run: the record cached
// under the document's fingerprint and returned to callers. Entries are
// replaced wholesale on recomputation, never merged.
type ProcessedResult struct {
	Elements         []ExtractedElement  `json:"elements"`
	FormFields       []FieldCandidate    `json:"form_fields"`
	FieldSuggestions map[string][]string `json:"field_suggestions"`
	Metadata         ResultMetadata      `json:"metadata"`
}
