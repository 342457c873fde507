package entity

import (
	"time"

	"github.com/google/uuid"
)

// Document is a single intake request: raw bytes plus the declared
// form-type label. It lives for one pipeline run and is discarded once the
// processed result has been cached.
type Document struct {
	ID         uuid.UUID
	Content    []byte
	FormType   string
	FormFamily string
	SourceName string
	ReceivedAt time.Time
}

// ExtractedElement is one text block produced by the layout-partition
// collaborator. Immutable once produced.
type ExtractedElement struct {
	Text     string    `json:"text"`
	Category string    `json:"category"`
	Page     int       `json:"page"`
	Position *Position `json:"position,omitempty"`
}
