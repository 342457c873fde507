package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/formpipe/formpipe/internal/entity"
)

// SuggestClient is the HTTP adapter for the suggestion-generation service.
type SuggestClient struct {
	URL    string
	APIKey string
	HTTP   *http.Client
	Logger *slog.Logger
}

func NewSuggestClient(url, apiKey string, client *http.Client, logger *slog.Logger) *SuggestClient {
	if logger == nil {
		logger = slog.Default()
	}
	return &SuggestClient{URL: url, APIKey: apiKey, HTTP: client, Logger: logger}
}

type suggestRequest struct {
	FieldName   string   `json:"field_name"`
	FieldType   string   `json:"field_type,omitempty"`
	FieldValue  string   `json:"field_value,omitempty"`
	PriorValues []string `json:"prior_values,omitempty"`
}

type suggestResponse struct {
	Suggestions []string `json:"suggestions"`
}

// Suggest returns ranked candidate values for one field.
func (c *SuggestClient) Suggest(ctx context.Context, field entity.FieldCandidate, priorValues []string) ([]string, error) {
	req := suggestRequest{
		FieldName:   field.FieldName,
		FieldType:   field.FieldType,
		FieldValue:  field.FieldValue,
		PriorValues: priorValues,
	}
	raw, _, err := SendJSON(ctx, c.HTTP, c.URL, req, authHeaders(c.APIKey), c.Logger)
	if err != nil {
		return nil, fmt.Errorf("suggest call: %w", err)
	}

	var resp suggestResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("decode suggest response: %w", err)
	}
	return resp.Suggestions, nil
}
