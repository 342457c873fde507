package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/formpipe/formpipe/internal/entity"
)

// InferenceClient is the HTTP adapter for the field-inference service.
// Responses are validated against the fields schema before candidates are
// accepted into the pipeline.
type InferenceClient struct {
	URL    string
	APIKey string
	HTTP   *http.Client
	Logger *slog.Logger
}

func NewInferenceClient(url, apiKey string, client *http.Client, logger *slog.Logger) *InferenceClient {
	if logger == nil {
		logger = slog.Default()
	}
	return &InferenceClient{URL: url, APIKey: apiKey, HTTP: client, Logger: logger}
}

type inferenceRequest struct {
	Elements []entity.ExtractedElement `json:"elements"`
}

type inferenceResponse struct {
	Fields []entity.FieldCandidate `json:"fields"`
}

// InferFields sends the extracted elements and decodes field candidates.
func (c *InferenceClient) InferFields(ctx context.Context, elements []entity.ExtractedElement) ([]entity.FieldCandidate, error) {
	raw, _, err := SendJSON(ctx, c.HTTP, c.URL, inferenceRequest{Elements: elements}, authHeaders(c.APIKey), c.Logger)
	if err != nil {
		return nil, fmt.Errorf("inference call: %w", err)
	}

	if err := ValidateJSONAgainstSchema(BuildFieldsSchema(), raw); err != nil {
		return nil, fmt.Errorf("inference response rejected: %w", err)
	}

	var resp inferenceResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("decode inference response: %w", err)
	}

	// Candidates start unclustered; later stages enrich them.
	for i := range resp.Fields {
		resp.Fields[i].Cluster = entity.UnclusteredLabel
	}
	return resp.Fields, nil
}
