package extract

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/formpipe/formpipe/internal/entity"
)

// DefaultStrategy asks the layout collaborator for its highest-fidelity
// pass.
const DefaultStrategy = "hi_res"

// PartitionClient is the HTTP adapter for the layout/partition service.
type PartitionClient struct {
	URL    string
	APIKey string
	HTTP   *http.Client
	Logger *slog.Logger
}

func NewPartitionClient(url, apiKey string, client *http.Client, logger *slog.Logger) *PartitionClient {
	if logger == nil {
		logger = slog.Default()
	}
	return &PartitionClient{URL: url, APIKey: apiKey, HTTP: client, Logger: logger}
}

type partitionRequest struct {
	Content  string `json:"content"` // base64 document bytes
	Strategy string `json:"strategy"`
}

type partitionResponse struct {
	Elements []entity.ExtractedElement `json:"elements"`
}

// Partition sends the document bytes and decodes the ordered element list.
func (c *PartitionClient) Partition(ctx context.Context, content []byte, strategy string) ([]entity.ExtractedElement, error) {
	if strategy == "" {
		strategy = DefaultStrategy
	}
	req := partitionRequest{
		Content:  base64.StdEncoding.EncodeToString(content),
		Strategy: strategy,
	}
	raw, _, err := SendJSON(ctx, c.HTTP, c.URL, req, authHeaders(c.APIKey), c.Logger)
	if err != nil {
		return nil, fmt.Errorf("partition call: %w", err)
	}

	var resp partitionResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("decode partition response: %w", err)
	}
	return resp.Elements, nil
}
