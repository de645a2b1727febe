package tei_provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// client talks to a text-embeddings-inference server hosting a
// sentence-transformer model such as all-MiniLM-L6-v2.
type client struct {
	baseURL    string
	dimension  int
	httpClient *http.Client
}

// NewClient creates a new TEI embeddings client
func NewClient(baseURL string, dimension int, timeout time.Duration) *client {
	return &client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		dimension:  dimension,
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (c *client) Dimension() int { return c.dimension }

// Embed generates embeddings for the given texts via the /embed endpoint
func (c *client) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	requestBody := map[string]interface{}{
		"inputs": texts,
	}

	jsonData, err := json.Marshal(requestBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/embed", bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("embedding server returned status: %d", resp.StatusCode)
	}

	var vecs [][]float32
	if err := json.NewDecoder(resp.Body).Decode(&vecs); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	if len(vecs) != len(texts) {
		return nil, fmt.Errorf("embedding server returned %d embeddings for %d inputs", len(vecs), len(texts))
	}
	for i, v := range vecs {
		if len(v) != c.dimension {
			return nil, fmt.Errorf("embedding %d has dimension %d, expected %d", i, len(v), c.dimension)
		}
	}
	return vecs, nil
}
