package openai_provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

const embeddingsURL = "https://api.openai.com/v1/embeddings"

// client implements the embedder interface using OpenAI's embeddings API
type client struct {
	apiKey     string
	model      string
	dimension  int
	url        string
	httpClient *http.Client
}

// NewClient creates a new OpenAI embeddings client. The dimension is passed
// through to the API so vectors match the index regardless of model default.
func NewClient(apiKey, model string, dimension int, timeout time.Duration) *client {
	return &client{
		apiKey:     apiKey,
		model:      model,
		dimension:  dimension,
		url:        embeddingsURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (c *client) Dimension() int { return c.dimension }

// Embed generates embeddings for the given texts using OpenAI's API
func (c *client) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	requestBody := map[string]interface{}{
		"model":      c.model,
		"input":      texts,
		"dimensions": c.dimension,
	}

	jsonData, err := json.Marshal(requestBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.url, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API returned status: %d", resp.StatusCode)
	}

	var openaiResp struct {
		Data []struct {
			Object    string    `json:"object"`
			Embedding []float32 `json:"embedding"`
			Index     int       `json:"index"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&openaiResp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	if len(openaiResp.Data) != len(texts) {
		return nil, fmt.Errorf("API returned %d embeddings for %d inputs", len(openaiResp.Data), len(texts))
	}

	vecs := make([][]float32, len(openaiResp.Data))
	for i, d := range openaiResp.Data {
		if len(d.Embedding) != c.dimension {
			return nil, fmt.Errorf("embedding %d has dimension %d, expected %d", i, len(d.Embedding), c.dimension)
		}
		vecs[i] = d.Embedding
	}
	return vecs, nil
}
