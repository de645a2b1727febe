// Package pinecone is a REST client for Pinecone serverless indexes,
// covering the handful of calls this system needs: idempotent index
// creation, upsert, filtered query, and index stats.
package pinecone

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"gossipsearch/internal/vectorstore"
)

type Config struct {
	APIKey     string
	ControlURL string
	IndexHost  string
	Index      string
	Cloud      string
	Region     string
	Timeout    time.Duration
}

type Storage struct {
	apiKey     string
	controlURL string
	indexHost  string
	index      string
	cloud      string
	region     string
	httpClient *http.Client
}

func NewStorage(cfg Config) *Storage {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &Storage{
		apiKey:     cfg.APIKey,
		controlURL: strings.TrimRight(cfg.ControlURL, "/"),
		indexHost:  strings.TrimRight(cfg.IndexHost, "/"),
		index:      cfg.Index,
		cloud:      cfg.Cloud,
		region:     cfg.Region,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// EnsureIndex creates the serverless index with cosine metric. A 409 from
// the control plane means another creator won the race; that is fine.
func (s *Storage) EnsureIndex(ctx context.Context, dimension int) error {
	body := map[string]interface{}{
		"name":      s.index,
		"dimension": dimension,
		"metric":    "cosine",
		"spec": map[string]interface{}{
			"serverless": map[string]interface{}{
				"cloud":  s.cloud,
				"region": s.region,
			},
		},
	}

	resp, err := s.do(ctx, http.MethodPost, s.controlURL+"/indexes", body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusConflict {
		return nil
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("creating index %s: %s", s.index, readError(resp))
	}

	// The control plane reports the data-plane host on creation.
	if s.indexHost == "" {
		var created struct {
			Host string `json:"host"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&created); err == nil && created.Host != "" {
			s.indexHost = "https://" + created.Host
		}
	}
	return nil
}

func (s *Storage) Upsert(ctx context.Context, records []vectorstore.Record) error {
	if len(records) == 0 {
		return nil
	}

	vectors := make([]map[string]interface{}, len(records))
	for i, r := range records {
		vectors[i] = map[string]interface{}{
			"id":       r.ID,
			"values":   r.Vector,
			"metadata": r.Metadata,
		}
	}

	resp, err := s.do(ctx, http.MethodPost, s.indexHost+"/vectors/upsert", map[string]interface{}{"vectors": vectors})
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("upserting %d vectors: %s", len(records), readError(resp))
	}
	return nil
}

func (s *Storage) Query(ctx context.Context, vector []float32, topK int, filter *vectorstore.Filter) ([]vectorstore.Match, error) {
	body := map[string]interface{}{
		"vector":          vector,
		"topK":            topK,
		"includeMetadata": true,
	}
	if f := buildFilter(filter); f != nil {
		body["filter"] = f
	}

	resp, err := s.do(ctx, http.MethodPost, s.indexHost+"/query", body)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("querying index: %s", readError(resp))
	}

	var queryResp struct {
		Matches []struct {
			ID       string               `json:"id"`
			Score    float64              `json:"score"`
			Metadata vectorstore.Metadata `json:"metadata"`
		} `json:"matches"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&queryResp); err != nil {
		return nil, fmt.Errorf("parsing query response: %w", err)
	}

	matches := make([]vectorstore.Match, len(queryResp.Matches))
	for i, m := range queryResp.Matches {
		matches[i] = vectorstore.Match{ID: m.ID, Score: m.Score, Metadata: m.Metadata}
	}
	return matches, nil
}

func (s *Storage) Stats(ctx context.Context) (vectorstore.Stats, error) {
	resp, err := s.do(ctx, http.MethodPost, s.indexHost+"/describe_index_stats", map[string]interface{}{})
	if err != nil {
		return vectorstore.Stats{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return vectorstore.Stats{}, fmt.Errorf("describing index stats: %s", readError(resp))
	}

	var statsResp struct {
		TotalVectorCount int64 `json:"totalVectorCount"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&statsResp); err != nil {
		return vectorstore.Stats{}, fmt.Errorf("parsing stats response: %w", err)
	}
	return vectorstore.Stats{TotalVectorCount: statsResp.TotalVectorCount}, nil
}

// buildFilter translates a category filter into Pinecone's metadata filter
// syntax: one category is $eq, several are $in.
func buildFilter(filter *vectorstore.Filter) map[string]interface{} {
	if filter.Empty() {
		return nil
	}
	if len(filter.Categories) == 1 {
		return map[string]interface{}{"category": map[string]interface{}{"$eq": filter.Categories[0]}}
	}
	return map[string]interface{}{"category": map[string]interface{}{"$in": filter.Categories}}
}

func (s *Storage) do(ctx context.Context, method, url string, body interface{}) (*http.Response, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Api-Key", s.apiKey)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	return resp, nil
}

func readError(resp *http.Response) string {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	msg := strings.TrimSpace(string(data))
	if msg == "" {
		return resp.Status
	}
	return fmt.Sprintf("%s: %s", resp.Status, msg)
}
