package models

import "errors"

// ErrEmptyQuery is returned when a search request carries no query text.
var ErrEmptyQuery = errors.New("query is required")

// Article is a single entry pulled from an RSS feed. The link doubles as the
// article's identity everywhere: in the URL cache and as the vector id.
type Article struct {
	Title     string `json:"title"`
	Link      string `json:"link"`
	Published string `json:"published"`
	Summary   string `json:"summary"`
	Content   string `json:"content,omitempty"`
	Category  string `json:"category"`
}

// EmbeddingText is the exact text embedded for an article at ingestion time.
// The query side must stay comparable, so any change here means a reindex.
func (a Article) EmbeddingText() string {
	return a.Title + " " + a.Summary
}

type SearchRequest struct {
	Query      string   `json:"query"`
	TopK       int      `json:"top_k"`
	Categories []string `json:"categories,omitempty"`
}

// Normalize applies request defaults.
func (r SearchRequest) Normalize() SearchRequest {
	if r.TopK <= 0 {
		r.TopK = 5
	}
	return r
}

// Validate rejects requests that must not reach the search pipeline.
func (r SearchRequest) Validate() error {
	if r.Query == "" {
		return ErrEmptyQuery
	}
	return nil
}

type SearchResult struct {
	Title     string   `json:"title"`
	URL       string   `json:"url"`
	Summary   string   `json:"summary"`
	Category  string   `json:"category"`
	Published string   `json:"published"`
	Score     *float64 `json:"score,omitempty"`
}

type SearchMetrics struct {
	ElapsedMS    int64 `json:"elapsed_ms"`
	TopK         int   `json:"top_k"`
	TotalVectors int64 `json:"total_vectors"`
	Filtered     bool  `json:"filtered"`
}

type SearchResponse struct {
	Results []SearchResult `json:"results"`
	Metrics SearchMetrics  `json:"metrics"`
}
