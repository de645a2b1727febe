// Package search implements the query side of the system: embed the query
// with the same model used at ingestion time, run a filtered nearest-neighbor
// lookup, and assemble results plus metrics.
package search

import (
	"context"
	"fmt"
	"log"
	"time"

	"gossipsearch/internal/vectorstore"
	"gossipsearch/models"
	"gossipsearch/provider"
)

type Service struct {
	Embedder provider.Embedder
	Store    vectorstore.Store
	Logger   *log.Logger
}

func NewService(embedder provider.Embedder, store vectorstore.Store, logger *log.Logger) *Service {
	if logger == nil {
		logger = log.Default()
	}
	return &Service{Embedder: embedder, Store: store, Logger: logger}
}

// Search embeds req.Query and returns the nearest articles. Embedding or
// query failures propagate; a failing stats lookup degrades to a zero count
// without failing the request.
func (s *Service) Search(ctx context.Context, req models.SearchRequest) (models.SearchResponse, error) {
	if err := req.Validate(); err != nil {
		return models.SearchResponse{}, err
	}
	req = req.Normalize()

	filter := &vectorstore.Filter{Categories: req.Categories}

	// Elapsed time covers exactly the embed + query span.
	started := time.Now()

	vecs, err := s.Embedder.Embed(ctx, []string{req.Query})
	if err != nil {
		return models.SearchResponse{}, err
	}
	if len(vecs) != 1 {
		return models.SearchResponse{}, fmt.Errorf("embedding query: expected 1 vector, got %d", len(vecs))
	}

	matches, err := s.Store.Query(ctx, vecs[0], req.TopK, filter)
	if err != nil {
		return models.SearchResponse{}, err
	}
	elapsed := time.Since(started)

	totalVectors := int64(0)
	if stats, err := s.Store.Stats(ctx); err != nil {
		s.Logger.Printf("index stats lookup failed: %v", err)
	} else {
		totalVectors = stats.TotalVectorCount
	}

	results := make([]models.SearchResult, len(matches))
	for i, m := range matches {
		score := m.Score
		results[i] = models.SearchResult{
			Title:     defaultString(m.Metadata.Title, "Untitled"),
			URL:       m.ID,
			Summary:   m.Metadata.Summary,
			Category:  defaultString(m.Metadata.Category, "unknown"),
			Published: m.Metadata.Published,
			Score:     &score,
		}
	}

	return models.SearchResponse{
		Results: results,
		Metrics: models.SearchMetrics{
			ElapsedMS:    elapsed.Milliseconds(),
			TopK:         req.TopK,
			TotalVectors: totalVectors,
			Filtered:     !filter.Empty(),
		},
	}, nil
}

func defaultString(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
