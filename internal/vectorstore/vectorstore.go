// Package vectorstore defines the interface the ingestion and search paths
// use to talk to a vector index, plus the typed metadata carried per vector.
package vectorstore

import "context"

// Metadata is the per-vector payload stored alongside an embedding.
type Metadata struct {
	Title     string `json:"title"`
	Summary   string `json:"summary"`
	Category  string `json:"category"`
	Published string `json:"published"`
}

// Record is one (id, vector, metadata) tuple to upsert. The id is the
// article link, so re-ingesting an article overwrites its previous vector.
type Record struct {
	ID       string
	Vector   []float32
	Metadata Metadata
}

// Match is one ranked query result.
type Match struct {
	ID       string
	Score    float64
	Metadata Metadata
}

// Stats reports index-level counters.
type Stats struct {
	TotalVectorCount int64
}

// Filter restricts query matches by metadata. An empty Categories slice is
// no restriction; one entry is an equality filter; several is a one-of
// filter.
type Filter struct {
	Categories []string
}

// Empty reports whether the filter restricts anything.
func (f *Filter) Empty() bool {
	return f == nil || len(f.Categories) == 0
}

// Store is a vector index under cosine similarity.
type Store interface {
	// EnsureIndex creates the index with the given dimensionality if it does
	// not exist yet. Racing with another creator is not an error.
	EnsureIndex(ctx context.Context, dimension int) error
	Upsert(ctx context.Context, records []Record) error
	Query(ctx context.Context, vector []float32, topK int, filter *Filter) ([]Match, error)
	Stats(ctx context.Context) (Stats, error)
}
