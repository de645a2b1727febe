package pinecone

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"gossipsearch/internal/vectorstore"
)

func newTestStorage(srv *httptest.Server) *Storage {
	return NewStorage(Config{
		APIKey:     "test-key",
		ControlURL: srv.URL,
		IndexHost:  srv.URL,
		Index:      "gossip-semantic-search",
		Cloud:      "aws",
		Region:     "us-east-1",
	})
}

func TestEnsureIndexCreates(t *testing.T) {
	var body map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/indexes" {
			t.Fatalf("unexpected path: %s", r.URL.Path)
		}
		if r.Header.Get("Api-Key") != "test-key" {
			t.Fatalf("missing api key header")
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(map[string]string{"host": "index.example.pinecone.io"})
	}))
	defer srv.Close()

	if err := newTestStorage(srv).EnsureIndex(context.Background(), 384); err != nil {
		t.Fatalf("ensure index: %v", err)
	}
	if body["name"] != "gossip-semantic-search" || body["metric"] != "cosine" {
		t.Fatalf("unexpected create body: %v", body)
	}
	if dim, _ := body["dimension"].(float64); int(dim) != 384 {
		t.Fatalf("expected dimension 384, got %v", body["dimension"])
	}
}

func TestEnsureIndexToleratesConflict(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
	}))
	defer srv.Close()

	if err := newTestStorage(srv).EnsureIndex(context.Background(), 384); err != nil {
		t.Fatalf("expected conflict to be tolerated, got %v", err)
	}
}

func TestEnsureIndexOtherErrorIsFatal(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	if err := newTestStorage(srv).EnsureIndex(context.Background(), 384); err == nil {
		t.Fatalf("expected error for non-conflict failure")
	}
}

func TestUpsertPayload(t *testing.T) {
	var body struct {
		Vectors []struct {
			ID       string               `json:"id"`
			Values   []float32            `json:"values"`
			Metadata vectorstore.Metadata `json:"metadata"`
		} `json:"vectors"`
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/vectors/upsert" {
			t.Fatalf("unexpected path: %s", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		_ = json.NewEncoder(w).Encode(map[string]int{"upsertedCount": 1})
	}))
	defer srv.Close()

	record := vectorstore.Record{
		ID:     "https://vsd.fr/a",
		Vector: []float32{0.1, 0.2},
		Metadata: vectorstore.Metadata{
			Title: "A", Summary: "B", Category: "vsd_people", Published: "today",
		},
	}
	if err := newTestStorage(srv).Upsert(context.Background(), []vectorstore.Record{record}); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if len(body.Vectors) != 1 || body.Vectors[0].ID != "https://vsd.fr/a" {
		t.Fatalf("unexpected upsert body: %+v", body)
	}
	if body.Vectors[0].Metadata.Category != "vsd_people" {
		t.Fatalf("metadata not carried: %+v", body.Vectors[0].Metadata)
	}
}

func TestQueryFilters(t *testing.T) {
	var body map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"matches": []map[string]interface{}{
				{"id": "https://vsd.fr/a", "score": 0.93, "metadata": map[string]string{"title": "A", "category": "vsd_people"}},
			},
		})
	}))
	defer srv.Close()

	s := newTestStorage(srv)
	ctx := context.Background()

	// No filter
	matches, err := s.Query(ctx, []float32{0.5}, 3, nil)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if _, ok := body["filter"]; ok {
		t.Fatalf("expected no filter in request body")
	}
	if len(matches) != 1 || matches[0].ID != "https://vsd.fr/a" || matches[0].Score != 0.93 {
		t.Fatalf("unexpected matches: %+v", matches)
	}

	// Single category becomes equality
	if _, err := s.Query(ctx, []float32{0.5}, 3, &vectorstore.Filter{Categories: []string{"vsd_people"}}); err != nil {
		t.Fatalf("query: %v", err)
	}
	filter := body["filter"].(map[string]interface{})["category"].(map[string]interface{})
	if _, ok := filter["$eq"]; !ok {
		t.Fatalf("expected $eq filter, got %v", filter)
	}

	// Several categories become one-of
	if _, err := s.Query(ctx, []float32{0.5}, 3, &vectorstore.Filter{Categories: []string{"vsd_people", "public_people"}}); err != nil {
		t.Fatalf("query: %v", err)
	}
	filter = body["filter"].(map[string]interface{})["category"].(map[string]interface{})
	if _, ok := filter["$in"]; !ok {
		t.Fatalf("expected $in filter, got %v", filter)
	}
}

func TestStats(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/describe_index_stats" {
			t.Fatalf("unexpected path: %s", r.URL.Path)
		}
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"totalVectorCount": 42})
	}))
	defer srv.Close()

	stats, err := newTestStorage(srv).Stats(context.Background())
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.TotalVectorCount != 42 {
		t.Fatalf("expected 42 vectors, got %d", stats.TotalVectorCount)
	}
}
