// Package pgvector implements the vector store on Postgres with the
// pgvector extension, as a self-hosted alternative to a managed index.
package pgvector

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/lib/pq"

	"gossipsearch/internal/vectorstore"
)

type Storage struct {
	db        *sql.DB
	dimension int
}

// NewStorage connects to Postgres. The schema is managed by migrations but
// EnsureIndex also applies it idempotently so a fresh database works without
// a separate migrate step.
func NewStorage(dsn string, dimension int) (*Storage, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening postgres: %w", err)
	}
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)
	return NewStorageFromDB(db, dimension)
}

// NewStorageFromDB reuses an existing *sql.DB.
func NewStorageFromDB(db *sql.DB, dimension int) (*Storage, error) {
	if db == nil {
		return nil, errors.New("db is required")
	}
	if dimension <= 0 {
		return nil, fmt.Errorf("invalid dimension: %d", dimension)
	}
	return &Storage{db: db, dimension: dimension}, nil
}

func (s *Storage) Close() error {
	return s.db.Close()
}

func (s *Storage) EnsureIndex(ctx context.Context, dimension int) error {
	if dimension != s.dimension {
		return fmt.Errorf("store configured for dimension %d, got %d", s.dimension, dimension)
	}
	ddl := fmt.Sprintf(`
CREATE EXTENSION IF NOT EXISTS vector;
CREATE TABLE IF NOT EXISTS articles (
  id         text PRIMARY KEY,
  title      text NOT NULL,
  summary    text NOT NULL,
  category   text NOT NULL,
  published  text NOT NULL DEFAULT '',
  embedding  vector(%d) NOT NULL,
  updated_at timestamptz NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS articles_category_idx ON articles (category);
CREATE INDEX IF NOT EXISTS articles_embedding_idx ON articles USING ivfflat (embedding vector_cosine_ops) WITH (lists = 100);
`, s.dimension)
	if _, err := s.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("ensuring articles table: %w", err)
	}
	return nil
}

func (s *Storage) Upsert(ctx context.Context, records []vectorstore.Record) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	stmt := `
INSERT INTO articles (id, title, summary, category, published, embedding, updated_at)
 VALUES ($1, $2, $3, $4, $5, $6, now())
 ON CONFLICT (id) DO UPDATE SET
   title=EXCLUDED.title,
   summary=EXCLUDED.summary,
   category=EXCLUDED.category,
   published=EXCLUDED.published,
   embedding=EXCLUDED.embedding,
   updated_at=now();
`
	for _, r := range records {
		lit, err := toVectorLiteral(r.Vector, s.dimension)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, stmt,
			r.ID, r.Metadata.Title, r.Metadata.Summary, r.Metadata.Category, r.Metadata.Published, lit,
		); err != nil {
			return fmt.Errorf("upserting %s: %w", r.ID, err)
		}
	}
	return tx.Commit()
}

func (s *Storage) Query(ctx context.Context, vector []float32, topK int, filter *vectorstore.Filter) ([]vectorstore.Match, error) {
	lit, err := toVectorLiteral(vector, s.dimension)
	if err != nil {
		return nil, err
	}

	query := `
SELECT id, title, summary, category, published, 1 - (embedding <=> $1) AS score
 FROM articles`
	args := []interface{}{lit}
	if !filter.Empty() {
		query += ` WHERE category = ANY($2)`
		args = append(args, pq.Array(filter.Categories))
	}
	query += fmt.Sprintf(` ORDER BY embedding <=> $1 LIMIT %d`, topK)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying articles: %w", err)
	}
	defer rows.Close()

	var matches []vectorstore.Match
	for rows.Next() {
		var m vectorstore.Match
		if err := rows.Scan(&m.ID, &m.Metadata.Title, &m.Metadata.Summary, &m.Metadata.Category, &m.Metadata.Published, &m.Score); err != nil {
			return nil, fmt.Errorf("scanning match: %w", err)
		}
		matches = append(matches, m)
	}
	return matches, rows.Err()
}

func (s *Storage) Stats(ctx context.Context) (vectorstore.Stats, error) {
	var count int64
	if err := s.db.QueryRowContext(ctx, `SELECT count(*) FROM articles`).Scan(&count); err != nil {
		return vectorstore.Stats{}, fmt.Errorf("counting articles: %w", err)
	}
	return vectorstore.Stats{TotalVectorCount: count}, nil
}

// toVectorLiteral encodes a vector in pgvector's text format.
func toVectorLiteral(vec []float32, dimension int) (string, error) {
	if len(vec) != dimension {
		return "", fmt.Errorf("vector has dimension %d, expected %d", len(vec), dimension)
	}
	var b strings.Builder
	b.WriteByte('[')
	for i, v := range vec {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.FormatFloat(float64(v), 'f', -1, 32))
	}
	b.WriteByte(']')
	return b.String(), nil
}
