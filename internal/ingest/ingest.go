// Package ingest pulls RSS feeds, embeds new articles, and upserts them
// into the vector store. It is a sequential batch job: feeds one at a time,
// articles within a feed one at a time.
package ingest

import (
	"context"
	"fmt"
	"log"
	"sort"

	"github.com/google/uuid"

	"gossipsearch/internal/cache"
	"gossipsearch/internal/feed"
	"gossipsearch/internal/vectorstore"
	"gossipsearch/models"
	"gossipsearch/provider"
)

// Pipeline holds the collaborators for one ingestion run. All of them are
// constructed up front and injected; the pipeline owns no hidden state.
type Pipeline struct {
	Feeds    map[string]string
	Fetcher  feed.Fetcher
	Cache    cache.Set
	Embedder provider.Embedder
	Store    vectorstore.Store
	// Enricher optionally fills missing article content from the page
	// itself. Enrichment failures are logged and ignored.
	Enricher *feed.Enricher
	Logger   *log.Logger
}

// Summary reports what one run did.
type Summary struct {
	RunID          string
	Fetched        int
	Upserted       int
	SkippedCached  int
	SkippedInvalid int
	FeedErrors     int
}

// Run executes one ingestion pass over all configured feeds.
//
// A feed that fails to fetch is logged and skipped; the run continues with
// the remaining feeds. The URL cache is persisted once at the end of the
// run, even when nothing new was ingested, so a crash mid-run re-ingests
// that run's articles next time (upserts make that harmless).
func (p *Pipeline) Run(ctx context.Context) (Summary, error) {
	summary := Summary{RunID: uuid.NewString()}
	logger := p.Logger
	if logger == nil {
		logger = log.Default()
	}

	if err := p.Store.EnsureIndex(ctx, p.Embedder.Dimension()); err != nil {
		return summary, fmt.Errorf("ensuring index: %w", err)
	}

	if err := p.Cache.Load(ctx); err != nil {
		return summary, fmt.Errorf("loading url cache: %w", err)
	}

	// Deterministic feed order keeps runs comparable in the logs.
	categories := make([]string, 0, len(p.Feeds))
	for category := range p.Feeds {
		categories = append(categories, category)
	}
	sort.Strings(categories)

	logger.Printf("run %s: %d feeds, %d cached urls", summary.RunID, len(categories), p.Cache.Len())

	for _, category := range categories {
		url := p.Feeds[category]

		articles, err := p.Fetcher.Fetch(ctx, category, url)
		if err != nil {
			logger.Printf("feed %s failed: %v", category, err)
			feedErrors.Inc()
			summary.FeedErrors++
			continue
		}
		summary.Fetched += len(articles)

		for _, article := range articles {
			if p.Cache.Contains(article.Link) {
				logger.Printf("skipping cached url: %s", article.Link)
				articlesSkipped.WithLabelValues("cached").Inc()
				summary.SkippedCached++
				continue
			}
			if article.Title == "" || article.Summary == "" {
				logger.Printf("skipping article with missing title or summary: %s", article.Link)
				articlesSkipped.WithLabelValues("invalid").Inc()
				summary.SkippedInvalid++
				continue
			}

			if p.Enricher != nil && article.Content == "" {
				content, err := p.Enricher.Extract(ctx, article.Link)
				if err != nil {
					logger.Printf("content enrichment for %s failed: %v", article.Link, err)
				} else {
					article.Content = content
				}
			}

			if err := p.ingestOne(ctx, article); err != nil {
				return summary, err
			}

			logger.Printf("upserted and cached url: %s", article.Link)
			articlesUpserted.Inc()
			summary.Upserted++
		}
	}

	// Unconditional: last write wins on the cache, no locking. One
	// ingestion process at a time is an operational assumption.
	if err := p.Cache.Save(ctx); err != nil {
		return summary, fmt.Errorf("saving url cache: %w", err)
	}

	logger.Printf("run %s done: fetched=%d upserted=%d skipped_cached=%d skipped_invalid=%d feed_errors=%d",
		summary.RunID, summary.Fetched, summary.Upserted, summary.SkippedCached, summary.SkippedInvalid, summary.FeedErrors)
	return summary, nil
}

func (p *Pipeline) ingestOne(ctx context.Context, article models.Article) error {
	vecs, err := p.Embedder.Embed(ctx, []string{article.EmbeddingText()})
	if err != nil {
		return fmt.Errorf("embedding %s: %w", article.Link, err)
	}
	if len(vecs) != 1 {
		return fmt.Errorf("embedding %s: expected 1 vector, got %d", article.Link, len(vecs))
	}

	record := vectorstore.Record{
		ID:     article.Link,
		Vector: vecs[0],
		Metadata: vectorstore.Metadata{
			Title:     article.Title,
			Summary:   article.Summary,
			Category:  article.Category,
			Published: article.Published,
		},
	}
	if err := p.Store.Upsert(ctx, []vectorstore.Record{record}); err != nil {
		return fmt.Errorf("upserting %s: %w", article.Link, err)
	}

	p.Cache.Add(article.Link)
	return nil
}
