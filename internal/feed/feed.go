package feed

import (
	"context"
	"fmt"
	"strings"

	"github.com/mmcdole/gofeed"

	"gossipsearch/models"
)

// Fetcher produces the articles currently published on a feed.
type Fetcher interface {
	Fetch(ctx context.Context, category, url string) ([]models.Article, error)
}

// RSSFetcher parses RSS/Atom feeds with gofeed.
type RSSFetcher struct {
	parser *gofeed.Parser
}

func NewRSSFetcher() *RSSFetcher {
	return &RSSFetcher{parser: gofeed.NewParser()}
}

// Fetch downloads and parses one feed, stamping every article with the
// feed's category. Summaries are stripped of HTML; titles and published
// timestamps are kept as the feed reports them.
func (f *RSSFetcher) Fetch(ctx context.Context, category, url string) ([]models.Article, error) {
	parsed, err := f.parser.ParseURLWithContext(url, ctx)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", url, err)
	}

	articles := make([]models.Article, 0, len(parsed.Items))
	for _, item := range parsed.Items {
		published := item.Published
		if published == "" {
			published = item.Updated
		}

		articles = append(articles, models.Article{
			Title:     strings.TrimSpace(item.Title),
			Link:      item.Link,
			Published: published,
			Summary:   stripHTML(item.Description),
			Content:   stripHTML(item.Content),
			Category:  category,
		})
	}
	return articles, nil
}

func stripHTML(s string) string {
	var b strings.Builder
	inTag := false
	for _, r := range s {
		switch {
		case r == '<':
			inTag = true
		case r == '>':
			inTag = false
		case !inTag:
			b.WriteRune(r)
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}
