package feed

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	readability "github.com/go-shiori/go-readability"
)

// Enricher fills Article.Content by fetching the article page and running
// readability extraction. Feeds here rarely include full content; this keeps
// the richer text available as vector metadata without a browser in the loop.
type Enricher struct {
	httpClient *http.Client
}

func NewEnricher(timeout time.Duration) *Enricher {
	return &Enricher{httpClient: &http.Client{Timeout: timeout}}
}

// Extract returns the readable text of the page at link.
func (e *Enricher) Extract(ctx context.Context, link string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, link, nil)
	if err != nil {
		return "", fmt.Errorf("building request for %s: %w", link, err)
	}

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetching %s: %w", link, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetching %s: status %d", link, resp.StatusCode)
	}

	pageURL, err := url.Parse(link)
	if err != nil {
		return "", fmt.Errorf("parsing url %s: %w", link, err)
	}

	article, err := readability.FromReader(resp.Body, pageURL)
	if err != nil {
		return "", fmt.Errorf("extracting %s: %w", link, err)
	}
	return strings.TrimSpace(article.TextContent), nil
}
