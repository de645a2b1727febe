package feed

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

const rssFixture = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
  <channel>
    <title>Actu People</title>
    <link>https://vsd.fr/actu-people</link>
    <item>
      <title>Un mariage surprise</title>
      <link>https://vsd.fr/actu-people/mariage-surprise</link>
      <pubDate>Mon, 06 Jan 2025 10:00:00 +0100</pubDate>
      <description>&lt;p&gt;Une c&#233;r&#233;monie  &lt;b&gt;discr&#232;te&lt;/b&gt;&lt;/p&gt;</description>
    </item>
    <item>
      <title>Interview exclusive</title>
      <link>https://vsd.fr/actu-people/interview</link>
      <pubDate>Tue, 07 Jan 2025 09:30:00 +0100</pubDate>
      <description>Confidences sur le plateau</description>
    </item>
  </channel>
</rss>`

func TestRSSFetcherFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		_, _ = w.Write([]byte(rssFixture))
	}))
	defer srv.Close()

	articles, err := NewRSSFetcher().Fetch(context.Background(), "vsd_people", srv.URL)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(articles) != 2 {
		t.Fatalf("expected 2 articles, got %d", len(articles))
	}

	first := articles[0]
	if first.Category != "vsd_people" {
		t.Fatalf("expected category stamp vsd_people, got %q", first.Category)
	}
	if first.Link != "https://vsd.fr/actu-people/mariage-surprise" {
		t.Fatalf("unexpected link: %q", first.Link)
	}
	if first.Summary != "Une cérémonie discrète" {
		t.Fatalf("expected stripped summary, got %q", first.Summary)
	}
	if first.Published == "" {
		t.Fatalf("expected published timestamp to be carried through")
	}
}

func TestRSSFetcherFetchError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	if _, err := NewRSSFetcher().Fetch(context.Background(), "vsd_people", srv.URL); err == nil {
		t.Fatalf("expected error for failing feed")
	}
}

func TestStripHTML(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"<p>hello <b>world</b></p>", "hello world"},
		{"no tags  here", "no tags here"},
		{"", ""},
		{"<div><span></span></div>", ""},
	}
	for _, tc := range cases {
		if got := stripHTML(tc.in); got != tc.want {
			t.Fatalf("stripHTML(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
