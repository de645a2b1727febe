package ingest

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	articlesUpserted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ingest_articles_upserted_total",
		Help: "Articles embedded and upserted into the vector store",
	})
	articlesSkipped = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ingest_articles_skipped_total",
		Help: "Articles skipped during ingestion",
	}, []string{"reason"})
	feedErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ingest_feed_errors_total",
		Help: "Feeds that failed to fetch or parse",
	})
)
