package main

import (
	"context"
	"fmt"
	"log"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"gossipsearch/config"
	"gossipsearch/internal/cache"
	"gossipsearch/internal/feed"
	"gossipsearch/internal/ingest"
	srv "gossipsearch/internal/server"
	"gossipsearch/provider"
)

func ingestCMD() *cobra.Command {
	var cfgPath string
	var cron string
	var ing = &cobra.Command{
		Use:   "ingest",
		Short: "Fetch feeds and index new articles (once, or on a cron schedule)",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.LoadConfig(cfgPath)
			if cron != "" {
				cfg.Ingest.Schedule = cron
			}

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			logger := log.New(log.Writer(), "[INGEST] ", log.LstdFlags)

			embedder, err := provider.NewEmbedder(cfg.Embedding)
			if err != nil {
				return err
			}
			store, err := srv.BuildStore(cfg)
			if err != nil {
				return err
			}

			pipeline := &ingest.Pipeline{
				Feeds:    cfg.Ingest.Feeds,
				Fetcher:  feed.NewRSSFetcher(),
				Embedder: embedder,
				Store:    store,
				Logger:   logger,
			}
			if cfg.Ingest.FetchContent {
				pipeline.Enricher = feed.NewEnricher(cfg.Ingest.FeedTimeout)
			}

			var rdb *redis.Client
			switch cfg.Ingest.CacheBackend {
			case "redis":
				rdb, err = cache.Conn(ctx, cfg.Databases.Redis.Addr(), cfg.Databases.Redis.Password, cfg.Databases.Redis.DB, cfg.Ingest.FeedTimeout)
				if err != nil {
					return fmt.Errorf("connecting to redis: %w", err)
				}
				defer rdb.Close()
				pipeline.Cache = cache.NewRedisSet(rdb)
			default:
				pipeline.Cache = cache.NewFileSet(cfg.Ingest.CacheFile)
			}

			if cfg.Ingest.Schedule != "" {
				sched := &ingest.Scheduler{
					Pipeline: pipeline,
					Spec:     cfg.Ingest.Schedule,
					Rdb:      rdb,
					Logger:   logger,
				}
				if err := sched.Start(ctx); err != nil && ctx.Err() == nil {
					return err
				}
				return nil
			}

			_, err = pipeline.Run(ctx)
			return err
		},
	}
	ing.Flags().StringVar(&cron, "cron", "", "cron schedule; run as a daemon instead of once")
	ing.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "config file (default is ./config.json)")

	return ing
}
