package ingest

import (
	"context"
	"fmt"
	"io"
	"log"
	"path/filepath"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/testcontainers/testcontainers-go"
	tcRedis "github.com/testcontainers/testcontainers-go/modules/redis"
	"github.com/testcontainers/testcontainers-go/wait"

	"gossipsearch/models"
)

func TestSchedulerLock(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()

	redisC, err := tcRedis.RunContainer(ctx, testcontainers.WithWaitStrategy(wait.ForListeningPort("6379/tcp")))
	if err != nil {
		t.Fatalf("redis container: %v", err)
	}
	defer func() { _ = redisC.Terminate(ctx) }()

	host, err := redisC.Host(ctx)
	if err != nil {
		t.Fatalf("redis host: %v", err)
	}
	port, err := redisC.MappedPort(ctx, "6379")
	if err != nil {
		t.Fatalf("redis port: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: fmt.Sprintf("%s:%s", host, port.Port())})
	defer func() { _ = rdb.Close() }()

	logger := log.New(io.Discard, "", 0)
	fetcher := &fakeFetcher{articles: map[string][]models.Article{
		"catA": {article("https://vsd.fr/a")},
	}}
	store := &fakeStore{}
	sched := &Scheduler{
		Pipeline: newPipeline(t, fetcher, store, filepath.Join(t.TempDir(), "cached_urls.txt")),
		Spec:     "@daily",
		Rdb:      rdb,
		Logger:   logger,
	}

	// A foreign lock holder makes the tick skip, and keeps its lock.
	if err := rdb.Set(ctx, lockKey, "foreign-token", time.Minute).Err(); err != nil {
		t.Fatalf("seed lock: %v", err)
	}
	sched.tick(ctx, logger)
	if len(store.upserts) != 0 {
		t.Fatalf("tick must skip while another process holds the lock")
	}
	if val, err := rdb.Get(ctx, lockKey).Result(); err != nil || val != "foreign-token" {
		t.Fatalf("foreign lock disturbed: val=%q err=%v", val, err)
	}

	// With the lock free the tick runs and releases its own lock afterward.
	if err := rdb.Del(ctx, lockKey).Err(); err != nil {
		t.Fatalf("clear lock: %v", err)
	}
	sched.tick(ctx, logger)
	if len(store.upserts) != 1 {
		t.Fatalf("expected the tick to run the pipeline, got %d upserts", len(store.upserts))
	}
	if n, err := rdb.Exists(ctx, lockKey).Result(); err != nil || n != 0 {
		t.Fatalf("lock not released: exists=%d err=%v", n, err)
	}

	// A stale token must not delete a lock someone else has since taken.
	if err := rdb.Set(ctx, lockKey, "foreign-token", time.Minute).Err(); err != nil {
		t.Fatalf("seed lock: %v", err)
	}
	deleted, err := releaseLock.Run(ctx, rdb, []string{lockKey}, "stale-token").Int()
	if err != nil {
		t.Fatalf("release script: %v", err)
	}
	if deleted != 0 {
		t.Fatalf("stale token deleted the lock")
	}
	if val, err := rdb.Get(ctx, lockKey).Result(); err != nil || val != "foreign-token" {
		t.Fatalf("foreign lock disturbed by stale release: val=%q err=%v", val, err)
	}
}
