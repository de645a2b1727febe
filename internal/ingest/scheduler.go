package ingest

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/gorhill/cronexpr"
	"github.com/redis/go-redis/v9"
)

const (
	lockKey = "gossipsearch:ingest:lock"
	lockTTL = 10 * time.Minute
)

// releaseLock deletes the lock only while it still holds our token, so a
// run that outlived the TTL cannot delete a lock another process has since
// acquired.
var releaseLock = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

// Scheduler runs the pipeline on a cron schedule. When a redis client is
// provided it takes a best-effort SetNX lock so two scheduled processes do
// not ingest at the same time; without redis the single-process assumption
// stands alone.
type Scheduler struct {
	Pipeline *Pipeline
	Spec     string
	Rdb      *redis.Client
	Logger   *log.Logger
}

// Start blocks, firing one ingestion run per schedule tick, until the
// context is cancelled.
func (s *Scheduler) Start(ctx context.Context) error {
	expr, err := cronexpr.Parse(s.Spec)
	if err != nil {
		return fmt.Errorf("parsing schedule %q: %w", s.Spec, err)
	}
	logger := s.Logger
	if logger == nil {
		logger = log.Default()
	}

	for {
		next := expr.Next(time.Now())
		if next.IsZero() {
			return fmt.Errorf("schedule %q has no future run time", s.Spec)
		}
		logger.Printf("next ingestion run at %s", next.Format(time.RFC3339))

		timer := time.NewTimer(time.Until(next))
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}

		s.tick(ctx, logger)
	}
}

func (s *Scheduler) tick(ctx context.Context, logger *log.Logger) {
	if s.Rdb != nil {
		token := uuid.NewString()
		ok, err := s.Rdb.SetNX(ctx, lockKey, token, lockTTL).Result()
		if err != nil {
			logger.Printf("ingest lock error (running anyway): %v", err)
		} else if !ok {
			logger.Printf("another ingestion run holds the lock, skipping tick")
			return
		} else {
			defer func() {
				if err := releaseLock.Run(ctx, s.Rdb, []string{lockKey}, token).Err(); err != nil && err != redis.Nil {
					logger.Printf("releasing ingest lock: %v", err)
				}
			}()
		}
	}

	if _, err := s.Pipeline.Run(ctx); err != nil {
		logger.Printf("scheduled ingestion run failed: %v", err)
	}
}
