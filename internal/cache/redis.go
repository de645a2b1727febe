package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisKey = "gossipsearch:ingested_urls"

// RedisSet keeps the URL set in a redis set. Load snapshots the members into
// memory so run semantics match FileSet; Save pushes only the URLs added
// during the run.
type RedisSet struct {
	client *redis.Client
	urls   map[string]struct{}
	added  []string
}

// Conn opens and pings a redis client.
func Conn(ctx context.Context, addr, password string, db int, timeout time.Duration) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:        addr,
		DialTimeout: timeout,
		Password:    password,
		DB:          db,
	})

	pong, err := client.Ping(ctx).Result()
	if err != nil {
		return nil, err
	}
	if pong != "PONG" {
		return nil, fmt.Errorf("expected PONG, got %s", pong)
	}
	return client, nil
}

func NewRedisSet(client *redis.Client) *RedisSet {
	return &RedisSet{client: client, urls: make(map[string]struct{})}
}

func (s *RedisSet) Load(ctx context.Context) error {
	members, err := s.client.SMembers(ctx, redisKey).Result()
	if err != nil {
		return fmt.Errorf("loading url cache from redis: %w", err)
	}
	for _, m := range members {
		s.urls[m] = struct{}{}
	}
	return nil
}

func (s *RedisSet) Contains(url string) bool {
	_, ok := s.urls[url]
	return ok
}

func (s *RedisSet) Add(url string) {
	if _, ok := s.urls[url]; ok {
		return
	}
	s.urls[url] = struct{}{}
	s.added = append(s.added, url)
}

func (s *RedisSet) Len() int { return len(s.urls) }

func (s *RedisSet) Save(ctx context.Context) error {
	if len(s.added) == 0 {
		return nil
	}
	members := make([]interface{}, len(s.added))
	for i, u := range s.added {
		members[i] = u
	}
	if err := s.client.SAdd(ctx, redisKey, members...).Err(); err != nil {
		return fmt.Errorf("saving url cache to redis: %w", err)
	}
	s.added = s.added[:0]
	return nil
}
