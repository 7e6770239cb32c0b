package store

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/amishk599/jobsieve/internal/model"
)

const seenKeyPrefix = "jobsieve:seen:"

// RedisStore keeps seen posting URLs as plain keys in Redis. Each key holds
// the RFC3339 time the URL was recorded.
type RedisStore struct {
	client *redis.Client
}

var _ model.SeenStore = (*RedisStore)(nil)

// NewRedisStore parses redisURL and builds a client. Connectivity is checked
// by Initialize.
func NewRedisStore(redisURL string) (*RedisStore, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("redis.ParseURL(%q): %w", redisURL, err)
	}
	return &RedisStore{client: redis.NewClient(opts)}, nil
}

func (s *RedisStore) Initialize(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}
	return nil
}

func (s *RedisStore) Contains(ctx context.Context, url string) (bool, error) {
	n, err := s.client.Exists(ctx, seenKeyPrefix+url).Result()
	if err != nil {
		return false, fmt.Errorf("checking seen status for %s: %w", url, err)
	}
	return n > 0, nil
}

func (s *RedisStore) Record(ctx context.Context, url string) error {
	ok, err := s.client.SetNX(ctx, seenKeyPrefix+url, time.Now().UTC().Format(time.RFC3339), 0).Result()
	if err != nil {
		return fmt.Errorf("recording %s as seen: %w", url, err)
	}
	if !ok {
		return fmt.Errorf("recording %s as seen: %w", url, model.ErrDuplicateKey)
	}
	return nil
}

func (s *RedisStore) List(ctx context.Context) ([]model.SeenRecord, error) {
	var keys []string
	iter := s.client.Scan(ctx, 0, seenKeyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("scanning seen keys: %w", err)
	}
	if len(keys) == 0 {
		return nil, nil
	}

	vals, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("reading seen keys: %w", err)
	}

	records := make([]model.SeenRecord, 0, len(keys))
	for i, key := range keys {
		raw, ok := vals[i].(string)
		if !ok {
			// Key vanished between SCAN and MGET.
			continue
		}
		ts, _ := time.Parse(time.RFC3339, raw)
		records = append(records, model.SeenRecord{
			URL:         strings.TrimPrefix(key, seenKeyPrefix),
			ProcessedAt: ts,
		})
	}

	sort.Slice(records, func(i, j int) bool {
		if records[i].ProcessedAt.Equal(records[j].ProcessedAt) {
			return records[i].URL < records[j].URL
		}
		return records[i].ProcessedAt.After(records[j].ProcessedAt)
	})
	return records, nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
