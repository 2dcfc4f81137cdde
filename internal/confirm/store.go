package confirm

import (
	"context"
	"fmt"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/redis/go-redis/v9"
)

// ConsumedStore records exchanged codes. MarkConsumed reports false when the
// code was already recorded; the check and the write are one atomic step.
// Release forgets a recorded code so a failed exchange can be retried.
type ConsumedStore interface {
	MarkConsumed(ctx context.Context, code string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, code string) error
}

const redisKeyPrefix = "confirm:used:"

type RedisConsumedStore struct {
	client *redis.Client
}

func NewRedisConsumedStore(client *redis.Client) *RedisConsumedStore {
	return &RedisConsumedStore{client: client}
}

// DialRedis parses a redis:// URL and verifies the connection.
func DialRedis(ctx context.Context, url, password string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	if password != "" {
		opts.Password = password
	}
	opts.DialTimeout = 5 * time.Second
	opts.ReadTimeout = 3 * time.Second
	opts.WriteTimeout = 3 * time.Second

	rdb := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return rdb, nil
}

func (s *RedisConsumedStore) MarkConsumed(ctx context.Context, code string, ttl time.Duration) (bool, error) {
	ok, err := s.client.SetNX(ctx, redisKeyPrefix+code, 1, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("mark code consumed: %w", err)
	}
	return ok, nil
}

func (s *RedisConsumedStore) Release(ctx context.Context, code string) error {
	if err := s.client.Del(ctx, redisKeyPrefix+code).Err(); err != nil {
		return fmt.Errorf("release code: %w", err)
	}
	return nil
}

// MemoryConsumedStore is the single-process fallback used when no redis is
// configured.
type MemoryConsumedStore struct {
	cache *cache.Cache
}

func NewMemoryConsumedStore(cleanup time.Duration) *MemoryConsumedStore {
	return &MemoryConsumedStore{cache: cache.New(cache.NoExpiration, cleanup)}
}

func (s *MemoryConsumedStore) MarkConsumed(_ context.Context, code string, ttl time.Duration) (bool, error) {
	// Add fails when the key is present and unexpired.
	if err := s.cache.Add(code, struct{}{}, ttl); err != nil {
		return false, nil
	}
	return true, nil
}

func (s *MemoryConsumedStore) Release(_ context.Context, code string) error {
	s.cache.Delete(code)
	return nil
}
