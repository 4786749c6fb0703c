package lockout

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps failure counters in Redis. The cooldown window is the
// key TTL, refreshed on every increment so the gate is measured from the
// most recent failure; retention beyond the window is handled by Redis
// expiry itself.
type RedisStore struct {
	client redis.UniversalClient
	prefix string
	window time.Duration
}

// NewRedisStore returns a Store on the given client, namespaced by prefix.
func NewRedisStore(client redis.UniversalClient, prefix string, cfg Config) *RedisStore {
	if prefix == "" {
		prefix = "admingate:lock:"
	}
	return &RedisStore{client: client, prefix: prefix, window: cfg.Window}
}

func (s *RedisStore) Incr(ctx context.Context, key string) (int, error) {
	pipe := s.client.TxPipeline()
	incr := pipe.Incr(ctx, s.prefix+key)
	pipe.Expire(ctx, s.prefix+key, s.window)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return int(incr.Val()), nil
}

func (s *RedisStore) Peek(ctx context.Context, key string) (int, time.Duration, error) {
	count, err := s.client.Get(ctx, s.prefix+key).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, 0, nil
		}
		return 0, 0, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	remaining, err := s.client.PTTL(ctx, s.prefix+key).Result()
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if remaining < 0 {
		remaining = 0
	}
	return int(count), remaining, nil
}

func (s *RedisStore) Delete(ctx context.Context, keys ...string) error {
	full := make([]string, len(keys))
	for i, key := range keys {
		full[i] = s.prefix + key
	}
	if err := s.client.Del(ctx, full...).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

// Sweep is a no-op for Redis: counters expire with their keys.
func (s *RedisStore) Sweep(context.Context) (int, error) {
	return 0, nil
}
