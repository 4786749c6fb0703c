package csrf

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisBackend stores tokens as JSON blobs that expire server-side.
type RedisBackend struct {
	client redis.UniversalClient
	prefix string
}

// NewRedisBackend returns a Backend on the given client, namespaced by
// prefix.
func NewRedisBackend(client redis.UniversalClient, prefix string) *RedisBackend {
	if prefix == "" {
		prefix = "admingate:csrf:"
	}
	return &RedisBackend{client: client, prefix: prefix}
}

func (b *RedisBackend) Save(ctx context.Context, tok Token, ttl time.Duration) error {
	blob, err := json.Marshal(tok)
	if err != nil {
		return err
	}
	if err := b.client.Set(ctx, b.prefix+tok.Value, blob, ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}
	return nil
}

func (b *RedisBackend) Get(ctx context.Context, value string) (Token, bool, error) {
	blob, err := b.client.Get(ctx, b.prefix+value).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Token{}, false, nil
		}
		return Token{}, false, fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}

	var tok Token
	if err := json.Unmarshal(blob, &tok); err != nil {
		_ = b.client.Del(ctx, b.prefix+value).Err()
		return Token{}, false, nil
	}
	return tok, true, nil
}

// Sweep is a no-op for Redis: tokens expire with their keys.
func (b *RedisBackend) Sweep(context.Context, time.Time) (int, error) {
	return 0, nil
}
