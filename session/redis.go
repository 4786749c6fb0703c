package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisBackend stores session records as JSON blobs with a server-side TTL
// and keeps a per-identity set for forced multi-device logout. It is the
// shared-store alternative to MemoryBackend for multi-process deployments.
type RedisBackend struct {
	client redis.UniversalClient
	prefix string
}

// NewRedisBackend returns a Backend on the given client. All keys are
// namespaced under prefix.
func NewRedisBackend(client redis.UniversalClient, prefix string) *RedisBackend {
	if prefix == "" {
		prefix = "admingate:sess:"
	}
	return &RedisBackend{client: client, prefix: prefix}
}

func (b *RedisBackend) Save(ctx context.Context, rec Record, ttl time.Duration) error {
	blob, err := json.Marshal(rec)
	if err != nil {
		return err
	}

	pipe := b.client.TxPipeline()
	pipe.Set(ctx, b.recordKey(rec.Token), blob, ttl)
	pipe.SAdd(ctx, b.identityKey(rec.IdentityID), rec.Token)
	// The index must not outlive the last record it could reference.
	pipe.Expire(ctx, b.identityKey(rec.IdentityID), ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}
	return nil
}

func (b *RedisBackend) Get(ctx context.Context, token string) (Record, bool, error) {
	blob, err := b.client.Get(ctx, b.recordKey(token)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Record{}, false, nil
		}
		return Record{}, false, fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}

	var rec Record
	if err := json.Unmarshal(blob, &rec); err != nil {
		// A corrupt blob is unusable; treat as absent.
		_ = b.client.Del(ctx, b.recordKey(token)).Err()
		return Record{}, false, nil
	}
	return rec, true, nil
}

func (b *RedisBackend) Delete(ctx context.Context, token string) error {
	rec, ok, err := b.Get(ctx, token)
	if err != nil {
		return err
	}

	pipe := b.client.TxPipeline()
	pipe.Del(ctx, b.recordKey(token))
	if ok {
		pipe.SRem(ctx, b.identityKey(rec.IdentityID), token)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}
	return nil
}

func (b *RedisBackend) DeleteAllForIdentity(ctx context.Context, identityID string) (int, error) {
	tokens, err := b.client.SMembers(ctx, b.identityKey(identityID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}
	if len(tokens) == 0 {
		return 0, nil
	}

	keys := make([]string, 0, len(tokens)+1)
	for _, tok := range tokens {
		keys = append(keys, b.recordKey(tok))
	}
	keys = append(keys, b.identityKey(identityID))
	if err := b.client.Del(ctx, keys...).Err(); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}
	return len(tokens), nil
}

// Sweep is a no-op for Redis: record keys expire server-side, and identity
// index entries are trimmed on Delete. Kept to satisfy Backend.
func (b *RedisBackend) Sweep(context.Context, time.Time) (int, error) {
	return 0, nil
}

func (b *RedisBackend) recordKey(token string) string {
	return b.prefix + token
}

func (b *RedisBackend) identityKey(identityID string) string {
	return b.prefix + "idx:" + identityID
}
