package session

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisBackend stores each entry under prefix+key. Writes go through
// MULTI/EXEC so both entries appear together.
type RedisBackend struct {
	rdb    redis.UniversalClient
	prefix string
	ttl    time.Duration
}

// NewRedisBackend returns a backend using rdb. A zero ttl keeps entries until erased.
func NewRedisBackend(rdb redis.UniversalClient, prefix string, ttl time.Duration) *RedisBackend {
	return &RedisBackend{rdb: rdb, prefix: prefix, ttl: ttl}
}

func (r *RedisBackend) key(k string) string {
	return r.prefix + k
}

func (r *RedisBackend) Write(ctx context.Context, entries map[string][]byte) error {
	_, err := r.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for k, v := range entries {
			pipe.Set(ctx, r.key(k), v, r.ttl)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis write: %w", err)
	}
	return nil
}

func (r *RedisBackend) Read(ctx context.Context, keys []string) (map[string][]byte, error) {
	if len(keys) == 0 {
		return map[string][]byte{}, nil
	}
	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = r.key(k)
	}

	vals, err := r.rdb.MGet(ctx, full...).Result()
	if err != nil {
		return nil, fmt.Errorf("redis read: %w", err)
	}

	out := make(map[string][]byte, len(keys))
	for i, v := range vals {
		if s, ok := v.(string); ok {
			out[keys[i]] = []byte(s)
		}
	}
	return out, nil
}

func (r *RedisBackend) Erase(ctx context.Context, keys []string) error {
	if len(keys) == 0 {
		return nil
	}
	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = r.key(k)
	}
	if err := r.rdb.Del(ctx, full...).Err(); err != nil {
		return fmt.Errorf("redis erase: %w", err)
	}
	return nil
}
