package services

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"tourbooking/internal/metrics"

	"github.com/redis/go-redis/v9"
)

// Cache stores JSON-encoded values under string keys.
type Cache interface {
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, v any, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
	DeletePrefix(ctx context.Context, prefix string) error
}

// RedisCache is the Cache used when REDIS_ADDR is configured.
type RedisCache struct {
	RDB    *redis.Client
	Prefix string
}

func (c RedisCache) key(k string) string {
	if c.Prefix == "" {
		return "tourbooking:" + k
	}
	return c.Prefix + ":" + k
}

func (c RedisCache) Get(ctx context.Context, key string, dst any) (bool, error) {
	raw, err := c.RDB.Get(ctx, c.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, json.Unmarshal(raw, dst)
}

func (c RedisCache) Set(ctx context.Context, key string, v any, ttl time.Duration) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.RDB.Set(ctx, c.key(key), raw, ttl).Err()
}

func (c RedisCache) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	full := make([]string, 0, len(keys))
	for _, k := range keys {
		full = append(full, c.key(k))
	}
	return c.RDB.Del(ctx, full...).Err()
}

// DeletePrefix removes every key starting with prefix. prefix must not
// contain glob metacharacters.
func (c RedisCache) DeletePrefix(ctx context.Context, prefix string) error {
	iter := c.RDB.Scan(ctx, 0, c.key(prefix)+"*", 100).Iterator()
	var batch []string
	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) == 100 {
			if err := c.RDB.Del(ctx, batch...).Err(); err != nil {
				return err
			}
			batch = batch[:0]
		}
	}
	if err := iter.Err(); err != nil {
		return err
	}
	if len(batch) == 0 {
		return nil
	}
	return c.RDB.Del(ctx, batch...).Err()
}

// NoopCache never hits.
type NoopCache struct{}

func (NoopCache) Get(context.Context, string, any) (bool, error)        { return false, nil }
func (NoopCache) Set(context.Context, string, any, time.Duration) error { return nil }
func (NoopCache) Delete(context.Context, ...string) error               { return nil }
func (NoopCache) DeletePrefix(context.Context, string) error            { return nil }

// cached reads key through c, filling it from load on a miss.
// Cache failures are logged by the caller's metrics and never fail the request.
func cached[T any](ctx context.Context, c Cache, name, key string, ttl time.Duration, load func() (T, error)) (T, error) {
	if c == nil {
		return load()
	}
	var out T
	hit, err := c.Get(ctx, key, &out)
	switch {
	case err != nil:
		metrics.CacheLookups.WithLabelValues(name, "error").Inc()
	case hit:
		metrics.CacheLookups.WithLabelValues(name, "hit").Inc()
		return out, nil
	default:
		metrics.CacheLookups.WithLabelValues(name, "miss").Inc()
	}

	out, err = load()
	if err != nil {
		return out, err
	}
	_ = c.Set(ctx, key, out, ttl)
	return out, nil
}
