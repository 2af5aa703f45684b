package redisclient

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache is a small JSON read-through cache used for the admin dashboard
// stats. A miss or a Redis failure just falls through to the loader.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewCache(client *redis.Client, ttl time.Duration) *Cache {
	return &Cache{client: client, ttl: ttl}
}

// GetOrLoad returns the cached value for key, or runs load and caches the
// result. dest must be a pointer; load must return a JSON-marshalable value.
func (c *Cache) GetOrLoad(ctx context.Context, key string, dest any, load func(ctx context.Context) (any, error)) error {
	if c != nil && c.client != nil {
		raw, err := c.client.Get(ctx, key).Bytes()
		if err == nil {
			if jsonErr := json.Unmarshal(raw, dest); jsonErr == nil {
				return nil
			}
			// Corrupt entry, drop it and reload.
			_ = c.client.Del(ctx, key).Err()
		} else if !errors.Is(err, redis.Nil) && ctx.Err() != nil {
			return ctx.Err()
		}
	}

	val, err := load(ctx)
	if err != nil {
		return err
	}

	raw, err := json.Marshal(val)
	if err != nil {
		return err
	}
	if c != nil && c.client != nil {
		_ = c.client.Set(ctx, key, raw, c.ttl).Err()
	}

	return json.Unmarshal(raw, dest)
}
