package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/iho/goescrow/internal/usecase"
)

// ErrCacheMiss is returned by Get when the key is absent or expired.
var ErrCacheMiss = errors.New("cache miss")

// Cache is a string cache under "cache:<namespace>:". The balance cache and
// the stale chain cache share one database through separate namespaces.
type Cache struct {
	client *redis.Client
	prefix string
}

var _ usecase.Cache = (*Cache)(nil)

// NewCache creates a Cache for namespace.
func NewCache(client *redis.Client, namespace string) *Cache {
	return &Cache{client: client, prefix: "cache:" + namespace + ":"}
}

// Get returns ErrCacheMiss for absent or expired keys.
func (c *Cache) Get(ctx context.Context, key string) (string, error) {
	val, err := c.client.Get(ctx, c.key(key)).Result()
	switch {
	case errors.Is(err, redis.Nil):
		return "", ErrCacheMiss
	case err != nil:
		return "", fmt.Errorf("cache get %s: %w", key, err)
	}
	return val, nil
}

// Set stores value for ttl. A zero ttl keeps the key until deleted.
func (c *Cache) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if err := c.client.Set(ctx, c.key(key), value, ttl).Err(); err != nil {
		return fmt.Errorf("cache set %s: %w", key, err)
	}
	return nil
}

// Delete drops keys with a single DEL.
func (c *Cache) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}

	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = c.key(k)
	}
	if err := c.client.Del(ctx, full...).Err(); err != nil {
		return fmt.Errorf("cache delete: %w", err)
	}
	return nil
}

func (c *Cache) key(k string) string {
	return c.prefix + k
}
