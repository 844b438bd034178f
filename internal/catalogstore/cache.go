package catalogstore

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/ironlake-data/catalog/internal/platform/applog"
	ironredis "github.com/ironlake-data/catalog/internal/platform/redis"
)

// InvalidationPolicy controls how the cache decides a cached read is still
// usable.
type InvalidationPolicy int

const (
	// PolicyUse returns whatever is cached without checking freshness —
	// appropriate for data that changes rarely, like a warehouse's storage
	// profile between commits.
	PolicyUse InvalidationPolicy = iota
	// PolicyRequireMinimumVersion discards a cached entry whose version is
	// older than the version the caller already knows about, forcing a
	// fresh read after any write the caller itself observed.
	PolicyRequireMinimumVersion
	// PolicySkip bypasses the cache entirely.
	PolicySkip
)

// Versioned is implemented by any cached payload so the cache can apply
// PolicyRequireMinimumVersion without type-specific logic.
type Versioned interface {
	CacheVersion() int64
}

// Cache wraps a redis client with version-aware read-through semantics in
// front of WarehouseRepository lookups and secrets.CachedStore, built as a
// typed helper so callers never touch *redis.Client directly.
type Cache struct {
	conn   *ironredis.Connection
	log    applog.Logger
	prefix string
	ttl    time.Duration
}

// NewCache builds a Cache. ttl bounds how long an entry is trusted even
// under PolicyUse, so a backend outage cannot pin stale data forever.
func NewCache(conn *ironredis.Connection, log applog.Logger, prefix string, ttl time.Duration) *Cache {
	return &Cache{conn: conn, log: log, prefix: prefix, ttl: ttl}
}

func (c *Cache) key(kind, id string) string {
	return fmt.Sprintf("%s:%s:%s", c.prefix, kind, id)
}

// Get reads a cached value of kind T for (kind, id), applying policy. A
// cache miss or disabled policy returns ok == false, never an error —
// backend unavailability degrades to "go read postgres" rather than
// surfacing as a request failure.
func Get[T Versioned](ctx context.Context, c *Cache, kind, id string, policy InvalidationPolicy, minVersion int64) (value T, ok bool) {
	var zero T

	if policy == PolicySkip {
		return zero, false
	}

	client, err := c.conn.Client(ctx)
	if err != nil {
		c.log.Warnf("cache unavailable, falling back to store: %v", err)
		return zero, false
	}

	raw, err := client.Get(ctx, c.key(kind, id)).Bytes()
	if err != nil {
		if err != goredis.Nil {
			c.log.Warnf("cache read error for %s/%s: %v", kind, id, err)
		}

		return zero, false
	}

	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		c.log.Warnf("corrupt cache entry for %s/%s: %v", kind, id, err)
		return zero, false
	}

	if policy == PolicyRequireMinimumVersion && v.CacheVersion() < minVersion {
		return zero, false
	}

	return v, true
}

// Put writes value into the cache under (kind, id), best-effort: a failure
// to cache is logged and swallowed, never returned to the caller.
func Put[T Versioned](ctx context.Context, c *Cache, kind, id string, value T) {
	client, err := c.conn.Client(ctx)
	if err != nil {
		return
	}

	raw, err := json.Marshal(value)
	if err != nil {
		c.log.Warnf("failed to marshal cache entry for %s/%s: %v", kind, id, err)
		return
	}

	if err := client.Set(ctx, c.key(kind, id), raw, c.ttl).Err(); err != nil {
		c.log.Warnf("failed to write cache entry for %s/%s: %v", kind, id, err)
	}
}

// Invalidate removes a cached entry, called after any write to its entity
// so a subsequent PolicyUse read does not serve stale data past this
// request's own mutation.
func (c *Cache) Invalidate(ctx context.Context, kind, id string) {
	client, err := c.conn.Client(ctx)
	if err != nil {
		return
	}

	if err := client.Del(ctx, c.key(kind, id)).Err(); err != nil {
		c.log.Warnf("failed to invalidate cache entry for %s/%s: %v", kind, id, err)
	}
}
