// Package cache provides byte-oriented response caches for OpenChain.
//
// The proxy caches successful recommendation responses so repeated searches
// do not hit the (slow, rate-limited) recommendation backend again. Three
// backends implement [Cache]:
//
//   - [NullCache]: caching disabled
//   - [FileCache]: one JSON file per entry, for CLI and single-node use
//   - [RedisCache]: shared cache for multiple server instances
//
// Use [Open] to build one from configuration:
//
//	c, err := cache.Open(ctx, cache.Options{Backend: "redis", RedisURL: "redis://localhost:6379/0"})
//	defer c.Close()
//
//	key := cache.Key("recommend", "user", "torvalds", "repo")
//	if data, ok, _ := c.Get(ctx, key); ok {
//	    return data
//	}
//	c.Set(ctx, key, body, time.Hour)
package cache

import (
	"context"
	"fmt"
	"time"
)

// Cache stores opaque byte values under string keys with an optional TTL.
// A zero TTL means the entry does not expire.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// Clearer is implemented by caches that can drop every entry they own.
type Clearer interface {
	Clear(ctx context.Context) (int, error)
}

// Backend names accepted by Open.
const (
	BackendNone  = "none"
	BackendFile  = "file"
	BackendRedis = "redis"
)

// Options selects and configures a cache backend.
type Options struct {
	Backend  string // "none", "file" or "redis"
	Dir      string // FileCache directory
	RedisURL string // redis://[:password@]host:port/db
	Prefix   string // RedisCache key prefix
}

// Open creates the cache described by opts. An empty backend disables caching.
func Open(ctx context.Context, opts Options) (Cache, error) {
	switch opts.Backend {
	case "", BackendNone:
		return NewNullCache(), nil
	case BackendFile:
		c, err := NewFileCache(opts.Dir)
		if err != nil {
			return nil, err
		}
		return c, nil
	case BackendRedis:
		c, err := NewRedisCache(ctx, opts.RedisURL, opts.Prefix)
		if err != nil {
			return nil, err
		}
		return c, nil
	default:
		return nil, fmt.Errorf("unknown cache backend %q", opts.Backend)
	}
}
