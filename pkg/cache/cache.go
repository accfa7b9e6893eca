// Package cache stores compile results, estimates and rendered artifacts
// between runs.
//
// A [Cache] is a flat byte store with per-entry TTLs. Keys come from a
// [Keyer] so that the CLI and the server agree on what identifies a result:
//
//	k := cache.NewDefaultKeyer()
//	key := k.CompileKey(cache.Hash(stream), cache.CompileKeyOpts{MaxRows: 12})
//
// Backends: [FileCache] for the CLI, [RedisCache] for shared deployments
// and [NullCache] when caching is off.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// Default TTLs per entry kind.
const (
	TTLCompile  = 7 * 24 * time.Hour
	TTLEstimate = 30 * 24 * time.Hour
	TTLArtifact = 7 * 24 * time.Hour
)

// Cache is a key/value store with expiration.
type Cache interface {
	// Get returns the stored bytes and whether the key was present.
	// A missing or expired key is a miss, not an error.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores data under key. A zero ttl never expires.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	Delete(ctx context.Context, key string) error

	Close() error
}

// WithTTL returns a cache that stores every entry with ttl instead of the
// caller's. A non-positive ttl returns c unchanged.
func WithTTL(c Cache, ttl time.Duration) Cache {
	if ttl <= 0 {
		return c
	}
	return &ttlCache{Cache: c, ttl: ttl}
}

type ttlCache struct {
	Cache
	ttl time.Duration
}

func (c *ttlCache) Set(ctx context.Context, key string, data []byte, _ time.Duration) error {
	return c.Cache.Set(ctx, key, data, c.ttl)
}

// NullCache never stores anything. It backs --no-cache and the "none"
// backend.
type NullCache struct{}

// NewNullCache returns a cache that always misses.
func NewNullCache() Cache { return NullCache{} }

func (NullCache) Get(context.Context, string) ([]byte, bool, error) { return nil, false, nil }

func (NullCache) Set(context.Context, string, []byte, time.Duration) error { return nil }

func (NullCache) Delete(context.Context, string) error { return nil }

func (NullCache) Close() error { return nil }

// Hash returns the hex SHA-256 of data. Stream hashes, layout hashes and
// key digests all use it.
func Hash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
