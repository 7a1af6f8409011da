// Package core provides the shared caching layer of the authorization
// pipeline: the cache repository port plus the snapshot and credential cache
// services built on it. Only raw inputs are ever cached here, never decisions.
package core

import (
	"context"
	"time"
)

// CacheRepository is the port the snapshot and credential caches share; the
// data layer provides the Redis and in-memory implementations. An error from
// any method means the backend is unreachable, and callers degrade rather
// than fail the request.
type CacheRepository interface {
	// Set stores a value under key for the given TTL. A TTL of 0 means no
	// expiry.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Get returns the value stored under key, or nil when the key is absent
	// or expired.
	Get(ctx context.Context, key string) ([]byte, error)

	// Delete removes a key, reporting whether it existed.
	Delete(ctx context.Context, key string) (bool, error)

	// Exists reports whether a key is present.
	Exists(ctx context.Context, key string) (bool, error)

	// SetTTL updates the TTL of an existing key, reporting whether the key
	// was found.
	SetTTL(ctx context.Context, key string, ttl time.Duration) (bool, error)

	// SetIfNotExists atomically stores a value only when the key is absent,
	// reporting whether it was stored.
	SetIfNotExists(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error)

	// Health checks connectivity to the backend.
	Health(ctx context.Context) error
}
