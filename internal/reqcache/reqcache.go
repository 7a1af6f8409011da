// Package reqcache provides a per-request memoization cache for access
// snapshots. A Cache is created when a request is authenticated, carried in
// the request context, and discarded when the request completes. It is owned
// exclusively by its request's goroutine, so it needs no locking, and it must
// never be stored inside any longer-lived component.
package reqcache

import (
	"context"

	"github.com/spaarke-dev/spaarke-sub016/internal/domain/access"
)

// Cache memoizes snapshots within a single request so repeated checks for the
// same resource (middleware plus handler, or multi-document requests) hit the
// source and the shared cache only once.
type Cache struct {
	snapshots map[string]access.Snapshot
}

// New creates an empty request cache.
func New() *Cache {
	return &Cache{snapshots: make(map[string]access.Snapshot)}
}

// Key builds the memoization key for a caller/resource pair.
func Key(callerID, resourceID string) string {
	return callerID + ":" + resourceID
}

// Get returns the memoized snapshot for the key, if present.
func (c *Cache) Get(key string) (access.Snapshot, bool) {
	if c == nil {
		return access.Snapshot{}, false
	}
	s, ok := c.snapshots[key]
	return s, ok
}

// Set memoizes a snapshot under the key.
func (c *Cache) Set(key string, s access.Snapshot) {
	if c == nil {
		return
	}
	c.snapshots[key] = s
}

// Len returns the number of memoized snapshots.
func (c *Cache) Len() int {
	if c == nil {
		return 0
	}
	return len(c.snapshots)
}

// cacheKey is an unexported context key type to avoid collisions across
// packages.
type cacheKey struct{}

// NewContext returns a child context carrying the given cache. A nil cache
// returns the original ctx unchanged.
func NewContext(ctx context.Context, c *Cache) context.Context {
	if c == nil {
		return ctx
	}
	return context.WithValue(ctx, cacheKey{}, c)
}

// FromContext returns the request cache from ctx and a boolean indicating
// presence. Callers outside a request (CLI, tests) simply get ok=false and
// skip memoization.
func FromContext(ctx context.Context) (*Cache, bool) {
	if c, ok := ctx.Value(cacheKey{}).(*Cache); ok && c != nil {
		return c, true
	}
	return nil, false
}
