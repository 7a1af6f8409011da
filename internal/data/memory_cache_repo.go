package data

import (
	"container/list"
	"context"
	"sync"
	"time"
)

// MemoryCacheRepo implements core.CacheRepository with an in-process LRU and
// per-entry TTL. It backs deployments without Redis (local development,
// single-instance setups); entries are lost on restart and never shared
// across instances. Values are copied on both paths so callers cannot alias
// the stored slice. Safe for concurrent use.
type MemoryCacheRepo struct {
	mu    sync.Mutex
	cap   int
	ll    *list.List               // front = most-recently used
	items map[string]*list.Element // key -> element
	now   func() time.Time
}

type memEntry struct {
	key    string
	value  []byte
	expiry time.Time // zero means no expiry
}

// MemoryCacheConfig groups constructor options for MemoryCacheRepo.
type MemoryCacheConfig struct {
	Capacity int
	Now      func() time.Time
}

// NewMemoryCacheRepo creates a MemoryCacheRepo with the given config.
func NewMemoryCacheRepo(cfg MemoryCacheConfig) *MemoryCacheRepo {
	capacity := cfg.Capacity
	if capacity <= 0 {
		capacity = 1024
	}
	nowFn := cfg.Now
	if nowFn == nil {
		nowFn = time.Now
	}
	return &MemoryCacheRepo{
		cap:   capacity,
		ll:    list.New(),
		items: make(map[string]*list.Element, capacity),
		now:   nowFn,
	}
}

// Set inserts or updates a value. A non-positive TTL stores it without expiry.
func (c *MemoryCacheRepo) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	if key == "" {
		return errEmptyKey
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.set(key, value, ttl)
	return nil
}

// Get returns the value stored under key, or nil when absent or expired.
func (c *MemoryCacheRepo) Get(_ context.Context, key string) ([]byte, error) {
	if key == "" {
		return nil, errEmptyKey
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	ent := c.lookup(key)
	if ent == nil {
		return nil, nil
	}
	out := make([]byte, len(ent.value))
	copy(out, ent.value)
	return out, nil
}

// Delete removes key and reports whether it existed.
func (c *MemoryCacheRepo) Delete(_ context.Context, key string) (bool, error) {
	if key == "" {
		return false, errEmptyKey
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.items[key]
	if !ok {
		return false, nil
	}
	c.remove(el)
	return true, nil
}

// Exists reports whether key is present and not expired.
func (c *MemoryCacheRepo) Exists(_ context.Context, key string) (bool, error) {
	if key == "" {
		return false, errEmptyKey
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lookup(key) != nil, nil
}

// SetTTL replaces the TTL of an existing key and reports whether the key was
// found.
func (c *MemoryCacheRepo) SetTTL(_ context.Context, key string, ttl time.Duration) (bool, error) {
	if key == "" {
		return false, errEmptyKey
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	ent := c.lookup(key)
	if ent == nil {
		return false, nil
	}
	ent.expiry = c.expiry(ttl)
	return true, nil
}

// SetIfNotExists stores the value only when the key is absent or expired.
func (c *MemoryCacheRepo) SetIfNotExists(_ context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	if key == "" {
		return false, errEmptyKey
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.lookup(key) != nil {
		return false, nil
	}
	c.set(key, value, ttl)
	return true, nil
}

// Health always succeeds; the process owns the cache.
func (c *MemoryCacheRepo) Health(context.Context) error {
	return nil
}

// Len returns the current number of live entries.
func (c *MemoryCacheRepo) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ll.Len()
}

// --- internals, caller holds c.mu ---

// lookup returns the live entry for key, dropping it when expired, and marks
// it recently used.
func (c *MemoryCacheRepo) lookup(key string) *memEntry {
	el, ok := c.items[key]
	if !ok {
		return nil
	}
	ent := el.Value.(*memEntry)
	if !ent.expiry.IsZero() && c.now().After(ent.expiry) {
		c.remove(el)
		return nil
	}
	c.ll.MoveToFront(el)
	return ent
}

func (c *MemoryCacheRepo) set(key string, value []byte, ttl time.Duration) {
	stored := make([]byte, len(value))
	copy(stored, value)

	if el, ok := c.items[key]; ok {
		ent := el.Value.(*memEntry)
		ent.value = stored
		ent.expiry = c.expiry(ttl)
		c.ll.MoveToFront(el)
		return
	}

	c.items[key] = c.ll.PushFront(&memEntry{key: key, value: stored, expiry: c.expiry(ttl)})
	for c.ll.Len() > c.cap {
		oldest := c.ll.Back()
		if oldest == nil {
			return
		}
		c.remove(oldest)
	}
}

func (c *MemoryCacheRepo) remove(el *list.Element) {
	c.ll.Remove(el)
	delete(c.items, el.Value.(*memEntry).key)
}

func (c *MemoryCacheRepo) expiry(ttl time.Duration) time.Time {
	if ttl <= 0 {
		return time.Time{}
	}
	return c.now().Add(ttl)
}
