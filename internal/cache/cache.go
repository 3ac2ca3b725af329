// Package cache provides a TTL-keyed cache for idempotent external lookups.
package cache

import (
	"sync"
	"time"
)

// DefaultTTL matches the upstream data providers' acceptable staleness.
const DefaultTTL = 15 * time.Minute

type entry struct {
	value    string
	storedAt time.Time
}

// Cache is a concurrency-safe map with lazy TTL expiry. Expired entries are
// treated as absent and overwritten on the next Set; they are never actively
// evicted. Writes are last-write-wins.
type Cache struct {
	mu      sync.RWMutex
	ttl     time.Duration
	now     func() time.Time
	entries map[string]entry
}

// New creates a cache with the given TTL.
func New(ttl time.Duration) *Cache {
	return NewWithClock(ttl, time.Now)
}

// NewWithClock creates a cache with an injectable clock for tests.
func NewWithClock(ttl time.Duration, now func() time.Time) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache{
		ttl:     ttl,
		now:     now,
		entries: make(map[string]entry),
	}
}

// Get returns the cached value for key, if present and fresh.
func (c *Cache) Get(key string) (string, bool) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok {
		return "", false
	}
	if c.now().Sub(e.storedAt) >= c.ttl {
		return "", false
	}
	return e.value, true
}

// Set stores value under key, restarting its TTL.
func (c *Cache) Set(key, value string) {
	c.mu.Lock()
	c.entries[key] = entry{value: value, storedAt: c.now()}
	c.mu.Unlock()
}
