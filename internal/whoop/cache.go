package whoop

import (
	"context"
	"net/url"
	"sync"
	"time"
)

const defaultCacheCapacity = 64

// cacheEntry is replaced wholesale on refetch, never mutated in place.
type cacheEntry struct {
	value     any
	fetchedAt time.Time
	ttl       time.Duration
}

func (e cacheEntry) expired(now time.Time) bool {
	return now.Sub(e.fetchedAt) >= e.ttl
}

// Cache is a short-lived per-endpoint response cache. It shields the WHOOP
// API from redundant calls inside the provider's rate-limit window
// (100 requests/minute, 10k/day). Expired entries are evicted lazily on
// read; when capacity is exceeded the oldest entry is dropped first.
type Cache struct {
	mu       sync.Mutex
	entries  map[string]cacheEntry
	capacity int
}

// NewCache creates a cache bounded to capacity entries
func NewCache(capacity int) *Cache {
	if capacity <= 0 {
		capacity = defaultCacheCapacity
	}
	return &Cache{
		entries:  make(map[string]cacheEntry),
		capacity: capacity,
	}
}

// CacheKey builds a cache key from an endpoint path and its normalized
// query parameters. url.Values.Encode sorts keys, so parameter order
// never produces distinct keys.
func CacheKey(endpoint string, params url.Values) string {
	if len(params) == 0 {
		return endpoint
	}
	return endpoint + "?" + params.Encode()
}

// GetOrFetch returns the cached value for key while it is fresher than ttl.
// On miss it invokes fetch and stores the result. A failed or cancelled
// fetch stores nothing, so no partial entry is ever visible.
func (c *Cache) GetOrFetch(ctx context.Context, key string, ttl time.Duration, fetch func(context.Context) (any, error)) (any, error) {
	c.mu.Lock()
	if entry, ok := c.entries[key]; ok {
		if !entry.expired(time.Now()) {
			c.mu.Unlock()
			return entry.value, nil
		}
		delete(c.entries, key)
	}
	c.mu.Unlock()

	value, err := fetch(ctx)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.entries[key] = cacheEntry{value: value, fetchedAt: time.Now(), ttl: ttl}
	if len(c.entries) > c.capacity {
		c.evictOldest()
	}
	c.mu.Unlock()

	return value, nil
}

// Invalidate removes a single entry, regardless of freshness.
func (c *Cache) Invalidate(key string) {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
}

// Len reports the number of entries currently held, expired or not.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// evictOldest drops the entry with the earliest fetch time. Caller holds c.mu.
func (c *Cache) evictOldest() {
	var oldestKey string
	var oldestAt time.Time
	for key, entry := range c.entries {
		if oldestKey == "" || entry.fetchedAt.Before(oldestAt) {
			oldestKey = key
			oldestAt = entry.fetchedAt
		}
	}
	if oldestKey != "" {
		delete(c.entries, oldestKey)
	}
}
