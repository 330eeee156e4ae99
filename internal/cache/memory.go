package cache

import (
	"context"
	"sync"
	"time"

	domain "github.com/mbaumgartner/flipradar/pkg/types"
)

type memoryEntry struct {
	estimate  domain.PriceEstimate
	expiresAt time.Time
}

// MemoryCache is an in-process PriceCache with TTL expiry. Expired
// entries are evicted lazily on read.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	ttl     time.Duration
	nowFunc func() time.Time
}

// MemoryCacheOption configures the MemoryCache.
type MemoryCacheOption func(*MemoryCache)

// WithMemoryNowFunc overrides the time function for testing.
func WithMemoryNowFunc(f func() time.Time) MemoryCacheOption {
	return func(c *MemoryCache) {
		c.nowFunc = f
	}
}

// NewMemoryCache creates a MemoryCache with the given TTL.
func NewMemoryCache(ttl time.Duration, opts ...MemoryCacheOption) *MemoryCache {
	c := &MemoryCache{
		entries: make(map[string]memoryEntry),
		ttl:     ttl,
		nowFunc: time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get fetches a cached estimate, treating expired entries as misses.
func (c *MemoryCache) Get(_ context.Context, identityKey string) (domain.PriceEstimate, bool, error) {
	c.mu.RLock()
	entry, ok := c.entries[identityKey]
	c.mu.RUnlock()

	if !ok {
		return domain.PriceEstimate{}, false, nil
	}
	if c.nowFunc().After(entry.expiresAt) {
		c.mu.Lock()
		delete(c.entries, identityKey)
		c.mu.Unlock()
		return domain.PriceEstimate{}, false, nil
	}
	return entry.estimate, true, nil
}

// Set stores an estimate.
func (c *MemoryCache) Set(_ context.Context, identityKey string, estimate domain.PriceEstimate) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[identityKey] = memoryEntry{
		estimate:  estimate,
		expiresAt: c.nowFunc().Add(c.ttl),
	}
	return nil
}

// Delete removes an entry.
func (c *MemoryCache) Delete(_ context.Context, identityKey string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, identityKey)
	return nil
}

// Close is a no-op.
func (c *MemoryCache) Close() error {
	return nil
}

// Len returns the number of live entries, expired included.
func (c *MemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
