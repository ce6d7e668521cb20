package marketdata

import (
	"context"
	"log"
	"os"
	"sync"
	"time"

	"github.com/DeanCryptoo/YabaiBot/internal/domain"
	"github.com/DeanCryptoo/YabaiBot/internal/observability"
)

// Default cache configuration.
const (
	DefaultTTL        = 20 * time.Second
	DefaultMaxEntries = 4096
)

// cacheEntry holds one cached resolution. resolved=false is a negative
// entry: the identifier recently resolved to nothing and repeat lookups are
// suppressed until it expires.
type cacheEntry struct {
	quote     domain.MarketQuote
	resolved  bool
	expiresAt time.Time
}

// CacheStats reports cumulative cache behavior for observability.
type CacheStats struct {
	Hits      uint64
	Misses    uint64
	Evictions uint64
}

// Cache fronts a Provider with a TTL map. Safe for concurrent use; each map
// operation holds the lock, but a fetch for missed identifiers runs outside
// it, so concurrent misses on the same identifier may fetch twice. That is
// acceptable: the store of truth is the provider and entries are idempotent.
type Cache struct {
	provider Provider
	ttl      time.Duration
	maxSize  int
	logger   *log.Logger

	mu      sync.RWMutex
	entries map[string]cacheEntry
	stats   CacheStats

	now func() time.Time // test hook
}

// CacheOption configures Cache.
type CacheOption func(*Cache)

// WithTTL sets the entry lifetime.
func WithTTL(d time.Duration) CacheOption {
	return func(c *Cache) {
		c.ttl = d
	}
}

// WithMaxEntries sets the capacity bound.
func WithMaxEntries(n int) CacheOption {
	return func(c *Cache) {
		c.maxSize = n
	}
}

// WithLogger sets the cache logger.
func WithLogger(l *log.Logger) CacheOption {
	return func(c *Cache) {
		c.logger = l
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) CacheOption {
	return func(c *Cache) {
		c.now = now
	}
}

// NewCache creates a cache in front of the given provider.
func NewCache(provider Provider, opts ...CacheOption) *Cache {
	c := &Cache{
		provider: provider,
		ttl:      DefaultTTL,
		maxSize:  DefaultMaxEntries,
		logger:   log.New(os.Stdout, "[marketdata] ", log.LstdFlags),
		entries:  make(map[string]cacheEntry),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Lookup returns quotes for the identifiers that resolve to a tradable pair.
// Unexpired entries (positive and negative) are served from the cache; the
// rest go to the provider in one batched call. A provider failure is logged
// and treated as an empty result for this cycle; the next natural trigger
// retries, nothing blocks on it.
func (c *Cache) Lookup(ctx context.Context, ids []string) map[string]domain.MarketQuote {
	results := make(map[string]domain.MarketQuote)
	if len(ids) == 0 {
		return results
	}

	now := c.now()
	var misses []string

	c.mu.Lock()
	for _, id := range ids {
		e, ok := c.entries[id]
		if !ok || now.After(e.expiresAt) {
			misses = append(misses, id)
			c.stats.Misses++
			continue
		}
		c.stats.Hits++
		if e.resolved {
			results[id] = e.quote
		}
	}
	c.mu.Unlock()

	observability.RecordMarketLookup(len(ids)-len(misses), len(misses))
	if len(misses) == 0 {
		return results
	}

	start := time.Now()
	fetched, err := c.provider.Lookup(ctx, misses)
	observability.RecordProviderCall(time.Since(start).Seconds(), err)
	if err != nil {
		c.logger.Printf("provider lookup failed (%d ids): %v", len(misses), err)
		for id, q := range fetched {
			results[id] = q
		}
		return results
	}

	expires := c.now().Add(c.ttl)
	c.mu.Lock()
	for _, id := range misses {
		q, ok := fetched[id]
		c.entries[id] = cacheEntry{quote: q, resolved: ok, expiresAt: expires}
		if ok {
			results[id] = q
		}
	}
	c.evictLocked()
	size := len(c.entries)
	c.mu.Unlock()

	observability.UpdateCacheSize(size)
	return results
}

// Stats returns a snapshot of cumulative cache counters.
func (c *Cache) Stats() CacheStats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.stats
}

// Len returns the current entry count.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// evictLocked enforces the capacity bound: expired entries go first, then
// arbitrary entries until under the cap. Caller holds the write lock.
func (c *Cache) evictLocked() {
	if len(c.entries) <= c.maxSize {
		return
	}

	now := c.now()
	for id, e := range c.entries {
		if now.After(e.expiresAt) {
			delete(c.entries, id)
			c.stats.Evictions++
			if len(c.entries) <= c.maxSize {
				return
			}
		}
	}
	for id := range c.entries {
		delete(c.entries, id)
		c.stats.Evictions++
		if len(c.entries) <= c.maxSize {
			return
		}
	}
}
