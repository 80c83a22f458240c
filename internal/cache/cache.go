// Package cache provides a generic in-memory store with per-entry TTL and
// LRU eviction. Instances are explicitly constructed and owned by the
// services that use them; Dispose stops the background sweep.
package cache

import (
	"fmt"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/timmy/gifforge/internal/logger"
)

// Entry wraps a cached value with its bookkeeping.
type Entry[V any] struct {
	Value        V
	CreatedAt    time.Time
	TTL          time.Duration
	AccessCount  int64
	LastAccessed time.Time
}

// Expired reports whether the entry's TTL has elapsed at the given instant.
func (e *Entry[V]) Expired(now time.Time) bool {
	return e.TTL > 0 && now.Sub(e.CreatedAt) >= e.TTL
}

// Stats is a point-in-time snapshot of cache counters.
type Stats struct {
	Hits      int64 `json:"hits"`
	Misses    int64 `json:"misses"`
	Evictions int64 `json:"evictions"`
	Size      int   `json:"size"`
	MaxSize   int   `json:"max_size"`
}

// Cache is a generic keyed store with per-entry TTL (checked lazily on read
// plus a periodic sweep) and LRU eviction when at capacity.
type Cache[V any] struct {
	mu   sync.Mutex
	lru  *lru.Cache[string, *Entry[V]]
	log  *logger.Logger
	name string

	defaultTTL time.Duration
	maxSize    int

	hits      int64
	misses    int64
	evictions int64

	done      chan struct{}
	closeOnce sync.Once
}

// New creates a cache and starts its cleanup sweep.
// Parameters:
//   - name: cache name used in logs.
//   - maxSize: maximum number of entries before LRU eviction.
//   - defaultTTL: TTL applied by Set; zero disables expiry.
//   - sweepInterval: period of the background expiry sweep; zero disables it.
//   - log: logger instance.
//
// Returns:
//   - *Cache[V]: initialized cache.
//   - error: non-nil when maxSize is not positive.
func New[V any](name string, maxSize int, defaultTTL, sweepInterval time.Duration, log *logger.Logger) (*Cache[V], error) {
	if maxSize <= 0 {
		return nil, fmt.Errorf("cache %q: max size must be positive, got %d", name, maxSize)
	}
	if log == nil {
		log = logger.GetDefault()
	}

	c := &Cache[V]{
		log:        log.WithField(logger.FieldComponent, "cache").WithField("cache", name),
		name:       name,
		defaultTTL: defaultTTL,
		maxSize:    maxSize,
		done:       make(chan struct{}),
	}

	inner, err := lru.New[string, *Entry[V]](maxSize)
	if err != nil {
		return nil, fmt.Errorf("cache %q: %w", name, err)
	}
	c.lru = inner

	if sweepInterval > 0 {
		go c.sweepLoop(sweepInterval)
	}
	return c, nil
}

// Get returns the value for key, updating access bookkeeping. An entry whose
// TTL has elapsed is removed and reported as a miss even if never swept.
// Parameters:
//   - key: cache key.
//
// Returns:
//   - V: cached value or the zero value.
//   - bool: true on a hit.
func (c *Cache[V]) Get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero V
	entry, ok := c.lru.Get(key)
	if !ok {
		c.misses++
		return zero, false
	}
	now := time.Now()
	if entry.Expired(now) {
		c.lru.Remove(key)
		c.misses++
		return zero, false
	}
	entry.AccessCount++
	entry.LastAccessed = now
	c.hits++
	return entry.Value, true
}

// Set stores a value under key with the default TTL.
func (c *Cache[V]) Set(key string, value V) {
	c.SetWithTTL(key, value, c.defaultTTL)
}

// SetWithTTL stores a value under key with an explicit TTL. A zero TTL means
// the entry never expires (it can still be evicted by size pressure).
func (c *Cache[V]) SetWithTTL(key string, value V, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	evicted := c.lru.Add(key, &Entry[V]{
		Value:        value,
		CreatedAt:    now,
		TTL:          ttl,
		LastAccessed: now,
	})
	if evicted {
		c.evictions++
	}
}

// Delete removes a key.
// Returns:
//   - bool: true when the key was present.
func (c *Cache[V]) Delete(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Remove(key)
}

// Clear removes all entries.
func (c *Cache[V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lru.Purge()
}

// Len returns the number of stored entries, including not-yet-swept expired ones.
func (c *Cache[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Len()
}

// Stats returns a snapshot of the cache counters.
func (c *Cache[V]) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Stats{
		Hits:      c.hits,
		Misses:    c.misses,
		Evictions: c.evictions,
		Size:      c.lru.Len(),
		MaxSize:   c.maxSize,
	}
}

// Dispose stops the background sweep. The cache remains readable; Dispose is
// idempotent and safe to call concurrently with requests.
func (c *Cache[V]) Dispose() {
	c.closeOnce.Do(func() {
		close(c.done)
	})
}

func (c *Cache[V]) sweepLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			if removed := c.sweep(); removed > 0 {
				c.log.WithField(logger.FieldCount, removed).Debug("swept expired cache entries")
			}
		}
	}
}

// sweep removes every expired entry. Peek is used so the scan does not
// disturb LRU recency order.
func (c *Cache[V]) sweep() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	removed := 0
	for _, key := range c.lru.Keys() {
		entry, ok := c.lru.Peek(key)
		if !ok {
			continue
		}
		if entry.Expired(now) {
			c.lru.Remove(key)
			removed++
		}
	}
	return removed
}
