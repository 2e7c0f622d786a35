package integrity

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	defaultCacheMaxEntries = 1000
	defaultCacheCleanup    = 10 * time.Minute
)

// cacheEntry wraps a product snapshot or an explicit not-found marker.
// Entries are owned exclusively by the cache; callers only ever see copies.
type cacheEntry struct {
	snapshot  ProductSnapshot
	found     bool
	cachedAt  time.Time
	expiresAt time.Time
}

func (e cacheEntry) expired(now time.Time) bool {
	return now.After(e.expiresAt)
}

// CacheStats describes the cache's current contents.
type CacheStats struct {
	Size         int `json:"size"`
	ValidCount   int `json:"validCount"`
	ExpiredCount int `json:"expiredCount"`
}

// ReferenceCache is a bounded, TTL-based memo of product lookups. Both
// positive and negative (not-found) results are cached to avoid repeated
// failing lookups. The cache never performs I/O itself; on a miss the caller
// fetches from the catalog and calls Put.
type ReferenceCache struct {
	mu         sync.Mutex
	entries    map[uuid.UUID]cacheEntry
	ttl        time.Duration
	maxEntries int

	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}
}

// NewReferenceCache creates a cache with the given TTL and entry bound and
// starts the periodic cleanup sweep. Close must be called on shutdown.
func NewReferenceCache(ttl time.Duration, maxEntries int, cleanupInterval time.Duration) *ReferenceCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	if maxEntries <= 0 {
		maxEntries = defaultCacheMaxEntries
	}
	if cleanupInterval <= 0 {
		cleanupInterval = defaultCacheCleanup
	}

	c := &ReferenceCache{
		entries:    make(map[uuid.UUID]cacheEntry),
		ttl:        ttl,
		maxEntries: maxEntries,
		stop:       make(chan struct{}),
		done:       make(chan struct{}),
	}
	go c.cleanupLoop(cleanupInterval)
	return c
}

// Get returns the cached snapshot for a product id.
// ok reports whether a live entry exists; found reports whether the cached
// result was a real product (false means a cached not-found). Expired entries
// are evicted on access and never returned.
func (c *ReferenceCache) Get(id uuid.UUID) (snapshot ProductSnapshot, found bool, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, exists := c.entries[id]
	if !exists {
		return ProductSnapshot{}, false, false
	}
	if entry.expired(time.Now()) {
		delete(c.entries, id)
		return ProductSnapshot{}, false, false
	}
	return entry.snapshot, entry.found, true
}

// Put stores a positive lookup result.
func (c *ReferenceCache) Put(snapshot ProductSnapshot) {
	c.put(snapshot.ID, cacheEntry{snapshot: snapshot, found: true})
}

// PutNotFound stores a negative lookup result so repeated misses do not hit
// the catalog service within the TTL window.
func (c *ReferenceCache) PutNotFound(id uuid.UUID) {
	c.put(id, cacheEntry{found: false})
}

func (c *ReferenceCache) put(id uuid.UUID, entry cacheEntry) {
	now := time.Now()
	entry.cachedAt = now
	entry.expiresAt = now.Add(c.ttl)

	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[id] = entry
	if len(c.entries) > c.maxEntries {
		c.evictLocked(now)
	}
}

// Invalidate drops a single product from the cache.
func (c *ReferenceCache) Invalidate(id uuid.UUID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, id)
}

// InvalidateAll drops every cached entry.
func (c *ReferenceCache) InvalidateAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[uuid.UUID]cacheEntry)
}

// Stats returns a point-in-time view of the cache contents.
func (c *ReferenceCache) Stats() CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	stats := CacheStats{Size: len(c.entries)}
	for _, entry := range c.entries {
		if entry.expired(now) {
			stats.ExpiredCount++
		} else {
			stats.ValidCount++
		}
	}
	return stats
}

// Close stops the background cleanup sweep. Safe to call more than once.
func (c *ReferenceCache) Close() {
	c.stopOnce.Do(func() {
		close(c.stop)
		<-c.done
	})
}

func (c *ReferenceCache) cleanupLoop(interval time.Duration) {
	defer close(c.done)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.removeExpired()
		case <-c.stop:
			return
		}
	}
}

func (c *ReferenceCache) removeExpired() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	for id, entry := range c.entries {
		if entry.expired(now) {
			delete(c.entries, id)
		}
	}
}

// evictLocked enforces the size bound: expired entries are dropped first, and
// if the cache is still over budget the oldest-cached entries go next.
// Callers must hold c.mu.
func (c *ReferenceCache) evictLocked(now time.Time) {
	for id, entry := range c.entries {
		if entry.expired(now) {
			delete(c.entries, id)
		}
	}

	for len(c.entries) > c.maxEntries {
		var oldestID uuid.UUID
		var oldestAt time.Time
		first := true
		for id, entry := range c.entries {
			if first || entry.cachedAt.Before(oldestAt) {
				oldestID = id
				oldestAt = entry.cachedAt
				first = false
			}
		}
		delete(c.entries, oldestID)
	}
}
