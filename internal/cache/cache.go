package cache

import (
	"sync"
	"time"
)

const (
	DefaultMaxEntries = 1000
	DefaultTTL        = time.Hour
)

type entry struct {
	value       any
	storedAt    time.Time
	accessCount int
}

// Stats is a point-in-time snapshot of cache behaviour, surfaced on the
// health endpoint.
type Stats struct {
	Size      int   `json:"size"`
	Hits      int64 `json:"hits"`
	Misses    int64 `json:"misses"`
	Evictions int64 `json:"evictions"`
}

// Cache is a TTL cache with frequency-aware eviction. When at capacity the
// entry with the lowest accessCount/age score is dropped, so rarely read
// old entries go first. A hit refreshes the entry's timestamp.
type Cache struct {
	mu         sync.Mutex
	entries    map[string]*entry
	maxEntries int
	ttl        time.Duration
	hits       int64
	misses     int64
	evictions  int64
}

func New(maxEntries int, ttl time.Duration) *Cache {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache{
		entries:    make(map[string]*entry),
		maxEntries: maxEntries,
		ttl:        ttl,
	}
}

// Get returns a fresh value. Expired entries read as absent but stay in the
// map so GetStale can still serve them until eviction reclaims the slot.
func (c *Cache) Get(key string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		c.misses++
		return nil, false
	}
	if time.Since(e.storedAt) > c.ttl {
		c.misses++
		return nil, false
	}
	e.accessCount++
	e.storedAt = time.Now()
	c.hits++
	return e.value, true
}

// GetStale returns a value regardless of its age. Used as the degraded-mode
// fallback when the upstream source is unavailable.
func (c *Cache) GetStale(key string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	return e.value, true
}

func (c *Cache) Set(key string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[key]; !exists && len(c.entries) >= c.maxEntries {
		c.evictLocked()
	}
	c.entries[key] = &entry{value: value, storedAt: time.Now()}
}

// evictLocked removes the entry with the lowest accessCount/age score.
// Caller holds the mutex.
func (c *Cache) evictLocked() {
	var victim string
	lowest := -1.0
	now := time.Now()
	for key, e := range c.entries {
		age := now.Sub(e.storedAt).Seconds()
		if age <= 0 {
			age = 1e-9
		}
		score := float64(e.accessCount) / age
		if lowest < 0 || score < lowest {
			lowest = score
			victim = key
		}
	}
	if victim != "" {
		delete(c.entries, victim)
		c.evictions++
	}
}

func (c *Cache) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}

// Reset drops every entry and zeroes the counters.
func (c *Cache) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*entry)
	c.hits, c.misses, c.evictions = 0, 0, 0
}

func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Stats{
		Size:      len(c.entries),
		Hits:      c.hits,
		Misses:    c.misses,
		Evictions: c.evictions,
	}
}
