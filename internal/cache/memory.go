package cache

import (
	"context"
	"sync"
	"time"
)

type memoryEntry struct {
	payload   []byte
	expiresAt time.Time
}

// MemoryCache is a process-local ResultCache guarded by a read-write mutex.
// Expiry is passive: entries are checked on read and overwritten on write;
// there is no background sweeper. With a TTL in the tens of seconds the
// resident set stays bounded by the distinct-query working set.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry

	// now is overridable in tests.
	now func() time.Time
}

// NewMemoryCache creates an empty MemoryCache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{
		entries: make(map[string]memoryEntry),
		now:     time.Now,
	}
}

// Get returns the payload for key if present and unexpired.
func (c *MemoryCache) Get(_ context.Context, key string) ([]byte, bool) {
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()

	if !ok {
		return nil, false
	}
	if c.now().After(entry.expiresAt) {
		c.mu.Lock()
		// Re-check under the write lock: a concurrent Put may have refreshed
		// the entry since the read.
		if cur, ok := c.entries[key]; ok && c.now().After(cur.expiresAt) {
			delete(c.entries, key)
		}
		c.mu.Unlock()
		return nil, false
	}

	out := make([]byte, len(entry.payload))
	copy(out, entry.payload)
	return out, true
}

// Put stores payload under key for ttl. A non-positive ttl is a no-op.
func (c *MemoryCache) Put(_ context.Context, key string, payload []byte, ttl time.Duration) {
	if ttl <= 0 {
		return
	}

	stored := make([]byte, len(payload))
	copy(stored, payload)

	c.mu.Lock()
	c.entries[key] = memoryEntry{
		payload:   stored,
		expiresAt: c.now().Add(ttl),
	}
	c.mu.Unlock()
}

// Len returns the number of resident entries, expired or not.
func (c *MemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
