// Package authcache holds the local authorization cache: the idTagInfo
// verdicts the central system returned for recently seen tags. The cache is
// advisory; the engine still sends Authorize, but remembers the verdicts and
// honors ClearCache.
package authcache

import (
	"sync"
	"time"

	"github.com/charging-platform/charge-point-client/internal/domain/ocpp16"
)

// entry is one cached verdict.
type entry struct {
	info     ocpp16.IdTagInfo
	cachedAt time.Time
}

// expired reports whether the verdict is past its expiry date.
func (e *entry) expired(now time.Time) bool {
	if e.info.ExpiryDate == nil {
		return false
	}
	return now.After(e.info.ExpiryDate.Time)
}

// Cache is a concurrency-safe idTag to verdict map.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]entry
}

// New returns an empty Cache.
func New() *Cache {
	return &Cache{entries: make(map[string]entry)}
}

// Put stores the verdict for a tag, replacing any earlier one.
func (c *Cache) Put(idTag string, info ocpp16.IdTagInfo) {
	c.mu.Lock()
	c.entries[idTag] = entry{info: info, cachedAt: time.Now()}
	c.mu.Unlock()
}

// Get returns the cached verdict for a tag. Expired entries are treated as
// absent and dropped.
func (c *Cache) Get(idTag string) (ocpp16.IdTagInfo, bool) {
	c.mu.RLock()
	e, ok := c.entries[idTag]
	c.mu.RUnlock()
	if !ok {
		return ocpp16.IdTagInfo{}, false
	}
	if e.expired(time.Now()) {
		c.mu.Lock()
		delete(c.entries, idTag)
		c.mu.Unlock()
		return ocpp16.IdTagInfo{}, false
	}
	return e.info, true
}

// Clear drops every entry and returns how many were held.
func (c *Cache) Clear() int {
	c.mu.Lock()
	n := len(c.entries)
	c.entries = make(map[string]entry)
	c.mu.Unlock()
	return n
}

// Size returns the number of cached verdicts.
func (c *Cache) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
