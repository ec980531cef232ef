package domain

import (
	"sync"

	"github.com/leadline-labs/mailscout-cli/internal/model"
)

// Cache memoizes resolution outcomes per normalized company name for the
// lifetime of one pipeline run. Reads are concurrent; the first writer wins.
// Concurrent duplicate resolutions may redo the network work but agree on
// the result, since resolution is deterministic for the same inputs.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]cacheEntry
}

type cacheEntry struct {
	result model.DomainResult
	err    error
}

// NewCache creates an empty resolution cache.
func NewCache() *Cache {
	return &Cache{entries: make(map[string]cacheEntry)}
}

// Get returns the cached outcome for a normalized company name.
func (c *Cache) Get(key string) (model.DomainResult, error, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[key]
	return e.result, e.err, ok
}

// Put stores an outcome unless one is already present, and returns the
// entry that ended up cached.
func (c *Cache) Put(key string, result model.DomainResult, err error) (model.DomainResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if existing, ok := c.entries[key]; ok {
		return existing.result, existing.err
	}
	c.entries[key] = cacheEntry{result: result, err: err}
	return result, err
}

// Len returns the number of cached companies.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
