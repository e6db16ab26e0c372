// Package memcache implements the cache port with an in-process map.
// It stands in for the NATS KV tier in single-node mode, where no
// shared bucket exists.
package memcache

import (
	"context"
	"sync"
	"time"
)

type entry struct {
	value     []byte
	expiresAt time.Time
}

// Cache is a mutex-guarded map cache. Expired entries are dropped
// lazily on read; there is no background sweeper.
type Cache struct {
	mu   sync.Mutex
	data map[string]entry
}

// New creates an empty in-memory cache.
func New() *Cache {
	return &Cache{data: make(map[string]entry)}
}

// Get retrieves a value, treating expired entries as misses.
func (c *Cache) Get(_ context.Context, key string) (data []byte, ok bool, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, found := c.data[key]
	if !found {
		return nil, false, nil
	}
	if !e.expiresAt.IsZero() && time.Now().After(e.expiresAt) {
		delete(c.data, key)
		return nil, false, nil
	}
	return e.value, true, nil
}

// Set stores a value. A non-positive TTL means the entry never expires.
func (c *Cache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	e := entry{value: value}
	if ttl > 0 {
		e.expiresAt = time.Now().Add(ttl)
	}
	c.data[key] = e
	return nil
}

// Delete removes a value. Deleting an absent key is not an error.
func (c *Cache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.data, key)
	return nil
}

// Close drops all entries.
func (c *Cache) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.data = make(map[string]entry)
	return nil
}
