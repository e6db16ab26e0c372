// Package tiered implements a two-level (L1 + L2) cache adapter.
package tiered

import (
	"context"
	"errors"
	"time"

	"github.com/Lambertain/ai-agent-factory-sub002/internal/port/cache"
)

// Cache layers an in-process L1 over a remote L2. Reads prefer L1 and
// backfill it on an L2 hit; writes and deletes touch both levels.
type Cache struct {
	l1       cache.Cache
	l2       cache.Cache
	l1Expire time.Duration
}

// New creates a tiered cache. l1Expire bounds how long L2 backfill
// entries live in L1.
func New(l1, l2 cache.Cache, l1Expire time.Duration) *Cache {
	return &Cache{l1: l1, l2: l2, l1Expire: l1Expire}
}

// Get checks L1, then L2. An L1 failure degrades to an L2 read rather
// than failing the lookup. On an L2 hit the value is backfilled into
// L1, best-effort.
func (c *Cache) Get(ctx context.Context, key string) (data []byte, ok bool, err error) {
	val, found, l1Err := c.l1.Get(ctx, key)
	if l1Err == nil && found {
		return val, true, nil
	}

	val, found, err = c.l2.Get(ctx, key)
	if err != nil {
		return nil, false, err
	}
	if found {
		_ = c.l1.Set(ctx, key, val, c.l1Expire)
		return val, true, nil
	}

	return nil, false, nil
}

// Set writes both levels. Both writes are attempted even when the
// first fails; the returned error joins whatever failed.
func (c *Cache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return errors.Join(
		c.l1.Set(ctx, key, value, ttl),
		c.l2.Set(ctx, key, value, ttl),
	)
}

// Delete removes the key from both levels. A failed L1 delete must not
// leave the shared L2 holding the stale entry, so both are always
// attempted.
func (c *Cache) Delete(ctx context.Context, key string) error {
	return errors.Join(
		c.l1.Delete(ctx, key),
		c.l2.Delete(ctx, key),
	)
}

// Close closes both levels.
func (c *Cache) Close() error {
	return errors.Join(c.l1.Close(), c.l2.Close())
}
