// Package cache keeps a bounded-staleness, in-memory snapshot of every
// application so reads avoid a remote round trip.
//
// Concurrent callers that find the snapshot stale share one load. A load
// that overlaps an invalidation or an in-place mutation still answers its
// waiters but does not install its result, so a write is never overwritten
// by a snapshot fetched before it.
package cache

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/JonMunkholm/jobtrack/internal/tracker"
)

// DefaultTTL is the staleness bound applied when none is configured.
const DefaultTTL = 5 * time.Minute

const loadKey = "snapshot"

// Loader fetches every record from the backing store.
type Loader func(ctx context.Context) ([]tracker.Application, error)

// Options configures a Cache.
type Options struct {
	TTL time.Duration
	Now func() time.Time
}

// Cache holds the snapshot. It is safe for concurrent use.
type Cache struct {
	load Loader
	ttl  time.Duration
	now  func() time.Time

	group singleflight.Group

	mu       sync.Mutex
	records  []tracker.Application
	loaded   bool
	loadedAt time.Time
	gen      uint64
}

// New returns an empty cache filled by load.
func New(load Loader, opts Options) *Cache {
	if opts.TTL <= 0 {
		opts.TTL = DefaultTTL
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Cache{load: load, ttl: opts.TTL, now: opts.Now}
}

// EnsureFresh returns a copy of the snapshot, loading it first when it is
// absent or older than the TTL. The shared load is not cancelled when ctx
// is; the caller only stops waiting for it.
func (c *Cache) EnsureFresh(ctx context.Context) ([]tracker.Application, error) {
	c.mu.Lock()
	if c.loaded && c.now().Sub(c.loadedAt) < c.ttl {
		out := tracker.CloneAll(c.records)
		c.mu.Unlock()
		return out, nil
	}
	c.mu.Unlock()

	ch := c.group.DoChan(loadKey, func() (any, error) {
		return c.fill(context.WithoutCancel(ctx))
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return tracker.CloneAll(res.Val.([]tracker.Application)), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// fill runs one load and installs it unless the cache changed meanwhile.
func (c *Cache) fill(ctx context.Context) ([]tracker.Application, error) {
	c.mu.Lock()
	gen := c.gen
	c.mu.Unlock()

	apps, err := c.load(ctx)
	if err != nil {
		return nil, err
	}

	records := make([]tracker.Application, 0, len(apps))
	for _, a := range apps {
		if a.ID != "" {
			records = append(records, a.Clone())
		}
	}

	// Waiters copy from shared; the installed slice is mutated in place later.
	shared := tracker.CloneAll(records)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gen == gen {
		c.records = records
		c.loaded = true
		c.loadedAt = c.now()
	}
	return shared, nil
}

// Invalidate drops the snapshot. The next EnsureFresh reloads, even if a
// load is already running.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	c.gen++
	c.records = nil
	c.loaded = false
	c.mu.Unlock()
	c.group.Forget(loadKey)
}

// Insert appends rec to the snapshot. It reports false, and stores
// nothing, when no snapshot is present.
func (c *Cache) Insert(rec tracker.Application) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gen++
	if !c.loaded {
		return false
	}
	c.records = append(c.records, rec.Clone())
	return true
}

// Replace swaps the record with id for rec, keeping its position in the
// snapshot. It reports false when no snapshot is present or id is absent.
func (c *Cache) Replace(id string, rec tracker.Application) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gen++
	if !c.loaded {
		return false
	}
	for i := range c.records {
		if c.records[i].ID == id {
			c.records[i] = rec.Clone()
			return true
		}
	}
	return false
}

// Remove deletes the record with id. It reports false when no snapshot is
// present or id is absent.
func (c *Cache) Remove(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gen++
	if !c.loaded {
		return false
	}
	for i := range c.records {
		if c.records[i].ID == id {
			c.records = append(c.records[:i], c.records[i+1:]...)
			return true
		}
	}
	return false
}
