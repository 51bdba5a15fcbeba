package cache

import (
	"context"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"todoctl/internal/app/client/metrics"
)

// FetchFunc loads the value for a key from the backend.
type FetchFunc[V any] func(ctx context.Context) (V, error)

type entry[V any] struct {
	value      V
	fetchedAt  time.Time
	stale      bool
	generation uint64
}

// Cache maps query keys to their last fetched result.
// Entries are never edited in place: a mutation marks them stale and the
// next Get refetches.
type Cache[V any] struct {
	name         string
	staleTime    time.Duration
	fetchTimeout time.Duration
	metrics      *metrics.Metrics
	now       func() time.Time

	mu      sync.Mutex
	entries map[string]*entry[V]
	// generation per requested key, bumped by every invalidation
	gens  map[string]uint64
	epoch uint64

	group singleflight.Group
}

type Option[V any] func(*Cache[V])

func WithMetrics[V any](m *metrics.Metrics) Option[V] {
	return func(c *Cache[V]) { c.metrics = m }
}

// WithFetchTimeout bounds a shared fetch. It outlives any single caller's context.
func WithFetchTimeout[V any](d time.Duration) Option[V] {
	return func(c *Cache[V]) { c.fetchTimeout = d }
}

func WithClock[V any](now func() time.Time) Option[V] {
	return func(c *Cache[V]) { c.now = now }
}

// New creates a cache. staleTime <= 0 means entries are fresh until invalidated.
func New[V any](name string, staleTime time.Duration, opts ...Option[V]) *Cache[V] {
	c := &Cache[V]{
		name:      name,
		staleTime: staleTime,
		now:       time.Now,
		entries:   make(map[string]*entry[V]),
		gens:      make(map[string]uint64),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns the fresh cached value for key or fetches it. Concurrent
// callers for the same key share one in-flight fetch; a caller whose ctx is
// done returns early without cancelling it for the others. A fetch that
// finishes after the key was invalidated is stored but stays stale.
func (c *Cache[V]) Get(ctx context.Context, key string, fetch FetchFunc[V]) (V, error) {
	c.mu.Lock()
	if e, ok := c.entries[key]; ok && c.freshLocked(e) {
		v := e.value
		c.mu.Unlock()
		c.metrics.CacheHit(c.name)
		return v, nil
	}
	if _, seen := c.gens[key]; !seen {
		c.gens[key] = 0
	}
	gen := c.generationLocked(key)
	c.mu.Unlock()

	c.metrics.CacheMiss(c.name)

	flightKey := key + "#" + strconv.FormatUint(gen, 10)
	ch := c.group.DoChan(flightKey, func() (interface{}, error) {
		fctx, cancel := c.fetchContext(ctx)
		defer cancel()

		v, err := fetch(fctx)
		if err != nil {
			return v, err
		}

		c.mu.Lock()
		current := c.generationLocked(key)
		c.entries[key] = &entry[V]{
			value:      v,
			fetchedAt:  c.now(),
			stale:      current != gen,
			generation: gen,
		}
		c.mu.Unlock()
		return v, nil
	})

	select {
	case res := <-ch:
		v, _ := res.Val.(V)
		return v, res.Err
	case <-ctx.Done():
		var zero V
		return zero, ctx.Err()
	}
}

// fetchContext keeps the caller's values but not its cancellation.
func (c *Cache[V]) fetchContext(ctx context.Context) (context.Context, context.CancelFunc) {
	base := context.WithoutCancel(ctx)
	if c.fetchTimeout > 0 {
		return context.WithTimeout(base, c.fetchTimeout)
	}
	return context.WithCancel(base)
}

// Peek returns the cached value regardless of freshness.
func (c *Cache[V]) Peek(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		var zero V
		return zero, false
	}
	return e.value, true
}

// Stale reports whether the next Get for key will fetch.
func (c *Cache[V]) Stale(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	return !ok || !c.freshLocked(e)
}

// Invalidate marks key stale. Invalidating twice is the same as once.
func (c *Cache[V]) Invalidate(key string) {
	c.mu.Lock()
	c.invalidateLocked(key)
	c.mu.Unlock()

	c.metrics.CacheInvalidated(c.name)
}

// InvalidatePrefix marks every key starting with prefix stale.
func (c *Cache[V]) InvalidatePrefix(prefix string) {
	c.mu.Lock()
	for key := range c.gens {
		if strings.HasPrefix(key, prefix) {
			c.invalidateLocked(key)
		}
	}
	c.mu.Unlock()

	c.metrics.CacheInvalidated(c.name)
}

// Clear drops every entry. In-flight fetches will store stale results.
func (c *Cache[V]) Clear() {
	c.mu.Lock()
	c.entries = make(map[string]*entry[V])
	c.gens = make(map[string]uint64)
	c.epoch++
	c.mu.Unlock()
}

func (c *Cache[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *Cache[V]) freshLocked(e *entry[V]) bool {
	if e.stale {
		return false
	}
	if c.staleTime > 0 && c.now().Sub(e.fetchedAt) >= c.staleTime {
		return false
	}
	return true
}

func (c *Cache[V]) invalidateLocked(key string) {
	c.gens[key]++
	if e, ok := c.entries[key]; ok {
		e.stale = true
	}
}

// generationLocked mixes the clear epoch into the per-key counter so that
// fetches started before Clear never look current afterwards.
func (c *Cache[V]) generationLocked(key string) uint64 {
	return c.epoch<<32 | c.gens[key]
}
