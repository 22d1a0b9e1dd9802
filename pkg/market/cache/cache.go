package cache

import (
	"context"
	"sync"
	"time"

	"github.com/zeromicro/go-zero/core/logx"
	"github.com/zeromicro/go-zero/core/syncx"
)

type entry[V any] struct {
	storedAt time.Time
	value    V
}

// Cache is a TTL cache with an opt-in stale-if-error window. Expired entries are kept and served
// only when a recompute fails within the max-stale window past the TTL.
type Cache[V any] struct {
	name     string
	ttl      time.Duration
	maxStale time.Duration
	now      func() time.Time
	flight   syncx.SingleFlight

	mu      sync.RWMutex
	entries map[string]entry[V]
}

// Option configures a Cache.
type Option func(*options)

type options struct {
	maxStale time.Duration
	now      func() time.Time
}

// WithClock injects the time source.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

// WithMaxStale lets an expired value stand in for a failed recompute for up to d past the TTL.
// Without it, compute errors always propagate once an entry has expired.
func WithMaxStale(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.maxStale = d
		}
	}
}

// New creates a cache whose entries are fresh for ttl.
func New[V any](name string, ttl time.Duration, opts ...Option) *Cache[V] {
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return &Cache[V]{
		name:     name,
		ttl:      ttl,
		maxStale: o.maxStale,
		now:      o.now,
		flight:   syncx.NewSingleFlight(),
		entries:  make(map[string]entry[V]),
	}
}

// GetOrCompute serves a fresh entry, otherwise computes and stores a new value. When compute
// fails and the previous value is still inside the max-stale window, that value is returned and
// the failure is logged.
func (c *Cache[V]) GetOrCompute(ctx context.Context, key string, compute func(context.Context) (V, error)) (V, error) {
	if v, ok := c.Fresh(key); ok {
		return v, nil
	}

	result, err := c.flight.Do(key, func() (any, error) {
		return compute(ctx)
	})
	if err == nil {
		v := result.(V)
		c.Set(key, v)
		return v, nil
	}

	if stale, ok := c.stale(key); ok {
		logx.WithContext(ctx).Errorf("cache %s: recompute of %s failed (%v); serving stale value", c.name, key, err)
		return stale, nil
	}
	var zero V
	return zero, err
}

// Fresh returns the entry when it is younger than the TTL.
func (c *Cache[V]) Fresh(key string) (V, bool) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()
	if ok && c.now().Sub(e.storedAt) < c.ttl {
		return e.value, true
	}
	var zero V
	return zero, false
}

func (c *Cache[V]) stale(key string) (V, bool) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()
	if ok && c.maxStale > 0 && c.now().Sub(e.storedAt) < c.ttl+c.maxStale {
		return e.value, true
	}
	var zero V
	return zero, false
}

// Set stores value under key as of now.
func (c *Cache[V]) Set(key string, value V) {
	c.mu.Lock()
	c.entries[key] = entry[V]{storedAt: c.now(), value: value}
	c.mu.Unlock()
}

// Len reports the number of retained entries, stale ones included.
func (c *Cache[V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
