// Package cache provides in-memory TTL caches.
//
// Expiry is lazy: an entry past its deadline is treated as absent on read and
// is evicted by Cleanup. Nothing runs in the background.
package cache

import (
	"sync"
	"time"
)

// Clock supplies the current time. Tests substitute a fake.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

type entry[V any] struct {
	value     V
	expiresAt time.Time
}

// TimedCache is a goroutine-safe map whose entries expire.
type TimedCache[K comparable, V any] struct {
	mu         sync.RWMutex
	entries    map[K]entry[V]
	defaultTTL time.Duration
	clock      Clock
}

// Option configures a TimedCache.
type Option func(*options)

type options struct {
	clock Clock
	ttl   time.Duration
}

// WithClock overrides the time source.
func WithClock(c Clock) Option {
	return func(o *options) { o.clock = c }
}

// WithTTL overrides the default TTL. Non-positive values are ignored.
func WithTTL(d time.Duration) Option {
	return func(o *options) { o.ttl = d }
}

// New creates a cache whose Set uses defaultTTL.
func New[K comparable, V any](defaultTTL time.Duration, opts ...Option) *TimedCache[K, V] {
	o := options{clock: systemClock{}}
	for _, opt := range opts {
		opt(&o)
	}
	if o.ttl > 0 {
		defaultTTL = o.ttl
	}
	return &TimedCache[K, V]{
		entries:    make(map[K]entry[V]),
		defaultTTL: defaultTTL,
		clock:      o.clock,
	}
}

// Get returns the value for key if present and not expired.
func (c *TimedCache[K, V]) Get(key K) (V, bool) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()

	if !ok || !c.clock.Now().Before(e.expiresAt) {
		var zero V
		return zero, false
	}
	return e.value, true
}

// Set stores value under key with the default TTL.
func (c *TimedCache[K, V]) Set(key K, value V) {
	c.SetWithTTL(key, value, c.defaultTTL)
}

// SetWithTTL stores value under key with an explicit TTL.
func (c *TimedCache[K, V]) SetWithTTL(key K, value V, ttl time.Duration) {
	c.mu.Lock()
	c.entries[key] = entry[V]{value: value, expiresAt: c.clock.Now().Add(ttl)}
	c.mu.Unlock()
}

// Remove deletes key.
func (c *TimedCache[K, V]) Remove(key K) {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
}

// Clear drops every entry.
func (c *TimedCache[K, V]) Clear() {
	c.mu.Lock()
	c.entries = make(map[K]entry[V])
	c.mu.Unlock()
}

// Cleanup evicts expired entries and returns how many were removed.
func (c *TimedCache[K, V]) Cleanup() int {
	now := c.clock.Now()

	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for k, e := range c.entries {
		if !now.Before(e.expiresAt) {
			delete(c.entries, k)
			removed++
		}
	}
	return removed
}

// Len counts stored entries, including expired ones not yet cleaned up.
func (c *TimedCache[K, V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
