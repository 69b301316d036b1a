// Package cache provides a small TTL cache used to suppress redundant store
// writes.
package cache

import (
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// TTL wraps hashicorp's expirable LRU with nil-safe helpers. A nil *TTL is a
// valid, always-empty cache.
type TTL[K comparable, V comparable] struct {
	store *expirable.LRU[K, V]
}

// Options tweak TTL cache construction.
type Options[K comparable, V comparable] struct {
	capacity int
	onEvict  func(key K, value V)
}

// WithCapacity caps the number of live entries before LRU eviction. Zero
// means unbounded.
func WithCapacity[K comparable, V comparable](size int) func(*Options[K, V]) {
	if size < 0 {
		size = 0
	}

	return func(opts *Options[K, V]) {
		opts.capacity = size
	}
}

// WithEvict installs a callback fired whenever an entry is evicted.
func WithEvict[K comparable, V comparable](cb func(key K, value V)) func(*Options[K, V]) {
	return func(opts *Options[K, V]) {
		opts.onEvict = cb
	}
}

// NewTTL constructs a TTL cache with the provided lifespan. ttl <= 0 disables
// caching and returns nil.
func NewTTL[K comparable, V comparable](ttl time.Duration, opts ...func(*Options[K, V])) *TTL[K, V] {
	if ttl <= 0 {
		return nil
	}

	var cfg Options[K, V]
	for _, opt := range opts {
		opt(&cfg)
	}

	return &TTL[K, V]{
		store: expirable.NewLRU[K, V](cfg.capacity, cfg.onEvict, ttl),
	}
}

// Add stores value under key.
func (c *TTL[K, V]) Add(key K, value V) {
	if c == nil {
		return
	}

	c.store.Add(key, value)
}

// Get returns the live value for key.
func (c *TTL[K, V]) Get(key K) (V, bool) {
	if c == nil {
		var zero V

		return zero, false
	}

	return c.store.Get(key)
}

// Unchanged reports whether key currently maps to value.
func (c *TTL[K, V]) Unchanged(key K, value V) bool {
	cached, ok := c.Get(key)

	return ok && cached == value
}

// Remove deletes key if present and reports whether it existed.
func (c *TTL[K, V]) Remove(key K) bool {
	if c == nil {
		return false
	}

	return c.store.Remove(key)
}

// RemoveFunc deletes every key matching match and returns how many were
// removed.
func (c *TTL[K, V]) RemoveFunc(match func(K) bool) int {
	if c == nil {
		return 0
	}

	removed := 0

	for _, key := range c.store.Keys() {
		if match(key) && c.store.Remove(key) {
			removed++
		}
	}

	return removed
}

// Len reports the live entry count.
func (c *TTL[K, V]) Len() int {
	if c == nil {
		return 0
	}

	return c.store.Len()
}
