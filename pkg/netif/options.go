package netif

import "log/slog"

// WithDetector sets the toolstack association detector run on creation.
func WithDetector(fn DetectFunc) func(*Cache) {
	return func(c *Cache) {
		if fn != nil {
			c.detect = fn
		}
	}
}

// WithNameResolver supplies names for indexes created without one.
func WithNameResolver(fn NameResolver) func(*Cache) {
	return func(c *Cache) {
		c.resolve = fn
	}
}

// WithLogger overrides the logger used for diagnostic output.
func WithLogger(logger *slog.Logger) func(*Cache) {
	return func(c *Cache) {
		c.log = logger
	}
}
