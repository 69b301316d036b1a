package ifmon

import (
	"log/slog"

	"github.com/vishvananda/netns"
)

// WithLogger overrides the logger used for diagnostic output.
func WithLogger(logger *slog.Logger) func(*Monitor) {
	return func(m *Monitor) {
		m.log = logger
	}
}

// WithQueueSize overrides the subscription queue size.
func WithQueueSize(size int) func(*Monitor) {
	return func(m *Monitor) {
		if size > 0 {
			m.queueSize = size
		}
	}
}

// WithSubscribe injects a custom subscription opener, useful for tests.
func WithSubscribe(fn SubscribeFunc) func(*Monitor) {
	return func(m *Monitor) {
		if fn != nil {
			m.subscribe = fn
		}
	}
}

// WithDump injects a custom dump implementation, useful for tests.
func WithDump(fn DumpFunc) func(*Monitor) {
	return func(m *Monitor) {
		if fn != nil {
			m.dump = fn
		}
	}
}

// WithNamespace runs the subscription and dumps inside ns.
func WithNamespace(ns netns.NsHandle) func(*Monitor) {
	return func(m *Monitor) {
		m.ns = ns
	}
}
