package agent

import (
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/jkoelker/xen-guest-agent/pkg/memory"
	"github.com/jkoelker/xen-guest-agent/pkg/metrics"
	"github.com/jkoelker/xen-guest-agent/pkg/netif"
	"github.com/jkoelker/xen-guest-agent/pkg/publisher"
)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) func(*Agent) {
	return func(a *Agent) {
		if logger != nil {
			a.log = logger
		}
	}
}

// WithMemory enables the periodic free-memory report from src.
func WithMemory(src memory.Source, interval time.Duration) func(*Agent) {
	return func(a *Agent) {
		a.mem = src
		if interval > 0 {
			a.memInterval = interval
		}
	}
}

// WithStatic publishes info once before any network event. MemTotalKB is
// filled from the memory source when left zero.
func WithStatic(info publisher.StaticInfo) func(*Agent) {
	return func(a *Agent) {
		a.static = &info
	}
}

// WithMetrics records events, errors and gauges in m.
func WithMetrics(m *metrics.Metrics) func(*Agent) {
	return func(a *Agent) {
		a.metrics = m
	}
}

// WithMetricsServer serves gatherer on addr for the lifetime of Run.
func WithMetricsServer(addr string, gatherer prometheus.Gatherer) func(*Agent) {
	return func(a *Agent) {
		a.metricsAddr = addr
		a.gatherer = gatherer
	}
}

// WithSkipUnhandled controls whether unrecognized netlink messages are
// logged and skipped (the default) or stop the agent.
func WithSkipUnhandled(skip bool) func(*Agent) {
	return func(a *Agent) {
		a.skipUnhandled = skip
	}
}

// WithCache reports the size of cache in the interfaces gauge.
func WithCache(cache *netif.Cache) func(*Agent) {
	return func(a *Agent) {
		a.cache = cache
	}
}
