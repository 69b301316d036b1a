// Package collector produces canonical network events from either a live
// rtnetlink subscription or periodic enumeration of interface state.
package collector

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/jkoelker/xen-guest-agent/pkg/netif"
)

// Backend names accepted by New.
const (
	BackendAuto    = "auto"
	BackendNetlink = "netlink"
	BackendPoll    = "poll"
)

const (
	defaultInterval  = 60 * time.Second
	defaultQueueSize = 64
)

var (
	// ErrUnknownBackend indicates a backend name New does not recognize.
	ErrUnknownBackend = errors.New("unknown network backend")

	// ErrUnsupportedBackend indicates a backend unavailable on this platform.
	ErrUnsupportedBackend = errors.New("network backend not supported on this platform")

	// ErrEnumerate wraps failures to list interfaces during a poll period.
	ErrEnumerate = errors.New("enumerate interfaces")

	// ErrAlreadyStreaming is delivered when Stream is called a second time.
	ErrAlreadyStreaming = errors.New("stream already started")
)

// Result carries the events derived from one message or one poll period, or
// the error that prevented deriving them.
type Result struct {
	Events []netif.Event
	Err    error
}

// Source produces canonical events. CollectCurrent returns the initial state
// and must be called before Stream. Stream yields live changes until ctx ends
// or the underlying transport fails; it cannot be restarted.
type Source interface {
	CollectCurrent(ctx context.Context) ([]netif.Event, error)
	Stream(ctx context.Context) <-chan Result
}

// Option configures the sources built by this package.
type Option func(*options)

type options struct {
	log       *slog.Logger
	interval  time.Duration
	enumerate Enumerator
	queueSize int
	namespace string

	platform platformOptions
}

func newOptions(opts []Option) options {
	cfg := options{
		interval:  defaultInterval,
		queueSize: defaultQueueSize,
	}

	for _, opt := range opts {
		opt(&cfg)
	}

	if cfg.log == nil {
		cfg.log = slog.New(slog.DiscardHandler)
	}
	if cfg.enumerate == nil {
		cfg.enumerate = DefaultEnumerator
	}

	return cfg
}

// WithLogger overrides the logger used for diagnostic output.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.log = logger
	}
}

// WithInterval sets the poll period.
func WithInterval(interval time.Duration) Option {
	return func(o *options) {
		if interval > 0 {
			o.interval = interval
		}
	}
}

// WithEnumerator replaces the interface enumerator used by the poll source.
func WithEnumerator(fn Enumerator) Option {
	return func(o *options) {
		if fn != nil {
			o.enumerate = fn
		}
	}
}

// WithQueueSize bounds the number of queued rtnetlink messages.
func WithQueueSize(size int) Option {
	return func(o *options) {
		if size > 0 {
			o.queueSize = size
		}
	}
}

// WithNamespace observes a named network namespace (or one given by path)
// instead of the current one. Only the netlink backend honors it.
func WithNamespace(name string) Option {
	return func(o *options) {
		o.namespace = name
	}
}

func send(ctx context.Context, out chan<- Result, result Result) bool {
	select {
	case out <- result:
		return true
	case <-ctx.Done():
		return false
	}
}

func closedStream(err error) <-chan Result {
	out := make(chan Result, 1)
	out <- Result{Err: err}
	close(out)

	return out
}
