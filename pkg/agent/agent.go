// Package agent runs the guest agent: it publishes static guest facts, then
// forwards network events and memory reports to the publisher until the
// context ends.
package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"github.com/jkoelker/xen-guest-agent/pkg/collector"
	"github.com/jkoelker/xen-guest-agent/pkg/memory"
	"github.com/jkoelker/xen-guest-agent/pkg/metrics"
	"github.com/jkoelker/xen-guest-agent/pkg/netif"
	"github.com/jkoelker/xen-guest-agent/pkg/publisher"
)

const defaultMemoryInterval = 60 * time.Second

var (
	// ErrNilSource is returned by New when no event source is given.
	ErrNilSource = errors.New("event source is nil")
	// ErrNilPublisher is returned by New when no publisher is given.
	ErrNilPublisher = errors.New("publisher is nil")

	// ErrStreamClosed indicates the event stream ended while the agent was
	// still running.
	ErrStreamClosed = errors.New("event stream closed")
)

type component interface {
	Run(ctx context.Context) error
	Name() string
}

// Agent feeds interface events and guest facts from a collector source into
// a publisher.
type Agent struct {
	source collector.Source
	pub    publisher.Schema
	cache  *netif.Cache

	static      *publisher.StaticInfo
	mem         memory.Source
	memInterval time.Duration

	metrics     *metrics.Metrics
	metricsAddr string
	gatherer    prometheus.Gatherer

	skipUnhandled bool
	log           *slog.Logger
}

// New builds an Agent reading from source and writing through pub.
func New(source collector.Source, pub publisher.Schema, opts ...func(*Agent)) (*Agent, error) {
	if source == nil {
		return nil, ErrNilSource
	}
	if pub == nil {
		return nil, ErrNilPublisher
	}

	agent := &Agent{
		source:        source,
		pub:           pub,
		memInterval:   defaultMemoryInterval,
		skipUnhandled: true,
		log:           slog.New(slog.DiscardHandler),
	}

	for _, opt := range opts {
		opt(agent)
	}

	agent.log = agent.log.With("component", "agent")

	return agent, nil
}

// Run blocks until ctx ends or a component fails.
func (a *Agent) Run(ctx context.Context) error {
	group, ctx := errgroup.WithContext(ctx)

	comps := []component{&eventLoop{agent: a}}
	if a.metricsAddr != "" {
		comps = append(comps, &metricsServer{addr: a.metricsAddr, gatherer: a.gatherer})
	}

	for _, comp := range comps {
		group.Go(func() error {
			a.log.Info("starting component", "name", comp.Name())

			err := comp.Run(ctx)
			if err != nil && !errors.Is(err, context.Canceled) {
				a.log.Error("component exited with error", "name", comp.Name(), "err", err)

				return fmt.Errorf("component %s: %w", comp.Name(), err)
			}

			a.log.Info("component stopped", "name", comp.Name())

			return nil
		})
	}

	if err := group.Wait(); err != nil {
		return fmt.Errorf("agent components: %w", err)
	}

	return nil
}

type metricsServer struct {
	addr     string
	gatherer prometheus.Gatherer
}

func (m *metricsServer) Name() string { return "metrics" }

func (m *metricsServer) Run(ctx context.Context) error {
	return metrics.Serve(ctx, m.addr, m.gatherer)
}
