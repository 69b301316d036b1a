package collector

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/jkoelker/xen-guest-agent/pkg/netif"
)

// PollSource derives events by enumerating interfaces every period and
// diffing against the previous enumeration.
type PollSource struct {
	cache     *netif.Cache
	enumerate Enumerator
	interval  time.Duration
	log       *slog.Logger

	previous  snapshot
	streaming atomic.Bool
}

var _ Source = (*PollSource)(nil)

// NewPollSource builds a poll source sharing cache with the publisher.
func NewPollSource(cache *netif.Cache, opts ...Option) *PollSource {
	cfg := newOptions(opts)

	return &PollSource{
		cache:     cache,
		enumerate: cfg.enumerate,
		interval:  cfg.interval,
		log:       cfg.log.With("component", "poll"),
		previous:  make(snapshot),
	}
}

// CollectCurrent runs one period against the (initially empty) previous
// snapshot, so every interface is reported as new.
func (p *PollSource) CollectCurrent(ctx context.Context) ([]netif.Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("collect current interfaces: %w", err)
	}

	return p.poll()
}

// Stream polls every interval. Periods without changes produce no Result.
func (p *PollSource) Stream(ctx context.Context) <-chan Result {
	if !p.streaming.CompareAndSwap(false, true) {
		return closedStream(ErrAlreadyStreaming)
	}

	out := make(chan Result)

	go func() {
		defer close(out)

		ticker := time.NewTicker(p.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				events, err := p.poll()
				if err == nil && len(events) == 0 {
					continue
				}

				if !send(ctx, out, Result{Events: events, Err: err}) {
					return
				}
			}
		}
	}()

	return out
}

func (p *PollSource) poll() ([]netif.Event, error) {
	links, err := p.enumerate()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrEnumerate, err)
	}

	current := buildSnapshot(links)
	events := p.diff(current)

	p.previous = current

	p.log.Debug("poll period complete", "interfaces", len(current), "events", len(events))

	return events, nil
}

func (p *PollSource) diff(current snapshot) []netif.Event {
	var events []netif.Event

	for _, index := range p.previous.indexes() {
		if _, ok := current[index]; ok {
			continue
		}

		iface, ok := p.cache.Remove(index)
		if !ok {
			iface = netif.NewInterface(index, p.previous[index].name, netif.NoAssociation())
		}

		events = append(events, netif.Event{Iface: iface, Op: netif.RmIface{}})
	}

	for _, index := range current.indexes() {
		state := current[index]

		iface, created := p.cache.LookupOrCreate(index, state.name)
		if !created {
			p.cache.Rename(iface, state.name)
		}

		previous, seen := p.previous[index]
		if !seen {
			events = append(events, netif.Event{Iface: iface, Op: netif.AddIface{}})

			for _, key := range difference(state.addrs, nil) {
				events = append(events, addEvent(iface, key))
			}

			continue
		}

		for _, key := range difference(previous.addrs, state.addrs) {
			events = append(events, rmEvent(iface, key))
		}

		for _, key := range difference(state.addrs, previous.addrs) {
			events = append(events, addEvent(iface, key))
		}
	}

	return events
}

func addEvent(iface *netif.Interface, key addrKey) netif.Event {
	if key.isMAC() {
		return netif.Event{Iface: iface, Op: netif.AddMAC{MAC: key.mac}}
	}

	return netif.Event{Iface: iface, Op: netif.AddIP{Addr: key.prefix.Addr()}}
}

func rmEvent(iface *netif.Interface, key addrKey) netif.Event {
	if key.isMAC() {
		return netif.Event{Iface: iface, Op: netif.RmMAC{MAC: key.mac}}
	}

	return netif.Event{Iface: iface, Op: netif.RmIP{Addr: key.prefix.Addr()}}
}
