package collector

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/jkoelker/xen-guest-agent/pkg/ifmon"
	"github.com/jkoelker/xen-guest-agent/pkg/netif"
	"github.com/jkoelker/xen-guest-agent/pkg/rtnl"
)

// Transport is the rtnetlink subscription and dump provider, normally an
// *ifmon.Monitor.
type Transport interface {
	Run(ctx context.Context) (*ifmon.Subscription, error)
	Dump(ctx context.Context, kind ifmon.DumpKind) ([]ifmon.Message, error)
}

type platformOptions struct {
	transport Transport
}

// WithTransport replaces the rtnetlink transport, useful for tests.
func WithTransport(transport Transport) Option {
	return func(o *options) {
		o.platform.transport = transport
	}
}

// NetlinkSource decodes rtnetlink dumps and notifications.
type NetlinkSource struct {
	transport Transport
	sub       *ifmon.Subscription
	decoder   *rtnl.Decoder
	log       *slog.Logger

	streaming atomic.Bool

	// backlog counts notifications that were already queued when
	// CollectCurrent finished.
	backlog atomic.Int64
}

var _ Source = (*NetlinkSource)(nil)

// NewNetlinkSource subscribes to change notifications immediately so that
// changes racing the initial dump queue up instead of being lost. The
// subscription lives until ctx ends.
func NewNetlinkSource(ctx context.Context, cache *netif.Cache, opts ...Option) (*NetlinkSource, error) {
	cfg := newOptions(opts)
	log := cfg.log.With("component", "netlink")

	transport := cfg.platform.transport
	if transport == nil {
		ns, err := ifmon.OpenNamespace(cfg.namespace)
		if err != nil {
			return nil, err
		}

		if ns.IsOpen() {
			go func() {
				<-ctx.Done()
				_ = ns.Close()
			}()
		}

		transport = ifmon.New(
			ifmon.WithLogger(log),
			ifmon.WithQueueSize(cfg.queueSize),
			ifmon.WithNamespace(ns),
		)
	}

	sub, err := transport.Run(ctx)
	if err != nil {
		return nil, fmt.Errorf("start rtnetlink subscription: %w", err)
	}

	return &NetlinkSource{
		transport: transport,
		sub:       sub,
		decoder:   rtnl.NewDecoder(cache, rtnl.WithLogger(log)),
		log:       log,
	}, nil
}

// CollectCurrent dumps links, then addresses, decoding each complete
// response before requesting the next.
func (s *NetlinkSource) CollectCurrent(ctx context.Context) ([]netif.Event, error) {
	var events []netif.Event

	for _, kind := range []ifmon.DumpKind{ifmon.DumpLinks, ifmon.DumpAddresses} {
		msgs, err := s.transport.Dump(ctx, kind)
		if err != nil {
			return nil, err
		}

		for _, msg := range msgs {
			decoded, err := s.decoder.Decode(msg.Type, msg.Data)
			if err != nil {
				return nil, fmt.Errorf("decode %s dump: %w", kind, err)
			}

			events = append(events, decoded...)
		}
	}

	s.backlog.Store(int64(len(s.sub.Updates)))

	return events, nil
}

// Stream decodes queued and live notifications in arrival order. A decode
// error is delivered as a Result and the stream continues; a transport
// failure is delivered last before the channel closes. An address
// notification that was queued before the dump finished and names an
// interface the dump never saw is dropped; the interface went away while
// the dump was in flight.
func (s *NetlinkSource) Stream(ctx context.Context) <-chan Result {
	if !s.streaming.CompareAndSwap(false, true) {
		return closedStream(ErrAlreadyStreaming)
	}

	out := make(chan Result)

	go func() {
		defer close(out)
		defer s.sub.Close()

		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-s.sub.Updates:
				if !ok {
					if err, ok := <-s.sub.Errors; ok && err != nil {
						send(ctx, out, Result{Err: err})
					}

					return
				}

				queued := s.backlog.Add(-1) >= 0

				events, err := s.decoder.Decode(msg.Type, msg.Data)
				if err == nil && len(events) == 0 {
					continue
				}

				var unknown *rtnl.UnknownInterfaceError
				if queued && errors.As(err, &unknown) {
					s.log.Debug("dropping queued notification for vanished interface",
						"ifindex", unknown.Index, "msg_type", unknown.MsgType)

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
