package agent

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jkoelker/xen-guest-agent/pkg/collector"
	"github.com/jkoelker/xen-guest-agent/pkg/memory"
	"github.com/jkoelker/xen-guest-agent/pkg/netif"
	"github.com/jkoelker/xen-guest-agent/pkg/netutil"
	"github.com/jkoelker/xen-guest-agent/pkg/rtnl"
	"github.com/jkoelker/xen-guest-agent/pkg/slots"
)

const kindEnumerate = "enumerate"

// eventLoop is the single publishing goroutine. Stream results and memory
// ticks are merged with select so neither starves the other.
type eventLoop struct {
	agent *Agent
}

func (l *eventLoop) Name() string { return "events" }

func (l *eventLoop) Run(ctx context.Context) error {
	agent := l.agent

	agent.publishStatic()

	events, err := agent.source.CollectCurrent(ctx)
	if err != nil {
		return fmt.Errorf("collect current state: %w", err)
	}

	agent.log.Info("initial network state collected", "events", len(events))
	agent.publishEvents(events)

	stream := agent.source.Stream(ctx)

	var tick <-chan time.Time

	if agent.mem != nil && agent.publishMemFree() {
		ticker := time.NewTicker(agent.memInterval)
		defer ticker.Stop()

		tick = ticker.C
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case result, ok := <-stream:
			if !ok {
				if ctx.Err() != nil {
					return ctx.Err()
				}

				return ErrStreamClosed
			}

			if err := agent.handleResult(result); err != nil {
				return err
			}
		case <-tick:
			if !agent.publishMemFree() {
				tick = nil
			}
		}
	}
}

func (a *Agent) publishStatic() {
	if a.static == nil {
		return
	}

	info := *a.static

	if info.MemTotalKB == 0 && a.mem != nil {
		total, err := a.mem.TotalKB()

		switch {
		case errors.Is(err, memory.ErrUnsupported):
			a.log.Info("total memory not available on this platform")
		case err != nil:
			a.log.Warn("failed to read total memory", "err", err)
		default:
			info.MemTotalKB = total
		}
	}

	if err := a.pub.PublishStatic(info); err != nil {
		a.log.Warn("failed to publish static guest information", "err", err)
	}
}

// publishMemFree reports whether the memory feature is still available.
func (a *Agent) publishMemFree() bool {
	available, err := a.mem.AvailableKB()
	if errors.Is(err, memory.ErrUnsupported) {
		a.log.Info("free memory reporting not supported, disabling", "err", err)

		return false
	}

	if err != nil {
		a.log.Warn("failed to read free memory", "err", err)

		return true
	}

	a.metrics.SetMemoryAvailable(available)

	if err := a.pub.PublishMemFree(available); err != nil {
		a.log.Warn("failed to publish free memory", "err", err)
	}

	return true
}

func (a *Agent) handleResult(result collector.Result) error {
	if result.Err != nil {
		if err := a.handleError(result.Err); err != nil {
			return err
		}
	}

	a.publishEvents(result.Events)

	return nil
}

func (a *Agent) handleError(err error) error {
	var unhandled *rtnl.UnhandledMessageError

	switch {
	case errors.As(err, &unhandled):
		a.metrics.DecodeError(rtnl.ErrorKind(err))

		if !a.skipUnhandled {
			return fmt.Errorf("decode: %w", err)
		}

		a.log.Warn("skipping unhandled message", "type", unhandled.Type, "len", len(unhandled.Payload))

		return nil
	case errors.Is(err, collector.ErrEnumerate):
		a.metrics.DecodeError(kindEnumerate)
		a.log.Warn("poll period failed, keeping previous state", "err", err)

		return nil
	default:
		a.metrics.DecodeError(rtnl.ErrorKind(err))

		return fmt.Errorf("event stream: %w", err)
	}
}

func (a *Agent) publishEvents(events []netif.Event) {
	for _, event := range events {
		a.metrics.Event(netif.OpName(event.Op))
		a.log.Debug("network event", "event", event.String())

		err := a.pub.PublishEvent(event)
		if err == nil {
			continue
		}

		if add, ok := event.Op.(netif.AddIP); ok && errors.Is(err, slots.ErrNoFreeSlot) {
			a.metrics.SlotExhausted(netutil.Family(add.Addr))
		}

		a.log.Warn("failed to publish event", "event", event.String(), "err", err)
	}

	if a.cache != nil {
		a.metrics.SetInterfaces(a.cache.Len())
	}
}
