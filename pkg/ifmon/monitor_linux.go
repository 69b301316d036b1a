package ifmon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"syscall"

	"github.com/vishvananda/netlink/nl"
	"github.com/vishvananda/netns"
	"golang.org/x/sys/unix"

	"github.com/jkoelker/xen-guest-agent/pkg/netutil"
)

// ErrNilContext indicates that a nil context was passed to Run or Dump.
var ErrNilContext = errors.New("context must not be nil")

const defaultQueueSize = 64

// Monitor owns the rtnetlink transport: a multicast subscription to link and
// address changes plus request/response dumps of the current tables.
type Monitor struct {
	subscribe SubscribeFunc
	dump      DumpFunc
	ns        netns.NsHandle

	queueSize int

	log *slog.Logger
}

// New builds a Monitor with the provided options.
func New(opts ...func(*Monitor)) *Monitor {
	monitor := &Monitor{
		subscribe: subscribe,
		dump:      dump,
		ns:        netns.None(),
		queueSize: defaultQueueSize,
	}

	for _, opt := range opts {
		opt(monitor)
	}

	if monitor.log == nil {
		monitor.log = slog.New(slog.DiscardHandler)
	}

	return monitor
}

// Run opens the subscription and starts forwarding kernel messages. Messages
// queue (the reader blocks, nothing is dropped) until the consumer drains
// Updates. The subscription ends when ctx is canceled, Close is called, or the
// socket fails; a failure is reported on Errors first.
func (m *Monitor) Run(ctx context.Context) (*Subscription, error) {
	if ctx == nil {
		return nil, ErrNilContext
	}

	sock, err := m.subscribe(m.ns)
	if err != nil {
		return nil, err
	}

	updates := make(chan Message, m.queueSize)
	errs := make(chan error, 1)
	done := make(chan struct{})

	sub := &Subscription{
		Updates: updates,
		Errors:  errs,
		cancel: func() {
			close(done)
		},
	}

	go func() {
		select {
		case <-ctx.Done():
			sub.Close()
		case <-done:
		}

		sock.Close()
	}()

	go m.read(sock, updates, errs, done)

	m.log.Debug("rtnetlink subscription started", "queue", m.queueSize)

	return sub, nil
}

// Dump performs one request/response exchange for kind and returns the
// complete response sequence.
func (m *Monitor) Dump(ctx context.Context, kind DumpKind) ([]Message, error) {
	if ctx == nil {
		return nil, ErrNilContext
	}

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("dump %s: %w", kind, err)
	}

	msgs, err := m.dump(m.ns, kind)
	if err != nil {
		return nil, fmt.Errorf("dump %s: %w", kind, err)
	}

	m.log.Debug("rtnetlink dump complete", "kind", kind.String(), "messages", len(msgs))

	return msgs, nil
}

func (m *Monitor) read(sock Receiver, updates chan<- Message, errs chan<- error, done <-chan struct{}) {
	defer close(updates)
	defer close(errs)

	for {
		msgs, from, err := sock.Receive()
		if err != nil {
			select {
			case <-done:
			default:
				errs <- fmt.Errorf("receive rtnetlink: %w", err)
			}

			return
		}

		if from != nil && from.Pid != nl.PidKernel {
			m.log.Debug("ignoring rtnetlink message from non-kernel sender", "pid", from.Pid)

			continue
		}

		for _, msg := range msgs {
			forward, err := m.filter(msg)
			if err != nil {
				select {
				case errs <- err:
				case <-done:
				}

				return
			}

			if !forward {
				continue
			}

			select {
			case updates <- Message{Type: msg.Header.Type, Data: netutil.CloneAddr(msg.Data)}:
			case <-done:
				return
			}
		}
	}
}

func (m *Monitor) filter(msg syscall.NetlinkMessage) (bool, error) {
	switch msg.Header.Type {
	case unix.NLMSG_DONE, unix.NLMSG_NOOP:
		return false, nil
	case unix.NLMSG_ERROR:
		if len(msg.Data) >= 4 {
			errno := int32(nl.NativeEndian().Uint32(msg.Data[:4])) //nolint:gosec // errno is a signed int32
			if errno == 0 {
				return false, nil
			}

			return false, fmt.Errorf("rtnetlink error message: %w", syscall.Errno(-errno))
		}

		return false, fmt.Errorf("rtnetlink error message: %w", syscall.EINVAL)
	default:
		return true, nil
	}
}
