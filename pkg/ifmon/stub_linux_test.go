package ifmon_test

import (
	"errors"
	"sync"
	"syscall"
	"testing"

	"github.com/vishvananda/netns"
	"golang.org/x/sys/unix"

	"github.com/jkoelker/xen-guest-agent/pkg/ifmon"
	"github.com/jkoelker/xen-guest-agent/pkg/testutil"
)

var errSocketClosed = errors.New("socket closed")

type batch struct {
	msgs []syscall.NetlinkMessage
	from *unix.SockaddrNetlink
	err  error
}

type stubReceiver struct {
	batches chan batch

	closeOnce sync.Once
	closed    chan struct{}
}

func newStubReceiver() *stubReceiver {
	return &stubReceiver{
		batches: make(chan batch, 8),
		closed:  make(chan struct{}),
	}
}

func (s *stubReceiver) Receive() ([]syscall.NetlinkMessage, *unix.SockaddrNetlink, error) {
	select {
	case b := <-s.batches:
		return b.msgs, b.from, b.err
	case <-s.closed:
		return nil, nil, errSocketClosed
	}
}

func (s *stubReceiver) Close() {
	s.closeOnce.Do(func() { close(s.closed) })
}

func (s *stubReceiver) send(msgs ...syscall.NetlinkMessage) {
	s.batches <- batch{msgs: msgs, from: &unix.SockaddrNetlink{Pid: 0}}
}

type stubNetlink struct {
	receiver *stubReceiver
	subErr   error

	dumps   map[ifmon.DumpKind][]ifmon.Message
	dumpErr error
}

func (s *stubNetlink) subscribe(netns.NsHandle) (ifmon.Receiver, error) {
	if s.subErr != nil {
		return nil, s.subErr
	}

	return s.receiver, nil
}

func (s *stubNetlink) dump(_ netns.NsHandle, kind ifmon.DumpKind) ([]ifmon.Message, error) {
	if s.dumpErr != nil {
		return nil, s.dumpErr
	}

	return s.dumps[kind], nil
}

func newMonitorWithStub(t *testing.T, stub *stubNetlink, opts ...func(*ifmon.Monitor)) *ifmon.Monitor {
	t.Helper()

	return ifmon.New(append([]func(*ifmon.Monitor){
		ifmon.WithLogger(testutil.LoggerFromTB(t)),
		ifmon.WithSubscribe(stub.subscribe),
		ifmon.WithDump(stub.dump),
	}, opts...)...)
}

func netlinkMessage(msgType uint16, data ...byte) syscall.NetlinkMessage {
	return syscall.NetlinkMessage{
		Header: syscall.NlMsghdr{Type: msgType},
		Data:   data,
	}
}
