package ifmon

import (
	"errors"
	"fmt"
	"syscall"

	"github.com/vishvananda/netlink/nl"
	"github.com/vishvananda/netns"
	"golang.org/x/sys/unix"
)

// ErrUnknownDump indicates an unsupported DumpKind.
var ErrUnknownDump = errors.New("unknown dump kind")

// Message is one raw rtnetlink message: the nlmsghdr type and the body that
// follows the header.
type Message struct {
	Type uint16
	Data []byte
}

// DumpKind selects the table requested by Dump.
type DumpKind int

const (
	// DumpLinks requests every link (RTM_GETLINK).
	DumpLinks DumpKind = iota
	// DumpAddresses requests every address (RTM_GETADDR).
	DumpAddresses
)

func (k DumpKind) String() string {
	switch k {
	case DumpLinks:
		return "links"
	case DumpAddresses:
		return "addresses"
	default:
		return fmt.Sprintf("dump(%d)", int(k))
	}
}

// Receiver is the subset of *nl.NetlinkSocket the monitor reads from.
type Receiver interface {
	Receive() ([]syscall.NetlinkMessage, *unix.SockaddrNetlink, error)
	Close()
}

// SubscribeFunc opens a multicast subscription in ns (netns.None() for the
// current namespace).
type SubscribeFunc func(ns netns.NsHandle) (Receiver, error)

// DumpFunc performs one complete dump exchange in ns.
type DumpFunc func(ns netns.NsHandle, kind DumpKind) ([]Message, error)

func subscribe(ns netns.NsHandle) (Receiver, error) {
	groups := []uint{unix.RTNLGRP_LINK, unix.RTNLGRP_IPV4_IFADDR, unix.RTNLGRP_IPV6_IFADDR}

	var (
		sock *nl.NetlinkSocket
		err  error
	)

	if ns.IsOpen() {
		sock, err = nl.SubscribeAt(ns, netns.None(), unix.NETLINK_ROUTE, groups...)
	} else {
		sock, err = nl.Subscribe(unix.NETLINK_ROUTE, groups...)
	}

	if err != nil {
		return nil, fmt.Errorf("subscribe rtnetlink groups: %w", err)
	}

	return sock, nil
}

func dump(ns netns.NsHandle, kind DumpKind) ([]Message, error) {
	var (
		reqType int
		resType uint16
		data    nl.NetlinkRequestData
	)

	switch kind {
	case DumpLinks:
		reqType, resType, data = unix.RTM_GETLINK, unix.RTM_NEWLINK, nl.NewIfInfomsg(unix.AF_UNSPEC)
	case DumpAddresses:
		reqType, resType, data = unix.RTM_GETADDR, unix.RTM_NEWADDR, nl.NewIfAddrmsg(unix.AF_UNSPEC)
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownDump, int(kind))
	}

	req := nl.NewNetlinkRequest(reqType, unix.NLM_F_DUMP)
	req.AddData(data)

	if ns.IsOpen() {
		sock, err := nl.GetNetlinkSocketAt(ns, netns.None(), unix.NETLINK_ROUTE)
		if err != nil {
			return nil, fmt.Errorf("open rtnetlink socket in namespace: %w", err)
		}
		defer sock.Close()

		req.Sockets = map[int]*nl.SocketHandle{unix.NETLINK_ROUTE: {Socket: sock}}
	}

	// Execute only returns once NLMSG_DONE arrives, so a nil error means the
	// whole table was received.
	payloads, err := req.Execute(unix.NETLINK_ROUTE, resType)
	if err != nil {
		return nil, err
	}

	msgs := make([]Message, 0, len(payloads))
	for _, payload := range payloads {
		msgs = append(msgs, Message{Type: resType, Data: payload})
	}

	return msgs, nil
}
