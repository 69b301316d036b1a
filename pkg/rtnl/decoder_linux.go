package rtnl

import (
	"fmt"
	"log/slog"
	"net/netip"
	"strings"

	"github.com/vishvananda/netlink/nl"
	"golang.org/x/sys/unix"

	"github.com/jkoelker/xen-guest-agent/pkg/netif"
	"github.com/jkoelker/xen-guest-agent/pkg/netutil"
)

// Decoder turns rtnetlink link and address messages into canonical events,
// keeping the interface cache in step. A Decoder is not safe for concurrent
// use; one producer goroutine drives it.
type Decoder struct {
	cache *netif.Cache
	log   *slog.Logger
}

// NewDecoder builds a Decoder backed by cache.
func NewDecoder(cache *netif.Cache, opts ...func(*Decoder)) *Decoder {
	decoder := &Decoder{cache: cache}

	for _, opt := range opts {
		opt(decoder)
	}

	if decoder.log == nil {
		decoder.log = slog.New(slog.DiscardHandler)
	}

	return decoder
}

// WithLogger overrides the logger used for diagnostic output.
func WithLogger(logger *slog.Logger) func(*Decoder) {
	return func(d *Decoder) {
		d.log = logger
	}
}

type linkInfo struct {
	index uint32
	name  string
	mac   string
}

type addrInfo struct {
	index uint32
	addr  netip.Addr
}

// Decode decodes one message body (the bytes following the nlmsghdr). The
// message is fully parsed and validated before the cache is touched, so an
// error never leaves a partial update behind.
func (d *Decoder) Decode(msgType uint16, payload []byte) ([]netif.Event, error) {
	switch msgType {
	case unix.RTM_NEWLINK:
		info, err := parseLink(payload)
		if err != nil {
			return nil, err
		}

		return d.newLink(info), nil
	case unix.RTM_DELLINK:
		info, err := parseLink(payload)
		if err != nil {
			return nil, err
		}

		return d.delLink(info), nil
	case unix.RTM_NEWADDR, unix.RTM_DELADDR:
		// Addresses on administratively-down interfaces are reported the
		// same as any other; consumers cannot tell them apart.
		info, ok, err := parseAddr(payload)
		if err != nil || !ok {
			return nil, err
		}

		iface, found := d.cache.Lookup(info.index)
		if !found {
			return nil, &UnknownInterfaceError{Index: info.index, MsgType: msgType}
		}

		if msgType == unix.RTM_NEWADDR {
			return []netif.Event{{Iface: iface, Op: netif.AddIP{Addr: info.addr}}}, nil
		}

		return []netif.Event{{Iface: iface, Op: netif.RmIP{Addr: info.addr}}}, nil
	default:
		return nil, &UnhandledMessageError{Type: msgType, Payload: netutil.CloneAddr(payload)}
	}
}

func (d *Decoder) newLink(info linkInfo) []netif.Event {
	iface, created := d.cache.LookupOrCreate(info.index, info.name)
	if !created && info.name != "" {
		d.cache.Rename(iface, info.name)
	}

	events := []netif.Event{{Iface: iface, Op: netif.AddIface{}}}
	if info.mac != "" {
		events = append(events, netif.Event{Iface: iface, Op: netif.AddMAC{MAC: info.mac}})
	}

	return events
}

func (d *Decoder) delLink(info linkInfo) []netif.Event {
	iface, created := d.cache.LookupOrCreate(info.index, info.name)
	if created {
		d.log.Debug("removal of uncached interface", "ifindex", info.index, "ifname", iface.Name())
	}

	events := make([]netif.Event, 0, 2)
	if info.mac != "" {
		events = append(events, netif.Event{Iface: iface, Op: netif.RmMAC{MAC: info.mac}})
	}

	events = append(events, netif.Event{Iface: iface, Op: netif.RmIface{}})

	d.cache.Remove(info.index)

	return events
}

func parseLink(payload []byte) (linkInfo, error) {
	if len(payload) < unix.SizeofIfInfomsg {
		return linkInfo{}, fmt.Errorf("%w: ifinfomsg is %d bytes, need %d",
			ErrMalformedMessage, len(payload), unix.SizeofIfInfomsg)
	}

	msg := nl.DeserializeIfInfomsg(payload)

	attrs, err := nl.ParseRouteAttr(payload[unix.SizeofIfInfomsg:])
	if err != nil {
		return linkInfo{}, fmt.Errorf("%w: link attributes: %w", ErrMalformedMessage, err)
	}

	info := linkInfo{index: uint32(msg.Index)} //nolint:gosec // kernel indexes are positive

	for _, attr := range attrs {
		switch attr.Attr.Type {
		case unix.IFLA_IFNAME:
			info.name = strings.TrimRight(string(attr.Value), "\x00")
		case unix.IFLA_ADDRESS:
			info.mac = netutil.FormatMAC(attr.Value)
		}
	}

	return info, nil
}

// parseAddr returns ok=false for families other than IPv4 and IPv6.
func parseAddr(payload []byte) (addrInfo, bool, error) {
	if len(payload) < unix.SizeofIfAddrmsg {
		return addrInfo{}, false, fmt.Errorf("%w: ifaddrmsg is %d bytes, need %d",
			ErrMalformedMessage, len(payload), unix.SizeofIfAddrmsg)
	}

	msg := nl.DeserializeIfAddrmsg(payload)

	var size int

	switch msg.Family {
	case unix.AF_INET:
		size = 4
	case unix.AF_INET6:
		size = 16
	default:
		return addrInfo{}, false, nil
	}

	attrs, err := nl.ParseRouteAttr(payload[unix.SizeofIfAddrmsg:])
	if err != nil {
		return addrInfo{}, false, fmt.Errorf("%w: address attributes: %w", ErrMalformedMessage, err)
	}

	for _, attr := range attrs {
		if attr.Attr.Type != unix.IFA_ADDRESS {
			continue
		}

		if len(attr.Value) != size {
			return addrInfo{}, false, fmt.Errorf("%w: family %d address is %d bytes, want %d",
				ErrMalformedMessage, msg.Family, len(attr.Value), size)
		}

		addr, _ := netip.AddrFromSlice(attr.Value)

		return addrInfo{index: msg.Index, addr: addr}, true, nil
	}

	return addrInfo{}, false, fmt.Errorf("%w: address message without IFA_ADDRESS", ErrMalformedMessage)
}
