//go:build darwin || dragonfly || freebsd || netbsd || openbsd

package collector

import (
	"fmt"
	"net"
	"net/netip"
	"slices"

	"golang.org/x/net/route"
	"golang.org/x/sys/unix"

	"github.com/jkoelker/xen-guest-agent/pkg/netutil"
)

// DefaultEnumerator is the platform's preferred enumerator.
func DefaultEnumerator() ([]Link, error) {
	return RouteEnumerator()
}

// RouteEnumerator reads the interface list from the routing socket RIB.
func RouteEnumerator() ([]Link, error) {
	rib, err := route.FetchRIB(unix.AF_UNSPEC, route.RIBTypeInterface, 0)
	if err != nil {
		return nil, fmt.Errorf("fetch interface RIB: %w", err)
	}

	msgs, err := route.ParseRIB(route.RIBTypeInterface, rib)
	if err != nil {
		return nil, fmt.Errorf("parse interface RIB: %w", err)
	}

	links := make(map[int]*Link)

	get := func(index int) *Link {
		link, ok := links[index]
		if !ok {
			link = &Link{Index: uint32(index)} //nolint:gosec // interface indexes are positive
			links[index] = link
		}

		return link
	}

	for _, msg := range msgs {
		switch msg := msg.(type) {
		case *route.InterfaceMessage:
			link := get(msg.Index)
			link.Name = msg.Name

			if len(msg.Addrs) > unix.RTAX_IFP {
				if hw, ok := msg.Addrs[unix.RTAX_IFP].(*route.LinkAddr); ok {
					link.MAC = netutil.FormatMAC(hw.Addr)
				}
			}
		case *route.InterfaceAddrMessage:
			if len(msg.Addrs) <= unix.RTAX_IFA {
				continue
			}

			prefix, ok := ribPrefix(msg.Addrs[unix.RTAX_IFA], msg.Addrs[unix.RTAX_NETMASK])
			if ok {
				link := get(msg.Index)
				link.Prefixes = append(link.Prefixes, prefix)
			}
		}
	}

	indexes := make([]int, 0, len(links))
	for index := range links {
		indexes = append(indexes, index)
	}

	slices.Sort(indexes)

	out := make([]Link, 0, len(indexes))
	for _, index := range indexes {
		out = append(out, *links[index])
	}

	return out, nil
}

func ribPrefix(addr, mask route.Addr) (netip.Prefix, bool) {
	switch addr := addr.(type) {
	case *route.Inet4Addr:
		ip := netip.AddrFrom4(addr.IP)
		bits := 32

		if mask, ok := mask.(*route.Inet4Addr); ok {
			bits, _ = net.IPMask(mask.IP[:]).Size()
		}

		return netip.PrefixFrom(ip, bits), true
	case *route.Inet6Addr:
		ip := netip.AddrFrom16(addr.IP)
		bits := 128

		if mask, ok := mask.(*route.Inet6Addr); ok {
			bits, _ = net.IPMask(mask.IP[:]).Size()
		}

		return netip.PrefixFrom(ip, bits), true
	default:
		return netip.Prefix{}, false
	}
}
