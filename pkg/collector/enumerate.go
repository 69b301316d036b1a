package collector

import (
	"fmt"
	"net"
	"net/netip"

	"github.com/jkoelker/xen-guest-agent/pkg/netutil"
)

// Link is one enumerated interface. Alias entries ("eth0:1") may repeat an
// index; the poll source folds them onto the base interface.
type Link struct {
	Index    uint32
	Name     string
	MAC      string
	Prefixes []netip.Prefix
}

// Enumerator lists the current interfaces and their addresses.
type Enumerator func() ([]Link, error)

// InterfacesEnumerator lists interfaces through the net package.
func InterfacesEnumerator() ([]Link, error) {
	ifaces, err := net.Interfaces()
	if err != nil {
		return nil, fmt.Errorf("list interfaces: %w", err)
	}

	links := make([]Link, 0, len(ifaces))

	for _, iface := range ifaces {
		addrs, err := iface.Addrs()
		if err != nil {
			return nil, fmt.Errorf("addresses of %s: %w", iface.Name, err)
		}

		link := Link{
			Index: uint32(iface.Index), //nolint:gosec // interface indexes are positive
			Name:  iface.Name,
			MAC:   netutil.FormatMAC(iface.HardwareAddr),
		}

		for _, addr := range addrs {
			if prefix, ok := netutil.PrefixFromNet(addr); ok {
				link.Prefixes = append(link.Prefixes, prefix)
			}
		}

		links = append(links, link)
	}

	return links, nil
}
