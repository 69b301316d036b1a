package collector

import (
	"cmp"
	"net/netip"
	"slices"

	"github.com/jkoelker/xen-guest-agent/pkg/netutil"
)

// addrKey is one member of an interface's address set: either an IP prefix
// or a hardware address.
type addrKey struct {
	prefix netip.Prefix
	mac    string
}

func (k addrKey) isMAC() bool {
	return k.mac != ""
}

func compareAddrKeys(a, b addrKey) int {
	switch {
	case a.isMAC() && !b.isMAC():
		return -1
	case !a.isMAC() && b.isMAC():
		return 1
	case a.isMAC():
		return cmp.Compare(a.mac, b.mac)
	}

	if c := a.prefix.Addr().Compare(b.prefix.Addr()); c != 0 {
		return c
	}

	return cmp.Compare(a.prefix.Bits(), b.prefix.Bits())
}

type linkState struct {
	name  string
	addrs map[addrKey]struct{}
}

// snapshot maps interface index to its observed state for one period.
type snapshot map[uint32]*linkState

func buildSnapshot(links []Link) snapshot {
	snap := make(snapshot, len(links))

	for _, link := range links {
		state, ok := snap[link.Index]
		if !ok {
			state = &linkState{
				name:  netutil.BaseName(link.Name),
				addrs: make(map[addrKey]struct{}),
			}
			snap[link.Index] = state
		}

		if link.MAC != "" {
			state.addrs[addrKey{mac: link.MAC}] = struct{}{}
		}

		for _, prefix := range link.Prefixes {
			state.addrs[addrKey{prefix: prefix}] = struct{}{}
		}
	}

	return snap
}

func (s snapshot) indexes() []uint32 {
	indexes := make([]uint32, 0, len(s))
	for index := range s {
		indexes = append(indexes, index)
	}

	slices.Sort(indexes)

	return indexes
}

// difference returns the sorted members of a that are absent from b.
func difference(a, b map[addrKey]struct{}) []addrKey {
	var out []addrKey

	for key := range a {
		if _, ok := b[key]; !ok {
			out = append(out, key)
		}
	}

	slices.SortFunc(out, compareAddrKeys)

	return out
}
