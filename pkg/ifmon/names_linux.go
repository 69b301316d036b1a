package ifmon

import (
	"fmt"
	"strings"

	"github.com/vishvananda/netlink"
	"github.com/vishvananda/netns"

	"github.com/jkoelker/xen-guest-agent/pkg/netif"
)

// NameResolver looks interface names up by index in ns, or in the current
// namespace when ns is not open. Lookups that fail resolve to "".
func NameResolver(ns netns.NsHandle) netif.NameResolver {
	return func(index uint32) string {
		if index == 0 {
			return ""
		}

		var (
			handle *netlink.Handle
			err    error
		)

		if ns.IsOpen() {
			handle, err = netlink.NewHandleAt(ns)
		} else {
			handle, err = netlink.NewHandle()
		}
		if err != nil {
			return ""
		}
		defer handle.Close()

		return linkName(handle.LinkByIndex(int(index)))
	}
}

func linkName(link netlink.Link, err error) string {
	if err != nil || link == nil {
		return ""
	}

	if attrs := link.Attrs(); attrs != nil {
		return attrs.Name
	}

	return ""
}

// OpenNamespace opens a network namespace by name (under /var/run/netns) or
// by path. An empty name selects the current namespace and returns
// netns.None().
func OpenNamespace(name string) (netns.NsHandle, error) {
	if name == "" {
		return netns.None(), nil
	}

	var (
		ns  netns.NsHandle
		err error
	)

	if strings.ContainsRune(name, '/') {
		ns, err = netns.GetFromPath(name)
	} else {
		ns, err = netns.GetFromName(name)
	}

	if err != nil {
		return netns.None(), fmt.Errorf("open network namespace %q: %w", name, err)
	}

	return ns, nil
}
