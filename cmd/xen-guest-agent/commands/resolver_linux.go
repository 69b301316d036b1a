package commands

import (
	"github.com/jkoelker/xen-guest-agent/pkg/ifmon"
	"github.com/jkoelker/xen-guest-agent/pkg/netif"
)

func nameResolver(namespace string) (netif.NameResolver, func(), error) {
	ns, err := ifmon.OpenNamespace(namespace)
	if err != nil {
		return nil, nil, err
	}

	closeNS := func() {
		if ns.IsOpen() {
			_ = ns.Close()
		}
	}

	return ifmon.NameResolver(ns), closeNS, nil
}
