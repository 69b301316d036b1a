//go:build !linux && !freebsd

package vif

import "github.com/jkoelker/xen-guest-agent/pkg/netif"

const defaultRoot = ""

// Detect has no way to identify VIFs on this platform.
func (d *Detector) Detect(string) netif.Association {
	return netif.NoAssociation()
}
