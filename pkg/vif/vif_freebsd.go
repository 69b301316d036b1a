package vif

import (
	"strconv"
	"strings"

	"github.com/jkoelker/xen-guest-agent/pkg/netif"
)

const defaultRoot = ""

// Detect maps netfront interfaces named "xn<id>" to VIF(id).
func (d *Detector) Detect(name string) netif.Association {
	id, ok := strings.CutPrefix(name, "xn")
	if !ok {
		d.log.Debug("not a netfront interface", "ifname", name)

		return netif.NoAssociation()
	}

	vifID, err := strconv.ParseUint(id, 10, 32)
	if err != nil {
		d.log.Warn("unparsable vif id", "ifname", name, "err", err)

		return netif.NoAssociation()
	}

	return netif.VIFAssociation(uint32(vifID))
}
