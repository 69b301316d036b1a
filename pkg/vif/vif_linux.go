package vif

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/jkoelker/xen-guest-agent/pkg/netif"
)

const (
	defaultRoot    = "/sys/class/net"
	nodenamePrefix = "device/vif/"
)

// Detect reports VIF(id) when the interface's device has devtype "vif" and
// a nodename of "device/vif/<id>".
func (d *Detector) Detect(name string) netif.Association {
	if name == "" {
		return netif.NoAssociation()
	}

	device := filepath.Join(d.root, name, "device")

	devtype, err := os.ReadFile(filepath.Join(device, "devtype"))
	if err != nil {
		d.log.Debug("no device type", "ifname", name, "err", err)

		return netif.NoAssociation()
	}

	if kind := strings.TrimSpace(string(devtype)); kind != "vif" {
		d.log.Debug("not a vif", "ifname", name, "devtype", kind)

		return netif.NoAssociation()
	}

	nodename, err := os.ReadFile(filepath.Join(device, "nodename"))
	if err != nil {
		d.log.Warn("vif without nodename", "ifname", name, "err", err)

		return netif.NoAssociation()
	}

	node := strings.TrimSpace(string(nodename))

	id, ok := strings.CutPrefix(node, nodenamePrefix)
	if !ok {
		d.log.Debug("vif node outside device/vif", "ifname", name, "nodename", node)

		return netif.NoAssociation()
	}

	vifID, err := strconv.ParseUint(id, 10, 32)
	if err != nil {
		d.log.Warn("unparsable vif id", "ifname", name, "nodename", node, "err", err)

		return netif.NoAssociation()
	}

	return netif.VIFAssociation(uint32(vifID))
}
