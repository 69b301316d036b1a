package publisher

import (
	"errors"
	"fmt"
	"log/slog"
	"net/netip"

	"github.com/jkoelker/xen-guest-agent/pkg/netif"
	"github.com/jkoelker/xen-guest-agent/pkg/netutil"
)

// rfcSchema is the data/net layout keyed by interface index.
type rfcSchema struct {
	store Store
	log   *slog.Logger
}

func newRFCSchema(store Store, logger *slog.Logger) *rfcSchema {
	return &rfcSchema{store: store, log: logger}
}

func (s *rfcSchema) PublishStatic(info StaticInfo) error {
	writes := [][2]string{
		{"data/xen-guest-agent", info.AgentVersion},
		{"data/os/name", info.OS.DisplayName()},
		{"data/os/version", info.OS.VersionID},
		{"data/os/class", "unix"},
	}

	if info.KernelRelease != "" {
		writes = append(writes, [2]string{"data/os/unix/kernel-version", info.KernelRelease})
	}

	var errs []error

	for _, kv := range writes {
		if err := s.store.Write(kv[0], kv[1]); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

// PublishMemFree is a no-op: the layout has no memory keys.
func (s *rfcSchema) PublishMemFree(uint64) error {
	return nil
}

func (s *rfcSchema) PublishEvent(event netif.Event) error {
	prefix := fmt.Sprintf("data/net/%d", event.Iface.Index())

	switch op := event.Op.(type) {
	case netif.AddIface:
		return s.store.Write(prefix, event.Iface.Name())
	case netif.RmIface:
		return s.store.Delete(prefix)
	case netif.AddIP:
		return s.store.Write(addrKey(prefix, op.Addr), "")
	case netif.RmIP:
		return s.store.Delete(addrKey(prefix, op.Addr))
	case netif.AddMAC:
		return s.store.Write(prefix+"/mac", op.MAC)
	case netif.RmMAC:
		return s.store.Delete(prefix + "/mac")
	default:
		s.log.Debug("unknown operation", "event", event.String())

		return nil
	}
}

func addrKey(prefix string, addr netip.Addr) string {
	return prefix + "/" + netutil.Family(addr) + "/" + netutil.KeySafe(addr)
}
