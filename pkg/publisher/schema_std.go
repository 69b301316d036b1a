package publisher

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strconv"

	"github.com/jkoelker/xen-guest-agent/pkg/netif"
	"github.com/jkoelker/xen-guest-agent/pkg/netutil"
	"github.com/jkoelker/xen-guest-agent/pkg/slots"
)

// stdSchema is the layout read by XAPI and xe-guest-utilities.
type stdSchema struct {
	store Store
	slots *slots.Allocator
	log   *slog.Logger

	balloonDenied bool
}

func newStdSchema(store Store, alloc *slots.Allocator, logger *slog.Logger) *stdSchema {
	return &stdSchema{store: store, slots: alloc, log: logger}
}

func (s *stdSchema) PublishStatic(info StaticInfo) error {
	writes := [][2]string{
		{"attr/PVAddons/MajorVersion", "1"},
		{"attr/PVAddons/MinorVersion", "0"},
		{"attr/PVAddons/MicroVersion", "0"},
		{"attr/PVAddons/BuildVersion", "proto-" + info.AgentVersion},
		{"data/os_distro", info.OS.Distro()},
		{"data/os_name", info.OS.DisplayName()},
	}

	if major, minor, ok := info.OS.MajorMinor(); ok {
		writes = append(writes,
			[2]string{"data/os_majorver", major},
			[2]string{"data/os_minorver", minor},
		)
	} else {
		s.log.Info("os version is not numeric, skipping major/minor", "version_id", info.OS.VersionID)
	}

	if info.KernelRelease != "" {
		writes = append(writes, [2]string{"data/os_uname", info.KernelRelease})
	}

	if info.MemTotalKB > 0 {
		writes = append(writes, [2]string{"data/meminfo_total", strconv.FormatUint(info.MemTotalKB, 10)})
	}

	var errs []error

	for _, kv := range writes {
		if err := s.store.Write(kv[0], kv[1]); err != nil {
			errs = append(errs, err)
		}
	}

	if err := s.advertiseBalloon(); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

func (s *stdSchema) advertiseBalloon() error {
	if s.balloonDenied {
		return nil
	}

	err := s.store.Write("control/feature-balloon", "1")
	if errors.Is(err, fs.ErrPermission) {
		s.balloonDenied = true
		s.log.Warn("cannot advertise balloon support, not retrying", "error", err)

		return nil
	}

	return err
}

func (s *stdSchema) PublishMemFree(kb uint64) error {
	return s.store.Write("data/meminfo_free", strconv.FormatUint(kb, 10))
}

func (s *stdSchema) PublishEvent(event netif.Event) error {
	vif, ok := event.Iface.Association().VIF()
	if !ok {
		s.log.Debug("not a vif, skipping", "event", event.String())

		return nil
	}

	index := event.Iface.Index()

	switch op := event.Op.(type) {
	case netif.AddIP:
		slot, err := s.slots.Assign(index, op.Addr)
		if err != nil {
			return fmt.Errorf("publish %s on %s: %w", op.Addr, event.Iface, err)
		}

		addr := op.Addr.Unmap()

		return s.store.Write(slotKey(vif, netutil.Family(addr), slot), addr.String())
	case netif.RmIP:
		slot, ok := s.slots.Release(index, op.Addr)
		if !ok {
			s.log.Debug("address had no slot", "event", event.String())

			return nil
		}

		return s.store.Delete(slotKey(vif, netutil.Family(op.Addr), slot))
	case netif.RmIface:
		return s.removeIface(vif, index)
	default:
		s.log.Debug("not applied by std schema", "event", event.String())

		return nil
	}
}

func (s *stdSchema) removeIface(vif, index uint32) error {
	var errs []error

	for _, family := range []string{netutil.FamilyIPv4, netutil.FamilyIPv6} {
		for slot, addr := range s.slots.Slots(index, family) {
			if !addr.IsValid() {
				continue
			}

			if err := s.store.Delete(slotKey(vif, family, slot)); err != nil {
				errs = append(errs, err)
			}
		}
	}

	s.slots.Forget(index)

	return errors.Join(errs...)
}

func slotKey(vif uint32, family string, slot int) string {
	return fmt.Sprintf("attr/vif/%d/%s/%d", vif, family, slot)
}
