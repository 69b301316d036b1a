package publisher_test

import (
	"fmt"
	"io/fs"
	"net/netip"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jkoelker/xen-guest-agent/pkg/netif"
	"github.com/jkoelker/xen-guest-agent/pkg/publisher"
	"github.com/jkoelker/xen-guest-agent/pkg/slots"
	"github.com/jkoelker/xen-guest-agent/pkg/sysinfo"
	"github.com/jkoelker/xen-guest-agent/pkg/testutil"
)

func newStd(t *testing.T, store publisher.Store, opts ...func(*publisher.Publisher)) *publisher.Publisher {
	t.Helper()

	opts = append([]func(*publisher.Publisher){publisher.WithLogger(testutil.LoggerFromTB(t))}, opts...)

	pub, err := publisher.New(store, opts...)
	require.NoError(t, err)

	return pub
}

func TestStdPublishStatic(t *testing.T) {
	t.Parallel()

	store := newRecordingStore()
	pub := newStd(t, store)

	require.NoError(t, pub.PublishStatic(publisher.StaticInfo{
		OS:            sysinfo.OSInfo{Name: "Debian GNU/Linux", ID: "debian", VersionID: "12"},
		KernelRelease: "6.1.0-18-amd64",
		MemTotalKB:    2048000,
		AgentVersion:  "0.4.0",
	}))

	assert.Equal(t, map[string]string{
		"attr/PVAddons/MajorVersion": "1",
		"attr/PVAddons/MinorVersion": "0",
		"attr/PVAddons/MicroVersion": "0",
		"attr/PVAddons/BuildVersion": "proto-0.4.0",
		"data/os_distro":             "debian",
		"data/os_name":               "Debian GNU/Linux 12",
		"data/os_majorver":           "12",
		"data/os_minorver":           "0",
		"data/os_uname":              "6.1.0-18-amd64",
		"data/meminfo_total":         "2048000",
		"control/feature-balloon":    "1",
	}, store.Tree())
}

func TestStdPublishStaticSkipsUnknownFacts(t *testing.T) {
	t.Parallel()

	store := newRecordingStore()
	pub := newStd(t, store)

	require.NoError(t, pub.PublishStatic(publisher.StaticInfo{
		OS:           sysinfo.OSInfo{Name: "Arch Linux", ID: "arch", VersionID: "rolling"},
		AgentVersion: "0.4.0",
	}))

	tree := store.Tree()
	assert.NotContains(t, tree, "data/os_majorver")
	assert.NotContains(t, tree, "data/os_uname")
	assert.NotContains(t, tree, "data/meminfo_total")
	assert.Equal(t, "Arch Linux rolling", tree["data/os_name"])
}

func TestStdBalloonPermissionDeniedWarnsOnce(t *testing.T) {
	t.Parallel()

	store := newRecordingStore()
	store.FailOn("control/feature-balloon", fmt.Errorf("xenstore-write: Permission denied: %w", fs.ErrPermission))

	pub := newStd(t, store)
	info := publisher.StaticInfo{OS: sysinfo.OSInfo{Name: "Alpine Linux", ID: "alpine", VersionID: "3.19.1"}}

	require.NoError(t, pub.PublishStatic(info))

	// A later store failure on the key must not surface: the write is never
	// attempted again.
	store.FailOn("control/feature-balloon", errStore)
	require.NoError(t, pub.PublishStatic(info))
}

func TestStdBalloonOtherErrorsSurface(t *testing.T) {
	t.Parallel()

	store := newRecordingStore()
	store.FailOn("control/feature-balloon", errStore)

	pub := newStd(t, store)

	err := pub.PublishStatic(publisher.StaticInfo{OS: sysinfo.OSInfo{Name: "Alpine Linux"}})
	require.ErrorIs(t, err, errStore)
	assert.Equal(t, "1", store.Tree()["attr/PVAddons/MajorVersion"])
}

func TestStdAddressSlots(t *testing.T) {
	t.Parallel()

	store := newRecordingStore()
	pub := newStd(t, store)

	iface := netif.NewInterface(3, "eth0", netif.VIFAssociation(0))
	first := netip.MustParseAddr("192.0.2.10")
	second := netip.MustParseAddr("192.0.2.11")
	v6 := netip.MustParseAddr("2001:db8::10")

	for _, op := range []netif.Op{
		netif.AddIface{},
		netif.AddMAC{MAC: "00:16:3e:00:00:01"},
		netif.AddIP{Addr: first},
		netif.AddIP{Addr: second},
		netif.AddIP{Addr: v6},
	} {
		require.NoError(t, pub.PublishEvent(netif.Event{Iface: iface, Op: op}))
	}

	assert.Equal(t, map[string]string{
		"attr/vif/0/ipv4/0": "192.0.2.10",
		"attr/vif/0/ipv4/1": "192.0.2.11",
		"attr/vif/0/ipv6/0": "2001:db8::10",
	}, store.Tree())

	require.NoError(t, pub.PublishEvent(netif.Event{Iface: iface, Op: netif.RmIP{Addr: first}}))
	assert.NotContains(t, store.Tree(), "attr/vif/0/ipv4/0")

	third := netip.MustParseAddr("192.0.2.12")
	require.NoError(t, pub.PublishEvent(netif.Event{Iface: iface, Op: netif.AddIP{Addr: third}}))
	assert.Equal(t, "192.0.2.12", store.Tree()["attr/vif/0/ipv4/0"])

	require.NoError(t, pub.PublishEvent(netif.Event{Iface: iface, Op: netif.RmIface{}}))
	assert.Empty(t, store.Tree())
}

func TestStdSkipsNonVIF(t *testing.T) {
	t.Parallel()

	store := newRecordingStore()
	pub := newStd(t, store)

	iface := netif.NewInterface(1, "lo", netif.NoAssociation())
	require.NoError(t, pub.PublishEvent(netif.Event{Iface: iface, Op: netif.AddIP{Addr: netip.MustParseAddr("127.0.0.1")}}))

	assert.Empty(t, store.Ops())
}

func TestStdSlotExhaustion(t *testing.T) {
	t.Parallel()

	store := newRecordingStore()
	pub := newStd(t, store, publisher.WithSlots(1))

	iface := netif.NewInterface(3, "eth0", netif.VIFAssociation(1))

	require.NoError(t, pub.PublishEvent(netif.Event{Iface: iface, Op: netif.AddIP{Addr: netip.MustParseAddr("192.0.2.10")}}))

	err := pub.PublishEvent(netif.Event{Iface: iface, Op: netif.AddIP{Addr: netip.MustParseAddr("192.0.2.11")}})
	require.ErrorIs(t, err, slots.ErrNoFreeSlot)

	require.NoError(t, pub.PublishEvent(netif.Event{Iface: iface, Op: netif.AddIP{Addr: netip.MustParseAddr("2001:db8::1")}}))
	assert.Equal(t, "2001:db8::1", store.Tree()["attr/vif/1/ipv6/0"])
}
