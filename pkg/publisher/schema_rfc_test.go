package publisher_test

import (
	"net/netip"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jkoelker/xen-guest-agent/pkg/netif"
	"github.com/jkoelker/xen-guest-agent/pkg/publisher"
	"github.com/jkoelker/xen-guest-agent/pkg/sysinfo"
)

func TestRFCPublishStatic(t *testing.T) {
	t.Parallel()

	store := newRecordingStore()
	pub := newStd(t, store, publisher.WithSchema(publisher.SchemaRFC))

	require.NoError(t, pub.PublishStatic(publisher.StaticInfo{
		OS:            sysinfo.OSInfo{Name: "Fedora Linux", ID: "fedora", VersionID: "40"},
		KernelRelease: "6.8.5-301.fc40.x86_64",
		MemTotalKB:    4096,
		AgentVersion:  "0.4.0",
	}))
	require.NoError(t, pub.PublishMemFree(1024))

	assert.Equal(t, map[string]string{
		"data/xen-guest-agent":        "0.4.0",
		"data/os/name":                "Fedora Linux 40",
		"data/os/version":             "40",
		"data/os/class":               "unix",
		"data/os/unix/kernel-version": "6.8.5-301.fc40.x86_64",
	}, store.Tree())
}

func TestRFCInterfaceLifecycle(t *testing.T) {
	t.Parallel()

	store := newRecordingStore()
	pub := newStd(t, store, publisher.WithSchema(publisher.SchemaRFC))

	cache := netif.NewCache()
	iface, _ := cache.LookupOrCreate(4, "eth0")

	publish := func(op netif.Op) {
		t.Helper()
		require.NoError(t, pub.PublishEvent(netif.Event{Iface: iface, Op: op}))
	}

	publish(netif.AddIface{})
	publish(netif.AddMAC{MAC: "00:16:3e:aa:bb:cc"})
	publish(netif.AddIP{Addr: netip.MustParseAddr("198.51.100.7")})
	publish(netif.AddIP{Addr: netip.MustParseAddr("fe80::216:3eff:feaa:bbcc")})

	assert.Equal(t, map[string]string{
		"data/net/4":                                "eth0",
		"data/net/4/mac":                            "00:16:3e:aa:bb:cc",
		"data/net/4/ipv4/198_51_100_7":              "",
		"data/net/4/ipv6/fe80__216_3eff_feaa_bbcc": "",
	}, store.Tree())

	cache.Rename(iface, "wan0")
	publish(netif.AddIface{})
	assert.Equal(t, "wan0", store.Tree()["data/net/4"])

	publish(netif.RmMAC{MAC: "00:16:3e:aa:bb:cc"})
	publish(netif.RmIP{Addr: netip.MustParseAddr("198.51.100.7")})
	assert.NotContains(t, store.Tree(), "data/net/4/mac")
	assert.NotContains(t, store.Tree(), "data/net/4/ipv4/198_51_100_7")

	publish(netif.RmIface{})
	assert.Empty(t, store.Tree())
}
