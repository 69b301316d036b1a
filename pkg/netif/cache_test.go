package netif_test

import (
	"net/netip"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jkoelker/xen-guest-agent/pkg/netif"
	"github.com/jkoelker/xen-guest-agent/pkg/testutil"
)

func newCache(t *testing.T, opts ...func(*netif.Cache)) *netif.Cache {
	t.Helper()

	return netif.NewCache(append([]func(*netif.Cache){netif.WithLogger(testutil.LoggerFromTB(t))}, opts...)...)
}

func TestLookupOrCreateIsIdempotent(t *testing.T) {
	t.Parallel()

	calls := 0
	cache := newCache(t, netif.WithDetector(func(name string) netif.Association {
		calls++
		if name == "eth0" {
			return netif.VIFAssociation(3)
		}

		return netif.NoAssociation()
	}))

	first, created := cache.LookupOrCreate(5, "eth0")
	require.True(t, created)

	second, created := cache.LookupOrCreate(5, "other")
	require.False(t, created)

	assert.Same(t, first, second)
	assert.Equal(t, "eth0", second.Name())
	assert.Equal(t, netif.VIFAssociation(3), second.Association())
	assert.Equal(t, 1, calls, "detector runs once per creation")
}

func TestRenameVisibleThroughCapturedEvent(t *testing.T) {
	t.Parallel()

	cache := newCache(t)

	iface, _ := cache.LookupOrCreate(5, "eth0")
	event := netif.Event{Iface: iface, Op: netif.AddIface{}}

	again, created := cache.LookupOrCreate(5, "eth1")
	require.False(t, created)
	require.True(t, cache.Rename(again, "eth1"))

	assert.Equal(t, "eth1", event.Iface.Name())
	assert.Equal(t, "eth1 +IFACE", event.String())
}

func TestRenameSameNameIsNoop(t *testing.T) {
	t.Parallel()

	cache := newCache(t)
	iface, _ := cache.LookupOrCreate(1, "lo")

	assert.False(t, cache.Rename(iface, "lo"))
	assert.False(t, cache.Rename(iface, ""))
	assert.False(t, cache.Rename(nil, "x"))
}

func TestRemoveKeepsReferencesValid(t *testing.T) {
	t.Parallel()

	cache := newCache(t)
	iface, _ := cache.LookupOrCreate(9, "eth9")
	event := netif.Event{Iface: iface, Op: netif.AddIP{Addr: netip.MustParseAddr("10.0.0.9")}}

	removed, ok := cache.Remove(9)
	require.True(t, ok)
	assert.Same(t, iface, removed)

	_, ok = cache.Lookup(9)
	assert.False(t, ok)
	assert.True(t, event.Iface.Removed())
	assert.Equal(t, "eth9", event.Iface.Name())

	_, ok = cache.Remove(9)
	assert.False(t, ok)
}

func TestIndexReuseAfterRemoval(t *testing.T) {
	t.Parallel()

	cache := newCache(t)
	old, _ := cache.LookupOrCreate(4, "eth4")
	cache.Remove(4)

	fresh, created := cache.LookupOrCreate(4, "veth4")
	require.True(t, created)
	assert.NotSame(t, old, fresh)
	assert.False(t, fresh.Removed())
	assert.Equal(t, "eth4", old.Name())
}

func TestLookupOrCreateResolvesMissingName(t *testing.T) {
	t.Parallel()

	cache := newCache(t, netif.WithNameResolver(func(index uint32) string {
		if index == 12 {
			return "ens12"
		}

		return ""
	}))

	iface, _ := cache.LookupOrCreate(12, "")
	assert.Equal(t, "ens12", iface.Name())
}

func TestIndexesSorted(t *testing.T) {
	t.Parallel()

	cache := newCache(t)
	for _, index := range []uint32{7, 2, 5} {
		cache.LookupOrCreate(index, "")
	}

	assert.Equal(t, []uint32{2, 5, 7}, cache.Indexes())
	assert.Equal(t, 3, cache.Len())
}
