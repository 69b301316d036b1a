//go:build linux

package testutil

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net"
	"os"
	"runtime"
	"strconv"
	"strings"
	"testing"
	"time"

	gont "cunicu.li/gont/v2/pkg"
	"github.com/stretchr/testify/require"
	"github.com/vishvananda/netns"
)

const expectedCIDRParts = 2
const (
	namePrefix     = "x"        // keep first char alpha
	randNameBytes  = 4          // 4 bytes -> 8 hex chars
	fallbackHexStr = "deadbeef" // 8 chars; with prefix => 9 total
)

// GuestIface is the interface name inside the guest namespace.
const GuestIface = "eth0"

func randomNetnsName() string {
	buf := make([]byte, randNameBytes)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand should not fail; fallback deterministic string.
		return namePrefix + fallbackHexStr
	}

	return namePrefix + hex.EncodeToString(buf)
}

// Topology is a guest host attached to a peer through one switch.
type Topology struct {
	Network *gont.Network
	Guest   *gont.Host
	Peer    *gont.Host
	Switch  *gont.Switch
	GuestV4 net.IPNet
}

func MustBuildTopology(t *testing.T) *Topology {
	t.Helper()

	network, err := gont.NewNetwork(randomNetnsName())
	require.NoError(t, err, "create gont network")

	t.Cleanup(func() { _ = network.Close() })

	lan, err := network.AddSwitch("lan")
	require.NoError(t, err, "add switch")

	guestV4 := MustCIDR(t, "192.0.2.10/24")

	guest, err := network.AddHost("guest",
		&gont.Interface{
			Name:      GuestIface,
			Node:      lan,
			Addresses: []net.IPNet{guestV4},
		},
	)
	require.NoError(t, err, "add guest")

	peer, err := network.AddHost("peer",
		&gont.Interface{
			Name:      "eth0",
			Node:      lan,
			Addresses: []net.IPNet{MustCIDR(t, "192.0.2.1/24")},
		},
	)
	require.NoError(t, err, "add peer")

	_, err = guest.Run("ip", "link", "set", GuestIface, "up")
	require.NoError(t, err, "guest link up")

	return &Topology{
		Network: network,
		Guest:   guest,
		Peer:    peer,
		Switch:  lan,
		GuestV4: guestV4,
	}
}

// Close tears down the gont network; suitable for manual cleanup when t.Cleanup not used.
func (t *Topology) Close() {
	_ = t.Network.Close()
}

// GuestIndex returns the kernel index of GuestIface inside the guest.
func (t *Topology) GuestIndex(tb testing.TB) int {
	tb.Helper()

	var index int

	require.NoError(tb, WithNetNS(t.Guest.NetNSHandle(), func() error {
		link, err := net.InterfaceByName(GuestIface)
		if err != nil {
			return fmt.Errorf("lookup %s: %w", GuestIface, err)
		}

		index = link.Index

		return nil
	}))

	return index
}

// AddAddress assigns cidr to GuestIface.
func (t *Topology) AddAddress(tb testing.TB, cidr string) {
	tb.Helper()

	_, err := t.Guest.Run("ip", "addr", "add", cidr, "dev", GuestIface)
	require.NoError(tb, err, "add address %s", cidr)
}

// DelAddress removes cidr from GuestIface.
func (t *Topology) DelAddress(tb testing.TB, cidr string) {
	tb.Helper()

	_, err := t.Guest.Run("ip", "addr", "del", cidr, "dev", GuestIface)
	require.NoError(tb, err, "delete address %s", cidr)
}

func RequireRoot(t *testing.T) {
	t.Helper()
	if os.Geteuid() != 0 {
		t.Skip("requires root (CAP_NET_ADMIN)")
	}
}

func MustCIDR(t *testing.T, address string) net.IPNet {
	t.Helper()

	parts := strings.Split(address, "/")
	require.Len(t, parts, expectedCIDRParts, "invalid CIDR %q", address)

	addr := net.ParseIP(parts[0])
	require.NotNil(t, addr, "invalid IP in CIDR %q", address)

	ones, err := strconv.Atoi(parts[1])
	require.NoErrorf(t, err, "invalid mask in CIDR %q", address)

	bits := 128
	if addr.To4() != nil {
		bits = 32
		addr = addr.To4()
	}

	return net.IPNet{
		IP:   addr,
		Mask: net.CIDRMask(ones, bits),
	}
}

// WithNetNS runs work on a locked OS thread switched into target.
func WithNetNS(target netns.NsHandle, work func() error) (retErr error) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	orig, err := netns.Get()
	if err != nil {
		return fmt.Errorf("get current namespace: %w", err)
	}
	defer func() {
		if closeErr := orig.Close(); closeErr != nil && retErr == nil {
			retErr = fmt.Errorf("close namespace handle: %w", closeErr)
		}
	}()
	defer func() {
		if setErr := netns.Set(orig); setErr != nil && retErr == nil {
			retErr = fmt.Errorf("restore namespace: %w", setErr)
		}
	}()
	if err := netns.Set(target); err != nil {
		return fmt.Errorf("switch namespace: %w", err)
	}

	return work()
}

// Eventually polls cond until it holds or timeout passes.
func Eventually(tb testing.TB, timeout time.Duration, cond func() bool, msgAndArgs ...any) {
	tb.Helper()

	require.Eventually(tb, cond, timeout, 50*time.Millisecond, msgAndArgs...)
}
