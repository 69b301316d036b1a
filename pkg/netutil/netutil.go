package netutil

import (
	"net"
	"net/netip"
	"slices"
	"strings"
)

// Family labels used in metrics and store keys.
const (
	FamilyIPv4 = "ipv4"
	FamilyIPv6 = "ipv6"
)

type byteSequence interface {
	~[]byte
}

// CloneAddr returns a copy of addr (for slice-based address types like net.IP or
// net.HardwareAddr). Nil inputs remain nil.
func CloneAddr[T byteSequence](addr T) T {
	if addr == nil {
		return nil
	}

	dup := make(T, len(addr))
	copy(dup, addr)

	return dup
}

// FormatMAC renders hardware address bytes as lowercase colon-separated hex.
// Empty and all-zero input (loopback, tunnels) yield "".
func FormatMAC(raw []byte) string {
	if !slices.ContainsFunc(raw, func(b byte) bool { return b != 0 }) {
		return ""
	}

	return net.HardwareAddr(raw).String()
}

// BaseName strips a platform alias suffix ("eth0:1" becomes "eth0").
func BaseName(name string) string {
	if base, _, found := strings.Cut(name, ":"); found {
		return base
	}

	return name
}

// Family returns FamilyIPv4 for IPv4 and IPv4-mapped addresses, FamilyIPv6
// otherwise.
func Family(addr netip.Addr) string {
	if addr.Unmap().Is4() {
		return FamilyIPv4
	}

	return FamilyIPv6
}

// KeySafe replaces address separators with underscores so the address can be
// used as a single store path element.
func KeySafe(addr netip.Addr) string {
	return strings.NewReplacer(".", "_", ":", "_").Replace(addr.Unmap().String())
}

// PrefixFromNet converts a net.Addr returned by (*net.Interface).Addrs.
func PrefixFromNet(addr net.Addr) (netip.Prefix, bool) {
	var (
		ip   net.IP
		mask net.IPMask
	)

	switch value := addr.(type) {
	case *net.IPNet:
		ip, mask = value.IP, value.Mask
	case *net.IPAddr:
		ip = value.IP
	default:
		return netip.Prefix{}, false
	}

	parsed, ok := netip.AddrFromSlice(ip)
	if !ok {
		return netip.Prefix{}, false
	}

	parsed = parsed.Unmap()
	bits := parsed.BitLen()

	if mask != nil {
		ones, size := mask.Size()
		if size == 0 {
			return netip.Prefix{}, false
		}

		bits = ones - (size - parsed.BitLen())
		if bits < 0 {
			bits = ones
		}
	}

	return netip.PrefixFrom(parsed, bits), true
}
