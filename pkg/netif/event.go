package netif

import (
	"fmt"
	"net/netip"
)

// Op is the closed set of canonical operations carried by an Event.
type Op interface {
	op()
	String() string
}

// AddIface reports a newly observed (or re-announced) interface.
type AddIface struct{}

// RmIface reports an interface removal.
type RmIface struct{}

// AddMAC reports a hardware address on an interface.
type AddMAC struct {
	MAC string
}

// RmMAC reports a hardware address going away.
type RmMAC struct {
	MAC string
}

// AddIP reports an IP address assigned to an interface.
type AddIP struct {
	Addr netip.Addr
}

// RmIP reports an IP address removed from an interface.
type RmIP struct {
	Addr netip.Addr
}

func (AddIface) op() {}
func (RmIface) op()  {}
func (AddMAC) op()   {}
func (RmMAC) op()    {}
func (AddIP) op()    {}
func (RmIP) op()     {}

func (AddIface) String() string { return "+IFACE" }
func (RmIface) String() string  { return "-IFACE" }
func (o AddMAC) String() string { return "+MAC " + o.MAC }
func (o RmMAC) String() string  { return "-MAC " + o.MAC }
func (o AddIP) String() string  { return "+IP  " + o.Addr.String() }
func (o RmIP) String() string   { return "-IP  " + o.Addr.String() }

// OpName returns a short stable label for op, suitable for metrics.
func OpName(op Op) string {
	switch op.(type) {
	case AddIface:
		return "add_iface"
	case RmIface:
		return "rm_iface"
	case AddMAC:
		return "add_mac"
	case RmMAC:
		return "rm_mac"
	case AddIP:
		return "add_ip"
	case RmIP:
		return "rm_ip"
	default:
		return "unknown"
	}
}

// Event pairs a shared interface record with one operation.
type Event struct {
	Iface *Interface
	Op    Op
}

func (e Event) String() string {
	if e.Iface == nil {
		return fmt.Sprintf("? %s", e.Op)
	}

	return fmt.Sprintf("%s %s", e.Iface.Name(), e.Op)
}
