package netif

import (
	"fmt"
	"sync"
)

// AssociationKind discriminates the toolstack association variants.
type AssociationKind int

const (
	// AssociationNone means the interface is not backed by a toolstack device.
	AssociationNone AssociationKind = iota
	// AssociationVIF means the interface is a paravirtual network device (VIF).
	AssociationVIF
)

// Association links a guest interface to the toolstack's logical device, if any.
type Association struct {
	Kind AssociationKind
	ID   uint32
}

// NoAssociation returns the None variant.
func NoAssociation() Association {
	return Association{Kind: AssociationNone}
}

// VIFAssociation returns the VIF variant for the given device id.
func VIFAssociation(id uint32) Association {
	return Association{Kind: AssociationVIF, ID: id}
}

// VIF returns the VIF id and whether the association is a VIF.
func (a Association) VIF() (uint32, bool) {
	if a.Kind != AssociationVIF {
		return 0, false
	}

	return a.ID, true
}

func (a Association) String() string {
	if id, ok := a.VIF(); ok {
		return fmt.Sprintf("vif/%d", id)
	}

	return "none"
}

// Interface is the shared record for one network interface. The cache owns it;
// events hold the same pointer so they always observe the current name.
type Interface struct {
	index       uint32
	association Association

	mu      sync.RWMutex
	name    string
	removed bool
}

// NewInterface builds a detached record. Records are normally created through
// Cache.LookupOrCreate; this constructor exists for producers and tests that
// need an event for an interface the cache never saw.
func NewInterface(index uint32, name string, association Association) *Interface {
	return &Interface{index: index, name: name, association: association}
}

// Index returns the kernel interface index.
func (i *Interface) Index() uint32 {
	return i.index
}

// Name returns the current interface name.
func (i *Interface) Name() string {
	i.mu.RLock()
	defer i.mu.RUnlock()

	return i.name
}

// Association returns the toolstack association computed at creation.
func (i *Interface) Association() Association {
	return i.association
}

// Removed reports whether the record has been evicted from its cache.
func (i *Interface) Removed() bool {
	i.mu.RLock()
	defer i.mu.RUnlock()

	return i.removed
}

func (i *Interface) String() string {
	return fmt.Sprintf("%s(%d)", i.Name(), i.index)
}

func (i *Interface) setName(name string) bool {
	i.mu.Lock()
	defer i.mu.Unlock()

	if i.name == name {
		return false
	}

	i.name = name

	return true
}

func (i *Interface) markRemoved() {
	i.mu.Lock()
	i.removed = true
	i.mu.Unlock()
}
