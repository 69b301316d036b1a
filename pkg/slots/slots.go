// Package slots maps IP addresses onto small, stable integer slots per
// interface and address family.
package slots

import (
	"errors"
	"fmt"
	"net/netip"
	"sync"

	"github.com/jkoelker/xen-guest-agent/pkg/netutil"
)

// DefaultCapacity is the number of slots per interface and family.
const DefaultCapacity = 10

// ErrNoFreeSlot indicates every slot of an (interface, family) table is
// occupied. It concerns one address only; callers keep going.
var ErrNoFreeSlot = errors.New("no free address slot")

type tableKey struct {
	index  uint32
	family string
}

// Allocator owns the slot tables. Slots are never compacted: releasing one
// leaves the others in place and makes it available for the next Assign.
type Allocator struct {
	capacity int

	mu     sync.Mutex
	tables map[tableKey][]netip.Addr
}

// New builds an Allocator with capacity slots per table; non-positive
// values select DefaultCapacity.
func New(capacity int) *Allocator {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}

	return &Allocator{
		capacity: capacity,
		tables:   make(map[tableKey][]netip.Addr),
	}
}

// Capacity returns the per-table slot count.
func (a *Allocator) Capacity() int {
	return a.capacity
}

// Assign returns the slot holding addr, claiming the first free slot when
// addr is not yet present.
func (a *Allocator) Assign(index uint32, addr netip.Addr) (int, error) {
	addr = addr.Unmap()
	key := tableKey{index: index, family: netutil.Family(addr)}

	a.mu.Lock()
	defer a.mu.Unlock()

	table, ok := a.tables[key]
	if !ok {
		table = make([]netip.Addr, a.capacity)
		a.tables[key] = table
	}

	free := -1

	for slot, held := range table {
		if held == addr {
			return slot, nil
		}

		if free < 0 && !held.IsValid() {
			free = slot
		}
	}

	if free < 0 {
		return -1, fmt.Errorf("%w: interface %d %s (%d slots)", ErrNoFreeSlot, index, key.family, a.capacity)
	}

	table[free] = addr

	return free, nil
}

// Release frees the slot holding addr and reports which slot it was.
func (a *Allocator) Release(index uint32, addr netip.Addr) (int, bool) {
	addr = addr.Unmap()
	key := tableKey{index: index, family: netutil.Family(addr)}

	a.mu.Lock()
	defer a.mu.Unlock()

	for slot, held := range a.tables[key] {
		if held == addr {
			a.tables[key][slot] = netip.Addr{}

			return slot, true
		}
	}

	return -1, false
}

// Forget drops both tables of an interface.
func (a *Allocator) Forget(index uint32) {
	a.mu.Lock()
	defer a.mu.Unlock()

	delete(a.tables, tableKey{index: index, family: netutil.FamilyIPv4})
	delete(a.tables, tableKey{index: index, family: netutil.FamilyIPv6})
}

// Slots returns a copy of the table for index and family (netutil.FamilyIPv4
// or netutil.FamilyIPv6). Free slots hold the zero netip.Addr.
func (a *Allocator) Slots(index uint32, family string) []netip.Addr {
	a.mu.Lock()
	defer a.mu.Unlock()

	table, ok := a.tables[tableKey{index: index, family: family}]
	if !ok {
		return make([]netip.Addr, a.capacity)
	}

	out := make([]netip.Addr, len(table))
	copy(out, table)

	return out
}
