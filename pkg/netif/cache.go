package netif

import (
	"context"
	"log/slog"
	"slices"
	"sync"

	"github.com/jkoelker/xen-guest-agent/pkg/logging"
)

// DetectFunc classifies an interface by its initial name.
type DetectFunc func(name string) Association

// NameResolver supplies a name for an index when a message carried none.
type NameResolver func(index uint32) string

// Cache maps kernel interface indexes to their shared Interface records.
// Records handed out stay valid after a rename or eviction.
type Cache struct {
	mu      sync.Mutex
	entries map[uint32]*Interface

	detect  DetectFunc
	resolve NameResolver
	log     *slog.Logger
}

// NewCache builds an empty cache with the provided options.
func NewCache(opts ...func(*Cache)) *Cache {
	cache := &Cache{
		entries: make(map[uint32]*Interface),
	}

	for _, opt := range opts {
		opt(cache)
	}

	if cache.detect == nil {
		cache.detect = func(string) Association { return NoAssociation() }
	}
	if cache.log == nil {
		cache.log = slog.New(slog.DiscardHandler)
	}

	return cache
}

// LookupOrCreate returns the record for index, creating it with name when
// absent. The boolean reports whether a record was created. Existing records
// are returned unchanged; callers rename explicitly.
func (c *Cache) LookupOrCreate(index uint32, name string) (*Interface, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if iface, ok := c.entries[index]; ok {
		return iface, false
	}

	if name == "" && c.resolve != nil {
		name = c.resolve(index)
	}

	iface := NewInterface(index, name, c.detect(name))
	c.entries[index] = iface

	c.log.Debug("interface cached", "ifindex", index, "ifname", name, "association", iface.association.String())

	return iface, true
}

// Lookup returns the record for index if present.
func (c *Cache) Lookup(index uint32) (*Interface, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	iface, ok := c.entries[index]

	return iface, ok
}

// Rename updates the record's name in place and reports whether it changed.
func (c *Cache) Rename(iface *Interface, name string) bool {
	if iface == nil || name == "" {
		return false
	}

	old := iface.Name()
	if !iface.setName(name) {
		return false
	}

	c.log.Log(context.Background(), logging.LevelTrace, "interface renamed", "ifindex", iface.index, "from", old, "to", name)

	return true
}

// Remove evicts index. The returned record is marked removed but remains
// usable by anyone still holding it.
func (c *Cache) Remove(index uint32) (*Interface, bool) {
	c.mu.Lock()
	iface, ok := c.entries[index]
	if ok {
		delete(c.entries, index)
	}
	c.mu.Unlock()

	if !ok {
		return nil, false
	}

	iface.markRemoved()
	c.log.Debug("interface evicted", "ifindex", index, "ifname", iface.Name())

	return iface, true
}

// Len returns the number of cached interfaces.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.entries)
}

// Indexes returns the cached indexes in ascending order.
func (c *Cache) Indexes() []uint32 {
	c.mu.Lock()
	indexes := make([]uint32, 0, len(c.entries))
	for index := range c.entries {
		indexes = append(indexes, index)
	}
	c.mu.Unlock()

	slices.Sort(indexes)

	return indexes
}
