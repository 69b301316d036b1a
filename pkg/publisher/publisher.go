// Package publisher renders canonical network events and guest facts into
// XenStore keys under one of the supported schemas.
package publisher

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jkoelker/xen-guest-agent/pkg/metrics"
	"github.com/jkoelker/xen-guest-agent/pkg/netif"
	"github.com/jkoelker/xen-guest-agent/pkg/slots"
	"github.com/jkoelker/xen-guest-agent/pkg/sysinfo"
)

// Schema names.
const (
	SchemaStd = "std"
	SchemaRFC = "rfc"
)

// DefaultDedupTTL bounds how long an identical write is skipped.
const DefaultDedupTTL = 5 * time.Minute

// DefaultDedupCapacity bounds how many written keys are remembered. The least
// recently written key is forgotten first and simply rewritten next time.
const DefaultDedupCapacity = 4096

// ErrUnknownSchema indicates a schema name other than SchemaStd or SchemaRFC.
var ErrUnknownSchema = errors.New("unknown xenstore schema")

// StaticInfo is published once at startup.
type StaticInfo struct {
	OS            sysinfo.OSInfo
	KernelRelease string
	// MemTotalKB is zero when the platform cannot report it.
	MemTotalKB   uint64
	AgentVersion string
}

// Schema maps agent facts onto store keys.
type Schema interface {
	PublishStatic(info StaticInfo) error
	PublishMemFree(kb uint64) error
	PublishEvent(event netif.Event) error
}

// Publisher applies a Schema to a Store.
type Publisher struct {
	Schema

	schemaName string
	slotCount  int
	dedupTTL   time.Duration
	dedupCap   int
	metrics    *metrics.Metrics
	log        *slog.Logger
}

// New builds a Publisher writing to store. The schema defaults to SchemaStd.
func New(store Store, opts ...func(*Publisher)) (*Publisher, error) {
	pub := &Publisher{
		schemaName: SchemaStd,
		slotCount:  slots.DefaultCapacity,
		dedupTTL:   DefaultDedupTTL,
		dedupCap:   DefaultDedupCapacity,
		log:        slog.New(slog.DiscardHandler),
	}

	for _, opt := range opts {
		opt(pub)
	}

	pub.log = pub.log.With("component", "publisher", "schema", pub.schemaName)
	dedup := newDedupStore(store, pub.dedupTTL, pub.dedupCap, pub.metrics, pub.log)

	switch pub.schemaName {
	case SchemaStd:
		pub.Schema = newStdSchema(dedup, slots.New(pub.slotCount), pub.log)
	case SchemaRFC:
		pub.Schema = newRFCSchema(dedup, pub.log)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownSchema, pub.schemaName)
	}

	return pub, nil
}

// WithSchema selects the schema by name. An empty name keeps the default.
func WithSchema(name string) func(*Publisher) {
	return func(p *Publisher) {
		if name != "" {
			p.schemaName = name
		}
	}
}

// WithSlots sets the per-interface slot capacity of the std schema.
func WithSlots(count int) func(*Publisher) {
	return func(p *Publisher) {
		if count > 0 {
			p.slotCount = count
		}
	}
}

// WithDedupTTL sets how long identical writes are skipped.
func WithDedupTTL(ttl time.Duration) func(*Publisher) {
	return func(p *Publisher) {
		if ttl > 0 {
			p.dedupTTL = ttl
		}
	}
}

// WithDedupCapacity sets how many written keys are remembered for
// deduplication.
func WithDedupCapacity(size int) func(*Publisher) {
	return func(p *Publisher) {
		if size > 0 {
			p.dedupCap = size
		}
	}
}

// WithMetrics counts store operations in m.
func WithMetrics(m *metrics.Metrics) func(*Publisher) {
	return func(p *Publisher) {
		p.metrics = m
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) func(*Publisher) {
	return func(p *Publisher) {
		if logger != nil {
			p.log = logger
		}
	}
}

// SchemaName returns the selected schema.
func (p *Publisher) SchemaName() string {
	return p.schemaName
}
