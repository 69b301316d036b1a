// Package vif detects whether a guest interface is backed by a Xen
// paravirtual network device.
package vif

import (
	"log/slog"

	"github.com/jkoelker/xen-guest-agent/pkg/netif"
)

// Detector classifies interface names into toolstack associations.
type Detector struct {
	root string
	log  *slog.Logger
}

// NewDetector builds a Detector with the provided options.
func NewDetector(opts ...func(*Detector)) *Detector {
	detector := &Detector{root: defaultRoot}

	for _, opt := range opts {
		opt(detector)
	}

	if detector.log == nil {
		detector.log = slog.New(slog.DiscardHandler)
	}

	return detector
}

// WithRoot overrides the sysfs network class directory (Linux only).
func WithRoot(root string) func(*Detector) {
	return func(d *Detector) {
		d.root = root
	}
}

// WithLogger overrides the logger used for diagnostic output.
func WithLogger(logger *slog.Logger) func(*Detector) {
	return func(d *Detector) {
		d.log = logger
	}
}

// Func adapts the detector to netif.WithDetector.
func (d *Detector) Func() netif.DetectFunc {
	return d.Detect
}
