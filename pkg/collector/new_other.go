//go:build !linux

package collector

import (
	"context"
	"fmt"

	"github.com/jkoelker/xen-guest-agent/pkg/netif"
)

// New builds the Source for backend. "auto" selects poll.
func New(_ context.Context, backend string, cache *netif.Cache, opts ...Option) (Source, error) {
	switch backend {
	case BackendAuto, BackendPoll, "":
		return NewPollSource(cache, opts...), nil
	case BackendNetlink:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedBackend, backend)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, backend)
	}
}
