package collector

import (
	"context"
	"fmt"

	"github.com/jkoelker/xen-guest-agent/pkg/netif"
)

// New builds the Source for backend. "auto" selects netlink.
func New(ctx context.Context, backend string, cache *netif.Cache, opts ...Option) (Source, error) {
	switch backend {
	case BackendAuto, BackendNetlink, "":
		return NewNetlinkSource(ctx, cache, opts...)
	case BackendPoll:
		return NewPollSource(cache, opts...), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, backend)
	}
}
