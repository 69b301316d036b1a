package commands

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jkoelker/xen-guest-agent/pkg/collector"
	"github.com/jkoelker/xen-guest-agent/pkg/config"
	"github.com/jkoelker/xen-guest-agent/pkg/metrics"
	"github.com/jkoelker/xen-guest-agent/pkg/netif"
	"github.com/jkoelker/xen-guest-agent/pkg/publisher"
	"github.com/jkoelker/xen-guest-agent/pkg/sysinfo"
	"github.com/jkoelker/xen-guest-agent/pkg/version"
	"github.com/jkoelker/xen-guest-agent/pkg/vif"
)

func newCache(cfg *config.Config, logger *slog.Logger) (*netif.Cache, func(), error) {
	opts := []func(*netif.Cache){
		netif.WithLogger(logger.With("component", "netif")),
		netif.WithDetector(vif.NewDetector(vif.WithLogger(logger)).Func()),
	}

	resolver, closeResolver, err := nameResolver(cfg.Network.Namespace)
	if err != nil {
		return nil, nil, err
	}

	if resolver != nil {
		opts = append(opts, netif.WithNameResolver(resolver))
	}

	return netif.NewCache(opts...), closeResolver, nil
}

func newSource(ctx context.Context, cfg *config.Config, cache *netif.Cache, logger *slog.Logger) (collector.Source, error) {
	source, err := collector.New(ctx, cfg.Network.Backend, cache,
		collector.WithLogger(logger),
		collector.WithInterval(cfg.Network.PollInterval),
		collector.WithQueueSize(cfg.Network.QueueSize),
		collector.WithNamespace(cfg.Network.Namespace),
	)
	if err != nil {
		return nil, fmt.Errorf("backend %s: %w", cfg.Network.Backend, err)
	}

	return source, nil
}

func newStore(cfg *config.Config, logger *slog.Logger) publisher.Store {
	if cfg.Publisher.Store == publisher.StoreLog {
		return publisher.NewLogStore(logger)
	}

	return publisher.NewXenstoreStore(
		publisher.WithCommands(cfg.Publisher.XenstoreWrite, cfg.Publisher.XenstoreRm),
	)
}

func newPublisher(cfg *config.Config, m *metrics.Metrics, logger *slog.Logger) (*publisher.Publisher, error) {
	pub, err := publisher.New(newStore(cfg, logger),
		publisher.WithSchema(cfg.Publisher.Schema),
		publisher.WithSlots(cfg.Publisher.IPSlots),
		publisher.WithDedupTTL(cfg.Publisher.DedupTTL),
		publisher.WithMetrics(m),
		publisher.WithLogger(logger),
	)
	if err != nil {
		return nil, fmt.Errorf("schema %s: %w", cfg.Publisher.Schema, err)
	}

	return pub, nil
}

func staticInfo(logger *slog.Logger) publisher.StaticInfo {
	info := publisher.StaticInfo{AgentVersion: version.Version}

	osInfo, err := sysinfo.Collect()
	if err != nil {
		logger.Warn("failed to read os-release", "err", err)
	}

	info.OS = osInfo

	kernel, err := sysinfo.KernelRelease()
	if err != nil {
		logger.Warn("failed to read kernel release", "err", err)
	}

	info.KernelRelease = kernel

	return info
}
