package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/urfave/cli/v3"

	"github.com/jkoelker/xen-guest-agent/pkg/agent"
	"github.com/jkoelker/xen-guest-agent/pkg/config"
	"github.com/jkoelker/xen-guest-agent/pkg/logging"
	"github.com/jkoelker/xen-guest-agent/pkg/memory"
	"github.com/jkoelker/xen-guest-agent/pkg/metrics"
	"github.com/jkoelker/xen-guest-agent/pkg/sysinfo"
)

const exitFailure = 1

type RunOptions struct {
	ConfigPath string
	LogLevel   string
	Schema     string
	Backend    string
	Store      string
}

func runOptions(cmd *cli.Command) RunOptions {
	return RunOptions{
		ConfigPath: cmd.String("config"),
		LogLevel:   cmd.String("log-level"),
		Schema:     cmd.String("schema"),
		Backend:    cmd.String("backend"),
		Store:      cmd.String("store"),
	}
}

func sourceFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:  "backend",
			Usage: "Network event source: auto, netlink, or poll (overrides the config file)",
		},
	}
}

func Run() *cli.Command {
	return &cli.Command{
		Name:  "run",
		Usage: "Run the guest agent",
		Flags: append(sourceFlags(),
			&cli.StringFlag{
				Name:    "schema",
				Usage:   "XenStore schema: std or rfc (overrides the config file)",
				Sources: cli.EnvVars("XENSTORE_SCHEMA"),
			},
			&cli.StringFlag{
				Name:  "store",
				Usage: "Store backend: xenstore or log (overrides the config file)",
			},
		),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if err := runAgent(ctx, runOptions(cmd)); err != nil {
				return cli.Exit(err.Error(), exitFailure)
			}

			return nil
		},
	}
}

func newLogger(out io.Writer, level string) (*slog.Logger, error) {
	parsed, err := logging.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}

	handler := slog.NewJSONHandler(out, &slog.HandlerOptions{
		Level:       parsed,
		ReplaceAttr: logging.ReplaceLevel,
	})

	return slog.New(handler), nil
}

func runAgent(ctx context.Context, opts RunOptions) error {
	logger, err := newLogger(os.Stdout, opts.LogLevel)
	if err != nil {
		return err
	}

	cfg, err := LoadRunConfig(opts)
	if err != nil {
		logger.Error("failed to load config", "path", opts.ConfigPath, "err", err)

		return fmt.Errorf("load config: %w", err)
	}

	if !cfg.Hypervisor.SkipCheck {
		if err := sysinfo.CheckXenGuest(sysinfo.DefaultHypervisorPath); err != nil {
			logger.Error("not running as a xen guest", "err", err)

			return fmt.Errorf("hypervisor check: %w", err)
		}
	}

	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	agentMetrics := metrics.New(reg)

	cache, closeResolver, err := newCache(cfg, logger)
	if err != nil {
		return err
	}
	defer closeResolver()

	source, err := newSource(ctx, cfg, cache, logger)
	if err != nil {
		logger.Error("failed to start network source", "backend", cfg.Network.Backend, "err", err)

		return fmt.Errorf("init network source: %w", err)
	}

	pub, err := newPublisher(cfg, agentMetrics, logger)
	if err != nil {
		return fmt.Errorf("init publisher: %w", err)
	}

	agentOpts := []func(*agent.Agent){
		agent.WithLogger(logger),
		agent.WithStatic(staticInfo(logger)),
		agent.WithMetrics(agentMetrics),
		agent.WithCache(cache),
		agent.WithSkipUnhandled(!cfg.Network.AbortOnUnhandled),
	}

	if cfg.Metrics.Listen != "" {
		agentOpts = append(agentOpts, agent.WithMetricsServer(cfg.Metrics.Listen, reg))
	}

	if !cfg.Memory.Disabled {
		mem, err := memory.New()
		if err != nil {
			logger.Warn("memory reporting unavailable", "err", err)
		} else {
			agentOpts = append(agentOpts, agent.WithMemory(mem, cfg.Memory.Interval))
		}
	}

	guestAgent, err := agent.New(source, pub, agentOpts...)
	if err != nil {
		return fmt.Errorf("init agent: %w", err)
	}

	logger.Info("agent starting",
		"backend", cfg.Network.Backend,
		"schema", pub.SchemaName(),
		"store", cfg.Publisher.Store,
	)

	if err := guestAgent.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("agent stopped unexpectedly", "err", err)

		return fmt.Errorf("run agent: %w", err)
	}

	return nil
}

// LoadRunConfig loads the config file and applies command line overrides.
func LoadRunConfig(opts RunOptions) (*config.Config, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("load config %q: %w", opts.ConfigPath, err)
	}

	if opts.Schema == "" && opts.Backend == "" && opts.Store == "" {
		return cfg, nil
	}

	if opts.Schema != "" {
		cfg.Publisher.Schema = opts.Schema
	}
	if opts.Backend != "" {
		cfg.Network.Backend = opts.Backend
	}
	if opts.Store != "" {
		cfg.Publisher.Store = opts.Store
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate overrides: %w", err)
	}

	return cfg, nil
}
