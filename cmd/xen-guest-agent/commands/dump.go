package commands

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/urfave/cli/v3"
)

// Dump prints the current network state as canonical events and exits.
func Dump() *cli.Command {
	return &cli.Command{
		Name:  "dump",
		Usage: "Print the current network state as events and exit",
		Flags: sourceFlags(),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if err := dumpEvents(ctx, cmd.Root().Writer, runOptions(cmd)); err != nil {
				return cli.Exit(err.Error(), exitFailure)
			}

			return nil
		},
	}
}

func dumpEvents(ctx context.Context, out io.Writer, opts RunOptions) error {
	logger, err := newLogger(os.Stderr, opts.LogLevel)
	if err != nil {
		return err
	}

	cfg, err := LoadRunConfig(opts)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	cache, closeResolver, err := newCache(cfg, logger)
	if err != nil {
		return err
	}
	defer closeResolver()

	source, err := newSource(ctx, cfg, cache, logger)
	if err != nil {
		return fmt.Errorf("init network source: %w", err)
	}

	events, err := source.CollectCurrent(ctx)
	if err != nil {
		return fmt.Errorf("collect current state: %w", err)
	}

	for _, event := range events {
		if _, err := fmt.Fprintln(out, event.String()); err != nil {
			return fmt.Errorf("write event: %w", err)
		}
	}

	return nil
}
