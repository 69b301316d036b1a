package main

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/jkoelker/xen-guest-agent/cmd/xen-guest-agent/commands"
)

const exitFailure = 1

func main() {
	cmd := &cli.Command{
		Name:            "xen-guest-agent",
		Usage:           "Publish guest network and memory state to XenStore",
		HideHelpCommand: true,
		DefaultCommand:  "run",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "config",
				Usage: "Path to the configuration file (YAML or JSON); defaults apply when empty",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Value: "info",
				Usage: "Log level: trace, debug, info, warn, error",
			},
		},
		Commands: []*cli.Command{
			commands.Run(),
			commands.Dump(),
			commands.Config(),
			commands.Version(),
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitFailure)
	}
}
