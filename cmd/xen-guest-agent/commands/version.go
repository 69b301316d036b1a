package commands

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/jkoelker/xen-guest-agent/pkg/version"
)

func Version() *cli.Command {
	return &cli.Command{
		Name:  "version",
		Usage: "Print the agent version",
		Action: func(_ context.Context, cmd *cli.Command) error {
			_, err := fmt.Fprintf(cmd.Root().Writer, "xen-guest-agent %s (%s)\n", version.Version, version.Build())

			return err //nolint:wrapcheck // terminal output
		},
	}
}
