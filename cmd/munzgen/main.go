package main

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/munzgen/munzgen-agent/internal/config"
)

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "munzgen",
		Short: "MunzGen AI editing agent",
		Long: `MunzGen runs the AI video-editing shell as a local agent. With no
subcommand it serves the editor API; the script, image and route commands
make a single generation request and exit.`,
		Version:      config.Version,
		SilenceUsage: true,
		Args:         cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context())
		},
	}

	root.AddCommand(newServeCmd(), newScriptCmd(), newImageCmd(), newRouteCmd())
	return root
}
