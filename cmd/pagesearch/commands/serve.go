package commands

import (
	"context"

	"github.com/0x5457/pagesearch/cmd/cmdsfx"
	"github.com/0x5457/pagesearch/internal/app/appfx"
	"github.com/spf13/cobra"
)

func NewServeCommand(settings *appfx.Settings) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the search page",
		Long:  "Serve the search page. Each browser tab runs its own search session over a websocket.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithApp(cmd.Context(), *settings,
				func(ctx context.Context, runner *cmdsfx.CommandRunner) error {
					return runner.RunServe(ctx)
				})
		},
	}

	cmd.Flags().StringVarP(&settings.Address, "address", "a", "", "listen address, e.g. :8080")

	return cmd
}
