package commands

import (
	"context"
	"fmt"

	"github.com/0x5457/pagesearch/cmd/cmdsfx"
	"github.com/0x5457/pagesearch/internal/app/appfx"
	"github.com/spf13/cobra"
)

func NewIndexCommand(settings *appfx.Settings) *cobra.Command {
	var site string

	cmd := &cobra.Command{
		Use:   "index",
		Short: "Index the HTML pages of a rendered site",
		RunE: func(cmd *cobra.Command, args []string) error {
			if site == "" {
				return fmt.Errorf("--site is required")
			}
			return runWithApp(cmd.Context(), *settings,
				func(ctx context.Context, runner *cmdsfx.CommandRunner) error {
					return runner.RunIndex(ctx, site, cmd.OutOrStdout())
				})
		},
	}

	cmd.Flags().StringVarP(&site, "site", "s", "", "Path to the rendered site")

	return cmd
}
