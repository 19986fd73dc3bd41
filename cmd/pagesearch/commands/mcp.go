package commands

import (
	"context"

	"github.com/0x5457/pagesearch/cmd/cmdsfx"
	"github.com/0x5457/pagesearch/internal/app/appfx"
	"github.com/spf13/cobra"
)

// NewMCPServeCommand starts an MCP server that exposes search sessions as tools.
func NewMCPServeCommand(settings *appfx.Settings) *cobra.Command {
	var transport string

	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Run MCP server",
		Long:  "Run MCP server, provide search, filter and selection tools.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithApp(cmd.Context(), *settings,
				func(_ context.Context, runner *cmdsfx.CommandRunner) error {
					return runner.RunMCPServer(transport, settings.Address)
				})
		},
	}

	cmd.Flags().
		StringVarP(&transport, "transport", "t", "stdio", "transport (stdio, http, sse)")
	cmd.Flags().StringVarP(&settings.Address, "address", "a", "", "server address (http modes), e.g. :8080")

	return cmd
}
