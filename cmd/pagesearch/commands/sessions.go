package commands

import (
	"context"
	"time"

	"github.com/0x5457/pagesearch/cmd/cmdsfx"
	"github.com/0x5457/pagesearch/internal/app/appfx"
	"github.com/spf13/cobra"
)

func NewSessionsCommand(settings *appfx.Settings) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "Manage persisted search sessions",
	}

	var olderThan time.Duration
	prune := &cobra.Command{
		Use:   "prune",
		Short: "Delete sessions that have not been used recently",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithApp(cmd.Context(), *settings,
				func(ctx context.Context, runner *cmdsfx.CommandRunner) error {
					return runner.RunPruneSessions(ctx, olderThan, cmd.OutOrStdout())
				})
		},
	}
	prune.Flags().DurationVar(&olderThan, "older-than", 30*24*time.Hour, "idle time after which a session is deleted")

	cmd.AddCommand(prune)
	return cmd
}
