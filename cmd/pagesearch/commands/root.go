package commands

import (
	"context"
	"fmt"

	"github.com/0x5457/pagesearch/cmd/cmdsfx"
	"github.com/0x5457/pagesearch/internal/app/appfx"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
)

// NewRootCommand assembles the pagesearch command tree.
func NewRootCommand() *cobra.Command {
	var settings appfx.Settings

	root := &cobra.Command{
		Use:           "pagesearch",
		Short:         "Index a static site and search it as you type",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.PersistentFlags().StringVarP(&settings.ConfigPath, "config", "c", "", "TOML config file")
	root.PersistentFlags().StringVar(&settings.IndexPath, "index", "", "bleve index path")
	root.PersistentFlags().StringVar(&settings.SessionDB, "session-db", "", "SQLite database for sessions (in memory when empty)")
	root.PersistentFlags().BoolVar(&settings.Debug, "debug", false, "debug logging")

	root.AddCommand(
		NewIndexCommand(&settings),
		NewSearchCommand(&settings),
		NewServeCommand(&settings),
		NewMCPServeCommand(&settings),
		NewSessionsCommand(&settings),
	)
	return root
}

// runWithApp starts the application, hands its command runner to fn and
// stops the application when fn returns.
func runWithApp(
	ctx context.Context,
	settings appfx.Settings,
	fn func(ctx context.Context, runner *cmdsfx.CommandRunner) error,
) error {
	var runner *cmdsfx.CommandRunner
	app := appfx.NewAppWithConfig(settings, fx.Populate(&runner))

	startCtx, cancel := context.WithTimeout(ctx, fx.DefaultTimeout)
	defer cancel()
	if err := app.Start(startCtx); err != nil {
		return fmt.Errorf("failed to start application: %w", err)
	}

	runErr := fn(ctx, runner)

	stopCtx, cancel := context.WithTimeout(context.Background(), fx.DefaultTimeout)
	defer cancel()
	if err := app.Stop(stopCtx); err != nil && runErr == nil {
		return fmt.Errorf("failed to stop application: %w", err)
	}
	return runErr
}
