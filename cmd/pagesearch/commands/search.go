package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/0x5457/pagesearch/cmd/cmdsfx"
	"github.com/0x5457/pagesearch/internal/app/appfx"
	"github.com/0x5457/pagesearch/internal/models"
	"github.com/spf13/cobra"
)

func NewSearchCommand(settings *appfx.Settings) *cobra.Command {
	var (
		req     cmdsfx.SearchRequest
		filters []string
	)

	cmd := &cobra.Command{
		Use:   "search [query]",
		Short: "Search the index and print the results",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) > 0 {
				req.Query = args[0]
			}
			parsed, err := parseFilters(filters)
			if err != nil {
				return err
			}
			req.Filters = parsed
			return runWithApp(cmd.Context(), *settings,
				func(ctx context.Context, runner *cmdsfx.CommandRunner) error {
					return runner.RunSearch(ctx, req, cmd.OutOrStdout())
				})
		},
	}

	cmd.Flags().StringArrayVarP(&filters, "filter", "f", nil, "Filter as name:value, repeatable")
	cmd.Flags().IntVar(&req.More, "more", 0, "Load this many further pages")
	cmd.Flags().IntVar(&req.Down, "down", 0, "Move the selection down this many times")
	cmd.Flags().BoolVar(&req.Open, "open", false, "Print the link of the selected result")
	cmd.Flags().BoolVar(&req.Facets, "facets", false, "Show filter groups")
	cmd.Flags().BoolVar(&req.JSON, "json", false, "Print the view as JSON")
	cmd.Flags().StringVar(&req.Session, "session", "", "Resume a persisted session")

	return cmd
}

func parseFilters(specs []string) (models.Filters, error) {
	filters := models.Filters{}
	for _, spec := range specs {
		name, value, ok := strings.Cut(spec, ":")
		if !ok || name == "" || value == "" {
			return nil, fmt.Errorf("invalid filter %q, want name:value", spec)
		}
		filters[name] = append(filters[name], value)
	}
	return filters.Clone(), nil
}
