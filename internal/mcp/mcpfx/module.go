package mcpfx

import (
	"context"

	appmcp "github.com/0x5457/pagesearch/internal/mcp"
	"github.com/0x5457/pagesearch/internal/search"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Params represents dependencies for MCP server
type Params struct {
	fx.In

	Lifecycle     fx.Lifecycle
	SearchService *search.Service
	Logger        *zap.Logger
}

// NewMCPServer creates a new MCP server instance. Its sessions are stopped
// when the app stops.
func NewMCPServer(params Params) *appmcp.Server {
	srv := appmcp.New(params.SearchService, params.Logger.Named("mcp"))
	params.Lifecycle.Append(fx.Hook{
		OnStop: func(context.Context) error {
			return srv.Close()
		},
	})
	return srv
}

// Module provides MCP server components
var Module = fx.Module("mcp",
	fx.Provide(NewMCPServer),
)
