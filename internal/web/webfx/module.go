package webfx

import (
	"github.com/0x5457/pagesearch/internal/search"
	"github.com/0x5457/pagesearch/internal/web"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Params represents dependencies for the web server
type Params struct {
	fx.In

	SearchService *search.Service
	Logger        *zap.Logger
}

// NewWebServer creates the HTTP handler for the search page
func NewWebServer(params Params) *web.Server {
	return web.New(params.SearchService, params.Logger.Named("web"))
}

// Module provides web components
var Module = fx.Module("web",
	fx.Provide(NewWebServer),
)
