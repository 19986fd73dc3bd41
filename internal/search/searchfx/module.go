package searchfx

import (
	"github.com/0x5457/pagesearch/internal/config/configfx"
	"github.com/0x5457/pagesearch/internal/gateway"
	"github.com/0x5457/pagesearch/internal/search"
	"github.com/0x5457/pagesearch/internal/storage"
	"github.com/0x5457/pagesearch/internal/transform"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Params represents dependencies for search service
type Params struct {
	fx.In

	Config      *configfx.Config
	Logger      *zap.Logger
	Gateway     *gateway.Gateway
	Transformer *transform.Transformer
	Sessions    storage.SessionStore `optional:"true"`
}

// NewTransformer creates the result transformer
func NewTransformer(config *configfx.Config) *transform.Transformer {
	return transform.New(transform.Options{MaxSubResults: config.MaxSubResults})
}

// NewSearchService creates a new search service instance
func NewSearchService(params Params) *search.Service {
	return &search.Service{
		Logger:           params.Logger.Named("search"),
		Searcher:         params.Gateway,
		Transformer:      params.Transformer,
		Sessions:         params.Sessions, // Can be nil
		Debounce:         params.Config.Debounce,
		PageSize:         params.Config.PageSize,
		ShowEmptyFilters: params.Config.ShowEmptyFilters,
		PreloadRate:      params.Config.PreloadRate,
	}
}

// Module provides search components
var Module = fx.Module("search",
	fx.Provide(
		NewTransformer,
		NewSearchService,
	),
)
