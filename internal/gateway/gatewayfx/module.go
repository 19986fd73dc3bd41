package gatewayfx

import (
	"context"

	"github.com/0x5457/pagesearch/internal/config/configfx"
	"github.com/0x5457/pagesearch/internal/engine"
	"github.com/0x5457/pagesearch/internal/engine/bleveengine"
	"github.com/0x5457/pagesearch/internal/gateway"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Params represents dependencies for the index gateway
type Params struct {
	fx.In

	Lifecycle fx.Lifecycle
	Config    *configfx.Config
	Logger    *zap.Logger
}

// NewGateway creates a gateway over the configured bleve indexes. The index
// is opened lazily on the first Load.
func NewGateway(params Params) *gateway.Gateway {
	cfg := params.Config
	logger := params.Logger.Named("gateway")

	merges := make([]gateway.MergeIndex, 0, len(cfg.MergeIndexes))
	for _, m := range cfg.MergeIndexes {
		merges = append(merges, gateway.MergeIndex{
			Path:    m.Path,
			Options: engine.MergeOptions{BaseURL: m.BaseURL, Weight: m.Weight},
		})
	}

	g := gateway.New(gateway.Options{
		Logger: logger,
		Loader: func(ctx context.Context) (engine.Engine, error) {
			return bleveengine.Open(cfg.IndexPath, bleveengine.Options{Logger: logger})
		},
		EngineOptions: engine.Options{
			ExcerptLength: cfg.ExcerptLength,
			Ranking: engine.Ranking{
				TitleBoost:   cfg.TitleBoost,
				ContentBoost: cfg.ContentBoost,
			},
		},
		MergeIndexes: merges,
	})
	params.Lifecycle.Append(fx.Hook{
		OnStop: func(context.Context) error {
			return g.Close()
		},
	})
	return g
}

// Module provides the index gateway
var Module = fx.Module("gateway",
	fx.Provide(NewGateway),
)
