package indexerfx

import (
	"github.com/0x5457/pagesearch/internal/indexer"
	"github.com/0x5457/pagesearch/internal/indexer/pipeline"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Params represents dependencies for the site indexer factory
type Params struct {
	fx.In

	Logger *zap.Logger
}

// Factory builds indexers for a given page writer. The writer is opened per
// run because the index path is only known to the command.
type Factory struct {
	logger *zap.Logger
}

func NewFactory(params Params) *Factory {
	return &Factory{logger: params.Logger.Named("indexer")}
}

func (f *Factory) New(w pipeline.PageWriter) indexer.Indexer {
	return pipeline.New(w, pipeline.Options{Logger: f.logger})
}

// Module provides indexer components
var Module = fx.Module("indexer",
	fx.Provide(NewFactory),
)
