package appfx

import (
	"github.com/0x5457/pagesearch/cmd/cmdsfx"
	"github.com/0x5457/pagesearch/internal/config/configfx"
	"github.com/0x5457/pagesearch/internal/gateway/gatewayfx"
	"github.com/0x5457/pagesearch/internal/indexer/indexerfx"
	"github.com/0x5457/pagesearch/internal/logging/loggingfx"
	"github.com/0x5457/pagesearch/internal/mcp/mcpfx"
	"github.com/0x5457/pagesearch/internal/search/searchfx"
	"github.com/0x5457/pagesearch/internal/storage/storagefx"
	"github.com/0x5457/pagesearch/internal/web/webfx"
	"go.uber.org/fx"
)

// Module combines all application modules
var Module = fx.Options(
	configfx.Module,
	loggingfx.Module,
	storagefx.Module,
	gatewayfx.Module,
	searchfx.Module,
	indexerfx.Module,
	mcpfx.Module,
	webfx.Module,
	cmdsfx.Module,
)

// Settings are the values taken from the command line
type Settings struct {
	ConfigPath string
	IndexPath  string
	SessionDB  string
	Address    string
	Debug      bool
}

// NewAppWithConfig creates an Fx app with the given command line values
func NewAppWithConfig(s Settings, opts ...fx.Option) *fx.App {
	return fx.New(
		Module,
		fx.Supply(
			fx.Annotate(s.ConfigPath, fx.ResultTags(`name:"configPath"`)),
			fx.Annotate(s.IndexPath, fx.ResultTags(`name:"indexPath"`)),
			fx.Annotate(s.SessionDB, fx.ResultTags(`name:"sessionDB"`)),
			fx.Annotate(s.Address, fx.ResultTags(`name:"address"`)),
			fx.Annotate(s.Debug, fx.ResultTags(`name:"debug"`)),
		),
		fx.Options(opts...),
	)
}

// NewApp creates an Fx app with default configuration
func NewApp() *fx.App {
	return fx.New(Module)
}
