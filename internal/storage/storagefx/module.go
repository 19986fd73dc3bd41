package storagefx

import (
	"context"

	"github.com/0x5457/pagesearch/internal/config/configfx"
	"github.com/0x5457/pagesearch/internal/storage"
	"github.com/0x5457/pagesearch/internal/storage/memory"
	"github.com/0x5457/pagesearch/internal/storage/sqlite"
	"go.uber.org/fx"
)

// Params represents dependencies for storage components
type Params struct {
	fx.In

	Lifecycle fx.Lifecycle
	Config    *configfx.Config
}

// NewSessionStore creates the session store. Without a database path,
// sessions live in memory for the lifetime of the process.
func NewSessionStore(params Params) (storage.SessionStore, error) {
	var (
		store storage.SessionStore
		err   error
	)
	if params.Config.SessionDB == "" {
		store = memory.NewSessionStore()
	} else {
		store, err = sqlite.New(params.Config.SessionDB)
		if err != nil {
			return nil, err
		}
	}
	params.Lifecycle.Append(fx.Hook{
		OnStop: func(context.Context) error {
			return store.Close()
		},
	})
	return store, nil
}

// Module provides storage components
var Module = fx.Module("storage",
	fx.Provide(NewSessionStore),
)
