package storagefx

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/0x5457/pagesearch/internal/config/configfx"
	"github.com/0x5457/pagesearch/internal/storage"
	"github.com/0x5457/pagesearch/internal/storage/memory"
	"github.com/0x5457/pagesearch/internal/storage/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx"
)

func TestStorageModule(t *testing.T) {
	tests := []struct {
		name      string
		sessionDB string
		check     func(t *testing.T, store storage.SessionStore)
	}{
		{
			name: "memory",
			check: func(t *testing.T, store storage.SessionStore) {
				assert.IsType(t, &memory.SessionStore{}, store)
			},
		},
		{
			name:      "sqlite",
			sessionDB: filepath.Join(t.TempDir(), "sessions.db"),
			check: func(t *testing.T, store storage.SessionStore) {
				assert.IsType(t, &sqlite.SessionStore{}, store)
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var store storage.SessionStore
			app := fx.New(
				configfx.Module,
				Module,
				fx.Supply(fx.Annotate(tt.sessionDB, fx.ResultTags(`name:"sessionDB"`))),
				fx.Populate(&store),
			)

			ctx := context.Background()
			require.NoError(t, app.Start(ctx))
			defer func() {
				require.NoError(t, app.Stop(ctx))
			}()

			require.NotNil(t, store)
			tt.check(t, store)
			require.NoError(t, store.SaveSession(ctx, storage.Session{ID: "s1", Query: "install"}))
			sess, err := store.LoadSession(ctx, "s1")
			require.NoError(t, err)
			assert.Equal(t, "install", sess.Query)
		})
	}
}
