package appfx

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/0x5457/pagesearch/cmd/cmdsfx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx"
)

func TestAppModule(t *testing.T) {
	// Test that all modules can be loaded together
	tmpDir := t.TempDir()

	var runner *cmdsfx.CommandRunner

	app := NewAppWithConfig(Settings{
		IndexPath: filepath.Join(tmpDir, "site.bleve"),
		SessionDB: filepath.Join(tmpDir, "sessions.db"),
	}, fx.Populate(&runner))

	ctx := context.Background()
	require.NoError(t, app.Start(ctx))
	defer func() {
		require.NoError(t, app.Stop(ctx))
	}()

	assert.NotNil(t, runner)
}

func TestIndexThenSearch(t *testing.T) {
	tmpDir := t.TempDir()
	site := filepath.Join(tmpDir, "site")
	require.NoError(t, os.MkdirAll(filepath.Join(site, "guide"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(site, "index.html"), []byte(
		`<html><head><title>Home</title></head><body><main>
		<h1>Welcome</h1><p>Start with the installation guide.</p>
		<span data-search-filter="section:home"></span>
		</main></body></html>`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(site, "guide", "index.html"), []byte(
		`<html><body><main>
		<h1>Installation</h1><p>Download the installer and run it.</p>
		<h2 id="verify">Verify</h2><p>Check the installation with the version flag.</p>
		<span data-search-filter="section:guide"></span>
		</main></body></html>`), 0o644))

	settings := Settings{
		IndexPath: filepath.Join(tmpDir, "site.bleve"),
		SessionDB: filepath.Join(tmpDir, "sessions.db"),
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	var runner *cmdsfx.CommandRunner
	app := NewAppWithConfig(settings, fx.Populate(&runner))
	require.NoError(t, app.Start(ctx))
	var out bytes.Buffer
	require.NoError(t, runner.RunIndex(ctx, site, &out))
	require.NoError(t, app.Stop(ctx))
	assert.Contains(t, out.String(), "index written to")

	app = NewAppWithConfig(settings, fx.Populate(&runner))
	require.NoError(t, app.Start(ctx))
	defer func() {
		require.NoError(t, app.Stop(ctx))
	}()

	out.Reset()
	require.NoError(t, runner.RunSearch(ctx, cmdsfx.SearchRequest{Query: "installation", JSON: true}, &out))
	assert.Contains(t, out.String(), `"query": "installation"`)
	assert.Contains(t, out.String(), `"/guide/"`)
}
