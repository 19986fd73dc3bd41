package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"testing"

	"github.com/0x5457/pagesearch/internal/engine/bleveengine"
	"github.com/0x5457/pagesearch/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	mu      sync.Mutex
	batches [][]models.Page
	err     error
}

func (r *recorder) WritePages(pages []models.Page) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.batches = append(r.batches, append([]models.Page(nil), pages...))
	return nil
}

func (r *recorder) urls() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, b := range r.batches {
		for _, p := range b {
			out = append(out, p.URL)
		}
	}
	sort.Strings(out)
	return out
}

func writeSite(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for name, content := range files {
		path := filepath.Join(root, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	return root
}

var site = map[string]string{
	"index.html":                `<html><body><main><h1>Home</h1><p>Welcome to the docs.</p></main></body></html>`,
	"guide/install/index.html":  `<html><body><main><h1>Installation</h1><p>Download the installer.</p><span data-search-filter="section:guide"></span></main></body></html>`,
	"blog/release.html":         `<html><body><main><h1>Release</h1><p>The installer got faster.</p><span data-search-filter="section:blog"></span></main></body></html>`,
	"assets/style.css":          `body { color: red }`,
	".cache/stale.html":         `<html><body>stale</body></html>`,
	"node_modules/x/index.html": `<html><body>vendored</body></html>`,
}

func TestIndexSite(t *testing.T) {
	root := writeSite(t, site)
	w := &recorder{}

	err := New(w, Options{BatchSize: 2, ParseWorkers: 2}).IndexSite(context.Background(), root)
	require.NoError(t, err)

	assert.Equal(t, []string{"/", "/blog/release.html", "/guide/install/"}, w.urls())
	assert.Len(t, w.batches, 2)
}

func TestIndexSiteProgress(t *testing.T) {
	root := writeSite(t, site)
	progCh, errCh := New(&recorder{}, Options{}).IndexSiteProgress(context.Background(), root)

	var stages []models.IndexStage
	var last models.IndexProgress
	for p := range progCh {
		stages = append(stages, p.Stage)
		last = p
	}
	require.NoError(t, <-errCh)

	assert.Equal(t, models.IndexStageScan, stages[0])
	assert.Contains(t, stages, models.IndexStageParse)
	assert.Contains(t, stages, models.IndexStageWrite)
	assert.Equal(t, models.IndexStageDone, last.Stage)
	assert.Equal(t, 3, last.TotalFiles)
	assert.Equal(t, 3, last.ParsedFiles)
	assert.Equal(t, 3, last.WrittenPages)
	assert.InDelta(t, 1, last.Percent, 0.0001)
}

func TestIndexSiteWriteError(t *testing.T) {
	root := writeSite(t, site)
	boom := errors.New("disk full")

	err := New(&recorder{err: boom}, Options{BatchSize: 1}).IndexSite(context.Background(), root)
	assert.ErrorIs(t, err, boom)
}

func TestIndexSiteMissingRoot(t *testing.T) {
	err := New(&recorder{}, Options{}).IndexSite(context.Background(), filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
}

func TestIndexSiteIntoBleve(t *testing.T) {
	root := writeSite(t, site)
	w, err := bleveengine.Create("")
	require.NoError(t, err)

	require.NoError(t, New(w, Options{}).IndexSite(context.Background(), root))

	e := bleveengine.New(w.Index(), bleveengine.Options{})
	defer e.Close()
	ctx := context.Background()

	counts, err := e.Filters(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"guide": 1, "blog": 1}, counts["section"])

	resp, err := e.Search(ctx, "installer", models.Filters{"section": {"guide"}})
	require.NoError(t, err)
	require.Len(t, resp.Results, 1)
	assert.Equal(t, 2, resp.UnfilteredCount)

	data, err := resp.Results[0].FetchData(ctx)
	require.NoError(t, err)
	assert.Equal(t, "/guide/install/", data.URL)
	assert.Equal(t, "Installation", data.Title)
}
