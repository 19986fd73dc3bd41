package gateway

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/0x5457/pagesearch/internal/engine"
	"github.com/0x5457/pagesearch/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newEngineMock() *engine.EngineMock {
	return &engine.EngineMock{
		OptionsFunc: func(engine.Options) error { return nil },
		MergeIndexFunc: func(context.Context, string, engine.MergeOptions) error {
			return nil
		},
		FiltersFunc: func(context.Context) (models.FacetCounts, error) {
			return models.FacetCounts{"lang": {"go": 2}}, nil
		},
		SearchFunc: func(_ context.Context, text string, _ models.Filters) (*engine.SearchResponse, error) {
			return &engine.SearchResponse{
				Results:         []models.RawMatch{models.NewRawMatch(text, 1, nil, nil)},
				Filters:         models.FacetCounts{},
				UnfilteredCount: 1,
			}, nil
		},
		PreloadFunc: func(context.Context, string, models.Filters) error { return nil },
		CloseFunc:   func() error { return nil },
	}
}

func TestLoadRunsOnce(t *testing.T) {
	mock := newEngineMock()
	var loads atomic.Int32
	release := make(chan struct{})
	g := New(Options{
		Loader: func(context.Context) (engine.Engine, error) {
			loads.Add(1)
			<-release
			return mock, nil
		},
		EngineOptions: engine.Options{ExcerptLength: 12},
	})

	ctx := context.Background()
	var wg sync.WaitGroup
	for range 5 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			g.Load(ctx)
		}()
	}
	assert.False(t, g.Ready())
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), loads.Load())
	assert.True(t, g.Ready())
	require.Len(t, mock.OptionsCalls(), 1)
	assert.Equal(t, 12, mock.OptionsCalls()[0].Opts.ExcerptLength)
	assert.Equal(t, models.FacetCounts{"lang": {"go": 2}}, g.InitialFacets())
}

func TestLoadOutlivesCancelledCaller(t *testing.T) {
	mock := newEngineMock()
	mock.MergeIndexFunc = func(ctx context.Context, _ string, _ engine.MergeOptions) error {
		return ctx.Err()
	}
	mock.FiltersFunc = func(ctx context.Context) (models.FacetCounts, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return models.FacetCounts{"lang": {"go": 2}}, nil
	}
	g := New(Options{
		Loader: func(ctx context.Context) (engine.Engine, error) {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			return mock, nil
		},
		MergeIndexes: []MergeIndex{{Path: "/srv/blog.bleve"}},
	})

	cancelled, cancel := context.WithCancel(context.Background())
	cancel()
	g.Load(cancelled)
	g.Load(context.Background())

	require.NoError(t, g.WaitUntilReady(context.Background()))
	assert.True(t, g.Ready())
	assert.Equal(t, models.FacetCounts{"lang": {"go": 2}}, g.InitialFacets())
	require.Len(t, mock.MergeIndexCalls(), 1)
	assert.NoError(t, mock.MergeIndexCalls()[0].Ctx.Err())
}

func TestSearchWaitsForLoad(t *testing.T) {
	g := New(Options{
		Loader: func(context.Context) (engine.Engine, error) {
			time.Sleep(20 * time.Millisecond)
			return newEngineMock(), nil
		},
	})
	ctx := context.Background()

	results := make(chan *engine.SearchResponse, 3)
	for _, text := range []string{"a", "b", "c"} {
		go func() {
			resp, err := g.Search(ctx, models.NewSearchQuery(text, nil))
			assert.NoError(t, err)
			results <- resp
		}()
	}
	go g.Load(ctx)

	for range 3 {
		select {
		case resp := <-results:
			assert.Len(t, resp.Results, 1)
		case <-time.After(5 * time.Second):
			t.Fatal("search did not finish")
		}
	}
}

func TestWaitUntilReadyHonorsContext(t *testing.T) {
	g := New(Options{})
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	assert.ErrorIs(t, g.WaitUntilReady(ctx), context.DeadlineExceeded)
}

func TestLoadFailureDegrades(t *testing.T) {
	loadErr := errors.New("disk gone")
	g := New(Options{
		Loader: func(context.Context) (engine.Engine, error) {
			return nil, loadErr
		},
	})
	ctx := context.Background()
	g.Load(ctx)
	g.Load(ctx)

	assert.False(t, g.Ready())
	err := g.WaitUntilReady(ctx)
	assert.ErrorIs(t, err, ErrNotReady)
	assert.ErrorIs(t, err, loadErr)
	assert.Empty(t, g.InitialFacets())

	resp, err := g.Search(ctx, models.NewSearchQuery("go", nil))
	require.NoError(t, err)
	assert.Empty(t, resp.Results)
	assert.NotNil(t, resp.Filters)

	assert.ErrorIs(t, g.Preload(ctx, models.NewSearchQuery("go", nil)), ErrNotReady)
	assert.NoError(t, g.Close())
}

func TestOptionsFailureClosesEngine(t *testing.T) {
	mock := newEngineMock()
	mock.OptionsFunc = func(engine.Options) error { return errors.New("bad options") }
	g := New(Options{
		Loader: func(context.Context) (engine.Engine, error) { return mock, nil },
	})
	g.Load(context.Background())

	assert.False(t, g.Ready())
	assert.Len(t, mock.CloseCalls(), 1)
}

func TestMergeFailureIsNotFatal(t *testing.T) {
	mock := newEngineMock()
	mock.MergeIndexFunc = func(_ context.Context, path string, _ engine.MergeOptions) error {
		if path == "broken" {
			return errors.New("no such index")
		}
		return nil
	}
	g := New(Options{
		Loader: func(context.Context) (engine.Engine, error) { return mock, nil },
		MergeIndexes: []MergeIndex{
			{Path: "broken"},
			{Path: "docs", Options: engine.MergeOptions{BaseURL: "https://docs.example.com", Weight: 2}},
		},
	})
	g.Load(context.Background())

	assert.True(t, g.Ready())
	calls := mock.MergeIndexCalls()
	require.Len(t, calls, 2)
	assert.Equal(t, "broken", calls[0].Path)
	assert.Equal(t, "docs", calls[1].Path)
	assert.Equal(t, 2.0, calls[1].Opts.Weight)
}

func TestFiltersFailureGivesEmptyFacets(t *testing.T) {
	mock := newEngineMock()
	mock.FiltersFunc = func(context.Context) (models.FacetCounts, error) {
		return nil, errors.New("facets unavailable")
	}
	g := New(Options{
		Loader: func(context.Context) (engine.Engine, error) { return mock, nil },
	})
	g.Load(context.Background())

	assert.True(t, g.Ready())
	assert.Equal(t, models.FacetCounts{}, g.InitialFacets())
}

func TestSearchPassesQuery(t *testing.T) {
	mock := newEngineMock()
	g := New(Options{
		Loader: func(context.Context) (engine.Engine, error) { return mock, nil },
	})
	ctx := context.Background()
	g.Load(ctx)

	q := models.NewSearchQuery("go", models.Filters{"lang": {"go"}})
	_, err := g.Search(ctx, q)
	require.NoError(t, err)
	require.NoError(t, g.Preload(ctx, q))

	require.Len(t, mock.SearchCalls(), 1)
	assert.Equal(t, "go", mock.SearchCalls()[0].Text)
	assert.Equal(t, models.Filters{"lang": {"go"}}, mock.SearchCalls()[0].Filters)
	require.Len(t, mock.PreloadCalls(), 1)

	require.NoError(t, g.Close())
	assert.Len(t, mock.CloseCalls(), 1)
}
