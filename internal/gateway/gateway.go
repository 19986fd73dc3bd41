// Package gateway owns the search engine handle. The engine is loaded at most
// once per gateway, and every consumer waits on the same ready signal.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/0x5457/pagesearch/internal/engine"
	"github.com/0x5457/pagesearch/internal/models"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

var ErrNotReady = errors.New("search index is not ready")

var tracer = otel.Tracer("github.com/0x5457/pagesearch/internal/gateway")

// Loader constructs the engine. It is called at most once.
type Loader func(ctx context.Context) (engine.Engine, error)

// MergeIndex is a secondary index merged after the primary one has loaded.
type MergeIndex struct {
	Path    string
	Options engine.MergeOptions
}

type Options struct {
	Logger        *zap.Logger
	Loader        Loader
	EngineOptions engine.Options
	// MergeIndexes are merged in order.
	MergeIndexes []MergeIndex
}

type Gateway struct {
	logger     *zap.Logger
	loader     Loader
	engineOpts engine.Options
	merges     []MergeIndex

	loadOnce sync.Once
	ready    chan struct{}

	// Written once before ready is closed, read-only afterwards.
	engine  engine.Engine
	facets  models.FacetCounts
	loadErr error
}

func New(opts Options) *Gateway {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Gateway{
		logger:     opts.Logger,
		loader:     opts.Loader,
		engineOpts: opts.EngineOptions,
		merges:     opts.MergeIndexes,
		ready:      make(chan struct{}),
	}
}

// Load initializes the engine. Only the first call does any work; concurrent
// callers block until it finishes. A failed load is final. The load is
// shared by every caller, so it is not cancelled with the first caller's ctx.
func (g *Gateway) Load(ctx context.Context) {
	g.loadOnce.Do(func() {
		defer close(g.ready)
		g.load(context.WithoutCancel(ctx))
	})
}

func (g *Gateway) load(ctx context.Context) {
	ctx, span := tracer.Start(ctx, "Gateway.Load")
	defer span.End()

	if g.loader == nil {
		g.loadErr = errors.New("no index loader configured")
		g.logger.Error("failed to load search index", zap.Error(g.loadErr))
		return
	}

	eng, err := g.loader(ctx)
	if err == nil {
		err = eng.Options(g.engineOpts)
		if err != nil {
			_ = eng.Close()
		}
	}
	if err != nil {
		g.loadErr = err
		span.RecordError(err)
		g.logger.Error("failed to load search index", zap.Error(err))
		return
	}

	for _, m := range g.merges {
		if err := eng.MergeIndex(ctx, m.Path, m.Options); err != nil {
			g.logger.Warn("failed to merge index",
				zap.String("path", m.Path),
				zap.Error(err),
			)
		}
	}

	facets, err := eng.Filters(ctx)
	if err != nil {
		g.logger.Warn("failed to load filters", zap.Error(err))
		facets = models.FacetCounts{}
	}

	g.engine = eng
	g.facets = facets
	g.logger.Info("search index loaded",
		zap.Int("merged", len(g.merges)),
		zap.Int("facets", len(facets)),
	)
}

// WaitUntilReady blocks until Load has finished. It never starts a load.
// A gateway whose load failed reports ErrNotReady.
func (g *Gateway) WaitUntilReady(ctx context.Context) error {
	select {
	case <-g.ready:
	case <-ctx.Done():
		return ctx.Err()
	}
	if g.loadErr != nil {
		return fmt.Errorf("%w: %w", ErrNotReady, g.loadErr)
	}
	return nil
}

// Ready reports whether Load finished successfully, without blocking.
func (g *Gateway) Ready() bool {
	select {
	case <-g.ready:
		return g.loadErr == nil
	default:
		return false
	}
}

// InitialFacets returns the facet counts over the whole index. It is empty
// until the gateway is ready.
func (g *Gateway) InitialFacets() models.FacetCounts {
	if !g.Ready() {
		return models.FacetCounts{}
	}
	return g.facets.Clone()
}

// Search waits for the engine and runs q. An unready gateway yields an empty
// response rather than an error.
func (g *Gateway) Search(ctx context.Context, q models.SearchQuery) (*engine.SearchResponse, error) {
	ctx, span := tracer.Start(ctx, "Gateway.Search",
		trace.WithAttributes(attribute.String("query", q.Text)))
	defer span.End()

	if err := g.WaitUntilReady(ctx); err != nil {
		if errors.Is(err, ErrNotReady) {
			return &engine.SearchResponse{Filters: models.FacetCounts{}}, nil
		}
		return nil, err
	}
	resp, err := g.engine.Search(ctx, q.Text, q.Filters)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	span.SetAttributes(attribute.Int("results", len(resp.Results)))
	return resp, nil
}

// Preload warms the engine for q. Failures are not interesting to callers.
func (g *Gateway) Preload(ctx context.Context, q models.SearchQuery) error {
	ctx, span := tracer.Start(ctx, "Gateway.Preload")
	defer span.End()

	if err := g.WaitUntilReady(ctx); err != nil {
		return err
	}
	return g.engine.Preload(ctx, q.Text, q.Filters)
}

// Close releases the engine if it was loaded.
func (g *Gateway) Close() error {
	if !g.Ready() {
		return nil
	}
	return g.engine.Close()
}
