package engine

import (
	"context"
	"errors"

	"github.com/0x5457/pagesearch/internal/models"
)

//go:generate moq -out mock_engine.go . Engine

var ErrNoIndex = errors.New("search index not found")

// Ranking holds the relative weights applied to matches in each field.
type Ranking struct {
	TitleBoost   float64
	ContentBoost float64
}

type Options struct {
	// ExcerptLength is the number of words shown around the densest match.
	ExcerptLength int
	Ranking       Ranking
}

// MergeOptions tune how a secondary index participates in searches.
type MergeOptions struct {
	// BaseURL is prefixed to every URL returned from the merged index.
	BaseURL string
	// Weight scales the scores of the merged index. Zero means 1.
	Weight float64
}

type SearchResponse struct {
	Results []models.RawMatch
	// Filters holds the facet counts for the current result set. Every known
	// value is present, with zero when it has no matches.
	Filters models.FacetCounts
	// UnfilteredCount is the number of matches before filters were applied.
	UnfilteredCount int
}

// Engine is the full-text search client. Implementations must be safe for
// concurrent use once configured.
type Engine interface {
	Options(opts Options) error
	MergeIndex(ctx context.Context, path string, opts MergeOptions) error
	Filters(ctx context.Context) (models.FacetCounts, error)
	Search(ctx context.Context, text string, filters models.Filters) (*SearchResponse, error)
	Preload(ctx context.Context, text string, filters models.Filters) error
	Close() error
}
