// Package searchtest provides an in-memory Searcher for tests.
package searchtest

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/0x5457/pagesearch/internal/engine"
	"github.com/0x5457/pagesearch/internal/models"
)

// Doc is one searchable page.
type Doc struct {
	ID      string
	Data    models.MatchData
	Filters models.Filters
	// FetchDelay holds back loading the page data.
	FetchDelay time.Duration
}

// Searcher matches documents whose title or excerpt contains the query
// text, ignoring case. Facet counts are computed over the text matches.
type Searcher struct {
	Docs []Doc
	// Delay holds every Search back, unless its context ends first.
	Delay time.Duration
	// Delays overrides Delay for searches of specific texts.
	Delays map[string]time.Duration
	// IgnoreCancel lets delayed searches and fetches run to completion
	// after their context ends, like an engine that cannot be interrupted.
	IgnoreCancel bool
	// Err fails every Search.
	Err error

	mu       sync.Mutex
	searches []models.SearchQuery
	preloads []models.SearchQuery
}

func New(docs ...Doc) *Searcher {
	return &Searcher{Docs: docs}
}

func (s *Searcher) Load(context.Context) {}

func (s *Searcher) InitialFacets() models.FacetCounts {
	counts := models.FacetCounts{}
	for _, d := range s.Docs {
		addCounts(counts, d.Filters)
	}
	return counts
}

func (s *Searcher) Search(ctx context.Context, q models.SearchQuery) (*engine.SearchResponse, error) {
	s.mu.Lock()
	s.searches = append(s.searches, q)
	s.mu.Unlock()

	delay := s.Delay
	if d, ok := s.Delays[q.Text]; ok {
		delay = d
	}
	if err := s.wait(ctx, delay); err != nil {
		return nil, err
	}
	if s.Err != nil {
		return nil, s.Err
	}

	resp := &engine.SearchResponse{Filters: models.FacetCounts{}}
	text := strings.ToLower(strings.TrimSpace(q.Text))
	for _, d := range s.Docs {
		if !strings.Contains(strings.ToLower(d.Data.Title+" "+d.Data.Excerpt), text) {
			continue
		}
		resp.UnfilteredCount++
		if !matchesFilters(d.Filters, q.Filters) {
			continue
		}
		addCounts(resp.Filters, d.Filters)
		data, delay := d.Data, d.FetchDelay
		resp.Results = append(resp.Results, models.NewRawMatch(d.ID, 1, nil,
			func(ctx context.Context) (*models.MatchData, error) {
				if err := s.wait(ctx, delay); err != nil {
					return nil, err
				}
				return &data, nil
			}))
	}
	return resp, nil
}

func (s *Searcher) wait(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return nil
	}
	if s.IgnoreCancel {
		time.Sleep(delay)
		return nil
	}
	select {
	case <-time.After(delay):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Searcher) Preload(_ context.Context, q models.SearchQuery) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.preloads = append(s.preloads, q)
	return nil
}

// Searches returns the queries searched so far.
func (s *Searcher) Searches() []models.SearchQuery {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.searches)
}

// Preloads returns the queries preloaded so far.
func (s *Searcher) Preloads() []models.SearchQuery {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.preloads)
}

func matchesFilters(doc, selected models.Filters) bool {
	for name, values := range selected {
		if len(values) == 0 {
			continue
		}
		found := false
		for _, v := range values {
			if doc.Has(name, v) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func addCounts(counts models.FacetCounts, filters models.Filters) {
	for name, values := range filters {
		if counts[name] == nil {
			counts[name] = map[string]int{}
		}
		for _, v := range values {
			counts[name][v]++
		}
	}
}
