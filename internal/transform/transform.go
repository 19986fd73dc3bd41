package transform

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sort"

	"github.com/0x5457/pagesearch/internal/models"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultPageSize      = 5
	DefaultMaxSubResults = 3
)

var reservedMeta = map[string]bool{
	models.MetaTitle:    true,
	models.MetaImage:    true,
	models.MetaImageAlt: true,
	models.MetaURL:      true,
}

type Options struct {
	MaxSubResults int
	// ProcessResult may rewrite loaded data before it is turned into a
	// display result. It runs concurrently for the results of a page.
	ProcessResult func(*models.MatchData) *models.MatchData
}

type Transformer struct {
	maxSubResults int
	process       func(*models.MatchData) *models.MatchData
}

func New(opts Options) *Transformer {
	if opts.MaxSubResults <= 0 {
		opts.MaxSubResults = DefaultMaxSubResults
	}
	return &Transformer{maxSubResults: opts.MaxSubResults, process: opts.ProcessResult}
}

// TransformNextPage loads matches[alreadyShown:alreadyShown+pageSize] and
// returns their display results in rank order. Data for the page is fetched
// concurrently; the page is returned only when every match has resolved, and
// not at all if any fetch fails.
func (t *Transformer) TransformNextPage(
	ctx context.Context,
	matches []models.RawMatch,
	alreadyShown, pageSize int,
) ([]models.DisplayResult, error) {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	alreadyShown = max(alreadyShown, 0)
	if alreadyShown >= len(matches) {
		return nil, nil
	}
	page := matches[alreadyShown:min(alreadyShown+pageSize, len(matches))]

	out := make([]models.DisplayResult, len(page))
	g, gctx := errgroup.WithContext(ctx)
	for i, m := range page {
		g.Go(func() error {
			data, err := m.FetchData(gctx)
			if err != nil {
				return fmt.Errorf("load result %s: %w", m.ID, err)
			}
			if t.process != nil && data != nil {
				data = t.process(data)
			}
			out[i] = t.Build(m.ID, data)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// Build turns loaded data into a root result with its sub-results.
// It panics when data is nil: a result must never render before it loads.
func (t *Transformer) Build(id string, data *models.MatchData) models.DisplayResult {
	if data == nil {
		panic(fmt.Sprintf("transform: result %q rendered without data", id))
	}

	root := models.DisplayResult{
		ID:       id,
		Href:     data.URL,
		Title:    data.Title,
		Excerpt:  data.Excerpt,
		Image:    data.Meta[models.MetaImage],
		ImageAlt: data.Meta[models.MetaImageAlt],
		Meta:     metaPairs(data.Meta),
	}
	if u := data.Meta[models.MetaURL]; u != "" {
		root.Href = u
	}
	if title := data.Meta[models.MetaTitle]; title != "" {
		root.Title = title
	}

	subs := slices.Clone(data.SubMatches)
	if len(subs) > 0 && subs[0].URL == data.URL {
		root.Excerpt = subs[0].Excerpt
		subs = subs[1:]
	}
	sort.SliceStable(subs, func(i, j int) bool {
		return len(subs[i].Locations) > len(subs[j].Locations)
	})
	if len(subs) > t.maxSubResults {
		subs = subs[:t.maxSubResults]
	}

	for i, sub := range subs {
		root.SubResults = append(root.SubResults, models.DisplayResult{
			ID:          fmt.Sprintf("%s-%d", id, i),
			Href:        sub.URL,
			Title:       sub.Title,
			Excerpt:     sub.Excerpt,
			IsSubResult: true,
		})
	}
	return root
}

func metaPairs(meta map[string]string) []models.MetaPair {
	var pairs []models.MetaPair
	for _, key := range slices.Sorted(maps.Keys(meta)) {
		if reservedMeta[key] || meta[key] == "" {
			continue
		}
		pairs = append(pairs, models.MetaPair{Key: key, Value: meta[key]})
	}
	return pairs
}
