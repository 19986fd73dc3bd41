package bleveengine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"slices"
	"sort"
	"strings"
	"sync"

	"github.com/0x5457/pagesearch/internal/engine"
	"github.com/0x5457/pagesearch/internal/models"
	"github.com/0x5457/pagesearch/internal/util"
	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	blevesearch "github.com/blevesearch/bleve/v2/search"
	"github.com/blevesearch/bleve/v2/search/query"
	"go.uber.org/zap"
)

const (
	defaultExcerptLength = 30
	defaultMaxResults    = 500
	maxFacetValues       = 1000
)

var ErrDocumentNotFound = errors.New("document not found")

type Options struct {
	Logger *zap.Logger
	// MaxResults caps the number of ranked matches returned per search.
	MaxResults int
}

type source struct {
	name  string
	index bleve.Index
	merge engine.MergeOptions
}

// Engine serves searches from one primary bleve index plus any number of
// merged secondary indexes.
type Engine struct {
	logger     *zap.Logger
	maxResults int
	analyzer   analysis.Analyzer

	mu      sync.RWMutex
	opts    engine.Options
	alias   bleve.IndexAlias
	sources map[string]*source
	primary string
	known   models.FacetCounts
}

// Open opens the primary index at path.
func Open(path string, opts Options) (*Engine, error) {
	index, err := bleve.Open(path)
	if err != nil {
		if errors.Is(err, bleve.ErrorIndexPathDoesNotExist) {
			return nil, fmt.Errorf("%s: %w", path, engine.ErrNoIndex)
		}
		return nil, fmt.Errorf("open index %s: %w", path, err)
	}
	return New(index, opts), nil
}

// New wraps an already opened index.
func New(primary bleve.Index, opts Options) *Engine {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.MaxResults <= 0 {
		opts.MaxResults = defaultMaxResults
	}
	e := &Engine{
		logger:     opts.Logger,
		maxResults: opts.MaxResults,
		analyzer:   BuildIndexMapping().AnalyzerNamed(standard.Name),
		alias:      bleve.NewIndexAlias(),
		sources:    make(map[string]*source),
		opts: engine.Options{
			ExcerptLength: defaultExcerptLength,
			Ranking:       engine.Ranking{TitleBoost: 2, ContentBoost: 1},
		},
	}
	e.primary = e.addIndex(primary, engine.MergeOptions{})
	return e
}

func (e *Engine) Options(opts engine.Options) error {
	if opts.ExcerptLength < 0 {
		return fmt.Errorf("excerpt length must not be negative: %d", opts.ExcerptLength)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if opts.ExcerptLength > 0 {
		e.opts.ExcerptLength = opts.ExcerptLength
	}
	if opts.Ranking.TitleBoost > 0 {
		e.opts.Ranking.TitleBoost = opts.Ranking.TitleBoost
	}
	if opts.Ranking.ContentBoost > 0 {
		e.opts.Ranking.ContentBoost = opts.Ranking.ContentBoost
	}
	return nil
}

func (e *Engine) MergeIndex(ctx context.Context, path string, opts engine.MergeOptions) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	index, err := bleve.Open(path)
	if err != nil {
		return fmt.Errorf("open merged index %s: %w", path, err)
	}
	e.AddIndex(index, opts)
	return nil
}

// AddIndex merges an opened index. Its hits are attributed by index name, so
// the name must be unique.
func (e *Engine) AddIndex(index bleve.Index, opts engine.MergeOptions) {
	name := e.addIndex(index, opts)
	e.logger.Debug("merged index", zap.String("index", name), zap.String("base_url", opts.BaseURL))
}

func (e *Engine) addIndex(index bleve.Index, opts engine.MergeOptions) string {
	e.mu.Lock()
	defer e.mu.Unlock()
	name := index.Name()
	if name == "" || e.sources[name] != nil {
		name = fmt.Sprintf("index-%d", len(e.sources))
		index.SetName(name)
	}
	if opts.Weight <= 0 {
		opts.Weight = 1
	}
	e.sources[name] = &source{name: name, index: index, merge: opts}
	e.alias.Add(index)
	return name
}

func (e *Engine) Filters(ctx context.Context) (models.FacetCounts, error) {
	req := bleve.NewSearchRequestOptions(bleve.NewMatchAllQuery(), 0, 0, false)
	req.AddFacet(FieldFacets, bleve.NewFacetRequest(FieldFacets, maxFacetValues))
	res, err := e.alias.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("load filters: %w", err)
	}
	counts := facetCounts(res.Facets)

	e.mu.Lock()
	e.known = counts.Clone()
	e.mu.Unlock()
	return counts, nil
}

func (e *Engine) Search(
	ctx context.Context,
	text string,
	filters models.Filters,
) (*engine.SearchResponse, error) {
	e.mu.RLock()
	opts := e.opts
	known := e.known.Clone()
	e.mu.RUnlock()

	terms := e.queryTerms(text)
	if len(terms) == 0 {
		return &engine.SearchResponse{Filters: zeroFill(nil, known)}, nil
	}
	textQuery := buildTextQuery(terms, opts.Ranking)

	q := textQuery
	if fq := buildFilterQuery(filters); fq != nil {
		q = bleve.NewConjunctionQuery(textQuery, fq)
	}
	req := bleve.NewSearchRequestOptions(q, e.maxResults, 0, false)
	req.IncludeLocations = true
	req.SortBy([]string{"-_score", "_id"})
	req.AddFacet(FieldFacets, bleve.NewFacetRequest(FieldFacets, maxFacetValues))

	res, err := e.alias.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("search %q: %w", text, err)
	}

	unfiltered := int(res.Total)
	if q != textQuery {
		countReq := bleve.NewSearchRequestOptions(textQuery, 0, 0, false)
		countRes, err := e.alias.SearchInContext(ctx, countReq)
		if err != nil {
			return nil, fmt.Errorf("count %q: %w", text, err)
		}
		unfiltered = int(countRes.Total)
	}

	results := make([]models.RawMatch, 0, len(res.Hits))
	weighted := false
	for _, hit := range res.Hits {
		src := e.sourceFor(hit.Index)
		if src.merge.Weight != 1 {
			weighted = true
		}
		results = append(results, e.rawMatch(hit, src))
	}
	if weighted {
		sort.SliceStable(results, func(i, j int) bool {
			return results[i].Score > results[j].Score
		})
	}

	return &engine.SearchResponse{
		Results:         results,
		Filters:         zeroFill(facetCounts(res.Facets), known),
		UnfilteredCount: unfiltered,
	}, nil
}

func (e *Engine) Preload(ctx context.Context, text string, filters models.Filters) error {
	terms := e.queryTerms(text)
	if len(terms) == 0 {
		return nil
	}
	e.mu.RLock()
	ranking := e.opts.Ranking
	e.mu.RUnlock()

	q := buildTextQuery(terms, ranking)
	if fq := buildFilterQuery(filters); fq != nil {
		q = bleve.NewConjunctionQuery(q, fq)
	}
	_, err := e.alias.SearchInContext(ctx, bleve.NewSearchRequestOptions(q, 0, 0, false))
	return err
}

func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	var errs []error
	for _, src := range e.sources {
		errs = append(errs, src.index.Close())
	}
	e.sources = map[string]*source{}
	return errors.Join(errs...)
}

func (e *Engine) sourceFor(name string) *source {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if src, ok := e.sources[name]; ok {
		return src
	}
	return e.sources[e.primary]
}

func (e *Engine) queryTerms(text string) []string {
	var terms []string
	for _, tok := range e.analyzer.Analyze([]byte(text)) {
		terms = append(terms, string(tok.Term))
	}
	return terms
}

// rawMatch captures everything fetchData needs so the deferred load does not
// depend on engine state that may change later.
func (e *Engine) rawMatch(hit *blevesearch.DocumentMatch, src *source) models.RawMatch {
	matched := make(map[string]struct{})
	var locations []int
	for field, termLocations := range hit.Locations {
		for term, locs := range termLocations {
			matched[term] = struct{}{}
			if field != FieldContent {
				continue
			}
			for _, loc := range locs {
				locations = append(locations, int(loc.Pos))
			}
		}
	}
	slices.Sort(locations)
	locations = slices.Compact(locations)

	// Document ids are only unique within one index; merged hits are
	// qualified by the index they came from.
	id := hit.ID
	resultID := id
	if src.name != e.primary {
		resultID = src.name + "/" + id
	}
	return models.NewRawMatch(resultID, hit.Score*src.merge.Weight, locations,
		func(ctx context.Context) (*models.MatchData, error) {
			return e.fetch(ctx, src, id, matched)
		})
}

func (e *Engine) fetch(
	ctx context.Context,
	src *source,
	id string,
	matched map[string]struct{},
) (*models.MatchData, error) {
	req := bleve.NewSearchRequest(bleve.NewDocIDQuery([]string{id}))
	req.Fields = []string{"*"}
	res, err := src.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", id, err)
	}
	if len(res.Hits) == 0 {
		return nil, fmt.Errorf("fetch %s: %w", id, ErrDocumentNotFound)
	}
	fields := res.Hits[0].Fields

	e.mu.RLock()
	excerptLength := e.opts.ExcerptLength
	e.mu.RUnlock()

	url := util.JoinURL(src.merge.BaseURL, getStringField(fields, FieldURL))
	title := getStringField(fields, FieldTitle)
	content := analyze(e.analyzer, getStringField(fields, FieldContent))

	meta := map[string]string{}
	if raw := getStringField(fields, FieldMeta); raw != "" {
		if err := json.Unmarshal([]byte(raw), &meta); err != nil {
			return nil, fmt.Errorf("decode meta of %s: %w", id, err)
		}
	}
	if meta == nil {
		meta = map[string]string{}
	}
	meta[models.MetaTitle] = title
	meta[models.MetaURL] = url

	var sections []models.Section
	if raw := getStringField(fields, FieldSections); raw != "" {
		if err := json.Unmarshal([]byte(raw), &sections); err != nil {
			return nil, fmt.Errorf("decode sections of %s: %w", id, err)
		}
	}

	return &models.MatchData{
		URL:        url,
		Title:      title,
		Excerpt:    content.excerpt(matched, excerptLength),
		Meta:       meta,
		SubMatches: subMatches(e.analyzer, url, title, sections, matched, excerptLength),
		WordCount:  len(content.tokens),
	}, nil
}

// subMatches returns the matching sections in document order. Positions are
// page-relative so they line up with the match's own locations.
func subMatches(
	a analysis.Analyzer,
	pageURL, pageTitle string,
	sections []models.Section,
	matched map[string]struct{},
	excerptLength int,
) []models.SubMatch {
	var out []models.SubMatch
	offset := 0
	for _, sec := range sections {
		an := analyze(a, sec.Text)
		hits := an.matches(matched)
		if len(hits) > 0 {
			locations := make([]int, len(hits))
			for i, h := range hits {
				locations[i] = offset + an.tokens[h].Position
			}
			sub := models.SubMatch{
				Title:     sec.Title,
				URL:       pageURL,
				Excerpt:   an.excerpt(matched, excerptLength),
				Locations: locations,
			}
			if sec.Anchor != "" {
				sub.URL = pageURL + "#" + sec.Anchor
			}
			if sub.Title == "" {
				sub.Title = pageTitle
			}
			out = append(out, sub)
		}
		offset += len(an.tokens)
	}
	return out
}

func buildTextQuery(terms []string, ranking engine.Ranking) query.Query {
	conjuncts := make([]query.Query, 0, len(terms))
	for i, term := range terms {
		var disjuncts []query.Query
		for _, field := range []string{FieldTitle, FieldContent} {
			boost := ranking.ContentBoost
			if field == FieldTitle {
				boost = ranking.TitleBoost
			}
			tq := bleve.NewTermQuery(term)
			tq.SetField(field)
			tq.SetBoost(boost)
			disjuncts = append(disjuncts, tq)
			if i == len(terms)-1 {
				pq := bleve.NewPrefixQuery(term)
				pq.SetField(field)
				pq.SetBoost(boost / 2)
				disjuncts = append(disjuncts, pq)
			}
		}
		conjuncts = append(conjuncts, bleve.NewDisjunctionQuery(disjuncts...))
	}
	return bleve.NewConjunctionQuery(conjuncts...)
}

// buildFilterQuery ORs the values selected within a facet and ANDs facets.
func buildFilterQuery(filters models.Filters) query.Query {
	var conjuncts []query.Query
	for _, name := range slices.Sorted(maps.Keys(filters)) {
		values := filters[name]
		if len(values) == 0 {
			continue
		}
		disjuncts := make([]query.Query, 0, len(values))
		for _, value := range values {
			tq := bleve.NewTermQuery(facetTerm(name, value))
			tq.SetField(FieldFacets)
			disjuncts = append(disjuncts, tq)
		}
		conjuncts = append(conjuncts, bleve.NewDisjunctionQuery(disjuncts...))
	}
	if len(conjuncts) == 0 {
		return nil
	}
	return bleve.NewConjunctionQuery(conjuncts...)
}

func facetCounts(facets blevesearch.FacetResults) models.FacetCounts {
	counts := models.FacetCounts{}
	fr, ok := facets[FieldFacets]
	if !ok || fr == nil || fr.Terms == nil {
		return counts
	}
	for _, tf := range fr.Terms.Terms() {
		name, value, ok := strings.Cut(tf.Term, facetSeparator)
		if !ok {
			continue
		}
		if counts[name] == nil {
			counts[name] = map[string]int{}
		}
		counts[name][value] = tf.Count
	}
	return counts
}

// zeroFill adds every known facet value missing from counts with a zero count.
func zeroFill(counts, known models.FacetCounts) models.FacetCounts {
	out := counts.Clone()
	if out == nil {
		out = models.FacetCounts{}
	}
	for name, values := range known {
		if out[name] == nil {
			out[name] = map[string]int{}
		}
		for value := range values {
			if _, ok := out[name][value]; !ok {
				out[name][value] = 0
			}
		}
	}
	return out
}

func getStringField(fields map[string]interface{}, name string) string {
	if v, ok := fields[name].(string); ok {
		return v
	}
	return ""
}
