package models

import (
	"context"
	"maps"
	"slices"
	"sort"
)

// Reserved metadata keys. They surface through dedicated DisplayResult fields
// and never appear in the generic metadata pairs.
const (
	MetaTitle    = "title"
	MetaImage    = "image"
	MetaImageAlt = "image_alt"
	MetaURL      = "url"
)

// FacetCounts maps facet name -> facet value -> number of matching pages.
type FacetCounts map[string]map[string]int

// Clone returns a deep copy.
func (f FacetCounts) Clone() FacetCounts {
	if f == nil {
		return nil
	}
	out := make(FacetCounts, len(f))
	for name, values := range f {
		out[name] = maps.Clone(values)
	}
	return out
}

// Names returns the facet names in lexical order.
func (f FacetCounts) Names() []string {
	return slices.Sorted(maps.Keys(f))
}

// Filters holds the selected values per facet. Values within a facet are
// kept sorted and unique so two selections can be compared directly.
type Filters map[string][]string

// Clone returns a normalized deep copy with empty facets removed.
func (f Filters) Clone() Filters {
	out := make(Filters, len(f))
	for name, values := range f {
		if len(values) == 0 {
			continue
		}
		vs := slices.Clone(values)
		sort.Strings(vs)
		out[name] = slices.Compact(vs)
	}
	return out
}

// Has reports whether value is selected for facet name.
func (f Filters) Has(name, value string) bool {
	return slices.Contains(f[name], value)
}

// Toggle returns a copy of f with value added to or removed from facet name.
func (f Filters) Toggle(name, value string) Filters {
	out := f.Clone()
	if out.Has(name, value) {
		out[name] = slices.DeleteFunc(out[name], func(v string) bool { return v == value })
		if len(out[name]) == 0 {
			delete(out, name)
		}
		return out
	}
	out[name] = append(out[name], value)
	return out.Clone()
}

// Equal compares two selections after normalization.
func (f Filters) Equal(other Filters) bool {
	a, b := f.Clone(), other.Clone()
	if len(a) != len(b) {
		return false
	}
	for name, values := range a {
		if !slices.Equal(values, b[name]) {
			return false
		}
	}
	return true
}

// SearchQuery is an immutable snapshot of the user's input at one moment.
type SearchQuery struct {
	Text    string
	Filters Filters
}

// NewSearchQuery copies filters so later edits by the caller cannot leak in.
func NewSearchQuery(text string, filters Filters) SearchQuery {
	return SearchQuery{Text: text, Filters: filters.Clone()}
}

func (q SearchQuery) Equal(other SearchQuery) bool {
	return q.Text == other.Text && q.Filters.Equal(other.Filters)
}

// SubMatch is a heading-delimited section of a page that matched the query.
type SubMatch struct {
	Title     string `json:"title"`
	URL       string `json:"url"`
	Excerpt   string `json:"excerpt"`
	Locations []int  `json:"locations"`
}

// MatchData is the fully loaded content for one matching page.
type MatchData struct {
	URL        string            `json:"url"`
	Title      string            `json:"title"`
	Excerpt    string            `json:"excerpt"`
	Meta       map[string]string `json:"meta"`
	SubMatches []SubMatch        `json:"sub_results"`
	WordCount  int               `json:"word_count"`
}

// FetchFunc loads the full data for a match.
type FetchFunc func(ctx context.Context) (*MatchData, error)

// RawMatch is a ranked hit whose content has not been loaded yet.
type RawMatch struct {
	ID        string
	Score     float64
	Locations []int
	fetch     FetchFunc
}

func NewRawMatch(id string, score float64, locations []int, fetch FetchFunc) RawMatch {
	return RawMatch{ID: id, Score: score, Locations: locations, fetch: fetch}
}

// FetchData resolves the deferred page data.
func (m RawMatch) FetchData(ctx context.Context) (*MatchData, error) {
	if m.fetch == nil {
		return nil, nil
	}
	return m.fetch(ctx)
}

type MetaPair struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// DisplayResult is a render-ready record. Roots own their sub-results.
type DisplayResult struct {
	ID          string          `json:"id"`
	Href        string          `json:"href"`
	Title       string          `json:"title"`
	Excerpt     string          `json:"excerpt,omitempty"`
	Image       string          `json:"image,omitempty"`
	ImageAlt    string          `json:"image_alt,omitempty"`
	IsSubResult bool            `json:"is_sub_result"`
	Meta        []MetaPair      `json:"meta,omitempty"`
	SubResults  []DisplayResult `json:"sub_results,omitempty"`
}

// Page is a source document produced by the index builder.
type Page struct {
	URL      string
	Title    string
	Content  string
	Sections []Section
	Meta     map[string]string
	Filters  map[string][]string
}

// Section is a run of page text that starts at a heading. The first section
// of a page has no heading and no anchor.
type Section struct {
	Title  string `json:"title"`
	Anchor string `json:"anchor"`
	Text   string `json:"text"`
}

// Index progress and stages
type IndexStage string

const (
	IndexStageScan  IndexStage = "scan"
	IndexStageParse IndexStage = "parse"
	IndexStageWrite IndexStage = "write"
	IndexStageDone  IndexStage = "done"
)

// IndexProgress represents streaming progress updates for indexing
type IndexProgress struct {
	Stage        IndexStage
	TotalFiles   int
	ParsedFiles  int
	WrittenPages int
	CurrentFile  string
	Percent      float32
}
