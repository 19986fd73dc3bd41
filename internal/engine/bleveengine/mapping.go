package bleveengine

import (
	"encoding/json"
	"maps"
	"slices"

	"github.com/0x5457/pagesearch/internal/models"
	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	"github.com/blevesearch/bleve/v2/mapping"
)

// Document field names.
const (
	FieldURL      = "url"
	FieldTitle    = "title"
	FieldContent  = "content"
	FieldSections = "sections"
	FieldMeta     = "meta"
	FieldFacets   = "facets"
)

// facetSeparator joins a facet name and value into a single keyword term.
const facetSeparator = ":"

// BuildIndexMapping returns the mapping shared by the index builder and the
// engine. Dynamic fields are disabled so stray page data never becomes
// searchable.
func BuildIndexMapping() mapping.IndexMapping {
	text := bleve.NewTextFieldMapping()
	text.Analyzer = standard.Name
	text.Store = true
	text.IncludeTermVectors = true

	stored := bleve.NewTextFieldMapping()
	stored.Index = false
	stored.Store = true
	stored.IncludeInAll = false
	stored.IncludeTermVectors = false

	facet := bleve.NewKeywordFieldMapping()
	facet.Analyzer = keyword.Name
	facet.Store = false
	facet.IncludeInAll = false

	doc := bleve.NewDocumentMapping()
	doc.Dynamic = false
	doc.AddFieldMappingsAt(FieldURL, stored)
	doc.AddFieldMappingsAt(FieldTitle, text)
	doc.AddFieldMappingsAt(FieldContent, text)
	doc.AddFieldMappingsAt(FieldSections, stored)
	doc.AddFieldMappingsAt(FieldMeta, stored)
	doc.AddFieldMappingsAt(FieldFacets, facet)

	im := bleve.NewIndexMapping()
	im.DefaultMapping = doc
	im.DefaultAnalyzer = standard.Name
	return im
}

// pageDocument flattens a page into the field layout of BuildIndexMapping.
func pageDocument(p models.Page) (map[string]any, error) {
	sections, err := json.Marshal(p.Sections)
	if err != nil {
		return nil, err
	}
	meta, err := json.Marshal(p.Meta)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		FieldURL:      p.URL,
		FieldTitle:    p.Title,
		FieldContent:  p.Content,
		FieldSections: string(sections),
		FieldMeta:     string(meta),
		FieldFacets:   facetTerms(p.Filters),
	}, nil
}

func facetTerms(filters map[string][]string) []string {
	var terms []string
	for _, name := range slices.Sorted(maps.Keys(filters)) {
		for _, value := range filters[name] {
			terms = append(terms, facetTerm(name, value))
		}
	}
	return terms
}

func facetTerm(name, value string) string {
	return name + facetSeparator + value
}
