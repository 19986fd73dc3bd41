package bleveengine

import (
	"errors"
	"fmt"

	"github.com/0x5457/pagesearch/internal/models"
	"github.com/0x5457/pagesearch/internal/util"
	"github.com/blevesearch/bleve/v2"
)

// Writer adds pages to an index. It is used by the index builder only; the
// search side never writes.
type Writer struct {
	index bleve.Index
}

// Create opens the index at path, creating it when it does not exist yet.
// An empty path creates an in-memory index.
func Create(path string) (*Writer, error) {
	if path == "" {
		index, err := bleve.NewMemOnly(BuildIndexMapping())
		if err != nil {
			return nil, fmt.Errorf("create memory index: %w", err)
		}
		return &Writer{index: index}, nil
	}
	index, err := bleve.Open(path)
	if err == nil {
		return &Writer{index: index}, nil
	}
	if !errors.Is(err, bleve.ErrorIndexPathDoesNotExist) {
		return nil, fmt.Errorf("open index %s: %w", path, err)
	}
	index, err = bleve.New(path, BuildIndexMapping())
	if err != nil {
		return nil, fmt.Errorf("create index %s: %w", path, err)
	}
	return &Writer{index: index}, nil
}

func NewWriter(index bleve.Index) *Writer {
	return &Writer{index: index}
}

// WritePages upserts pages in one batch.
func (w *Writer) WritePages(pages []models.Page) error {
	if len(pages) == 0 {
		return nil
	}
	batch := w.index.NewBatch()
	for _, p := range pages {
		doc, err := pageDocument(p)
		if err != nil {
			return fmt.Errorf("encode %s: %w", p.URL, err)
		}
		if err := batch.Index(util.DocumentID(p.URL), doc); err != nil {
			return fmt.Errorf("index %s: %w", p.URL, err)
		}
	}
	return w.index.Batch(batch)
}

// Index exposes the underlying index so a writer can be searched directly.
func (w *Writer) Index() bleve.Index {
	return w.index
}

func (w *Writer) Close() error {
	return w.index.Close()
}
