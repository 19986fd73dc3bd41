package indexer

import (
	"context"

	"github.com/0x5457/pagesearch/internal/models"
)

type Indexer interface {
	IndexSite(ctx context.Context, root string) error
	IndexSiteProgress(ctx context.Context, root string) (<-chan models.IndexProgress, <-chan error)
}
