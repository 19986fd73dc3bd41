package pipeline

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/0x5457/pagesearch/internal/indexer/htmlpage"
	"github.com/0x5457/pagesearch/internal/models"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// PageWriter stores parsed pages. *bleveengine.Writer implements it.
type PageWriter interface {
	WritePages(pages []models.Page) error
}

type Options struct {
	Logger       *zap.Logger
	ParseWorkers int
	BatchSize    int
}

type Indexer struct {
	w      PageWriter
	logger *zap.Logger
	opt    Options
}

func New(w PageWriter, opt Options) *Indexer {
	if opt.ParseWorkers <= 0 {
		opt.ParseWorkers = runtime.NumCPU()
	}
	if opt.BatchSize <= 0 {
		opt.BatchSize = 100
	}
	if opt.Logger == nil {
		opt.Logger = zap.NewNop()
	}
	return &Indexer{w: w, logger: opt.Logger, opt: opt}
}

func (i *Indexer) IndexSite(ctx context.Context, root string) error {
	progCh, errCh := i.IndexSiteProgress(ctx, root)
	for range progCh {
	}
	return <-errCh
}

// IndexSiteProgress parses every HTML file below root and writes the pages
// in batches. Progress is reported on the first channel; the second receives
// exactly one value, the final error or nil, after progress is closed.
func (i *Indexer) IndexSiteProgress(
	ctx context.Context,
	root string,
) (<-chan models.IndexProgress, <-chan error) {
	progCh := make(chan models.IndexProgress, 16)
	errCh := make(chan error, 1)
	go func() {
		err := i.run(ctx, root, progCh)
		close(progCh)
		errCh <- err
		close(errCh)
	}()
	return progCh, errCh
}

func (i *Indexer) run(ctx context.Context, root string, progCh chan<- models.IndexProgress) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	send := func(p models.IndexProgress) {
		select {
		case progCh <- p:
		case <-ctx.Done():
		}
	}

	send(models.IndexProgress{Stage: models.IndexStageScan})
	files, err := listHTMLFiles(root)
	if err != nil {
		return fmt.Errorf("scan %s: %w", root, err)
	}
	total := len(files)
	i.logger.Info("indexing site", zap.String("root", root), zap.Int("files", total))

	// Stage 1: parse files concurrently
	type parsed struct {
		file string
		page models.Page
	}
	fileCh := make(chan string)
	resCh := make(chan parsed)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer close(fileCh)
		for _, f := range files {
			select {
			case fileCh <- f:
			case <-gctx.Done():
				return gctx.Err()
			}
		}
		return nil
	})
	for w := 0; w < i.opt.ParseWorkers; w++ {
		g.Go(func() error {
			for f := range fileCh {
				page, err := parseFile(root, f)
				if err != nil {
					return err
				}
				select {
				case resCh <- parsed{file: f, page: page}:
				case <-gctx.Done():
					return gctx.Err()
				}
			}
			return nil
		})
	}
	go func() { _ = g.Wait(); close(resCh) }()

	// Stage 2: collect and write in batches
	var batch []models.Page
	parsedFiles, written := 0, 0
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := i.w.WritePages(batch); err != nil {
			return fmt.Errorf("write pages: %w", err)
		}
		written += len(batch)
		batch = batch[:0]
		send(models.IndexProgress{
			Stage:        models.IndexStageWrite,
			TotalFiles:   total,
			ParsedFiles:  parsedFiles,
			WrittenPages: written,
			Percent:      percent(written, total),
		})
		return nil
	}
	for r := range resCh {
		parsedFiles++
		batch = append(batch, r.page)
		send(models.IndexProgress{
			Stage:        models.IndexStageParse,
			TotalFiles:   total,
			ParsedFiles:  parsedFiles,
			WrittenPages: written,
			CurrentFile:  r.file,
			Percent:      percent(written, total),
		})
		if len(batch) >= i.opt.BatchSize {
			if err := flush(); err != nil {
				return err
			}
		}
	}
	if err := g.Wait(); err != nil {
		return err
	}
	if err := flush(); err != nil {
		return err
	}

	send(models.IndexProgress{
		Stage:        models.IndexStageDone,
		TotalFiles:   total,
		ParsedFiles:  parsedFiles,
		WrittenPages: written,
		Percent:      1,
	})
	return nil
}

func parseFile(root, file string) (models.Page, error) {
	f, err := os.Open(file)
	if err != nil {
		return models.Page{}, err
	}
	defer func() { _ = f.Close() }()
	url, err := htmlpage.URLFor(root, file)
	if err != nil {
		return models.Page{}, err
	}
	return htmlpage.Parse(f, url)
}

func percent(done, total int) float32 {
	if total == 0 {
		return 1
	}
	return float32(done) / float32(total)
}

func listHTMLFiles(root string) ([]string, error) {
	var files []string
	walkErr := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			name := d.Name()
			if name == "node_modules" || name == ".git" || (strings.HasPrefix(name, ".") && path != root) {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasSuffix(path, ".html") || strings.HasSuffix(path, ".htm") {
			files = append(files, path)
		}
		return nil
	})
	return files, walkErr
}
