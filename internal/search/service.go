package search

import (
	"time"

	"github.com/0x5457/pagesearch/internal/storage"
	"github.com/0x5457/pagesearch/internal/transform"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Service starts search sessions that share one index and one set of
// options. Each session is an independent Orchestrator.
type Service struct {
	Logger      *zap.Logger
	Searcher    Searcher
	Transformer *transform.Transformer
	Sessions    storage.SessionStore

	Debounce         time.Duration
	PageSize         int
	ShowEmptyFilters bool
	// PreloadRate is the number of preloads allowed per second and session.
	// Zero disables the limit.
	PreloadRate float64
}

// NewSession creates a session. An empty id starts a fresh session with a
// generated id; a known id restores the persisted state when it runs.
func (s *Service) NewSession(id string) (*Orchestrator, string) {
	if id == "" {
		id = uuid.NewString()
	}
	opts := s.options()
	opts.Sessions = s.Sessions
	opts.SessionID = id
	return New(opts), id
}

// NewOneShot creates a session that is never persisted, for callers that
// run a single query and discard the session.
func (s *Service) NewOneShot() *Orchestrator {
	return New(s.options())
}

func (s *Service) options() Options {
	var limiter *rate.Limiter
	if s.PreloadRate > 0 {
		limiter = rate.NewLimiter(rate.Limit(s.PreloadRate), max(1, int(s.PreloadRate)))
	}
	return Options{
		Logger:           s.Logger,
		Searcher:         s.Searcher,
		Transformer:      s.Transformer,
		Debounce:         s.Debounce,
		PageSize:         s.PageSize,
		ShowEmptyFilters: s.ShowEmptyFilters,
		PreloadLimiter:   limiter,
	}
}
