package search

import (
	"github.com/0x5457/pagesearch/internal/engine"
	"github.com/0x5457/pagesearch/internal/models"
)

// Key is a navigation key forwarded from the host.
type Key string

const (
	KeyDown  Key = "ArrowDown"
	KeyUp    Key = "ArrowUp"
	KeyEnter Key = "Enter"
)

// User events. Each is answered with the view after it was applied.
type (
	queryChanged   struct{ text string }
	filtersChanged struct{ filters models.Filters }
	filterToggled  struct{ name, value string }
	groupToggled   struct {
		name string
		open bool
	}
	filterFocused struct {
		group string
		index int
	}
	moreRequested  struct{}
	keyPressed     struct{ key Key }
	optionSelected struct{ id string }
	viewRequested  struct{}
	settleWanted   struct{}
)

// Completions posted by timers and background work.
type (
	debounceFired struct{ gen uint64 }
	indexLoaded   struct{ facets models.FacetCounts }
	searchDone    struct {
		tok   *token
		query models.SearchQuery
		resp  *engine.SearchResponse
		err   error
	}
	pageDone struct {
		tok     *token
		first   bool
		results []models.DisplayResult
		err     error
	}
)

type message struct {
	event any
	reply chan result
}

type result struct {
	view View
	href string
}
