package search

import (
	"slices"

	"github.com/0x5457/pagesearch/internal/combobox"
	"github.com/0x5457/pagesearch/internal/facets"
	"github.com/0x5457/pagesearch/internal/models"
)

type Stats struct {
	Searches        int `json:"searches"`
	Superseded      int `json:"superseded"`
	Preloads        int `json:"preloads"`
	PreloadsDropped int `json:"preloads_dropped"`
}

// View is an immutable snapshot of a session, ready to render.
type View struct {
	Query            string                 `json:"query"`
	Filters          models.Filters         `json:"filters"`
	State            combobox.State         `json:"state"`
	Results          []models.DisplayResult `json:"results"`
	ActiveDescendant string                 `json:"active_descendant,omitempty"`
	Shown            int                    `json:"shown"`
	Total            int                    `json:"total"`
	UnfilteredTotal  int                    `json:"unfiltered_total"`
	HasMore          bool                   `json:"has_more"`
	Loading          bool                   `json:"loading"`
	Ready            bool                   `json:"ready"`
	Facets           []facets.GroupView     `json:"facets"`
	Stats            Stats                  `json:"stats"`
}

func (o *Orchestrator) view() View {
	return View{
		Query:            o.query.Text,
		Filters:          o.query.Filters.Clone(),
		State:            o.list.State(),
		Results:          slices.Clone(o.results),
		ActiveDescendant: o.list.ActiveDescendant(),
		Shown:            o.shown,
		Total:            len(o.matches),
		UnfilteredTotal:  o.unfiltered,
		HasMore:          o.shown < len(o.matches),
		Loading:          o.pending(),
		Ready:            o.loaded,
		Facets:           o.facets.Render(),
		Stats:            o.stats,
	}
}
