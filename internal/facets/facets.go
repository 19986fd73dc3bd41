package facets

import (
	"maps"
	"slices"
	"sort"

	"github.com/0x5457/pagesearch/internal/models"
)

type Options struct {
	// ShowEmpty keeps values with a zero count in the rendered groups.
	ShowEmpty bool
}

// Focus identifies a filter control by position, so it survives re-renders
// that replace every value.
type Focus struct {
	Group string `json:"group"`
	Index int    `json:"index"`
}

type ValueView struct {
	Value    string `json:"value"`
	Count    int    `json:"count"`
	Selected bool   `json:"selected"`
	Focused  bool   `json:"focused,omitempty"`
}

type GroupView struct {
	Name          string      `json:"name"`
	Open          bool        `json:"open"`
	SelectedCount int         `json:"selected_count"`
	Values        []ValueView `json:"values"`
}

// State tracks facets for one search session. It is not safe for concurrent
// use; the owner serializes access.
type State struct {
	showEmpty bool

	initial   models.FacetCounts
	available models.FacetCounts
	searched  bool

	selected models.Filters
	// expanded remembers every explicit open/close for the session.
	expanded map[string]bool
	focus    *Focus
}

func New(opts Options) *State {
	return &State{
		showEmpty: opts.ShowEmpty,
		initial:   models.FacetCounts{},
		selected:  models.Filters{},
		expanded:  map[string]bool{},
	}
}

// SetInitial records the unfiltered counts loaded with the index.
func (s *State) SetInitial(counts models.FacetCounts) {
	s.initial = counts.Clone()
}

// ApplyFilters replaces the selection.
func (s *State) ApplyFilters(selected models.Filters) {
	s.selected = selected.Clone()
}

func (s *State) Selected() models.Filters {
	return s.selected.Clone()
}

// Toggle flips one value and returns the new selection.
func (s *State) Toggle(name, value string) models.Filters {
	s.selected = s.selected.Toggle(name, value)
	return s.Selected()
}

// OnSearchCompleted replaces the available counts wholesale. Callers must
// only pass counts from the search that is still current.
func (s *State) OnSearchCompleted(available models.FacetCounts) {
	s.available = available.Clone()
	s.searched = true
}

// Reset drops the per-search counts, returning to the initial ones.
func (s *State) Reset() {
	s.available = nil
	s.searched = false
}

func (s *State) SetGroupOpen(name string, open bool) {
	s.expanded[name] = open
}

// OpenGroups lists the groups the user expanded during the session.
func (s *State) OpenGroups() []string {
	var out []string
	for name, open := range s.expanded {
		if open {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}

// RestoreOpenGroups marks groups as expanded, as if the user had opened them.
func (s *State) RestoreOpenGroups(names []string) {
	for _, name := range names {
		s.expanded[name] = true
	}
}

func (s *State) SetFocus(group string, index int) {
	s.focus = &Focus{Group: group, Index: index}
}

func (s *State) ClearFocus() {
	s.focus = nil
}

func (s *State) counts() models.FacetCounts {
	if s.searched {
		return s.available
	}
	return s.initial
}

// Render projects the state into ordered groups. Groups are sorted by name,
// values by descending count then name.
func (s *State) Render() []GroupView {
	counts := s.counts()
	names := map[string]struct{}{}
	for name := range counts {
		names[name] = struct{}{}
	}
	for name := range s.selected {
		names[name] = struct{}{}
	}
	sorted := slices.Sorted(maps.Keys(names))

	groups := make([]GroupView, 0, len(sorted))
	for _, name := range sorted {
		group := GroupView{Name: name, Open: s.isOpen(name, len(sorted))}

		values := maps.Clone(counts[name])
		if values == nil {
			values = map[string]int{}
		}
		for _, v := range s.selected[name] {
			if _, ok := values[v]; !ok {
				values[v] = 0
			}
		}
		for value, count := range values {
			selected := s.selected.Has(name, value)
			if count == 0 && !selected && !s.showEmpty {
				continue
			}
			if selected {
				group.SelectedCount++
			}
			group.Values = append(group.Values, ValueView{
				Value:    value,
				Count:    count,
				Selected: selected,
			})
		}
		sort.Slice(group.Values, func(i, j int) bool {
			a, b := group.Values[i], group.Values[j]
			if a.Count != b.Count {
				return a.Count > b.Count
			}
			return a.Value < b.Value
		})

		if s.focus != nil && s.focus.Group == name && len(group.Values) > 0 {
			idx := min(max(s.focus.Index, 0), len(group.Values)-1)
			group.Values[idx].Focused = true
		}
		groups = append(groups, group)
	}
	return groups
}

func (s *State) isOpen(name string, groupCount int) bool {
	if open, ok := s.expanded[name]; ok {
		return open
	}
	return groupCount == 1
}
