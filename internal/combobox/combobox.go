// Package combobox implements the keyboard selection model of a search
// result list: a flat, ordered list of options with one active descendant.
package combobox

import (
	"fmt"

	"github.com/0x5457/pagesearch/internal/models"
)

type State int

const (
	// Idle: nothing listed.
	Idle State = iota
	// Listed: results rendered, nothing selected.
	Listed
	// Navigating: one option is the active descendant.
	Navigating
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Listed:
		return "listed"
	case Navigating:
		return "navigating"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *State) UnmarshalText(text []byte) error {
	for _, st := range []State{Idle, Listed, Navigating} {
		if st.String() == string(text) {
			*s = st
			return nil
		}
	}
	return fmt.Errorf("combobox: unknown state %q", text)
}

// Option is one selectable entry. Roots and their sub-results are all options.
type Option struct {
	ID          string
	Href        string
	IsSubResult bool
}

type List struct {
	state   State
	options []Option
	index   map[string]int
	active  int
}

func New() *List {
	return &List{active: -1, index: map[string]int{}}
}

func (l *List) State() State {
	return l.state
}

func (l *List) Len() int {
	return len(l.options)
}

func (l *List) Options() []Option {
	return append([]Option(nil), l.options...)
}

// Replace renders a new result set, dropping the previous one and its
// selection.
func (l *List) Replace(results []models.DisplayResult) {
	l.options = l.options[:0]
	l.index = map[string]int{}
	l.active = -1
	l.add(results)
	l.state = Listed
}

// Append adds a further page after the existing options. The selection is
// kept.
func (l *List) Append(results []models.DisplayResult) {
	if l.state == Idle {
		panic("combobox: append to an empty list")
	}
	l.add(results)
}

func (l *List) add(results []models.DisplayResult) {
	for _, r := range results {
		l.push(r)
		for _, sub := range r.SubResults {
			l.push(sub)
		}
	}
}

func (l *List) push(r models.DisplayResult) {
	if r.ID == "" {
		panic("combobox: option without id")
	}
	if _, dup := l.index[r.ID]; dup {
		panic(fmt.Sprintf("combobox: duplicate option %q", r.ID))
	}
	l.index[r.ID] = len(l.options)
	l.options = append(l.options, Option{ID: r.ID, Href: r.Href, IsSubResult: r.IsSubResult})
}

// Clear returns to idle.
func (l *List) Clear() {
	l.options = nil
	l.index = map[string]int{}
	l.active = -1
	l.state = Idle
}

// Next moves the selection down, from nothing to the first option and from
// the last option back to the first.
func (l *List) Next() {
	l.move(1)
}

// Prev moves the selection up, from nothing to the last option and from the
// first option back to the last.
func (l *List) Prev() {
	l.move(-1)
}

func (l *List) move(delta int) {
	n := len(l.options)
	if l.state == Idle || n == 0 {
		return
	}
	switch {
	case l.active < 0 && delta > 0:
		l.active = 0
	case l.active < 0:
		l.active = n - 1
	default:
		l.active = ((l.active+delta)%n + n) % n
	}
	l.state = Navigating
}

// Select makes the option with id active.
func (l *List) Select(id string) bool {
	i, ok := l.index[id]
	if !ok {
		return false
	}
	l.active = i
	l.state = Navigating
	return true
}

// Accept returns the link of the active option. It is the only way a
// selection leads away from the list.
func (l *List) Accept() (string, bool) {
	if l.state != Navigating || l.active < 0 {
		return "", false
	}
	return l.options[l.active].Href, true
}

// ActiveDescendant is the id of the active option, or "".
func (l *List) ActiveDescendant() string {
	if l.active < 0 {
		return ""
	}
	return l.options[l.active].ID
}

// ActiveIndex is the position of the active option, or -1.
func (l *List) ActiveIndex() int {
	return l.active
}
