// Package render draws a search view for the terminal.
package render

import (
	"fmt"
	"html"
	"regexp"
	"strings"

	"github.com/0x5457/pagesearch/internal/facets"
	"github.com/0x5457/pagesearch/internal/models"
	"github.com/0x5457/pagesearch/internal/search"
	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	activeStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("0")).Background(lipgloss.Color("11"))
	hrefStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	markStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("11"))
	metaStyle    = lipgloss.NewStyle().Italic(true).Foreground(lipgloss.Color("6"))
	groupStyle   = lipgloss.NewStyle().Bold(true)
	summaryStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	subIndent    = lipgloss.NewStyle().PaddingLeft(4)
	markPattern  = regexp.MustCompile(`<mark>(.*?)</mark>`)
	tagPattern   = regexp.MustCompile(`<[^>]+>`)
)

// View renders the results and, when withFacets is set, the filter groups.
func View(v search.View, withFacets bool) string {
	var b strings.Builder
	if withFacets {
		b.WriteString(Facets(v.Facets))
	}
	switch {
	case v.Query == "":
		return b.String()
	case v.Total == 0:
		fmt.Fprintf(&b, "%s\n", summaryStyle.Render(fmt.Sprintf("No results for %q", v.Query)))
		return b.String()
	}
	fmt.Fprintf(&b, "%s\n\n", summaryStyle.Render(
		fmt.Sprintf("%d results for %q (showing %d)", v.Total, v.Query, v.Shown)))
	for i, r := range v.Results {
		b.WriteString(result(r, i+1, v.ActiveDescendant))
		for _, sub := range r.SubResults {
			b.WriteString(subIndent.Render(result(sub, 0, v.ActiveDescendant)))
			b.WriteByte('\n')
		}
		b.WriteByte('\n')
	}
	if v.HasMore {
		b.WriteString(hrefStyle.Render("[more results available]"))
		b.WriteByte('\n')
	}
	return b.String()
}

func result(r models.DisplayResult, n int, active string) string {
	var b strings.Builder
	title := r.Title
	if n > 0 {
		title = fmt.Sprintf("%d. %s", n, title)
	}
	if r.ID == active {
		b.WriteString(activeStyle.Render("> " + title))
	} else {
		b.WriteString(titleStyle.Render(title))
	}
	b.WriteString(" ")
	b.WriteString(hrefStyle.Render(r.Href))
	b.WriteByte('\n')
	if r.Excerpt != "" {
		b.WriteString(Excerpt(r.Excerpt))
		b.WriteByte('\n')
	}
	for _, m := range r.Meta {
		b.WriteString(metaStyle.Render(m.Key + ": " + m.Value))
		b.WriteByte('\n')
	}
	return b.String()
}

// Excerpt converts highlighted excerpt HTML into styled terminal text.
func Excerpt(s string) string {
	var b strings.Builder
	last := 0
	for _, loc := range markPattern.FindAllStringSubmatchIndex(s, -1) {
		b.WriteString(plain(s[last:loc[0]]))
		b.WriteString(markStyle.Render(plain(s[loc[2]:loc[3]])))
		last = loc[1]
	}
	b.WriteString(plain(s[last:]))
	return b.String()
}

func plain(s string) string {
	return html.UnescapeString(tagPattern.ReplaceAllString(s, ""))
}

func Facets(groups []facets.GroupView) string {
	var b strings.Builder
	for _, g := range groups {
		marker := "+"
		if g.Open {
			marker = "-"
		}
		fmt.Fprintf(&b, "%s %s", marker, groupStyle.Render(g.Name))
		if g.SelectedCount > 0 {
			fmt.Fprintf(&b, " (%d selected)", g.SelectedCount)
		}
		b.WriteByte('\n')
		if !g.Open {
			continue
		}
		for _, v := range g.Values {
			box := "[ ]"
			if v.Selected {
				box = "[x]"
			}
			fmt.Fprintf(&b, "    %s %s (%d)\n", box, v.Value, v.Count)
		}
	}
	if b.Len() > 0 {
		b.WriteByte('\n')
	}
	return b.String()
}
