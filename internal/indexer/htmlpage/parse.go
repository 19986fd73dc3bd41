// Package htmlpage extracts searchable pages from rendered HTML.
//
// Recognized markup:
//
//	<main> or [data-search-body]     the indexed region (falls back to <body>)
//	h1-h6 with an id                 starts a section linkable by anchor
//	[data-search-ignore]             subtree left out of the index
//	[data-search-meta="key:value"]   metadata; "key" alone takes the element text
//	[data-search-filter="name:value"] facet value; "name" alone takes the element text
//	<meta property="og:image">       the page image
package htmlpage

import (
	"fmt"
	"io"
	"path"
	"path/filepath"
	"strings"

	"github.com/0x5457/pagesearch/internal/models"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

const (
	attrBody   = "data-search-body"
	attrIgnore = "data-search-ignore"
	attrMeta   = "data-search-meta"
	attrFilter = "data-search-filter"
)

var skipped = map[atom.Atom]bool{
	atom.Script:   true,
	atom.Style:    true,
	atom.Noscript: true,
	atom.Template: true,
	atom.Nav:      true,
	atom.Svg:      true,
}

var headings = map[atom.Atom]bool{
	atom.H1: true, atom.H2: true, atom.H3: true,
	atom.H4: true, atom.H5: true, atom.H6: true,
}

// Parse reads one HTML document served at url.
func Parse(r io.Reader, url string) (models.Page, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return models.Page{}, fmt.Errorf("parse %s: %w", url, err)
	}
	page := models.Page{
		URL:     url,
		Meta:    map[string]string{},
		Filters: map[string][]string{},
	}

	var title, firstH1 string
	var body, main, marked *html.Node
	walk(doc, func(n *html.Node) bool {
		if n.Type != html.ElementNode {
			return true
		}
		switch {
		case n.DataAtom == atom.Title && title == "":
			title = text(n)
		case n.DataAtom == atom.H1 && firstH1 == "":
			firstH1 = text(n)
		case n.DataAtom == atom.Body && body == nil:
			body = n
		case n.DataAtom == atom.Main && main == nil:
			main = n
		case n.DataAtom == atom.Meta:
			readOpenGraph(n, page.Meta)
		}
		if hasAttr(n, attrBody) && marked == nil {
			marked = n
		}
		readTagged(n, page.Meta, page.Filters)
		return true
	})

	page.Title = title
	if firstH1 != "" {
		page.Title = firstH1
	}

	root := marked
	if root == nil {
		root = main
	}
	if root == nil {
		root = body
	}
	if root == nil {
		root = doc
	}
	page.Sections = sections(root)

	parts := make([]string, 0, len(page.Sections))
	for _, s := range page.Sections {
		if s.Text != "" {
			parts = append(parts, s.Text)
		}
	}
	page.Content = strings.Join(parts, " ")
	return page, nil
}

// sections splits the region at headings that carry an id. The first
// section holds the text before any such heading and has no anchor.
func sections(root *html.Node) []models.Section {
	out := []models.Section{{}}
	var buf strings.Builder
	flush := func() {
		out[len(out)-1].Text = collapse(buf.String())
		buf.Reset()
	}

	var visit func(n *html.Node)
	visit = func(n *html.Node) {
		if n.Type == html.ElementNode {
			if skipped[n.DataAtom] || hasAttr(n, attrIgnore) {
				return
			}
			if id := attr(n, "id"); headings[n.DataAtom] && id != "" {
				flush()
				out = append(out, models.Section{Title: text(n), Anchor: id})
				buf.WriteString(text(n))
				buf.WriteByte(' ')
				return
			}
		}
		if n.Type == html.TextNode {
			buf.WriteString(n.Data)
			buf.WriteByte(' ')
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			visit(c)
		}
	}
	visit(root)
	flush()

	if out[0].Text == "" && len(out) > 1 {
		out = out[1:]
	}
	return out
}

func readOpenGraph(n *html.Node, meta map[string]string) {
	content := attr(n, "content")
	if content == "" {
		return
	}
	switch attr(n, "property") {
	case "og:image":
		meta[models.MetaImage] = content
	case "og:image:alt":
		meta[models.MetaImageAlt] = content
	}
}

func readTagged(n *html.Node, meta map[string]string, filters map[string][]string) {
	if spec, ok := lookupAttr(n, attrMeta); ok {
		if key, value := splitSpec(spec, n); key != "" && value != "" {
			meta[key] = value
		}
	}
	if spec, ok := lookupAttr(n, attrFilter); ok {
		if name, value := splitSpec(spec, n); name != "" && value != "" {
			for _, existing := range filters[name] {
				if existing == value {
					return
				}
			}
			filters[name] = append(filters[name], value)
		}
	}
}

func splitSpec(spec string, n *html.Node) (string, string) {
	key, value, ok := strings.Cut(spec, ":")
	if !ok {
		value = text(n)
	}
	return strings.TrimSpace(key), strings.TrimSpace(value)
}

// URLFor maps a file below root to the URL it is served at. index.html
// files are served at their directory.
func URLFor(root, file string) (string, error) {
	rel, err := filepath.Rel(root, file)
	if err != nil {
		return "", err
	}
	rel = filepath.ToSlash(rel)
	if path.Base(rel) == "index.html" {
		dir := path.Dir(rel)
		if dir == "." {
			return "/", nil
		}
		return "/" + dir + "/", nil
	}
	return "/" + rel, nil
}

func walk(n *html.Node, fn func(*html.Node) bool) {
	if !fn(n) {
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walk(c, fn)
	}
}

func text(n *html.Node) string {
	var b strings.Builder
	walk(n, func(c *html.Node) bool {
		if c.Type == html.ElementNode && skipped[c.DataAtom] {
			return false
		}
		if c.Type == html.TextNode {
			b.WriteString(c.Data)
			b.WriteByte(' ')
		}
		return true
	})
	return collapse(b.String())
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func attr(n *html.Node, key string) string {
	v, _ := lookupAttr(n, key)
	return v
}

func hasAttr(n *html.Node, key string) bool {
	_, ok := lookupAttr(n, key)
	return ok
}

func lookupAttr(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}
