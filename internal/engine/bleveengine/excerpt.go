package bleveengine

import (
	"html"
	"strings"

	"github.com/blevesearch/bleve/v2/analysis"
)

// analyzed is a text together with the tokens the index analyzer produced.
type analyzed struct {
	text   string
	tokens analysis.TokenStream
}

func analyze(a analysis.Analyzer, text string) analyzed {
	return analyzed{text: text, tokens: a.Analyze([]byte(text))}
}

// matches returns the indices of tokens whose term is in terms.
func (an analyzed) matches(terms map[string]struct{}) []int {
	var out []int
	for i, tok := range an.tokens {
		if _, ok := terms[string(tok.Term)]; ok {
			out = append(out, i)
		}
	}
	return out
}

// excerpt picks the window of length tokens holding the most matches and
// returns it as escaped HTML with matches wrapped in <mark>. Ties keep the
// earliest window.
func (an analyzed) excerpt(terms map[string]struct{}, length int) string {
	n := len(an.tokens)
	if n == 0 {
		return ""
	}
	if length <= 0 || length > n {
		length = n
	}
	hit := make([]bool, n)
	for _, i := range an.matches(terms) {
		hit[i] = true
	}

	count := 0
	for i := 0; i < length; i++ {
		if hit[i] {
			count++
		}
	}
	best, bestStart := count, 0
	for start := 1; start+length <= n; start++ {
		if hit[start-1] {
			count--
		}
		if hit[start+length-1] {
			count++
		}
		if count > best {
			best, bestStart = count, start
		}
	}

	var b strings.Builder
	pos := an.tokens[bestStart].Start
	for i := bestStart; i < bestStart+length; i++ {
		tok := an.tokens[i]
		b.WriteString(html.EscapeString(an.text[pos:tok.Start]))
		word := html.EscapeString(an.text[tok.Start:tok.End])
		if hit[i] {
			b.WriteString("<mark>")
			b.WriteString(word)
			b.WriteString("</mark>")
		} else {
			b.WriteString(word)
		}
		pos = tok.End
	}
	return collapseSpace(b.String())
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
