package locator

import (
	"fmt"
	"slices"
	"strings"
	"unicode/utf8"

	"element-locator/internal/dom"

	"golang.org/x/net/html"
)

// Class names that only describe transient UI state.
var stateClasses = map[string]struct{}{
	"active":    {},
	"selected":  {},
	"hover":     {},
	"open":      {},
	"show":      {},
	"hide":      {},
	"hidden":    {},
	"visible":   {},
	"collapsed": {},
	"expanded":  {},
}

// Classes this short are assumed to be utility classes.
const minClassLen = 4

// CSS returns a selector for n. It never returns "": when no shorter
// candidate is unique it falls back to a structural path from <body> or from
// the nearest ancestor with an id.
func (s *Synthesizer) CSS(doc *dom.Document, n *html.Node) string {
	if id := dom.ID(n); id != "" {
		return "#" + escapeIdent(id)
	}

	verifier := NewVerifier(doc, s.engine)
	for _, selector := range cssCandidates(n) {
		if verifier.Unique(selector).OK {
			return selector
		}
	}

	return structuralCSS(n)
}

// cssCandidates lists the short selectors worth verifying, best first.
func cssCandidates(n *html.Node) []string {
	tag := dom.TagName(n)

	var out []string
	if class := stableClass(n); class != "" {
		out = append(out, tag+"."+escapeIdent(class))
	}

	switch tag {
	case "a":
		if href := dom.AttrValue(n, "href"); href != "" {
			out = append(out, "a[href="+quoteCSS(href)+"]")
		}
	case "img":
		if alt := dom.AttrValue(n, "alt"); alt != "" {
			out = append(out, "img[alt="+quoteCSS(alt)+"]")
		}
	case "input":
		if name := dom.AttrValue(n, "name"); name != "" {
			out = append(out, "input[name="+quoteCSS(name)+"]")
		}
		if typ := dom.AttrValue(n, "type"); typ != "" {
			out = append(out, "input[type="+quoteCSS(typ)+"]")
		}
	}

	return out
}

// stableClass picks the longest class that is neither a state class nor a
// short utility class. Ties go to the class appearing first.
func stableClass(n *html.Node) string {
	var classes []string
	for _, class := range dom.ClassList(n) {
		if _, state := stateClasses[class]; state || utf8.RuneCountInString(class) < minClassLen {
			continue
		}
		classes = append(classes, class)
	}

	slices.SortStableFunc(classes, func(a, b string) int {
		return utf8.RuneCountInString(b) - utf8.RuneCountInString(a)
	})

	if len(classes) == 0 {
		return ""
	}

	return classes[0]
}

func structuralCSS(n *html.Node) string {
	var segments []string

	for current := n; dom.IsElement(current); current = dom.ParentElement(current) {
		tag := dom.TagName(current)

		if id := dom.ID(current); id != "" {
			segments = append(segments, tag+"#"+escapeIdent(id))

			break
		}

		segment := tag
		if nth := nthOfType(current); nth > 1 {
			segment += fmt.Sprintf(":nth-of-type(%d)", nth)
		}
		segments = append(segments, segment)

		if dom.IsBody(current) {
			break
		}
	}

	slices.Reverse(segments)

	return strings.Join(segments, " > ")
}

// nthOfType is the 1-based position of n among its same-tag element siblings.
func nthOfType(n *html.Node) int {
	tag := dom.TagName(n)
	nth := 1
	for sib := dom.PreviousElementSibling(n); sib != nil; sib = dom.PreviousElementSibling(sib) {
		if dom.TagName(sib) == tag {
			nth++
		}
	}

	return nth
}
