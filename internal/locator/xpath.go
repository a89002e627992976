package locator

import (
	"fmt"
	"slices"
	"strings"

	"element-locator/internal/dom"

	"golang.org/x/net/html"
)

// XPath returns an id-based expression when n has an id, otherwise the
// sibling-indexed path from <body>.
func (s *Synthesizer) XPath(_ *dom.Document, n *html.Node) string {
	if id := dom.ID(n); id != "" {
		return "//*[@id=" + quoteXPath(id) + "]"
	}

	var segments []string
	for current := n; dom.IsElement(current); current = dom.ParentElement(current) {
		segment := dom.TagName(current)
		if index, total := sameTagPosition(current); total > 1 {
			segment += fmt.Sprintf("[%d]", index)
		}
		segments = append(segments, segment)

		if dom.IsBody(current) {
			break
		}
	}

	slices.Reverse(segments)

	return "//" + strings.Join(segments, "/")
}

// sameTagPosition returns the 1-based index of n among the parent's element
// children sharing its tag, and how many such children there are.
func sameTagPosition(n *html.Node) (index, total int) {
	if n.Parent == nil {
		return 1, 1
	}

	tag := dom.TagName(n)
	for _, child := range dom.ElementChildren(n.Parent) {
		if dom.TagName(child) != tag {
			continue
		}
		total++
		if child == n {
			index = total
		}
	}

	return index, total
}
