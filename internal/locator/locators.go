// Package locator synthesizes locators for a document element: a CSS
// selector verified to be unique, a sibling-indexed XPath and the plain
// class, link text and tag name locators.
package locator

import (
	"strings"

	"element-locator/internal/dom"
	"element-locator/internal/entity"
	"element-locator/internal/query"

	"golang.org/x/net/html"
)

type Synthesizer struct {
	engine *query.Engine
}

func NewSynthesizer(engine *query.Engine) *Synthesizer {
	if engine == nil {
		engine = query.Default()
	}

	return &Synthesizer{engine: engine}
}

// Locators computes the full LocatorSet for an element of doc.
func (s *Synthesizer) Locators(doc *dom.Document, n *html.Node) entity.LocatorSet {
	set := entity.LocatorSet{
		CSS:       s.CSS(doc, n),
		XPath:     s.XPath(doc, n),
		ClassName: strings.TrimSpace(dom.AttrValue(n, "class")),
		TagName:   dom.TagName(n),
	}

	if set.TagName == "a" {
		if text := strings.TrimSpace(dom.TextContent(n)); text != "" {
			set.LinkText = text
			set.PartialLinkText = text
		}
	}

	return set
}

func SynthesizeCSS(doc *dom.Document, n *html.Node) string {
	return NewSynthesizer(nil).CSS(doc, n)
}

func SynthesizeXPath(doc *dom.Document, n *html.Node) string {
	return NewSynthesizer(nil).XPath(doc, n)
}
