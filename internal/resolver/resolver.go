// Package resolver finds the element a stored (strategy, value) locator
// points at. It deliberately knows nothing about how locators are built.
package resolver

import (
	"errors"
	"fmt"
	"strings"

	"element-locator/internal/dom"
	"element-locator/internal/entity"
	"element-locator/internal/query"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

type Kind string

const (
	KindNotFound            Kind = "not_found"
	KindInvalidSelector     Kind = "invalid_selector"
	KindInvalidExpression   Kind = "invalid_expression"
	KindUnsupportedStrategy Kind = "unsupported_strategy"
)

// Error describes why a locator did not resolve. Message is the text shown to
// the operator.
type Error struct {
	Kind     Kind
	Strategy entity.Strategy
	Value    string
	Message  string
	Err      error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf returns the Kind carried by err, or "" when err is not an *Error.
func KindOf(err error) Kind {
	var resolveErr *Error
	if errors.As(err, &resolveErr) {
		return resolveErr.Kind
	}

	return ""
}

type Resolver struct {
	engine *query.Engine
}

func New(engine *query.Engine) *Resolver {
	if engine == nil {
		engine = query.Default()
	}

	return &Resolver{engine: engine}
}

// Resolve uses the default engine.
func Resolve(doc *dom.Document, strategy entity.Strategy, value string) (*html.Node, error) {
	return New(nil).Resolve(doc, strategy, value)
}

// Resolve returns the first element, in document order, matched by value
// under strategy. Locators are not required to be unique here.
func (r *Resolver) Resolve(doc *dom.Document, strategy entity.Strategy, value string) (*html.Node, error) {
	var (
		node *html.Node
		err  error
	)

	switch strategy {
	case entity.StrategyCSS:
		node, err = r.engine.SelectFirst(doc.Root(), value)
		if err != nil {
			return nil, &Error{
				Kind:     KindInvalidSelector,
				Strategy: strategy,
				Value:    value,
				Message:  "Invalid CSS selector: " + err.Error(),
				Err:      err,
			}
		}
	case entity.StrategyXPath:
		node, err = r.engine.EvaluateFirst(doc.Root(), value)
		if err != nil {
			return nil, &Error{
				Kind:     KindInvalidExpression,
				Strategy: strategy,
				Value:    value,
				Message:  "Invalid XPath: " + err.Error(),
				Err:      err,
			}
		}
	case entity.StrategyClassName:
		node = byClassNames(doc, value)
	case entity.StrategyLinkText:
		node = firstLink(doc, func(text string) bool { return text == value })
	case entity.StrategyPartialLinkText:
		node = firstLink(doc, func(text string) bool { return strings.Contains(text, value) })
	case entity.StrategyTagName:
		node = byTagName(doc, value)
	default:
		return nil, &Error{
			Kind:     KindUnsupportedStrategy,
			Strategy: strategy,
			Value:    value,
			Message:  fmt.Sprintf("Unsupported locator strategy: %s", strategy),
		}
	}

	if node == nil {
		return nil, &Error{
			Kind:     KindNotFound,
			Strategy: strategy,
			Value:    value,
			Message:  fmt.Sprintf("Element not found with %s: %s", strategy, value),
		}
	}

	return node, nil
}

func firstNode(s *goquery.Selection) *html.Node {
	if s.Length() == 0 {
		return nil
	}

	return s.Get(0)
}

func elements(doc *dom.Document) *goquery.Selection {
	return goquery.NewDocumentFromNode(doc.Root()).Find("*")
}

// byClassNames matches elements carrying every class listed in value, the
// way getElementsByClassName does. A blank value matches nothing.
func byClassNames(doc *dom.Document, value string) *html.Node {
	classes := strings.Fields(value)
	if len(classes) == 0 {
		return nil
	}

	match := elements(doc).FilterFunction(func(_ int, s *goquery.Selection) bool {
		for _, class := range classes {
			if !s.HasClass(class) {
				return false
			}
		}

		return true
	})

	return firstNode(match)
}

func firstLink(doc *dom.Document, accept func(text string) bool) *html.Node {
	match := goquery.NewDocumentFromNode(doc.Root()).Find("a").FilterFunction(func(_ int, s *goquery.Selection) bool {
		return accept(strings.TrimSpace(s.Text()))
	})

	return firstNode(match)
}

func byTagName(doc *dom.Document, value string) *html.Node {
	tag := strings.ToLower(strings.TrimSpace(value))
	if tag == "" {
		return nil
	}

	match := elements(doc).FilterFunction(func(_ int, s *goquery.Selection) bool {
		return tag == "*" || strings.ToLower(goquery.NodeName(s)) == tag
	})

	return firstNode(match)
}
