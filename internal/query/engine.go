// Package query compiles and runs CSS selectors and XPath expressions
// against parsed documents, caching compiled forms by source text.
package query

import (
	"errors"
	"fmt"

	"github.com/andybalholm/cascadia"
	"github.com/antchfx/htmlquery"
	"github.com/antchfx/xpath"
	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/net/html"
)

const DefaultCacheSize = 256

// ErrNotNodeSet is returned for XPath expressions that evaluate to a number,
// string or boolean instead of a node-set.
var ErrNotNodeSet = errors.New("expression does not evaluate to a node-set")

type Engine struct {
	css   *lru.Cache[string, cascadia.SelectorGroup]
	xpath *lru.Cache[string, *xpath.Expr]
}

func NewEngine(size int) (*Engine, error) {
	if size <= 0 {
		size = DefaultCacheSize
	}

	cssCache, err := lru.New[string, cascadia.SelectorGroup](size)
	if err != nil {
		return nil, fmt.Errorf("create css cache: %w", err)
	}

	xpathCache, err := lru.New[string, *xpath.Expr](size)
	if err != nil {
		return nil, fmt.Errorf("create xpath cache: %w", err)
	}

	return &Engine{css: cssCache, xpath: xpathCache}, nil
}

var defaultEngine = func() *Engine {
	engine, err := NewEngine(DefaultCacheSize)
	if err != nil {
		panic(err)
	}

	return engine
}()

// Default is a process-wide engine for callers without their own.
func Default() *Engine {
	return defaultEngine
}

func (e *Engine) CompileCSS(selector string) (cascadia.SelectorGroup, error) {
	if group, ok := e.css.Get(selector); ok {
		return group, nil
	}

	group, err := cascadia.ParseGroup(selector)
	if err != nil {
		return nil, err
	}
	e.css.Add(selector, group)

	return group, nil
}

func (e *Engine) CompileXPath(expr string) (*xpath.Expr, error) {
	if compiled, ok := e.xpath.Get(expr); ok {
		return compiled, nil
	}

	compiled, err := xpath.Compile(expr)
	if err != nil {
		return nil, err
	}
	e.xpath.Add(expr, compiled)

	return compiled, nil
}

// SelectAll returns every descendant of root matching selector, in document
// order.
func (e *Engine) SelectAll(root *html.Node, selector string) ([]*html.Node, error) {
	group, err := e.CompileCSS(selector)
	if err != nil {
		return nil, err
	}

	return cascadia.QueryAll(root, group), nil
}

func (e *Engine) SelectFirst(root *html.Node, selector string) (*html.Node, error) {
	group, err := e.CompileCSS(selector)
	if err != nil {
		return nil, err
	}

	return cascadia.Query(root, group), nil
}

// EvaluateFirst returns the first element, in document order, selected by
// expr. Attribute, text and other non-element results are skipped.
func (e *Engine) EvaluateFirst(root *html.Node, expr string) (node *html.Node, err error) {
	compiled, err := e.CompileXPath(expr)
	if err != nil {
		return nil, err
	}

	defer func() {
		if r := recover(); r != nil {
			node, err = nil, fmt.Errorf("evaluate %q: %v", expr, r)
		}
	}()

	iter, ok := compiled.Evaluate(htmlquery.CreateXPathNavigator(root)).(*xpath.NodeIterator)
	if !ok {
		return nil, ErrNotNodeSet
	}

	for iter.MoveNext() {
		nav, ok := iter.Current().(*htmlquery.NodeNavigator)
		if !ok || nav.NodeType() != xpath.ElementNode {
			continue
		}

		return nav.Current(), nil
	}

	return nil, nil
}
