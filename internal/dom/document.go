// Package dom models a live HTML document: the parsed node tree, the
// computed style of its elements and DOM-style event dispatch.
//
// Node references (*html.Node) are only meaningful together with the
// Document that owns them. Callers persist locator strings, never nodes.
package dom

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"sync"

	"golang.org/x/net/html"
)

type Document struct {
	root   *html.Node
	styles *styleEngine

	mu        sync.Mutex
	listeners map[*html.Node]map[string][]Listener
}

func Parse(r io.Reader) (*Document, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse HTML: %w", err)
	}

	return NewDocument(root), nil
}

func ParseString(s string) (*Document, error) {
	return Parse(strings.NewReader(s))
}

func ParseBytes(b []byte) (*Document, error) {
	return Parse(bytes.NewReader(b))
}

// NewDocument wraps an already parsed tree. Stylesheets are read once here.
func NewDocument(root *html.Node) *Document {
	return &Document{
		root:      root,
		styles:    newStyleEngine(root),
		listeners: make(map[*html.Node]map[string][]Listener),
	}
}

func (d *Document) Root() *html.Node {
	return d.root
}

// Owns reports whether n belongs to this document's tree.
func (d *Document) Owns(n *html.Node) bool {
	return n != nil && Contains(d.root, n)
}

// FindByAttr returns the first element carrying attribute key=val.
func (d *Document) FindByAttr(key, val string) *html.Node {
	return FindFirst(d.root, func(n *html.Node) bool {
		got, ok := Attr(n, key)

		return ok && got == val
	})
}
