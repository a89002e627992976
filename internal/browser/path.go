package browser

import (
	"element-locator/internal/dom"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Snapshot nodes are matched to live elements by their element-child index
// path from <html>: the same walk runs over document.documentElement in the
// page.

func nodePath(n *html.Node) []int {
	var path []int
	for current := n; dom.IsElement(current) && current.DataAtom != atom.Html; current = current.Parent {
		parent := current.Parent
		if parent == nil {
			return nil
		}

		index := 0
		for _, sibling := range dom.ElementChildren(parent) {
			if sibling == current {
				break
			}
			index++
		}
		path = append(path, index)
	}

	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}

	return path
}

func nodeAtPath(doc *dom.Document, path []int) *html.Node {
	current := dom.FindFirst(doc.Root(), func(n *html.Node) bool {
		return n.DataAtom == atom.Html
	})

	for _, index := range path {
		if current == nil {
			return nil
		}

		children := dom.ElementChildren(current)
		if index < 0 || index >= len(children) {
			return nil
		}
		current = children[index]
	}

	return current
}

// pathFromJS converts the index array returned by page scripts.
func pathFromJS(v any) ([]int, bool) {
	items, ok := v.([]any)
	if !ok {
		return nil, false
	}

	path := make([]int, 0, len(items))
	for _, item := range items {
		switch index := item.(type) {
		case int:
			path = append(path, index)
		case float64:
			path = append(path, int(index))
		default:
			return nil, false
		}
	}

	return path, true
}
