package dom

import (
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

func IsElement(n *html.Node) bool {
	return n != nil && n.Type == html.ElementNode
}

// TagName returns the lowercase tag name of an element, or "" for other nodes.
func TagName(n *html.Node) string {
	if !IsElement(n) {
		return ""
	}

	return strings.ToLower(n.Data)
}

func Attr(n *html.Node, key string) (string, bool) {
	if n == nil {
		return "", false
	}

	for _, attr := range n.Attr {
		if attr.Namespace == "" && attr.Key == key {
			return attr.Val, true
		}
	}

	return "", false
}

// AttrValue returns the attribute value, "" when absent.
func AttrValue(n *html.Node, key string) string {
	val, _ := Attr(n, key)

	return val
}

func HasAttr(n *html.Node, key string) bool {
	_, ok := Attr(n, key)

	return ok
}

func SetAttr(n *html.Node, key, val string) {
	for i, attr := range n.Attr {
		if attr.Namespace == "" && attr.Key == key {
			n.Attr[i].Val = val

			return
		}
	}

	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
}

func ID(n *html.Node) string {
	return AttrValue(n, "id")
}

// ClassList splits the class attribute on ASCII whitespace, keeping source
// order and dropping duplicates like DOMTokenList does.
func ClassList(n *html.Node) []string {
	fields := strings.Fields(AttrValue(n, "class"))
	if len(fields) == 0 {
		return nil
	}

	seen := make(map[string]struct{}, len(fields))
	classes := fields[:0]
	for _, class := range fields {
		if _, dup := seen[class]; dup {
			continue
		}
		seen[class] = struct{}{}
		classes = append(classes, class)
	}

	return classes
}

func HasClass(n *html.Node, class string) bool {
	for _, c := range strings.Fields(AttrValue(n, "class")) {
		if c == class {
			return true
		}
	}

	return false
}

// TextContent concatenates every descendant text node, like Node.textContent.
func TextContent(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)

	return sb.String()
}

func ParentElement(n *html.Node) *html.Node {
	if n == nil || !IsElement(n.Parent) {
		return nil
	}

	return n.Parent
}

func PreviousElementSibling(n *html.Node) *html.Node {
	for s := n.PrevSibling; s != nil; s = s.PrevSibling {
		if IsElement(s) {
			return s
		}
	}

	return nil
}

func ElementChildren(n *html.Node) []*html.Node {
	var children []*html.Node
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if IsElement(c) {
			children = append(children, c)
		}
	}

	return children
}

// Walk visits n and its descendants in document order until fn returns false.
func Walk(n *html.Node, fn func(*html.Node) bool) bool {
	if !fn(n) {
		return false
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if !Walk(c, fn) {
			return false
		}
	}

	return true
}

// FindFirst returns the first element in document order matching pred.
func FindFirst(root *html.Node, pred func(*html.Node) bool) *html.Node {
	var found *html.Node
	Walk(root, func(n *html.Node) bool {
		if IsElement(n) && pred(n) {
			found = n

			return false
		}

		return true
	})

	return found
}

func IsBody(n *html.Node) bool {
	return IsElement(n) && n.DataAtom == atom.Body
}

// Contains reports whether n is root or one of its descendants.
func Contains(root, n *html.Node) bool {
	for p := n; p != nil; p = p.Parent {
		if p == root {
			return true
		}
	}

	return false
}
