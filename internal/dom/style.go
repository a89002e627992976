package dom

import (
	"strconv"
	"strings"

	"github.com/andybalholm/cascadia"
	"github.com/aymerick/douceur/css"
	"github.com/aymerick/douceur/parser"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Style holds the computed values of the properties that decide whether an
// element is rendered.
type Style struct {
	Display    string
	Visibility string
	Opacity    string
}

func (s Style) Invisible() bool {
	return s.Display == "none" ||
		s.Visibility == "hidden" || s.Visibility == "collapse" ||
		transparent(s.Opacity)
}

func transparent(opacity string) bool {
	value := strings.TrimSpace(opacity)
	if value == "" {
		return false
	}

	percent := strings.HasSuffix(value, "%")
	f, err := strconv.ParseFloat(strings.TrimSuffix(value, "%"), 64)
	if err != nil {
		return false
	}
	if percent {
		f /= 100
	}

	return f <= 0
}

var trackedProperties = []string{"display", "visibility", "opacity"}

// Cascade levels, lowest wins first.
const (
	levelUserAgent = iota
	levelAuthor
	levelInline
	levelAuthorImportant
	levelInlineImportant
)

type styleRule struct {
	sel   cascadia.Sel
	order int
	decls []*css.Declaration
}

type styleEngine struct {
	rules []styleRule
}

type cascaded struct {
	value       string
	level       int
	specificity cascadia.Specificity
	order       int
}

func (c cascaded) beats(other cascaded) bool {
	if c.level != other.level {
		return c.level > other.level
	}
	if c.specificity != other.specificity {
		return other.specificity.Less(c.specificity)
	}

	return c.order >= other.order
}

// newStyleEngine collects the rules of every <style> element. Rules inside
// at-rules (@media, @supports) are skipped since no media is evaluated, and so
// are selectors cascadia cannot compile.
func newStyleEngine(root *html.Node) *styleEngine {
	engine := &styleEngine{}
	order := 0

	Walk(root, func(n *html.Node) bool {
		if n.Type != html.ElementNode || n.DataAtom != atom.Style {
			return true
		}

		sheet, err := parser.Parse(TextContent(n))
		if err != nil {
			return true
		}

		for _, rule := range sheet.Rules {
			if rule.Kind != css.QualifiedRule {
				continue
			}
			decls := relevant(rule.Declarations)
			if len(decls) == 0 {
				continue
			}
			for _, selector := range rule.Selectors {
				sel, err := cascadia.Parse(selector)
				if err != nil || sel.PseudoElement() != "" {
					continue
				}
				engine.rules = append(engine.rules, styleRule{sel: sel, order: order, decls: decls})
				order++
			}
		}

		return true
	})

	return engine
}

func relevant(decls []*css.Declaration) []*css.Declaration {
	var out []*css.Declaration
	for _, decl := range decls {
		for _, property := range trackedProperties {
			if strings.EqualFold(decl.Property, property) {
				out = append(out, decl)

				break
			}
		}
	}

	return out
}

// cascade returns the winning declared value per tracked property for n.
func (e *styleEngine) cascade(n *html.Node) map[string]string {
	winners := make(map[string]cascaded, len(trackedProperties))
	offer := func(property, value string, c cascaded) {
		c.value = strings.ToLower(strings.TrimSpace(value))
		if c.value == "" {
			return
		}
		if current, ok := winners[property]; !ok || c.beats(current) {
			winners[property] = c
		}
	}

	if HasAttr(n, "hidden") {
		offer("display", "none", cascaded{level: levelUserAgent})
	}

	for _, rule := range e.rules {
		if !rule.sel.Match(n) {
			continue
		}
		for _, decl := range rule.decls {
			level := levelAuthor
			if decl.Important {
				level = levelAuthorImportant
			}
			offer(strings.ToLower(decl.Property), decl.Value, cascaded{
				level:       level,
				specificity: rule.sel.Specificity(),
				order:       rule.order,
			})
		}
	}

	if inline, ok := Attr(n, "style"); ok && strings.TrimSpace(inline) != "" {
		// douceur drops the value of a final declaration with no ';'.
		decls, err := parser.ParseDeclarations(inline + ";")
		if err == nil {
			for i, decl := range relevant(decls) {
				level := levelInline
				if decl.Important {
					level = levelInlineImportant
				}
				offer(strings.ToLower(decl.Property), decl.Value, cascaded{level: level, order: i})
			}
		}
	}

	out := make(map[string]string, len(winners))
	for property, c := range winners {
		out[property] = c.value
	}

	return out
}

// ComputedStyle resolves display, visibility and opacity for an element.
// Visibility inherits from the parent element; the others use their initial
// values when nothing is declared.
func (d *Document) ComputedStyle(n *html.Node) Style {
	if !IsElement(n) {
		return Style{Display: "none", Visibility: "visible", Opacity: "1"}
	}

	declared := d.styles.cascade(n)

	style := Style{
		Display:    declared["display"],
		Visibility: declared["visibility"],
		Opacity:    declared["opacity"],
	}
	if style.Display == "" {
		style.Display = defaultDisplay(n)
	}
	if style.Visibility == "" || style.Visibility == "inherit" {
		if parent := ParentElement(n); parent != nil {
			style.Visibility = d.ComputedStyle(parent).Visibility
		} else {
			style.Visibility = "visible"
		}
	}
	if style.Opacity == "" {
		style.Opacity = "1"
	}

	return style
}

// Rendered reports whether the element would be painted: neither it nor any
// ancestor has display:none or opacity 0, and its visibility is visible.
func (d *Document) Rendered(n *html.Node) bool {
	if !IsElement(n) {
		return false
	}
	if d.ComputedStyle(n).Invisible() {
		return false
	}

	for p := ParentElement(n); p != nil; p = ParentElement(p) {
		style := d.ComputedStyle(p)
		if style.Display == "none" || transparent(style.Opacity) {
			return false
		}
	}

	return true
}

func defaultDisplay(n *html.Node) string {
	switch n.DataAtom {
	case atom.Head, atom.Script, atom.Style, atom.Title, atom.Meta, atom.Link,
		atom.Template, atom.Noscript, atom.Base:
		return "none"
	case atom.Html, atom.Body, atom.Div, atom.P, atom.Ul, atom.Ol, atom.Nav,
		atom.Section, atom.Article, atom.Header, atom.Footer, atom.Main,
		atom.Aside, atom.Form, atom.Fieldset, atom.Table, atom.H1, atom.H2,
		atom.H3, atom.H4, atom.H5, atom.H6, atom.Pre, atom.Blockquote,
		atom.Dl, atom.Dd, atom.Dt, atom.Figure, atom.Hr, atom.Address,
		atom.Details, atom.Menu:
		return "block"
	case atom.Li:
		return "list-item"
	default:
		return "inline"
	}
}
