package locator

import (
	"testing"

	"element-locator/internal/dom"
	"element-locator/internal/query"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"
)

func mustParse(t *testing.T, src string) *dom.Document {
	t.Helper()

	doc, err := dom.ParseString(src)
	require.NoError(t, err)

	return doc
}

func first(t *testing.T, doc *dom.Document, selector string) *html.Node {
	t.Helper()

	n, err := query.Default().SelectFirst(doc.Root(), selector)
	require.NoError(t, err)
	require.NotNil(t, n, selector)

	return n
}

func all(t *testing.T, doc *dom.Document, selector string) []*html.Node {
	t.Helper()

	nodes, err := query.Default().SelectAll(doc.Root(), selector)
	require.NoError(t, err)

	return nodes
}

// assertResolvesTo checks that the first match of selector is want.
func assertResolvesTo(t *testing.T, doc *dom.Document, selector string, want *html.Node) {
	t.Helper()

	got, err := query.Default().SelectFirst(doc.Root(), selector)
	require.NoError(t, err, selector)
	assert.Same(t, want, got, selector)
}

// assertResolvesUniquely checks that selector matches exactly want.
func assertResolvesUniquely(t *testing.T, doc *dom.Document, selector string, want *html.Node) {
	t.Helper()

	matches, err := query.Default().SelectAll(doc.Root(), selector)
	require.NoError(t, err, selector)
	require.Len(t, matches, 1, selector)
	assert.Same(t, want, matches[0], selector)
}

func TestCSSUsesIDWithoutVerification(t *testing.T) {
	doc := mustParse(t, `<body><button id="go" class="btn-primary-action">Go</button></body>`)
	button := first(t, doc, "button")

	selector := SynthesizeCSS(doc, button)
	assert.Equal(t, "#go", selector)
	assertResolvesUniquely(t, doc, selector, button)

	dup := mustParse(t, `<body><p id="twin">a</p><p id="twin">b</p></body>`)
	assert.Equal(t, "#twin", SynthesizeCSS(dup, all(t, dup, "p")[1]))
}

func TestCSSPicksLongestStableClass(t *testing.T) {
	doc := mustParse(t, `<div class="container"><button class="btn-primary-action">Go</button></div>`)

	assert.Equal(t, "button.btn-primary-action", SynthesizeCSS(doc, first(t, doc, "button")))
}

func TestCSSClassFiltering(t *testing.T) {
	doc := mustParse(t, `<body>
<span id="a-wrap"><span class="active btn x big-label label">a</span></span>
<em class="alpha bravo">tie</em>
<i class="selected expanded ui">state only</i>
</body>`)

	assert.Equal(t, "span.big-label", SynthesizeCSS(doc, first(t, doc, "span span")))
	assert.Equal(t, "em.alpha", SynthesizeCSS(doc, first(t, doc, "em")))
	assert.Equal(t, "body > i", SynthesizeCSS(doc, first(t, doc, "i")))
}

func TestCSSAttributeFallbacks(t *testing.T) {
	doc := mustParse(t, `<body>
<nav><a class="nav-link" href="/a">A</a><a class="nav-link" href="/b">B</a></nav>
<img src="1.png" alt="Company logo"><img src="2.png">
<form><input name="email" type="email"><input type="password"><input type="text" name="q"><input type="text" name="q"></form>
</body>`)

	links := all(t, doc, "a")
	assert.Equal(t, `a[href="/b"]`, SynthesizeCSS(doc, links[1]))

	images := all(t, doc, "img")
	assert.Equal(t, `img[alt="Company logo"]`, SynthesizeCSS(doc, images[0]))
	assert.Equal(t, "body > img:nth-of-type(2)", SynthesizeCSS(doc, images[1]))

	inputs := all(t, doc, "input")
	assert.Equal(t, `input[name="email"]`, SynthesizeCSS(doc, inputs[0]))
	assert.Equal(t, `input[type="password"]`, SynthesizeCSS(doc, inputs[1]))
	assert.Equal(t, "body > form > input:nth-of-type(3)", SynthesizeCSS(doc, inputs[2]))
}

func TestCSSStructuralFallbackForTextInputs(t *testing.T) {
	doc := mustParse(t, `<body><form><input type="text"><input type="text"></form></body>`)
	inputs := all(t, doc, "input")

	firstSel := SynthesizeCSS(doc, inputs[0])
	secondSel := SynthesizeCSS(doc, inputs[1])

	assert.Equal(t, "body > form > input", firstSel)
	assert.Equal(t, "body > form > input:nth-of-type(2)", secondSel)
	assert.NotEqual(t, firstSel, secondSel)
	assertResolvesTo(t, doc, firstSel, inputs[0])
	assertResolvesUniquely(t, doc, secondSel, inputs[1])
}

func TestCSSStructuralSiblingListItems(t *testing.T) {
	doc := mustParse(t, `<body><ul><li>a</li><li>b</li></ul></body>`)
	items := all(t, doc, "li")

	assert.Equal(t, "body > ul > li", SynthesizeCSS(doc, items[0]))
	assert.Equal(t, "body > ul > li:nth-of-type(2)", SynthesizeCSS(doc, items[1]))
	assertResolvesTo(t, doc, SynthesizeCSS(doc, items[0]), items[0])
	assertResolvesUniquely(t, doc, SynthesizeCSS(doc, items[1]), items[1])
}

func TestCSSStructuralStopsAtAncestorID(t *testing.T) {
	doc := mustParse(t, `<body><section><div id="main"><p>x</p><span></span><p>y</p></div></section></body>`)
	paragraphs := all(t, doc, "p")

	assert.Equal(t, "div#main > p:nth-of-type(2)", SynthesizeCSS(doc, paragraphs[1]))
	assert.Equal(t, "div#main > p", SynthesizeCSS(doc, paragraphs[0]))
}

func TestCSSEscapesUnusualIdentifiers(t *testing.T) {
	doc := mustParse(t, `<body>
<div id="123">digits</div>
<div id='say "hi"'>quotes</div>
<p><span class="w-1/2 md:flex">x</span></p>
<a href='/q?a="b"'>q</a>
</body>`)

	for _, n := range append(all(t, doc, "div"), first(t, doc, "span"), first(t, doc, "a")) {
		selector := SynthesizeCSS(doc, n)
		assertResolvesUniquely(t, doc, selector, n)
	}

	assert.Equal(t, `#\31 23`, SynthesizeCSS(doc, all(t, doc, "div")[0]))
	assert.Equal(t, `span.md\:flex`, SynthesizeCSS(doc, first(t, doc, "span")))
}

func TestXPath(t *testing.T) {
	doc := mustParse(t, `<body>
<div><span>a</span></div>
<div><span>b</span><em></em><span>c</span></div>
<button id="go">Go</button>
</body>`)
	spans := all(t, doc, "span")

	assert.Equal(t, "//body/div[1]/span", SynthesizeXPath(doc, spans[0]))
	assert.Equal(t, "//body/div[2]/span[2]", SynthesizeXPath(doc, spans[2]))
	assert.Equal(t, "//body/div[2]/em", SynthesizeXPath(doc, first(t, doc, "em")))
	assert.Equal(t, `//*[@id="go"]`, SynthesizeXPath(doc, first(t, doc, "button")))
}

func TestXPathQuotesIDs(t *testing.T) {
	assert.Equal(t, `"plain"`, quoteXPath("plain"))
	assert.Equal(t, `'say "hi"'`, quoteXPath(`say "hi"`))
	assert.Equal(t, `concat("it's ", '"', "x", '"')`, quoteXPath(`it's "x"`))
}

func TestEscapeIdent(t *testing.T) {
	cases := map[string]string{
		"main":   "main",
		"123":    `\31 23`,
		"-1a":    `-\31 a`,
		"-":      `\-`,
		"a.b":    `a\.b`,
		"héllo":  "héllo",
		"a b":    `a\ b`,
		"tab\tx": `tab\9 x`,
	}
	for in, want := range cases {
		assert.Equal(t, want, escapeIdent(in), in)
	}

	assert.Equal(t, `"a\"b\\c"`, quoteCSS(`a"b\c`))
}

func TestRoundTripEveryElement(t *testing.T) {
	doc := mustParse(t, `<html><head><title>t</title></head><body>
<header class="site-header"><nav class="menu"><ul>
  <li class="menu-item"><a href="/">Home</a></li>
  <li class="menu-item active"><a href="/docs">Docs</a>
    <ul class="submenu"><li><a href="/docs/a">A</a></li><li><a href="/docs/b">B</a></li></ul></li>
</ul></nav></header>
<main id="content">
  <h1>Title</h1><p class="lead">Lead</p><p>Body <b>bold</b> <b>again</b></p>
  <table><tr><td>1</td><td>2</td></tr><tr><td>3</td><td>4</td></tr></table>
  <form><input type="text"><input type="text"><input type="checkbox" name="agree"><button>Send</button><button>Reset</button></form>
</main>
<footer><p>a</p><p>b</p></footer>
</body></html>`)

	synth := NewSynthesizer(nil)
	count := 0
	dom.Walk(dom.FindFirst(doc.Root(), dom.IsBody), func(n *html.Node) bool {
		if !dom.IsElement(n) {
			return true
		}
		count++

		selector := synth.CSS(doc, n)
		require.NotEmpty(t, selector)
		assertResolvesTo(t, doc, selector, n)

		expr := synth.XPath(doc, n)
		require.NotEmpty(t, expr)
		got, err := query.Default().EvaluateFirst(doc.Root(), expr)
		require.NoError(t, err, expr)
		assert.Same(t, n, got, expr)

		return true
	})
	assert.Greater(t, count, 30)
}

func TestLocators(t *testing.T) {
	doc := mustParse(t, `<body>
<a href="/x" class="  nav-link  primary ">  Click   here </a>
<a href="/y"><img alt="logo"></a>
<span>not a link</span>
</body>`)
	links := all(t, doc, "a")
	synth := NewSynthesizer(nil)

	set := synth.Locators(doc, links[0])
	assert.Equal(t, "a", set.TagName)
	assert.Equal(t, "nav-link  primary", set.ClassName)
	assert.Equal(t, "Click   here", set.LinkText)
	assert.Equal(t, "Click   here", set.PartialLinkText)
	assert.Equal(t, "a.nav-link", set.CSS)
	assert.Equal(t, "//body/a[1]", set.XPath)

	empty := synth.Locators(doc, links[1])
	assert.Empty(t, empty.LinkText)
	assert.Empty(t, empty.PartialLinkText)
	assert.Empty(t, empty.ClassName)
	assert.Equal(t, `a[href="/y"]`, empty.CSS)

	span := synth.Locators(doc, first(t, doc, "span"))
	assert.Equal(t, "span", span.TagName)
	assert.Empty(t, span.LinkText)
}

func TestVerifier(t *testing.T) {
	doc := mustParse(t, `<body><p class="x">1</p><p class="x">2</p><p class="y">3</p></body>`)
	verifier := NewVerifier(doc, nil)

	unique := verifier.Unique("p.y")
	assert.True(t, unique.OK)
	assert.Equal(t, 1, unique.Matches)

	many := verifier.Unique("p.x")
	assert.False(t, many.OK)
	assert.Equal(t, 2, many.Matches)

	none := verifier.Unique("table")
	assert.False(t, none.OK)
	assert.Zero(t, none.Matches)

	bad := verifier.Unique("p[")
	assert.False(t, bad.OK)
	assert.Contains(t, bad.Reason, "invalid selector")
}
