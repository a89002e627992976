package browser

import (
	"testing"

	"element-locator/internal/dom"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"
)

func TestNodePathRoundTrip(t *testing.T) {
	doc, err := dom.ParseString(`<html><head><title>t</title></head><body>
<div><p>a</p></div>
<div><span>b</span><p id="target">c</p></div>
</body></html>`)
	require.NoError(t, err)

	target := doc.FindByAttr("id", "target")
	require.NotNil(t, target)

	path := nodePath(target)
	assert.Equal(t, []int{1, 1, 1}, path)
	assert.Same(t, target, nodeAtPath(doc, path))

	dom.Walk(doc.Root(), func(n *html.Node) bool {
		if dom.IsElement(n) {
			assert.Same(t, n, nodeAtPath(doc, nodePath(n)), dom.TagName(n))
		}

		return true
	})

	assert.Empty(t, nodePath(doc.FindByAttr("id", "missing")))
	assert.Nil(t, nodeAtPath(doc, []int{1, 7}))
	assert.Nil(t, nodeAtPath(doc, []int{-1}))
}

func TestPathFromJS(t *testing.T) {
	path, ok := pathFromJS([]any{1, float64(2), 0})
	require.True(t, ok)
	assert.Equal(t, []int{1, 2, 0}, path)

	_, ok = pathFromJS(nil)
	assert.False(t, ok)

	_, ok = pathFromJS([]any{"1"})
	assert.False(t, ok)
}

func TestGetFloat(t *testing.T) {
	m := map[string]interface{}{"a": 1.5, "b": 2, "c": "x"}
	assert.Equal(t, 1.5, getFloat(m, "a"))
	assert.Equal(t, 2.0, getFloat(m, "b"))
	assert.Zero(t, getFloat(m, "c"))
	assert.Zero(t, getFloat(m, "missing"))
}
