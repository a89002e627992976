package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseStrategy(t *testing.T) {
	for _, in := range []string{"css", "CSS", " xpath ", "ClassName", "linkText", "partiallinktext", "TAGNAME"} {
		_, err := ParseStrategy(in)
		assert.NoError(t, err, in)
	}

	got, err := ParseStrategy("PartialLinkText")
	require.NoError(t, err)
	assert.Equal(t, StrategyPartialLinkText, got)

	_, err = ParseStrategy("id")
	assert.Error(t, err)
}

func TestLocatorSetGet(t *testing.T) {
	set := LocatorSet{CSS: "#go", XPath: `//*[@id="go"]`, TagName: "a", LinkText: "Go", PartialLinkText: "Go"}

	assert.Equal(t, "#go", set.Get(StrategyCSS))
	assert.Equal(t, `//*[@id="go"]`, set.Get(StrategyXPath))
	assert.Equal(t, "a", set.Get(StrategyTagName))
	assert.Equal(t, "Go", set.Get(StrategyLinkText))
	assert.Empty(t, set.Get(StrategyClassName))
	assert.Empty(t, set.Get(Strategy("bogus")))
}
