package entity

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// LocatorSet is the full set of locators computed for one element. An empty
// field means the strategy does not apply to the element.
type LocatorSet struct {
	CSS             string `json:"css"`
	XPath           string `json:"xpath"`
	ClassName       string `json:"className"`
	LinkText        string `json:"linkText"`
	PartialLinkText string `json:"partialLinkText"`
	TagName         string `json:"tagName"`
}

// Get returns the locator stored for strategy.
func (l LocatorSet) Get(strategy Strategy) string {
	switch strategy {
	case StrategyCSS:
		return l.CSS
	case StrategyXPath:
		return l.XPath
	case StrategyClassName:
		return l.ClassName
	case StrategyLinkText:
		return l.LinkText
	case StrategyPartialLinkText:
		return l.PartialLinkText
	case StrategyTagName:
		return l.TagName
	default:
		return ""
	}
}

type Strategy string

const (
	StrategyCSS             Strategy = "css"
	StrategyXPath           Strategy = "xpath"
	StrategyClassName       Strategy = "classname"
	StrategyLinkText        Strategy = "linktext"
	StrategyPartialLinkText Strategy = "partiallinktext"
	StrategyTagName         Strategy = "tagname"
)

var Strategies = []Strategy{
	StrategyCSS,
	StrategyXPath,
	StrategyClassName,
	StrategyLinkText,
	StrategyPartialLinkText,
	StrategyTagName,
}

func ParseStrategy(s string) (Strategy, error) {
	candidate := Strategy(strings.ToLower(strings.TrimSpace(s)))
	for _, strategy := range Strategies {
		if strategy == candidate {
			return strategy, nil
		}
	}

	return "", fmt.Errorf("unknown locator strategy %q", s)
}

// Rect is an element box in document coordinates.
type Rect struct {
	Top    float64 `json:"top"`
	Left   float64 `json:"left"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Findings is what a find action hands to the panel and storage collaborators.
type Findings struct {
	ID        uuid.UUID  `json:"id"`
	Locators  LocatorSet `json:"locators"`
	Rect      Rect       `json:"rect"`
	HasRect   bool       `json:"hasRect"`
	CreatedAt time.Time  `json:"createdAt"`
}

type TestStatus string

const (
	TestStatusFound             TestStatus = "found"
	TestStatusNotFound          TestStatus = "not_found"
	TestStatusInvalidSelector   TestStatus = "invalid_selector"
	TestStatusInvalidExpression TestStatus = "invalid_expression"
	TestStatusFailed            TestStatus = "failed"
	TestStatusIgnored           TestStatus = "ignored"
)
