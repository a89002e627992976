package adapters

import (
	"context"

	"element-locator/internal/dom"
	"element-locator/internal/entity"
	"element-locator/internal/session"

	"golang.org/x/net/html"
)

type BrowserService interface {
	Launch(ctx context.Context) error
	Close(ctx context.Context) error
	IsReady() bool
}

type LocatorService interface {
	LoadFile(ctx context.Context, path string) error
	LoadDocument(doc *dom.Document, source string)
	Open(ctx context.Context, url string) error
	Pick(ctx context.Context, selector string) (*html.Node, error)
	Point(ctx context.Context, x, y float64) (*html.Node, error)
	FindLocators(ctx context.Context) (*entity.Findings, error)
	TestLocator(ctx context.Context, strategy entity.Strategy, value string) (session.Outcome, error)
	Document() (*dom.Document, string)
	Target() *html.Node
	Close()
}
