package ports

import (
	"context"

	"element-locator/internal/dom"
	"element-locator/internal/entity"

	"golang.org/x/net/html"
)

// Surface is where a document is shown: it can tell whether an element is
// rendered, hover and scroll to elements, measure them, and draw the
// highlight overlay.
type Surface interface {
	Rendered(ctx context.Context, doc *dom.Document, n *html.Node) (bool, error)
	Hover(ctx context.Context, doc *dom.Document, n *html.Node) error
	ScrollIntoView(ctx context.Context, doc *dom.Document, n *html.Node) error
	BoundingRect(ctx context.Context, doc *dom.Document, n *html.Node) (entity.Rect, error)
	ShowOverlay(ctx context.Context, rect entity.Rect) error
	MoveOverlay(ctx context.Context, rect entity.Rect) error
	RemoveOverlay(ctx context.Context) error
}

// Browser is a live page surface that can also load pages and hand out
// snapshots of them.
type Browser interface {
	Surface

	Launch(ctx context.Context) error
	Close(ctx context.Context) error
	Navigate(ctx context.Context, url string) error
	Snapshot(ctx context.Context) (*dom.Document, error)
	ElementAt(ctx context.Context, x, y float64) (*dom.Document, *html.Node, error)
	IsReady() bool
}
