package dom

import (
	"context"
	"sync"

	"element-locator/internal/entity"

	"golang.org/x/net/html"
)

// OfflineSurface drives a Document that has no browser behind it: hovers are
// delivered to the document's event listeners and the overlay only exists as
// a counter. There is no layout, so every rectangle is zero.
type OfflineSurface struct {
	mu       sync.Mutex
	active   int
	shown    int
	last     entity.Rect
	hovered  []*html.Node
	scrolled []*html.Node
}

func NewOfflineSurface() *OfflineSurface {
	return &OfflineSurface{}
}

func (s *OfflineSurface) Hover(ctx context.Context, doc *Document, n *html.Node) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	s.hovered = append(s.hovered, n)
	s.mu.Unlock()

	doc.DispatchEvent(n, EventMouseOver)

	return nil
}

// Rendered answers from the document's own stylesheets, inline styles and
// hidden attributes.
func (s *OfflineSurface) Rendered(ctx context.Context, doc *Document, n *html.Node) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	return doc.Rendered(n), nil
}

func (s *OfflineSurface) ScrollIntoView(_ context.Context, _ *Document, n *html.Node) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.scrolled = append(s.scrolled, n)

	return nil
}

func (s *OfflineSurface) BoundingRect(context.Context, *Document, *html.Node) (entity.Rect, error) {
	return entity.Rect{}, nil
}

func (s *OfflineSurface) ShowOverlay(_ context.Context, rect entity.Rect) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.active++
	s.shown++
	s.last = rect

	return nil
}

func (s *OfflineSurface) MoveOverlay(_ context.Context, rect entity.Rect) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.last = rect

	return nil
}

func (s *OfflineSurface) RemoveOverlay(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.active > 0 {
		s.active--
	}

	return nil
}

// ActiveOverlays is the number of overlays currently on screen.
func (s *OfflineSurface) ActiveOverlays() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.active
}

// OverlaysShown counts every ShowOverlay call since creation.
func (s *OfflineSurface) OverlaysShown() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.shown
}

func (s *OfflineSurface) Hovered() []*html.Node {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]*html.Node(nil), s.hovered...)
}

func (s *OfflineSurface) Scrolled() []*html.Node {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]*html.Node(nil), s.scrolled...)
}

func (s *OfflineSurface) LastRect() entity.Rect {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.last
}
