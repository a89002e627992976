// Package reveal opens collapsed menus so that an element hidden inside them
// becomes interactable before it is highlighted.
package reveal

import (
	"context"
	"time"

	"element-locator/internal/dom"
	"element-locator/pkg/logg"

	"go.uber.org/zap"
	"golang.org/x/net/html"
)

const (
	revealerName = "Revealer"

	DefaultPause = 300 * time.Millisecond
)

var menuClasses = []string{"menu", "dropdown", "submenu"}

// Surface reports whether an element is rendered where doc is shown and
// delivers hover interactions to it.
type Surface interface {
	Rendered(ctx context.Context, doc *dom.Document, n *html.Node) (bool, error)
	Hover(ctx context.Context, doc *dom.Document, n *html.Node) error
}

type Revealer struct {
	surface Surface
	pause   time.Duration
	logger  *zap.Logger
}

func NewRevealer(surface Surface, pause time.Duration, logger *zap.Logger) *Revealer {
	if pause < 0 {
		pause = DefaultPause
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Revealer{
		surface: surface,
		pause:   pause,
		logger:  logger.With(zap.String(logg.Layer, revealerName)),
	}
}

// IsMenuContainer reports whether n looks like a menu that opens on hover.
func IsMenuContainer(n *html.Node) bool {
	if !dom.IsElement(n) {
		return false
	}

	for _, class := range menuClasses {
		if dom.HasClass(n, class) {
			return true
		}
	}

	return dom.AttrValue(n, "role") == "menu" || dom.AttrValue(n, "aria-haspopup") == "true"
}

// MenuAncestors lists the menu-like ancestors of n, outermost first.
func MenuAncestors(n *html.Node) []*html.Node {
	var menus []*html.Node
	for current := dom.ParentElement(n); current != nil; current = dom.ParentElement(current) {
		if IsMenuContainer(current) {
			menus = append(menus, current)
		}
	}

	for i, j := 0, len(menus)-1; i < j; i, j = i+1, j-1 {
		menus[i], menus[j] = menus[j], menus[i]
	}

	return menus
}

// EnsureInteractable hovers every menu ancestor of a hidden element, outermost
// first, waiting after each hover for the menu to open. Rendered elements are
// left alone. Failures are logged, never returned; the ancestors that were
// hovered are.
func (r *Revealer) EnsureInteractable(ctx context.Context, doc *dom.Document, n *html.Node) []*html.Node {
	const op = "EnsureInteractable"
	logger := r.logger.With(zap.String(logg.Operation, op), zap.String(logg.Tag, dom.TagName(n)))

	if r.rendered(ctx, doc, n) {
		return nil
	}

	menus := MenuAncestors(n)
	if len(menus) == 0 {
		logger.Debug("element is hidden and has no menu ancestors")

		return nil
	}

	tried := make([]*html.Node, 0, len(menus))
	for _, menu := range menus {
		if err := ctx.Err(); err != nil {
			logger.Debug("reveal interrupted", zap.Error(err))

			return tried
		}

		if err := r.surface.Hover(ctx, doc, menu); err != nil {
			logger.Warn("failed to hover menu", zap.String("menu", dom.TagName(menu)), zap.Error(err))

			continue
		}
		tried = append(tried, menu)

		if !sleep(ctx, r.pause) {
			return tried
		}
	}

	logger.Debug("menus hovered", zap.Int("count", len(tried)), zap.Bool("rendered", r.rendered(ctx, doc, n)))

	return tried
}

// rendered asks the surface, falling back to the snapshot's own styles when
// the surface cannot tell.
func (r *Revealer) rendered(ctx context.Context, doc *dom.Document, n *html.Node) bool {
	rendered, err := r.surface.Rendered(ctx, doc, n)
	if err != nil {
		r.logger.Debug("surface could not report visibility", zap.String(logg.Tag, dom.TagName(n)), zap.Error(err))

		return doc.Rendered(n)
	}

	return rendered
}

func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
