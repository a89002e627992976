package browser

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"element-locator/internal/config"
	"element-locator/internal/dom"
	"element-locator/internal/entity"
	"element-locator/pkg/apperr"
	"element-locator/pkg/logg"
	"element-locator/pkg/tracing"

	"github.com/playwright-community/playwright-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"golang.org/x/net/html"
)

const (
	browserManagerName = "BrowserManager"
	browserTracer      = "browser.manager"
	loadStateTimeout   = 5000
)

var errElementDetached = errors.New("element is no longer in the page")

// Manager drives a single playwright page. Nodes passed to its Surface
// methods must come from the latest Snapshot or ElementAt document.
type Manager struct {
	config         *config.Config
	logger         *zap.Logger
	tracer         trace.Tracer
	playwright     *playwright.Playwright
	browser        playwright.Browser
	browserContext playwright.BrowserContext

	mu    sync.Mutex
	page  playwright.Page
	ready bool
}

type Params struct {
	fx.In

	Config *config.Config
	Logger *zap.Logger
}

func NewManager(params Params) *Manager {
	return &Manager{
		config: params.Config,
		logger: params.Logger.With(zap.String(logg.Layer, browserManagerName)),
		tracer: otel.Tracer(browserTracer),
	}
}

func (m *Manager) Launch(ctx context.Context) (err error) {
	const op = "Launch"
	logger := m.logger.With(zap.String(logg.Operation, op))

	_, step := tracing.StartSpan(ctx, m.tracer, logger, op)
	defer func() {
		step.End(err)
	}()

	logger.Info("Launching browser...")
	step.AddEvent("installing playwright")

	if err = playwright.Install(); err != nil {
		return apperr.Wrap(op, apperr.CodeUnavailable, err, map[string]any{
			apperr.MetaReason: "playwright_install_failed",
			apperr.MetaStage:  apperr.StageBrowser,
		})
	}

	step.AddEvent("starting playwright")

	pw, err := playwright.Run()
	if err != nil {
		return apperr.Wrap(op, apperr.CodeUnavailable, err, map[string]any{
			apperr.MetaReason: "playwright_start_failed",
			apperr.MetaStage:  apperr.StageBrowser,
		})
	}
	m.playwright = pw

	browser, err := pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(m.config.BrowserConfig.Headless),
		SlowMo:   playwright.Float(float64(m.config.BrowserConfig.SlowMo)),
	})
	if err != nil {
		return apperr.Wrap(op, apperr.CodeUnavailable, err, map[string]any{
			apperr.MetaReason: "browser_launch_failed",
			apperr.MetaStage:  apperr.StageBrowser,
		})
	}
	m.browser = browser

	browserContext, err := browser.NewContext(playwright.BrowserNewContextOptions{
		Viewport: &playwright.Size{
			Width:  1280,
			Height: 720,
		},
		JavaScriptEnabled: playwright.Bool(true),
	})
	if err != nil {
		return apperr.Wrap(op, apperr.CodeUnavailable, err, map[string]any{
			apperr.MetaReason: "context_create_failed",
			apperr.MetaStage:  apperr.StageBrowser,
		})
	}
	m.browserContext = browserContext

	page, err := browserContext.NewPage()
	if err != nil {
		return apperr.Wrap(op, apperr.CodeUnavailable, err, map[string]any{
			apperr.MetaReason: "page_create_failed",
			apperr.MetaStage:  apperr.StageBrowser,
		})
	}

	m.mu.Lock()
	m.page = page
	m.ready = true
	m.mu.Unlock()

	logger.Info("Browser launched successfully")

	return nil
}

func (m *Manager) Close(ctx context.Context) (err error) {
	const op = "Close"
	logger := m.logger.With(zap.String(logg.Operation, op))

	_, step := tracing.StartSpan(ctx, m.tracer, logger, op)
	defer func() {
		step.End(err)
	}()

	m.mu.Lock()
	m.ready = false
	m.mu.Unlock()

	if m.browserContext != nil {
		if err := m.browserContext.Close(); err != nil {
			logger.Warn("Failed to close context", zap.Error(err))
		}
	}

	if m.browser != nil {
		if err := m.browser.Close(); err != nil {
			logger.Warn("Failed to close browser", zap.Error(err))
		}
	}

	if m.playwright != nil {
		if err := m.playwright.Stop(); err != nil {
			return apperr.WrapWithReason(op, apperr.CodeInternal, err, "playwright_stop_failed")
		}
	}

	logger.Info("Browser closed")

	return nil
}

func (m *Manager) IsReady() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.ready
}

// activePage returns the current page, switching to another open page or
// opening a new one when the user closed it.
func (m *Manager) activePage(op string) (playwright.Page, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.ready {
		return nil, apperr.WrapErrorWithReason(op, apperr.CodeBrowserNotReady, "browser_not_ready")
	}

	if m.page != nil && !m.page.IsClosed() {
		return m.page, nil
	}

	m.logger.Info("Page closed, reconnecting to active page...")

	for _, p := range m.browserContext.Pages() {
		if !p.IsClosed() {
			m.page = p

			return p, nil
		}
	}

	page, err := m.browserContext.NewPage()
	if err != nil {
		return nil, apperr.Wrap(op, apperr.CodeBrowserNotReady, err, map[string]any{
			apperr.MetaReason: "page_not_active",
		})
	}
	m.page = page

	return page, nil
}

func (m *Manager) Navigate(ctx context.Context, url string) (err error) {
	const op = "Navigate"
	logger := m.logger.With(zap.String(logg.Operation, op), zap.String(logg.URL, url))

	_, step := tracing.StartSpan(ctx, m.tracer, logger, op, attribute.String("url", url))
	defer func() {
		step.End(err)
	}()

	page, err := m.activePage(op)
	if err != nil {
		return err
	}

	step.AddEvent("navigating to URL")

	if _, err = page.Goto(url, playwright.PageGotoOptions{
		Timeout:   playwright.Float(float64(m.config.BrowserConfig.Timeout)),
		WaitUntil: playwright.WaitUntilStateDomcontentloaded,
	}); err != nil {
		return apperr.Wrap(op, apperr.CodeActionFailed, err, map[string]any{
			apperr.MetaReason: "goto_failed",
			apperr.MetaStage:  apperr.StageNavigation,
			apperr.MetaURL:    url,
		})
	}

	if err := page.WaitForLoadState(playwright.PageWaitForLoadStateOptions{
		State:   playwright.LoadStateLoad,
		Timeout: playwright.Float(loadStateTimeout),
	}); err != nil {
		logger.Debug("page did not reach load state", zap.Error(err))
	}

	step.AddEvent("navigation completed")

	return nil
}

// Snapshot parses the page's current markup into a Document.
func (m *Manager) Snapshot(ctx context.Context) (doc *dom.Document, err error) {
	const op = "Snapshot"
	logger := m.logger.With(zap.String(logg.Operation, op))

	_, step := tracing.StartSpan(ctx, m.tracer, logger, op)
	defer func() {
		step.End(err)
	}()

	page, err := m.activePage(op)
	if err != nil {
		return nil, err
	}

	return m.snapshot(op, page)
}

func (m *Manager) snapshot(op string, page playwright.Page) (*dom.Document, error) {
	content, err := page.Content()
	if err != nil {
		return nil, apperr.Wrap(op, apperr.CodeActionFailed, err, map[string]any{
			apperr.MetaReason: "content_failed",
			apperr.MetaStage:  apperr.StageDocument,
		})
	}

	doc, err := dom.ParseString(content)
	if err != nil {
		return nil, apperr.Wrap(op, apperr.CodeInternal, err, map[string]any{
			apperr.MetaReason: "parse_failed",
			apperr.MetaStage:  apperr.StageDocument,
		})
	}

	if overlay := doc.FindByAttr("id", overlayID); overlay != nil && overlay.Parent != nil {
		overlay.Parent.RemoveChild(overlay)
	}

	return doc, nil
}

// ElementAt snapshots the page and returns the element under the viewport
// point (x, y) together with the snapshot it belongs to.
func (m *Manager) ElementAt(ctx context.Context, x, y float64) (doc *dom.Document, n *html.Node, err error) {
	const op = "ElementAt"
	logger := m.logger.With(zap.String(logg.Operation, op))

	_, step := tracing.StartSpan(ctx, m.tracer, logger, op,
		attribute.Float64("x", x),
		attribute.Float64("y", y))
	defer func() {
		step.End(err)
	}()

	page, err := m.activePage(op)
	if err != nil {
		return nil, nil, err
	}

	result, err := page.Evaluate(elementAtScript, []float64{x, y})
	if err != nil {
		return nil, nil, apperr.Wrap(op, apperr.CodeActionFailed, err, map[string]any{
			apperr.MetaReason: "evaluate_failed",
		})
	}

	path, ok := pathFromJS(result)
	if !ok {
		return nil, nil, apperr.NotFoundError(op, fmt.Errorf("no element at (%.0f, %.0f)", x, y))
	}

	doc, err = m.snapshot(op, page)
	if err != nil {
		return nil, nil, err
	}

	n = nodeAtPath(doc, path)
	if n == nil {
		return nil, nil, apperr.NotFoundError(op, errElementDetached)
	}

	return doc, n, nil
}

// Rendered asks the page for the computed style of n and its ancestors, so
// linked and script-inserted stylesheets are taken into account.
func (m *Manager) Rendered(ctx context.Context, _ *dom.Document, n *html.Node) (bool, error) {
	const op = "Rendered"

	if err := ctx.Err(); err != nil {
		return false, err
	}

	page, err := m.activePage(op)
	if err != nil {
		return false, err
	}

	result, err := page.Evaluate(renderedScript, nodePath(n))
	if err != nil {
		return false, apperr.Wrap(op, apperr.CodeActionFailed, err, map[string]any{
			apperr.MetaReason: "evaluate_failed",
			apperr.MetaStage:  apperr.StageReveal,
		})
	}

	rendered, ok := result.(bool)
	if !ok {
		return false, apperr.NotFoundError(op, errElementDetached)
	}

	return rendered, nil
}

func (m *Manager) Hover(ctx context.Context, _ *dom.Document, n *html.Node) error {
	return m.elementAction(ctx, "Hover", hoverScript, n)
}

func (m *Manager) ScrollIntoView(ctx context.Context, _ *dom.Document, n *html.Node) error {
	return m.elementAction(ctx, "ScrollIntoView", scrollIntoViewScript, n)
}

func (m *Manager) elementAction(ctx context.Context, op, script string, n *html.Node) (err error) {
	logger := m.logger.With(zap.String(logg.Operation, op), zap.String(logg.Tag, dom.TagName(n)))

	_, step := tracing.StartSpan(ctx, m.tracer, logger, op)
	defer func() {
		step.End(err)
	}()

	if err := ctx.Err(); err != nil {
		return err
	}

	page, err := m.activePage(op)
	if err != nil {
		return err
	}

	result, err := page.Evaluate(script, nodePath(n))
	if err != nil {
		return apperr.Wrap(op, apperr.CodeActionFailed, err, map[string]any{
			apperr.MetaReason: "evaluate_failed",
		})
	}
	if ok, _ := result.(bool); !ok {
		return apperr.NotFoundError(op, errElementDetached)
	}

	return nil
}

// BoundingRect measures n in document coordinates. It runs on every overlay
// refresh, so it is not traced.
func (m *Manager) BoundingRect(ctx context.Context, _ *dom.Document, n *html.Node) (entity.Rect, error) {
	const op = "BoundingRect"

	if err := ctx.Err(); err != nil {
		return entity.Rect{}, err
	}

	page, err := m.activePage(op)
	if err != nil {
		return entity.Rect{}, err
	}

	result, err := page.Evaluate(boundingRectScript, nodePath(n))
	if err != nil {
		return entity.Rect{}, apperr.Wrap(op, apperr.CodeActionFailed, err, map[string]any{
			apperr.MetaReason: "evaluate_failed",
		})
	}

	rect, ok := result.(map[string]interface{})
	if !ok {
		return entity.Rect{}, apperr.NotFoundError(op, errElementDetached)
	}

	return entity.Rect{
		Top:    getFloat(rect, "top"),
		Left:   getFloat(rect, "left"),
		Width:  getFloat(rect, "width"),
		Height: getFloat(rect, "height"),
	}, nil
}

func (m *Manager) ShowOverlay(ctx context.Context, rect entity.Rect) error {
	return m.overlayAction(ctx, "ShowOverlay", showOverlayScript, rectArg(rect))
}

func (m *Manager) MoveOverlay(ctx context.Context, rect entity.Rect) error {
	return m.overlayAction(ctx, "MoveOverlay", moveOverlayScript, rectArg(rect))
}

func (m *Manager) RemoveOverlay(ctx context.Context) error {
	return m.overlayAction(ctx, "RemoveOverlay", removeOverlayScript, nil)
}

func (m *Manager) overlayAction(ctx context.Context, op, script string, arg any) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	page, err := m.activePage(op)
	if err != nil {
		return err
	}

	if _, err := page.Evaluate(script, arg); err != nil {
		return apperr.Wrap(op, apperr.CodeActionFailed, err, map[string]any{
			apperr.MetaReason: "evaluate_failed",
			apperr.MetaStage:  apperr.StageHighlight,
		})
	}

	return nil
}

func rectArg(rect entity.Rect) map[string]float64 {
	return map[string]float64{
		"top":    rect.Top,
		"left":   rect.Left,
		"width":  rect.Width,
		"height": rect.Height,
	}
}

func getFloat(m map[string]interface{}, key string) float64 {
	switch v := m[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	default:
		return 0
	}
}
