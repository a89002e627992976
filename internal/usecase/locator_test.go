package usecase

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"element-locator/internal/config"
	"element-locator/internal/dom"
	"element-locator/internal/entity"
	"element-locator/internal/query"
	"element-locator/internal/resolver"
	"element-locator/pkg/apperr"
	"element-locator/pkg/logg"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"
	"golang.org/x/net/html"
)

const page = `<html><body>
<div class="container"><button class="btn-primary-action">Go</button></div>
<nav><a href="/docs">Docs</a></nav>
<div class="dropdown" style="display:none"><a href="/hidden">Hidden</a></div>
</body></html>`

type fakeBrowser struct {
	*dom.OfflineSurface

	ready     bool
	page      string
	rect      entity.Rect
	navigated []string
}

func (b *fakeBrowser) Launch(context.Context) error {
	b.ready = true

	return nil
}

func (b *fakeBrowser) Close(context.Context) error {
	b.ready = false

	return nil
}

func (b *fakeBrowser) Navigate(_ context.Context, url string) error {
	b.navigated = append(b.navigated, url)

	return nil
}

func (b *fakeBrowser) Snapshot(context.Context) (*dom.Document, error) {
	return dom.ParseString(b.page)
}

func (b *fakeBrowser) ElementAt(context.Context, float64, float64) (*dom.Document, *html.Node, error) {
	doc, err := dom.ParseString(b.page)
	if err != nil {
		return nil, nil, err
	}

	n, err := query.Default().SelectFirst(doc.Root(), "nav a")
	if err != nil {
		return nil, nil, err
	}

	return doc, n, nil
}

func (b *fakeBrowser) IsReady() bool {
	return b.ready
}

func (b *fakeBrowser) BoundingRect(context.Context, *dom.Document, *html.Node) (entity.Rect, error) {
	return b.rect, nil
}

func testConfig() *config.Config {
	return &config.Config{
		AppConfig:     &config.AppConfig{LogLevel: "debug"},
		BrowserConfig: &config.BrowserConfig{},
		LocatorConfig: &config.LocatorConfig{
			RevealPause:     0,
			RefreshInterval: 5 * time.Millisecond,
			VisibleFor:      30 * time.Millisecond,
		},
	}
}

func newService(t *testing.T, browser *fakeBrowser) *LocatorService {
	t.Helper()

	engine, err := query.NewEngine(16)
	require.NoError(t, err)

	svc := NewLocatorService(LocatorServiceParams{
		Config:  testConfig(),
		Logger:  zaptest.NewLogger(t),
		Browser: browser,
		Engine:  engine,
	})
	t.Cleanup(svc.Close)

	return svc
}

func writePage(t *testing.T) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "page.html")
	require.NoError(t, os.WriteFile(path, []byte(page), 0o600))

	return path
}

func TestFindLocatorsFromFile(t *testing.T) {
	svc := newService(t, &fakeBrowser{OfflineSurface: dom.NewOfflineSurface()})
	ctx := context.Background()

	require.NoError(t, svc.LoadFile(ctx, writePage(t)))

	target, err := svc.Pick(ctx, "button")
	require.NoError(t, err)
	assert.Same(t, target, svc.Target())

	findings, err := svc.FindLocators(ctx)
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, findings.ID)
	assert.False(t, findings.HasRect)
	assert.Equal(t, entity.LocatorSet{
		CSS:       "button.btn-primary-action",
		XPath:     "//body/div[1]/button",
		ClassName: "btn-primary-action",
		TagName:   "button",
	}, findings.Locators)
}

func TestFindLocatorsPreconditions(t *testing.T) {
	svc := newService(t, &fakeBrowser{OfflineSurface: dom.NewOfflineSurface()})
	ctx := context.Background()

	_, err := svc.FindLocators(ctx)
	assert.Equal(t, apperr.CodeNoDocument, apperr.CodeOf(err))

	doc, err := dom.ParseString(page)
	require.NoError(t, err)
	svc.LoadDocument(doc, "inline")

	_, err = svc.FindLocators(ctx)
	assert.Equal(t, apperr.CodeInvalidArgument, apperr.CodeOf(err))

	other, err := dom.ParseString(page)
	require.NoError(t, err)
	svc.mu.Lock()
	svc.target = other.FindByAttr("class", "container")
	svc.mu.Unlock()
	_, err = svc.FindLocators(ctx)
	assert.Equal(t, apperr.CodeInvalidArgument, apperr.CodeOf(err))
	assert.ErrorContains(t, err, "not part of the current document")

	_, err = svc.Pick(ctx, "button[")
	assert.Equal(t, apperr.CodeInvalidSelector, apperr.CodeOf(err))

	_, err = svc.Pick(ctx, "table")
	assert.Equal(t, apperr.CodeNotFound, apperr.CodeOf(err))

	assert.Equal(t, apperr.CodeInvalidArgument, apperr.CodeOf(svc.LoadFile(ctx, "")))
	assert.Equal(t, apperr.CodeNotFound, apperr.CodeOf(svc.LoadFile(ctx, filepath.Join(t.TempDir(), "missing.html"))))
}

func TestTestLocatorOffline(t *testing.T) {
	svc := newService(t, &fakeBrowser{OfflineSurface: dom.NewOfflineSurface()})
	ctx := context.Background()
	require.NoError(t, svc.LoadFile(ctx, writePage(t)))

	outcome, err := svc.TestLocator(ctx, entity.StrategyPartialLinkText, "Hidd")
	require.NoError(t, err)
	assert.Equal(t, entity.TestStatusFound, outcome.Status)
	assert.Equal(t, "/hidden", dom.AttrValue(outcome.Node, "href"))
	assert.Len(t, svc.offlineSurface.Hovered(), 1, "dropdown ancestor hovered")

	select {
	case <-outcome.Done:
	case <-time.After(2 * time.Second):
		t.Fatal("highlight was not dismissed")
	}
	assert.Zero(t, svc.offlineSurface.ActiveOverlays())

	outcome, err = svc.TestLocator(ctx, entity.StrategyXPath, "//table")
	require.Error(t, err)
	assert.Equal(t, entity.TestStatusNotFound, outcome.Status)
	assert.Equal(t, "Element not found with xpath: //table", outcome.Message)
	assert.Equal(t, apperr.CodeNotFound, apperr.CodeOf(err))

	var resolveErr *resolver.Error
	assert.ErrorAs(t, err, &resolveErr)
}

func TestTestLocatorWithoutDocument(t *testing.T) {
	svc := newService(t, &fakeBrowser{OfflineSurface: dom.NewOfflineSurface()})

	outcome, err := svc.TestLocator(context.Background(), entity.StrategyCSS, "button")
	require.Error(t, err)
	assert.Equal(t, entity.TestStatusFailed, outcome.Status)
	assert.Equal(t, apperr.CodeNoDocument, apperr.CodeOf(err))
}

func TestLivePage(t *testing.T) {
	browser := &fakeBrowser{
		OfflineSurface: dom.NewOfflineSurface(),
		page:           page,
		rect:           entity.Rect{Top: 10, Left: 20, Width: 30, Height: 40},
	}
	svc := newService(t, browser)
	ctx := context.Background()

	err := svc.Open(ctx, "https://example.com")
	assert.Equal(t, apperr.CodeBrowserNotReady, apperr.CodeOf(err))
	_, err = svc.Point(ctx, 1, 1)
	assert.Equal(t, apperr.CodeBrowserNotReady, apperr.CodeOf(err))

	require.NoError(t, browser.Launch(ctx))
	require.NoError(t, svc.Open(ctx, "https://example.com"))
	assert.Equal(t, []string{"https://example.com"}, browser.navigated)

	_, source := svc.Document()
	assert.Equal(t, "https://example.com", source)

	target, err := svc.Point(ctx, 100, 200)
	require.NoError(t, err)
	assert.Equal(t, "a", dom.TagName(target))

	findings, err := svc.FindLocators(ctx)
	require.NoError(t, err)
	assert.True(t, findings.HasRect)
	assert.Equal(t, browser.rect, findings.Rect)
	assert.Equal(t, "Docs", findings.Locators.LinkText)
	assert.Equal(t, `a[href="/docs"]`, findings.Locators.CSS)

	outcome, err := svc.TestLocator(ctx, entity.StrategyLinkText, "Docs")
	require.NoError(t, err)
	assert.Equal(t, entity.TestStatusFound, outcome.Status)
	assert.Equal(t, browser.rect, outcome.Rect)
	assert.Equal(t, 1, browser.ActiveOverlays())
	assert.Zero(t, svc.offlineSurface.OverlaysShown())

	<-outcome.Done
	assert.Zero(t, browser.ActiveOverlays())
}

func TestSessionLogsCarryOneLayer(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	engine, err := query.NewEngine(16)
	require.NoError(t, err)

	svc := NewLocatorService(LocatorServiceParams{
		Config: testConfig(),
		Logger: zap.New(core),
		Engine: engine,
	})
	t.Cleanup(svc.Close)

	doc, err := dom.ParseString(page)
	require.NoError(t, err)
	svc.LoadDocument(doc, "inline")

	outcome, err := svc.TestLocator(context.Background(), entity.StrategyPartialLinkText, "Hidd")
	require.NoError(t, err)
	<-outcome.Done

	layers := map[string]bool{}
	for _, entry := range logs.All() {
		count := 0
		for _, field := range entry.Context {
			if field.Key == logg.Layer {
				count++
				layers[field.String] = true
			}
		}
		assert.LessOrEqual(t, count, 1, entry.Message)
	}
	assert.True(t, layers["Session"])
	assert.True(t, layers["Revealer"])
}
