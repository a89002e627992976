package usecase

import (
	"context"
	"errors"
	"os"
	"sync"
	"time"

	"element-locator/internal/config"
	"element-locator/internal/dom"
	"element-locator/internal/entity"
	"element-locator/internal/locator"
	"element-locator/internal/ports"
	"element-locator/internal/query"
	"element-locator/internal/resolver"
	"element-locator/internal/reveal"
	"element-locator/internal/session"
	"element-locator/pkg/apperr"
	"element-locator/pkg/logg"
	"element-locator/pkg/tracing"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"golang.org/x/net/html"
)

const (
	locatorServiceName = "LocatorService"
	locatorTracer      = "usecase.locator"
)

// LocatorService keeps the current document and target element and runs
// find and test actions against them. A document comes either from a file
// (offline surface) or from the live browser page.
type LocatorService struct {
	config      *config.Config
	logger      *zap.Logger
	rootLogger  *zap.Logger
	tracer      trace.Tracer
	browser     ports.Browser
	synthesizer *locator.Synthesizer
	resolver    *resolver.Resolver

	offlineSurface *dom.OfflineSurface

	mu      sync.Mutex
	doc     *dom.Document
	source  string
	live    bool
	target  *html.Node
	surface ports.Surface
	session *session.Session
	offline *session.Session
	online  *session.Session
}

type LocatorServiceParams struct {
	fx.In

	Config  *config.Config
	Logger  *zap.Logger
	Browser ports.Browser
	Engine  *query.Engine
}

func NewLocatorService(params LocatorServiceParams) *LocatorService {
	logger := params.Logger.With(zap.String(logg.Layer, locatorServiceName))
	res := resolver.New(params.Engine)

	s := &LocatorService{
		config:      params.Config,
		logger:      logger,
		rootLogger:  params.Logger,
		tracer:      otel.Tracer(locatorTracer),
		browser:     params.Browser,
		synthesizer: locator.NewSynthesizer(params.Engine),
		resolver:    res,
	}

	s.offlineSurface = dom.NewOfflineSurface()
	s.offline = s.newSession(s.offlineSurface, res)
	if params.Browser != nil {
		s.online = s.newSession(params.Browser, res)
	}

	return s
}

func (s *LocatorService) newSession(surface ports.Surface, res *resolver.Resolver) *session.Session {
	cfg := s.config.LocatorConfig

	return session.New(session.Params{
		Surface:         surface,
		Resolver:        res,
		Revealer:        reveal.NewRevealer(surface, cfg.RevealPause, s.rootLogger),
		Logger:          s.rootLogger,
		RefreshInterval: cfg.RefreshInterval,
		VisibleFor:      cfg.VisibleFor,
	})
}

// LoadFile makes the HTML file at path the current document.
func (s *LocatorService) LoadFile(ctx context.Context, path string) (err error) {
	const op = "LoadFile"
	logger := s.logger.With(zap.String(logg.Operation, op), zap.String(logg.Path, path))

	_, step := tracing.StartSpan(ctx, s.tracer, logger, op, attribute.String("path", path))
	defer func() {
		step.End(err)
	}()

	if path == "" {
		return apperr.InvalidReqError(op, "path", errors.New("path cannot be empty"))
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return apperr.Wrap(op, apperr.CodeNotFound, err, map[string]any{
			apperr.MetaReason: "read_failed",
			apperr.MetaStage:  apperr.StageDocument,
			apperr.MetaPath:   path,
		})
	}

	doc, err := dom.ParseBytes(content)
	if err != nil {
		return apperr.Wrap(op, apperr.CodeInvalidArgument, err, map[string]any{
			apperr.MetaReason: "parse_failed",
			apperr.MetaStage:  apperr.StageDocument,
			apperr.MetaPath:   path,
		})
	}

	s.useOffline(doc, path)
	logger.Info("document loaded")

	return nil
}

// LoadDocument makes an already parsed document the current one.
func (s *LocatorService) LoadDocument(doc *dom.Document, source string) {
	s.useOffline(doc, source)
}

func (s *LocatorService) useOffline(doc *dom.Document, source string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.switchSession(s.offline)
	s.doc, s.source, s.live, s.target, s.surface = doc, source, false, nil, s.offlineSurface
}

// Open navigates the browser to url and snapshots the page as the current
// document.
func (s *LocatorService) Open(ctx context.Context, url string) (err error) {
	const op = "Open"
	logger := s.logger.With(zap.String(logg.Operation, op), zap.String(logg.URL, url))

	ctx, step := tracing.StartSpan(ctx, s.tracer, logger, op, attribute.String("url", url))
	defer func() {
		step.End(err)
	}()

	if url == "" {
		return apperr.InvalidReqError(op, "url", errors.New("url cannot be empty"))
	}
	if err := s.requireBrowser(op); err != nil {
		return err
	}

	if err := s.browser.Navigate(ctx, url); err != nil {
		return err
	}

	doc, err := s.browser.Snapshot(ctx)
	if err != nil {
		return err
	}

	s.useLive(doc, url, nil)
	logger.Info("page opened")

	return nil
}

func (s *LocatorService) useLive(doc *dom.Document, source string, target *html.Node) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.switchSession(s.online)
	s.doc, s.source, s.live, s.target, s.surface = doc, source, true, target, s.browser
}

// switchSession closes the running cycle of the session being left.
func (s *LocatorService) switchSession(next *session.Session) {
	if s.session != nil && s.session != next {
		s.session.Close()
	}
	s.session = next
}

func (s *LocatorService) requireBrowser(op string) error {
	if s.browser == nil || !s.browser.IsReady() {
		return apperr.Wrap(op, apperr.CodeBrowserNotReady, errors.New("browser is not running"), map[string]any{
			apperr.MetaReason: "browser_not_ready",
			apperr.MetaStage:  apperr.StageBrowser,
		})
	}

	return nil
}

// Pick makes the first element matching selector the target.
func (s *LocatorService) Pick(ctx context.Context, selector string) (n *html.Node, err error) {
	const op = "Pick"
	logger := s.logger.With(zap.String(logg.Operation, op), zap.String(logg.Selector, selector))

	_, step := tracing.StartSpan(ctx, s.tracer, logger, op, attribute.String("selector", selector))
	defer func() {
		step.End(err)
	}()

	doc, _, err := s.current(op)
	if err != nil {
		return nil, err
	}

	n, err = s.resolver.Resolve(doc, entity.StrategyCSS, selector)
	if err != nil {
		return nil, resolveError(op, err)
	}

	s.mu.Lock()
	if s.doc == doc {
		s.target = n
	}
	s.mu.Unlock()

	return n, nil
}

// Point makes the element under the viewport point (x, y) of the live page
// the target, refreshing the document from the page.
func (s *LocatorService) Point(ctx context.Context, x, y float64) (n *html.Node, err error) {
	const op = "Point"
	logger := s.logger.With(zap.String(logg.Operation, op))

	ctx, step := tracing.StartSpan(ctx, s.tracer, logger, op,
		attribute.Float64("x", x),
		attribute.Float64("y", y))
	defer func() {
		step.End(err)
	}()

	if err := s.requireBrowser(op); err != nil {
		return nil, err
	}

	doc, n, err := s.browser.ElementAt(ctx, x, y)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	source := s.source
	if !s.live {
		source = "live page"
	}
	s.mu.Unlock()
	s.useLive(doc, source, n)

	return n, nil
}

// FindLocators computes every locator for the current target.
func (s *LocatorService) FindLocators(ctx context.Context) (findings *entity.Findings, err error) {
	const op = "FindLocators"
	logger := s.logger.With(zap.String(logg.Operation, op))

	ctx, step := tracing.StartSpan(ctx, s.tracer, logger, op)
	defer func() {
		step.End(err)
	}()

	s.mu.Lock()
	doc, target, surface := s.doc, s.target, s.surface
	s.mu.Unlock()

	if doc == nil {
		return nil, apperr.WrapErrorWithReason(op, apperr.CodeNoDocument, "no_document")
	}
	if target == nil {
		return nil, apperr.InvalidReqError(op, "target", errors.New("no target element picked"))
	}
	if !doc.Owns(target) {
		return nil, apperr.InvalidReqError(op, "target", errors.New("target is not part of the current document"))
	}

	findings = &entity.Findings{
		ID:        uuid.New(),
		Locators:  s.synthesizer.Locators(doc, target),
		CreatedAt: time.Now(),
	}

	rect, err := surface.BoundingRect(ctx, doc, target)
	if err != nil {
		logger.Warn("failed to measure target", zap.Error(err))
	} else if rect.Width > 0 || rect.Height > 0 {
		findings.Rect, findings.HasRect = rect, true
	}

	logger.Info("locators found",
		zap.String(logg.FindingID, findings.ID.String()),
		zap.String(logg.Tag, findings.Locators.TagName),
		zap.String(logg.Selector, findings.Locators.CSS))
	step.SetAttributes(attribute.String("css", findings.Locators.CSS), attribute.String("xpath", findings.Locators.XPath))

	return findings, nil
}

// TestLocator resolves a stored locator against the current document and
// highlights the element it finds. On a live page the document is refreshed
// first.
func (s *LocatorService) TestLocator(ctx context.Context, strategy entity.Strategy, value string) (outcome session.Outcome, err error) {
	const op = "TestLocator"
	logger := s.logger.With(zap.String(logg.Operation, op),
		zap.String(logg.Strategy, string(strategy)),
		zap.String(logg.Locator, value))

	ctx, step := tracing.StartSpan(ctx, s.tracer, logger, op,
		attribute.String("strategy", string(strategy)),
		attribute.String("locator", value))
	defer func() {
		step.End(err)
	}()

	doc, live, err := s.current(op)
	if err != nil {
		return session.Outcome{Status: entity.TestStatusFailed, Message: err.Error()}, err
	}

	s.mu.Lock()
	sess := s.session
	s.mu.Unlock()

	if live && sess.State() == session.StateIdle {
		fresh, err := s.browser.Snapshot(ctx)
		if err != nil {
			return session.Outcome{Status: entity.TestStatusFailed, Message: err.Error()}, err
		}
		doc = fresh

		s.mu.Lock()
		s.doc, s.target = fresh, nil
		s.mu.Unlock()
	}

	outcome, err = sess.Test(ctx, doc, strategy, value)
	if err != nil {
		return outcome, resolveError(op, err)
	}

	step.AddEvent("test finished", attribute.String("status", string(outcome.Status)))

	return outcome, nil
}

// Document returns the current document and where it came from.
func (s *LocatorService) Document() (*dom.Document, string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.doc, s.source
}

func (s *LocatorService) Target() *html.Node {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.target
}

func (s *LocatorService) Close() {
	s.offline.Close()
	if s.online != nil {
		s.online.Close()
	}
}

func (s *LocatorService) current(op string) (*dom.Document, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.doc == nil {
		return nil, false, apperr.Wrap(op, apperr.CodeNoDocument, errors.New("no document loaded"), map[string]any{
			apperr.MetaReason: "no_document",
			apperr.MetaStage:  apperr.StageDocument,
		})
	}

	return s.doc, s.live, nil
}

// resolveError maps resolver failures onto application error codes while
// keeping the *resolver.Error reachable through errors.As.
func resolveError(op string, err error) error {
	var resolveErr *resolver.Error
	if !errors.As(err, &resolveErr) {
		return err
	}

	code := apperr.CodeInternal
	switch resolveErr.Kind {
	case resolver.KindNotFound:
		code = apperr.CodeNotFound
	case resolver.KindInvalidSelector:
		code = apperr.CodeInvalidSelector
	case resolver.KindInvalidExpression:
		code = apperr.CodeInvalidExpression
	case resolver.KindUnsupportedStrategy:
		code = apperr.CodeInvalidArgument
	}

	return apperr.Wrap(op, code, err, map[string]any{
		apperr.MetaReason:   string(resolveErr.Kind),
		apperr.MetaStage:    apperr.StageResolution,
		apperr.MetaStrategy: string(resolveErr.Strategy),
		apperr.MetaLocator:  resolveErr.Value,
	})
}
