// Package session runs locator test cycles: resolve a locator, reveal and
// highlight the element it points at, then tear the highlight down again.
//
// A Session runs at most one cycle at a time. A Test call made while a cycle
// is still in progress is ignored rather than queued.
package session

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"element-locator/internal/dom"
	"element-locator/internal/entity"
	"element-locator/internal/ports"
	"element-locator/internal/resolver"
	"element-locator/internal/reveal"
	"element-locator/pkg/apperr"
	"element-locator/pkg/logg"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/net/html"
)

const (
	sessionName = "Session"

	DefaultRefreshInterval = 200 * time.Millisecond
	DefaultVisibleFor      = 3 * time.Second

	teardownTimeout = 5 * time.Second
	rectBuffer      = 16
)

type State string

const (
	StateIdle              State = "idle"
	StateResolving         State = "resolving"
	StateFound             State = "found"
	StateRevealing         State = "revealing"
	StateHighlighting      State = "highlighting"
	StateAutoDismiss       State = "auto_dismiss"
	StateNotFound          State = "not_found"
	StateInvalidSelector   State = "invalid_selector"
	StateInvalidExpression State = "invalid_expression"
	StateErrorReported     State = "error_reported"
)

var ErrCycleClosed = errors.New("test cycle closed before the highlight was shown")

// Outcome reports how a Test call ended. For a found element the highlight is
// still on screen when Test returns: Rects carries its position on every
// refresh (dropping updates nobody reads) and Done is closed once it is gone
// and the session is idle again.
type Outcome struct {
	CycleID uuid.UUID
	Status  entity.TestStatus
	Message string
	Node    *html.Node
	Rect    entity.Rect
	Rects   <-chan entity.Rect
	Done    <-chan struct{}
}

type Params struct {
	Surface         ports.Surface
	Resolver        *resolver.Resolver
	Revealer        *reveal.Revealer
	Logger          *zap.Logger
	RefreshInterval time.Duration
	VisibleFor      time.Duration
	// OnTransition, when set, sees every state the session enters.
	OnTransition func(State)
}

type Session struct {
	surface         ports.Surface
	resolver        *resolver.Resolver
	revealer        *reveal.Revealer
	logger          *zap.Logger
	refreshInterval time.Duration
	visibleFor      time.Duration
	onTransition    func(State)

	busy atomic.Bool

	mu    sync.Mutex
	state State
	cycle *cycle
}

type cycle struct {
	id     uuid.UUID
	ctx    context.Context
	cancel context.CancelFunc
	rects  chan entity.Rect
	done   chan struct{}
	once   sync.Once

	mu      sync.Mutex
	overlay bool
	refresh *Task
	dismiss *Task
}

func New(params Params) *Session {
	logger := params.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Session{
		surface:         params.Surface,
		resolver:        params.Resolver,
		revealer:        params.Revealer,
		logger:          logger.With(zap.String(logg.Layer, sessionName)),
		refreshInterval: params.RefreshInterval,
		visibleFor:      params.VisibleFor,
		onTransition:    params.OnTransition,
		state:           StateIdle,
	}

	if s.resolver == nil {
		s.resolver = resolver.New(nil)
	}
	if s.revealer == nil {
		s.revealer = reveal.NewRevealer(params.Surface, reveal.DefaultPause, logger)
	}
	if s.refreshInterval <= 0 {
		s.refreshInterval = DefaultRefreshInterval
	}
	if s.visibleFor <= 0 {
		s.visibleFor = DefaultVisibleFor
	}

	return s
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.state
}

// Test resolves value under strategy in doc and highlights the element found.
// Failures to resolve come back both as the Outcome status and as a
// *resolver.Error.
func (s *Session) Test(ctx context.Context, doc *dom.Document, strategy entity.Strategy, value string) (Outcome, error) {
	const op = "Test"

	if !s.busy.CompareAndSwap(false, true) {
		s.logger.Debug("test ignored, another cycle is running",
			zap.String(logg.Operation, op), zap.String(logg.Strategy, string(strategy)))

		return Outcome{Status: entity.TestStatusIgnored, Message: "A locator test is already running"}, nil
	}

	cycleCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	c := &cycle{
		id:     uuid.New(),
		ctx:    cycleCtx,
		cancel: cancel,
		rects:  make(chan entity.Rect, rectBuffer),
		done:   make(chan struct{}),
	}
	logger := s.logger.With(
		zap.String(logg.Operation, op),
		zap.String(logg.CycleID, c.id.String()),
		zap.String(logg.Strategy, string(strategy)),
		zap.String(logg.Locator, value),
	)

	s.mu.Lock()
	s.cycle = c
	s.mu.Unlock()
	s.enter(c, StateResolving)

	node, err := s.resolver.Resolve(doc, strategy, value)
	if err != nil {
		if state := failureState(err); state != "" {
			s.enter(c, state)
		}
		s.enter(c, StateErrorReported)
		logger.Info("locator did not resolve", zap.Error(err))
		s.teardown(c)

		return Outcome{CycleID: c.id, Status: failureStatus(err), Message: err.Error()}, err
	}

	s.enter(c, StateFound)
	s.enter(c, StateRevealing)
	s.revealer.EnsureInteractable(c.ctx, doc, node)

	if err := s.surface.ScrollIntoView(c.ctx, doc, node); err != nil {
		logger.Warn("failed to scroll element into view", zap.Error(err))
	}

	rect, err := s.surface.BoundingRect(c.ctx, doc, node)
	if err != nil {
		s.teardown(c)

		return s.failed(c, apperr.Wrap(op, apperr.CodeActionFailed, err, map[string]any{
			apperr.MetaReason: "bounding_rect_failed",
			apperr.MetaStage:  apperr.StageHighlight,
		}))
	}

	if err := s.highlight(c, doc, node, rect); err != nil {
		s.teardown(c)

		return s.failed(c, apperr.Wrap(op, apperr.CodeActionFailed, err, map[string]any{
			apperr.MetaReason: "highlight_failed",
			apperr.MetaStage:  apperr.StageHighlight,
		}))
	}

	logger.Info("element highlighted", zap.String(logg.Tag, dom.TagName(node)))

	return Outcome{
		CycleID: c.id,
		Status:  entity.TestStatusFound,
		Message: "Element found",
		Node:    node,
		Rect:    rect,
		Rects:   c.rects,
		Done:    c.done,
	}, nil
}

// highlight shows the overlay and schedules its refresh and dismissal. It
// holds the cycle lock so that a concurrent teardown either runs before it
// (and the cycle is abandoned) or sees everything it started.
func (s *Session) highlight(c *cycle, doc *dom.Document, node *html.Node, rect entity.Rect) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.ctx.Err() != nil {
		return ErrCycleClosed
	}

	if err := s.surface.ShowOverlay(c.ctx, rect); err != nil {
		return err
	}
	c.overlay = true
	s.enter(c, StateHighlighting)
	publish(c.rects, rect)

	c.refresh = Every(c.ctx, s.refreshInterval, func(ctx context.Context) {
		current, err := s.surface.BoundingRect(ctx, doc, node)
		if err != nil {
			s.logger.Debug("failed to refresh overlay position", zap.String(logg.CycleID, c.id.String()), zap.Error(err))

			return
		}
		if err := s.surface.MoveOverlay(ctx, current); err != nil {
			s.logger.Debug("failed to move overlay", zap.String(logg.CycleID, c.id.String()), zap.Error(err))

			return
		}
		publish(c.rects, current)
	})

	c.dismiss = After(c.ctx, s.visibleFor, func(context.Context) {
		s.enter(c, StateAutoDismiss)
		s.teardown(c)
	})

	return nil
}

func (s *Session) failed(c *cycle, err error) (Outcome, error) {
	return Outcome{CycleID: c.id, Status: entity.TestStatusFailed, Message: err.Error()}, err
}

// Close ends the running cycle, if any, removing its highlight.
func (s *Session) Close() {
	s.mu.Lock()
	c := s.cycle
	s.mu.Unlock()

	if c != nil {
		s.teardown(c)
	}
}

// teardown runs once per cycle whichever path ends it.
func (s *Session) teardown(c *cycle) {
	c.once.Do(func() {
		c.cancel()

		c.mu.Lock()
		refresh, dismiss, overlay := c.refresh, c.dismiss, c.overlay
		c.mu.Unlock()

		if dismiss != nil {
			dismiss.Cancel()
		}
		if refresh != nil {
			refresh.Stop()
		}

		if overlay {
			ctx, cancel := context.WithTimeout(context.WithoutCancel(c.ctx), teardownTimeout)
			if err := s.surface.RemoveOverlay(ctx); err != nil {
				s.logger.Warn("failed to remove overlay", zap.String(logg.CycleID, c.id.String()), zap.Error(err))
			}
			cancel()
		}
		close(c.rects)

		s.mu.Lock()
		if s.cycle == c {
			s.cycle = nil
		}
		s.mu.Unlock()

		s.setState(StateIdle)
		s.busy.Store(false)
		close(c.done)
	})
}

// enter moves the session to state on behalf of c. Cycles that were already
// torn down no longer drive the state.
func (s *Session) enter(c *cycle, state State) {
	s.mu.Lock()
	current := s.cycle == c
	s.mu.Unlock()

	if current {
		s.setState(state)
	}
}

func (s *Session) setState(state State) {
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()

	s.logger.Debug("state changed", zap.String(logg.State, string(state)))
	if s.onTransition != nil {
		s.onTransition(state)
	}
}

func publish(rects chan entity.Rect, rect entity.Rect) {
	select {
	case rects <- rect:
	default:
	}
}

func failureState(err error) State {
	switch resolver.KindOf(err) {
	case resolver.KindInvalidSelector:
		return StateInvalidSelector
	case resolver.KindInvalidExpression:
		return StateInvalidExpression
	case resolver.KindNotFound:
		return StateNotFound
	default:
		return ""
	}
}

func failureStatus(err error) entity.TestStatus {
	switch resolver.KindOf(err) {
	case resolver.KindNotFound:
		return entity.TestStatusNotFound
	case resolver.KindInvalidSelector:
		return entity.TestStatusInvalidSelector
	case resolver.KindInvalidExpression:
		return entity.TestStatusInvalidExpression
	default:
		return entity.TestStatusFailed
	}
}
