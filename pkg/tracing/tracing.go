package tracing

import (
	"context"
	"time"

	"element-locator/pkg/apperr"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const AttrErrorCode = "error.code"

// Span pairs an otel span with the operation logger so a failed step is both
// recorded and logged.
type Span struct {
	span    trace.Span
	logger  *zap.Logger
	name    string
	started time.Time
}

func StartSpan(ctx context.Context, tracer trace.Tracer, logger *zap.Logger, name string, attrs ...attribute.KeyValue) (context.Context, *Span) {
	ctx, span := tracer.Start(ctx, name, trace.WithAttributes(attrs...))

	return ctx, &Span{
		span:    span,
		logger:  logger,
		name:    name,
		started: time.Now(),
	}
}

// End closes the span. A non-nil err marks it failed and tags it with the
// apperr code carried by err.
func (s *Span) End(err error) {
	elapsed := time.Since(s.started)

	if err != nil {
		code := apperr.CodeOf(err)

		s.span.SetAttributes(attribute.String(AttrErrorCode, code))
		s.span.SetStatus(codes.Error, err.Error())
		s.span.RecordError(err)
		s.logger.Debug("Step failed",
			zap.String("span", s.name),
			zap.String("code", code),
			zap.Duration("elapsed", elapsed),
			zap.Error(err))
	} else {
		s.span.SetStatus(codes.Ok, "")
		s.logger.Debug("Step finished", zap.String("span", s.name), zap.Duration("elapsed", elapsed))
	}

	s.span.End()
}

func (s *Span) AddEvent(name string, attrs ...attribute.KeyValue) {
	s.span.AddEvent(name, trace.WithAttributes(attrs...))
}

func (s *Span) SetAttributes(attrs ...attribute.KeyValue) {
	s.span.SetAttributes(attrs...)
}
