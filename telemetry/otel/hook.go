// Package otel reports conduit provider turns and tool calls as
// OpenTelemetry spans.
package otel

import (
	"context"
	"sync"
	"time"

	gotel "go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/petal-labs/conduit/core"
	"github.com/petal-labs/conduit/tools"
)

const instrumentationName = "github.com/petal-labs/conduit/telemetry/otel"

// Span and attribute names.
const (
	TurnSpanName = "conduit.turn"
	ToolSpanName = "conduit.tool"

	AttrProvider  = attribute.Key("gen_ai.system")
	AttrModel     = attribute.Key("gen_ai.request.model")
	AttrIteration = attribute.Key("conduit.iteration")
	AttrToolCalls = attribute.Key("conduit.tool_calls")
	AttrTool      = attribute.Key("conduit.tool.name")
	AttrAborted   = attribute.Key("conduit.aborted")
)

// Option configures a Hook.
type Option func(*Hook)

// WithTracerProvider sets the provider spans are created from. Defaults to
// the global provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(h *Hook) {
		if tp != nil {
			h.tracer = tp.Tracer(instrumentationName)
		}
	}
}

// Hook is a core.TelemetryHook that opens one span per provider turn. It also
// implements tools.MetricsCollector so tool calls can be traced with
// tools.WithMetrics. Hook is safe for concurrent use.
type Hook struct {
	tracer trace.Tracer

	mu    sync.Mutex
	spans map[string]trace.Span
}

// NewHook creates a hook.
func NewHook(opts ...Option) *Hook {
	h := &Hook{
		tracer: gotel.GetTracerProvider().Tracer(instrumentationName),
		spans:  make(map[string]trace.Span),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// OnRequestStart opens the turn's span.
func (h *Hook) OnRequestStart(e core.RequestStartEvent) {
	_, span := h.tracer.Start(context.Background(), TurnSpanName,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithTimestamp(e.Start),
		trace.WithAttributes(
			AttrProvider.String(e.Provider),
			AttrModel.String(string(e.Model)),
			AttrIteration.Int(e.Iteration),
		),
	)

	h.mu.Lock()
	h.spans[e.ID] = span
	h.mu.Unlock()
}

// OnRequestEnd closes the turn's span. Aborts are marked but not treated as
// failures.
func (h *Hook) OnRequestEnd(e core.RequestEndEvent) {
	h.mu.Lock()
	span, ok := h.spans[e.ID]
	delete(h.spans, e.ID)
	h.mu.Unlock()
	if !ok {
		return
	}

	span.SetAttributes(AttrToolCalls.Int(e.ToolCalls))
	switch {
	case e.Err == nil:
		span.SetStatus(codes.Ok, "")
	case core.IsAbort(e.Err):
		span.SetAttributes(AttrAborted.Bool(true))
	default:
		span.RecordError(e.Err)
		span.SetStatus(codes.Error, e.Err.Error())
	}
	span.End(trace.WithTimestamp(e.End))
}

// RecordToolCall records a finished tool call as a span under any span
// already in ctx.
func (h *Hook) RecordToolCall(ctx context.Context, tool string, duration time.Duration, err error) {
	end := time.Now()
	attrs := []attribute.KeyValue{AttrTool.String(tool)}
	if tc, ok := core.ToolContextFrom(ctx); ok {
		if tc.Provider != "" {
			attrs = append(attrs, AttrProvider.String(tc.Provider))
		}
		if tc.Iteration > 0 {
			attrs = append(attrs, AttrIteration.Int(tc.Iteration))
		}
	}
	_, span := h.tracer.Start(ctx, ToolSpanName,
		trace.WithTimestamp(end.Add(-duration)),
		trace.WithAttributes(attrs...),
	)
	if err != nil && !core.IsAbort(err) {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End(trace.WithTimestamp(end))
}

var (
	_ core.TelemetryHook     = (*Hook)(nil)
	_ tools.MetricsCollector = (*Hook)(nil)
)
