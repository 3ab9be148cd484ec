package tools

import (
	"context"
	"encoding/json"
	"slices"

	"github.com/petal-labs/conduit/core"
)

// ToolCallFunc is the shape of Tool.Call that middleware composes.
type ToolCallFunc func(ctx context.Context, args json.RawMessage) (any, error)

// Middleware decorates a call.
type Middleware func(next ToolCallFunc) ToolCallFunc

// Chain folds middlewares into one, first listed outermost.
func Chain(middlewares ...Middleware) Middleware {
	return func(next ToolCallFunc) ToolCallFunc {
		for _, mw := range slices.Backward(middlewares) {
			next = mw(next)
		}
		return next
	}
}

// Wrap returns a tool that runs middlewares around t.
func Wrap(t Tool, middlewares ...Middleware) Tool {
	if len(middlewares) == 0 {
		return t
	}
	return &wrappedTool{
		Tool:    t,
		wrapped: Chain(middlewares...)(t.Call),
	}
}

// wrappedTool is a tool with middleware applied.
type wrappedTool struct {
	Tool
	wrapped ToolCallFunc
}

// Call makes sure a core.ToolContext naming this tool is present, so
// middleware can key on it even when the tool is called outside the engine.
func (w *wrappedTool) Call(ctx context.Context, args json.RawMessage) (any, error) {
	tc, _ := core.ToolContextFrom(ctx)
	if tc.Tool == "" {
		tc.Tool = w.Name()
		ctx = core.ContextWithToolContext(ctx, tc)
	}
	return w.wrapped(ctx, args)
}

// toolName returns the tool being called, as recorded in ctx.
func toolName(ctx context.Context) string {
	if tc, ok := core.ToolContextFrom(ctx); ok && tc.Tool != "" {
		return tc.Tool
	}
	return "unknown"
}
