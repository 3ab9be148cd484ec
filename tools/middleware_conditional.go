package tools

import (
	"context"
	"encoding/json"
)

// ForTools applies middleware only to the named tools.
func ForTools(toolNames []string, middleware Middleware) Middleware {
	names := nameSet(toolNames)
	return func(next ToolCallFunc) ToolCallFunc {
		wrapped := middleware(next)
		return func(ctx context.Context, args json.RawMessage) (any, error) {
			if names[toolName(ctx)] {
				return wrapped(ctx, args)
			}
			return next(ctx, args)
		}
	}
}

// ExceptTools applies middleware to every tool but the named ones.
func ExceptTools(toolNames []string, middleware Middleware) Middleware {
	names := nameSet(toolNames)
	return func(next ToolCallFunc) ToolCallFunc {
		wrapped := middleware(next)
		return func(ctx context.Context, args json.RawMessage) (any, error) {
			if names[toolName(ctx)] {
				return next(ctx, args)
			}
			return wrapped(ctx, args)
		}
	}
}

func nameSet(names []string) map[string]bool {
	set := make(map[string]bool, len(names))
	for _, n := range names {
		set[n] = true
	}
	return set
}
