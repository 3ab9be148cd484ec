package tools

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"
)

// WithLogging creates middleware that logs tool calls.
func WithLogging(logger *slog.Logger) Middleware {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next ToolCallFunc) ToolCallFunc {
		return func(ctx context.Context, args json.RawMessage) (any, error) {
			name := toolName(ctx)
			logger.DebugContext(ctx, "tool call start", "tool", name)
			start := time.Now()

			result, err := next(ctx, args)

			if err != nil {
				logger.WarnContext(ctx, "tool call failed", "tool", name, "duration", time.Since(start), "error", err)
			} else {
				logger.DebugContext(ctx, "tool call done", "tool", name, "duration", time.Since(start))
			}
			return result, err
		}
	}
}

// WithDetailedLogging also logs arguments and results.
// Arguments may contain user data; use it only in development.
func WithDetailedLogging(logger *slog.Logger) Middleware {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next ToolCallFunc) ToolCallFunc {
		return func(ctx context.Context, args json.RawMessage) (any, error) {
			name := toolName(ctx)
			logger.DebugContext(ctx, "tool call", "tool", name, "args", string(args))
			start := time.Now()

			result, err := next(ctx, args)

			if err != nil {
				logger.WarnContext(ctx, "tool error", "tool", name, "duration", time.Since(start), "error", err)
			} else {
				out, _ := json.Marshal(result)
				logger.DebugContext(ctx, "tool result", "tool", name, "duration", time.Since(start), "result", string(out))
			}
			return result, err
		}
	}
}
