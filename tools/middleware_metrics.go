package tools

import (
	"context"
	"encoding/json"
	"time"
)

// MetricsCollector receives one record per tool call.
type MetricsCollector interface {
	RecordToolCall(ctx context.Context, tool string, duration time.Duration, err error)
}

// MetricsFunc adapts a plain function to MetricsCollector.
type MetricsFunc func(ctx context.Context, tool string, duration time.Duration, err error)

func (f MetricsFunc) RecordToolCall(ctx context.Context, tool string, d time.Duration, err error) {
	f(ctx, tool, d, err)
}

// WithMetrics times every call and hands the outcome to collector once the
// call returns, failed or not.
func WithMetrics(collector MetricsCollector) Middleware {
	return func(next ToolCallFunc) ToolCallFunc {
		return func(ctx context.Context, args json.RawMessage) (result any, err error) {
			defer func(start time.Time) {
				collector.RecordToolCall(ctx, toolName(ctx), time.Since(start), err)
			}(time.Now())
			return next(ctx, args)
		}
	}
}
