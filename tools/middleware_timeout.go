package tools

import (
	"context"
	"encoding/json"
	"time"

	"github.com/petal-labs/conduit/core"
)

// WithTimeout gives each call at most d, for tools that need a tighter
// budget than the engine's per-call default. A tool that ignores its
// context is abandoned when the budget runs out.
func WithTimeout(d time.Duration) Middleware {
	return func(next ToolCallFunc) ToolCallFunc {
		return func(ctx context.Context, args json.RawMessage) (any, error) {
			callCtx, cancel := context.WithTimeout(ctx, d)
			defer cancel()

			var (
				value any
				err   error
			)
			done := make(chan struct{})
			go func() {
				defer close(done)
				value, err = next(callCtx, args)
			}()

			select {
			case <-done:
				return value, err
			case <-callCtx.Done():
			}
			if ctx.Err() != nil {
				return nil, core.Abort(ctx.Err())
			}
			return nil, &core.TimeoutError{Tool: toolName(ctx), Budget: d}
		}
	}
}
