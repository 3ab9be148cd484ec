package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sync"

	"golang.org/x/time/rate"

	"github.com/petal-labs/conduit/core"
)

// RateLimiter blocks until a call may proceed. *rate.Limiter satisfies it.
type RateLimiter interface {
	Wait(ctx context.Context) error
}

// WithRateLimit caps every tool behind it at perSecond calls, with a burst
// of twice that. Tools get separate buckets so a chatty search tool does
// not starve a quiet one.
func WithRateLimit(perSecond float64) Middleware {
	burst := max(1, int(math.Ceil(perSecond*2)))
	var (
		mu      sync.Mutex
		buckets = map[string]*rate.Limiter{}
	)
	return withLimiter(func(name string) RateLimiter {
		mu.Lock()
		defer mu.Unlock()
		l, ok := buckets[name]
		if !ok {
			l = rate.NewLimiter(rate.Limit(perSecond), burst)
			buckets[name] = l
		}
		return l
	})
}

// WithRateLimiter shares limiter across all tools behind the middleware.
func WithRateLimiter(limiter RateLimiter) Middleware {
	return withLimiter(func(string) RateLimiter { return limiter })
}

func withLimiter(pick func(tool string) RateLimiter) Middleware {
	return func(next ToolCallFunc) ToolCallFunc {
		return func(ctx context.Context, args json.RawMessage) (any, error) {
			if err := pick(toolName(ctx)).Wait(ctx); err != nil {
				if ctx.Err() != nil {
					return nil, core.Abort(ctx.Err())
				}
				return nil, fmt.Errorf("%w: %v", core.ErrRateLimited, err)
			}
			return next(ctx, args)
		}
	}
}
