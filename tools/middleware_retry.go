package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/petal-labs/conduit/core"
)

// Backoff returns the pause before retry number n (1-based).
type Backoff func(n int) time.Duration

// ExponentialBackoff doubles from base up to limit.
func ExponentialBackoff(base, limit time.Duration) Backoff {
	return func(n int) time.Duration {
		d := base
		for i := 1; i < n && (limit <= 0 || d < limit); i++ {
			d *= 2
		}
		if limit > 0 && d > limit {
			d = limit
		}
		return d
	}
}

// RetryConfig configures WithRetry.
type RetryConfig struct {
	Attempts  int              // total calls, the first included
	Backoff   Backoff          // nil retries immediately
	Retryable func(error) bool // nil retries every error
}

// DefaultRetryConfig makes up to three calls on network and rate-limit
// failures. Timeouts are final; the engine's budget is already spent.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		Attempts: 3,
		Backoff:  ExponentialBackoff(100*time.Millisecond, 2*time.Second),
		Retryable: func(err error) bool {
			return errors.Is(err, core.ErrNetwork) || errors.Is(err, core.ErrRateLimited)
		},
	}
}

func (c RetryConfig) retryable(err error) bool {
	if core.IsAbort(err) {
		return false
	}
	return c.Retryable == nil || c.Retryable(err)
}

// WithRetry repeats failed calls. Aborts end it at once.
func WithRetry(config RetryConfig) Middleware {
	attempts := max(config.Attempts, 1)
	return func(next ToolCallFunc) ToolCallFunc {
		return func(ctx context.Context, args json.RawMessage) (any, error) {
			for n := 1; ; n++ {
				result, err := next(ctx, args)
				switch {
				case err == nil:
					return result, nil
				case !config.retryable(err):
					return nil, err
				case n == attempts:
					return nil, fmt.Errorf("tool call failed after %d attempts: %w", attempts, err)
				}
				if config.Backoff == nil {
					continue
				}
				if err := sleep(ctx, config.Backoff(n)); err != nil {
					return nil, err
				}
			}
		}
	}
}

// sleep waits d or until ctx ends, in which case it returns an abort.
func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return core.Abort(ctx.Err())
	case <-t.C:
		return nil
	}
}
