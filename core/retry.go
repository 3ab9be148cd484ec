package core

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// RetryConfig configures retry behavior.
type RetryConfig struct {
	NetworkRetries int           // Retries on the same credential after a transient network error (default: 2)
	Backoff        time.Duration // Linear backoff unit between network retries (default: 500ms)
	Logger         *slog.Logger
}

// RetryPolicy decides how a failed outbound call is repeated.
//
// A rate-limited attempt moves on to the next credential, so a call is tried
// at most once per credential. A transient network failure is retried on the
// same credential with linear backoff. Every other error is returned as is.
type RetryPolicy struct {
	cfg RetryConfig
}

// DefaultRetryPolicy returns a policy with 2 network retries and 500ms backoff.
func DefaultRetryPolicy() *RetryPolicy {
	return NewRetryPolicy(RetryConfig{})
}

// NewRetryPolicy creates a retry policy with the given configuration.
func NewRetryPolicy(cfg RetryConfig) *RetryPolicy {
	if cfg.NetworkRetries < 0 {
		cfg.NetworkRetries = 0
	} else if cfg.NetworkRetries == 0 {
		cfg.NetworkRetries = 2
	}
	if cfg.Backoff <= 0 {
		cfg.Backoff = 500 * time.Millisecond
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &RetryPolicy{cfg: cfg}
}

// AttemptFunc performs one try of an outbound call with the given credential.
type AttemptFunc func(ctx context.Context, key Secret) error

// retryState tracks one call's progress through the credential list.
type retryState struct {
	start       int
	attempts    int
	rateLimited int
	network     int
}

// Do runs fn until it succeeds, fails permanently, or runs out of attempts.
func (p *RetryPolicy) Do(ctx context.Context, keys *KeyRotator, fn AttemptFunc) error {
	if keys == nil || keys.Len() == 0 {
		return ErrNoCredentials
	}
	st := retryState{start: keys.advance()}
	key := keys.at(st.start, 0)

	for {
		if err := ctx.Err(); err != nil {
			return Abort(err)
		}
		st.attempts++
		err := fn(ctx, key)
		if err == nil {
			return nil
		}

		switch {
		case IsAbort(err) || ctx.Err() != nil:
			if ctx.Err() != nil {
				return Abort(ctx.Err())
			}
			return err

		case errors.Is(err, ErrRateLimited):
			st.rateLimited++
			if st.rateLimited >= keys.Len() {
				return &ExhaustedRetriesError{Attempts: st.attempts, Last: err}
			}
			p.cfg.Logger.Warn("rate limited, rotating credential",
				"attempt", st.attempts, "key", key.Hint())
			key = keys.at(st.start, st.rateLimited)

		case errors.Is(err, ErrNetwork):
			st.network++
			if st.network > p.cfg.NetworkRetries {
				return &ExhaustedRetriesError{Attempts: st.attempts, Last: err}
			}
			delay := p.cfg.Backoff * time.Duration(st.network)
			p.cfg.Logger.Warn("network error, retrying",
				"attempt", st.attempts, "delay", delay, "error", err)
			if err := sleep(ctx, delay); err != nil {
				return err
			}

		default:
			return err
		}
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return Abort(ctx.Err())
	case <-t.C:
		return nil
	}
}
