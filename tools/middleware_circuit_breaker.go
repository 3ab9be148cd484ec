package tools

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"
)

// CircuitState is where a tool's breaker currently sits.
type CircuitState int

const (
	CircuitClosed   CircuitState = iota // calls pass through
	CircuitOpen                         // calls are rejected
	CircuitHalfOpen                     // probing for recovery
)

var circuitStateNames = [...]string{"closed", "open", "half-open"}

func (s CircuitState) String() string {
	if s < 0 || int(s) >= len(circuitStateNames) {
		return "unknown"
	}
	return circuitStateNames[s]
}

// CircuitBreakerConfig configures WithCircuitBreaker.
type CircuitBreakerConfig struct {
	FailureThreshold int           // consecutive failures before opening
	SuccessThreshold int           // half-open successes needed to close
	OpenDuration     time.Duration // how long to reject before probing
}

// DefaultCircuitBreakerConfig opens after five straight failures and probes
// again after thirty seconds.
func DefaultCircuitBreakerConfig() CircuitBreakerConfig {
	return CircuitBreakerConfig{
		FailureThreshold: 5,
		SuccessThreshold: 2,
		OpenDuration:     30 * time.Second,
	}
}

// ErrCircuitOpen is returned while a tool's breaker is open. The model sees
// it as that call's error and can answer without the tool.
var ErrCircuitOpen = errors.New("circuit breaker open: too many failures")

// breaker tracks one tool. Callers hold the owning mutex.
type breaker struct {
	cfg      CircuitBreakerConfig
	state    CircuitState
	failures int
	probes   int
	openedAt time.Time
}

func (b *breaker) allow(now time.Time) bool {
	if b.state == CircuitOpen && now.Sub(b.openedAt) > b.cfg.OpenDuration {
		b.state, b.probes = CircuitHalfOpen, 0
	}
	return b.state != CircuitOpen
}

func (b *breaker) record(now time.Time, failed bool) {
	switch {
	case failed:
		b.failures++
		if b.state == CircuitHalfOpen || b.failures >= b.cfg.FailureThreshold {
			b.state, b.openedAt = CircuitOpen, now
		}
	case b.state == CircuitHalfOpen:
		b.probes++
		if b.probes >= b.cfg.SuccessThreshold {
			b.state, b.failures = CircuitClosed, 0
		}
	default:
		b.failures = 0
	}
}

// WithCircuitBreaker stops calling a tool that keeps failing. Breakers are
// per tool name, so a single registry-wide middleware isolates tools from
// one another. Calls cut short by the caller's context do not count.
func WithCircuitBreaker(config CircuitBreakerConfig) Middleware {
	var (
		mu       sync.Mutex
		breakers = map[string]*breaker{}
	)
	lookup := func(name string) *breaker {
		b := breakers[name]
		if b == nil {
			b = &breaker{cfg: config}
			breakers[name] = b
		}
		return b
	}

	return func(next ToolCallFunc) ToolCallFunc {
		return func(ctx context.Context, args json.RawMessage) (any, error) {
			name := toolName(ctx)

			mu.Lock()
			ok := lookup(name).allow(time.Now())
			mu.Unlock()
			if !ok {
				return nil, ErrCircuitOpen
			}

			result, err := next(ctx, args)
			if err != nil && ctx.Err() != nil {
				return nil, err
			}

			mu.Lock()
			lookup(name).record(time.Now(), err != nil)
			mu.Unlock()
			if err != nil {
				return nil, err
			}
			return result, nil
		}
	}
}
