package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/petal-labs/conduit/core"
)

// mockTool is a test implementation of Tool.
type mockTool struct {
	name   string
	callFn func(ctx context.Context, args json.RawMessage) (any, error)
}

func (t *mockTool) Name() string                { return t.name }
func (t *mockTool) Description() string         { return "" }
func (t *mockTool) Parameters() json.RawMessage { return nil }
func (t *mockTool) Call(ctx context.Context, args json.RawMessage) (any, error) {
	if t.callFn != nil {
		return t.callFn(ctx, args)
	}
	return "result", nil
}

func counting(n *int) Middleware {
	return func(next ToolCallFunc) ToolCallFunc {
		return func(ctx context.Context, args json.RawMessage) (any, error) {
			*n++
			return next(ctx, args)
		}
	}
}

func TestChainOrder(t *testing.T) {
	var order []string
	mark := func(name string) Middleware {
		return func(next ToolCallFunc) ToolCallFunc {
			return func(ctx context.Context, args json.RawMessage) (any, error) {
				order = append(order, name+"-before")
				res, err := next(ctx, args)
				order = append(order, name+"-after")
				return res, err
			}
		}
	}

	registry := NewRegistry(WithRegistryMiddleware(mark("global")))
	tool := &mockTool{name: "test_tool", callFn: func(context.Context, json.RawMessage) (any, error) {
		order = append(order, "tool")
		return nil, nil
	}}
	if err := registry.RegisterWithMiddleware(tool, mark("per-tool")); err != nil {
		t.Fatal(err)
	}
	registry.Execute(context.Background(), "test_tool", nil)

	want := "global-before,per-tool-before,tool,per-tool-after,global-after"
	if got := strings.Join(order, ","); got != want {
		t.Errorf("order = %s\nwant  %s", got, want)
	}
}

func TestWrapNoMiddleware(t *testing.T) {
	tool := &mockTool{name: "t"}
	if Wrap(tool) != Tool(tool) {
		t.Error("Wrap without middleware should return the tool itself")
	}
}

func TestWrappedToolSetsToolContext(t *testing.T) {
	var seen core.ToolContext
	tool := &mockTool{name: "named", callFn: func(ctx context.Context, _ json.RawMessage) (any, error) {
		seen, _ = core.ToolContextFrom(ctx)
		return nil, nil
	}}
	wrapped := Wrap(tool, func(next ToolCallFunc) ToolCallFunc { return next })

	wrapped.Call(context.Background(), nil)
	if seen.Tool != "named" {
		t.Errorf("Tool = %q, want named", seen.Tool)
	}

	// An engine-supplied context is kept, search mode included.
	ctx := core.ContextWithToolContext(context.Background(), core.ToolContext{Tool: "named", CallID: "c1", SearchMode: core.SearchDeep})
	wrapped.Call(ctx, nil)
	if seen.CallID != "c1" || seen.SearchMode != core.SearchDeep {
		t.Errorf("ToolContext = %+v", seen)
	}
}

func TestWithLogging(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	ok := Wrap(&mockTool{name: "logged_tool"}, WithLogging(logger))
	ok.Call(context.Background(), nil)

	failing := Wrap(&mockTool{name: "failing_tool", callFn: func(context.Context, json.RawMessage) (any, error) {
		return nil, errors.New("boom")
	}}, WithLogging(logger))
	failing.Call(context.Background(), nil)

	out := buf.String()
	for _, want := range []string{"tool=logged_tool", "tool call done", "tool=failing_tool", "level=WARN", "error=boom"} {
		if !strings.Contains(out, want) {
			t.Errorf("log output missing %q:\n%s", want, out)
		}
	}
}

func TestWithDetailedLogging(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	wrapped := Wrap(&mockTool{name: "detailed"}, WithDetailedLogging(logger))
	wrapped.Call(context.Background(), json.RawMessage(`{"q":"x"}`))

	out := buf.String()
	if !strings.Contains(out, `args="{\"q\":\"x\"}"`) || !strings.Contains(out, `result="\"result\""`) {
		t.Errorf("log output = %s", out)
	}
}

func TestWithTimeout(t *testing.T) {
	tool := &mockTool{
		name: "slow_tool",
		callFn: func(ctx context.Context, args json.RawMessage) (any, error) {
			select {
			case <-time.After(100 * time.Millisecond):
				return "done", nil
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		},
	}

	result, err := Wrap(tool, WithTimeout(time.Second)).Call(context.Background(), nil)
	if err != nil || result != "done" {
		t.Fatalf("sufficient timeout: %v, %v", result, err)
	}

	_, err = Wrap(tool, WithTimeout(20*time.Millisecond)).Call(context.Background(), nil)
	var te *core.TimeoutError
	if !errors.As(err, &te) || te.Tool != "slow_tool" || te.Budget != 20*time.Millisecond {
		t.Fatalf("error = %v, want TimeoutError for slow_tool", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := Wrap(tool, WithTimeout(time.Second)).Call(ctx, nil); !core.IsAbort(err) {
		t.Errorf("cancelled call error = %v, want abort", err)
	}
}

func TestWithRateLimit(t *testing.T) {
	wrapped := Wrap(&mockTool{name: "limited"}, WithRateLimit(10))

	// The burst is twice the rate.
	for i := range 20 {
		if _, err := wrapped.Call(context.Background(), nil); err != nil {
			t.Fatalf("call %d failed: %v", i, err)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := wrapped.Call(ctx, nil); !core.IsAbort(err) {
		t.Fatalf("cancelled wait error = %v, want abort", err)
	}
}

func TestWithRateLimitSeparateBuckets(t *testing.T) {
	r := NewRegistry(WithRegistryMiddleware(WithRateLimit(1)))
	r.Register(&mockTool{name: "a"})
	r.Register(&mockTool{name: "b"})

	// Burst of two per tool; spending a's bucket leaves b's intact.
	for _, name := range []string{"a", "a", "b", "b"} {
		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		_, err := r.Execute(ctx, name, nil)
		cancel()
		if err != nil {
			t.Fatalf("%s: %v", name, err)
		}
	}
}

type refusingLimiter struct{}

func (refusingLimiter) Wait(context.Context) error { return errors.New("burst exceeded") }

func TestWithRateLimiterRefusal(t *testing.T) {
	wrapped := Wrap(&mockTool{name: "x"}, WithRateLimiter(refusingLimiter{}))
	if _, err := wrapped.Call(context.Background(), nil); !errors.Is(err, core.ErrRateLimited) {
		t.Errorf("error = %v, want ErrRateLimited", err)
	}
}

func TestWithCache(t *testing.T) {
	calls := 0
	tool := &mockTool{name: "cacheable", callFn: func(context.Context, json.RawMessage) (any, error) {
		calls++
		return "computed", nil
	}}
	wrapped := Wrap(tool, WithCache(NewMemoryCache(0), time.Minute))

	args := json.RawMessage(`{"q":"go"}`)
	for range 3 {
		if res, _ := wrapped.Call(context.Background(), args); res != "computed" {
			t.Fatalf("result = %v", res)
		}
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}

	wrapped.Call(context.Background(), json.RawMessage(`{"q":"rust"}`))
	if calls != 2 {
		t.Errorf("different args should miss: calls = %d", calls)
	}

	deep := core.ContextWithToolContext(context.Background(), core.ToolContext{SearchMode: core.SearchDeep})
	wrapped.Call(deep, args)
	if calls != 3 {
		t.Errorf("different search mode should miss: calls = %d", calls)
	}
}

func TestDefaultCacheKey(t *testing.T) {
	ctx := core.ContextWithToolContext(context.Background(), core.ToolContext{Tool: "web_search", SearchMode: core.SearchFast})
	key := DefaultCacheKey(ctx, json.RawMessage(`{"query":"go"}`))
	if !strings.HasPrefix(key, "web_search/fast/") {
		t.Errorf("key = %q", key)
	}
	if key == DefaultCacheKey(ctx, json.RawMessage(`{"query":"rust"}`)) {
		t.Error("different args share a key")
	}
}

func TestWithCacheDoesNotCacheErrors(t *testing.T) {
	calls := 0
	tool := &mockTool{name: "flaky", callFn: func(context.Context, json.RawMessage) (any, error) {
		calls++
		return nil, errors.New("fail")
	}}
	wrapped := Wrap(tool, WithCache(NewMemoryCache(0), time.Minute))
	wrapped.Call(context.Background(), nil)
	wrapped.Call(context.Background(), nil)
	if calls != 2 {
		t.Errorf("calls = %d, want 2", calls)
	}
}

func TestMemoryCacheExpiration(t *testing.T) {
	now := time.Now()
	c := NewMemoryCache(0)
	c.now = func() time.Time { return now }
	c.Set("k", "v", time.Second)

	if v, ok := c.Get("k"); !ok || v != "v" {
		t.Fatalf("Get() = %v, %v", v, ok)
	}
	now = now.Add(2 * time.Second)
	if _, ok := c.Get("k"); ok {
		t.Error("expired entry returned")
	}
	if c.Len() != 0 {
		t.Error("expired entry not dropped")
	}
}

func TestMemoryCacheEvictsSoonestExpiry(t *testing.T) {
	c := NewMemoryCache(2)
	c.Set("short", 1, time.Second)
	c.Set("long", 2, time.Hour)
	c.Set("new", 3, time.Minute)

	if c.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", c.Len())
	}
	if _, ok := c.Get("short"); ok {
		t.Error("soonest-expiring entry should have been evicted")
	}
	for _, k := range []string{"long", "new"} {
		if _, ok := c.Get(k); !ok {
			t.Errorf("%s evicted", k)
		}
	}

	// Overwriting an existing key never evicts.
	c.Set("long", 4, time.Hour)
	if v, _ := c.Get("long"); v != 4 || c.Len() != 2 {
		t.Errorf("overwrite: v = %v, len = %d", v, c.Len())
	}
}

func TestWithRetry(t *testing.T) {
	netErr := &core.ProviderError{Provider: "search", Err: core.ErrNetwork}
	tests := []struct {
		name      string
		failures  int
		err       error
		wantCalls int
		wantErr   bool
	}{
		{"recovers", 2, netErr, 3, false},
		{"gives up", 5, netErr, 3, true},
		{"not retryable", 5, errors.New("bad request"), 1, true},
		{"timeout not retried", 5, &core.TimeoutError{Tool: "x"}, 1, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			tool := &mockTool{name: "retried", callFn: func(context.Context, json.RawMessage) (any, error) {
				calls++
				if calls <= tt.failures {
					return nil, tt.err
				}
				return "ok", nil
			}}
			cfg := DefaultRetryConfig()
			cfg.Backoff = ExponentialBackoff(time.Millisecond, 2*time.Millisecond)
			_, err := Wrap(tool, WithRetry(cfg)).Call(context.Background(), nil)
			if (err != nil) != tt.wantErr {
				t.Errorf("error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, tt.err) {
				t.Errorf("error %v should wrap %v", err, tt.err)
			}
			if calls != tt.wantCalls {
				t.Errorf("calls = %d, want %d", calls, tt.wantCalls)
			}
		})
	}
}

func TestExponentialBackoff(t *testing.T) {
	b := ExponentialBackoff(100*time.Millisecond, time.Second)
	want := []time.Duration{100 * time.Millisecond, 200 * time.Millisecond, 400 * time.Millisecond, 800 * time.Millisecond, time.Second, time.Second}
	for i, w := range want {
		if got := b(i + 1); got != w {
			t.Errorf("retry %d: %v, want %v", i+1, got, w)
		}
	}
}

func TestWithRetryAbortsDuringBackoff(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	tool := &mockTool{name: "slow", callFn: func(context.Context, json.RawMessage) (any, error) {
		cancel()
		return nil, core.ErrNetwork
	}}
	cfg := RetryConfig{Attempts: 3, Backoff: ExponentialBackoff(time.Hour, time.Hour)}
	if _, err := Wrap(tool, WithRetry(cfg)).Call(ctx, nil); !core.IsAbort(err) {
		t.Errorf("err = %v, want an abort", err)
	}
}

func TestWithCircuitBreaker(t *testing.T) {
	failing := true
	calls := 0
	tool := &mockTool{name: "unstable", callFn: func(context.Context, json.RawMessage) (any, error) {
		calls++
		if failing {
			return nil, errors.New("service unavailable")
		}
		return "ok", nil
	}}
	other := &mockTool{name: "stable"}

	mw := WithCircuitBreaker(CircuitBreakerConfig{FailureThreshold: 2, SuccessThreshold: 1, OpenDuration: 20 * time.Millisecond})
	r := NewRegistry(WithRegistryMiddleware(mw))
	r.Register(tool)
	r.Register(other)

	r.Execute(context.Background(), "unstable", nil)
	r.Execute(context.Background(), "unstable", nil)
	if _, err := r.Execute(context.Background(), "unstable", nil); !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("error = %v, want ErrCircuitOpen", err)
	}
	if calls != 2 {
		t.Errorf("calls = %d, open circuit must not call the tool", calls)
	}

	// Breakers are per tool.
	if _, err := r.Execute(context.Background(), "stable", nil); err != nil {
		t.Errorf("stable tool blocked: %v", err)
	}

	time.Sleep(30 * time.Millisecond)
	failing = false
	if res, err := r.Execute(context.Background(), "unstable", nil); err != nil || res != "ok" {
		t.Errorf("half-open probe = %v, %v", res, err)
	}
	if _, err := r.Execute(context.Background(), "unstable", nil); err != nil {
		t.Errorf("closed circuit error = %v", err)
	}
}

func TestCircuitStateString(t *testing.T) {
	tests := map[CircuitState]string{
		CircuitClosed:   "closed",
		CircuitOpen:     "open",
		CircuitHalfOpen: "half-open",
		CircuitState(9): "unknown",
	}
	for state, want := range tests {
		if state.String() != want {
			t.Errorf("%d.String() = %q, want %q", state, state.String(), want)
		}
	}
}

type recordingCollector struct {
	mu     sync.Mutex
	tools  []string
	failed int
}

func (c *recordingCollector) RecordToolCall(_ context.Context, tool string, _ time.Duration, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tools = append(c.tools, tool)
	if err != nil {
		c.failed++
	}
}

func TestWithMetrics(t *testing.T) {
	c := &recordingCollector{}
	r := NewRegistry(WithRegistryMiddleware(WithMetrics(c)))
	r.Register(&mockTool{name: "ok"})
	r.Register(&mockTool{name: "bad", callFn: func(context.Context, json.RawMessage) (any, error) {
		return nil, errors.New("x")
	}})

	r.Execute(context.Background(), "ok", nil)
	r.Execute(context.Background(), "bad", nil)

	if strings.Join(c.tools, ",") != "ok,bad" || c.failed != 1 {
		t.Errorf("recorded %v, failed %d", c.tools, c.failed)
	}
}

func TestForAndExceptTools(t *testing.T) {
	var forCount, exceptCount int
	r := NewRegistry(WithRegistryMiddleware(
		ForTools([]string{"a"}, counting(&forCount)),
		ExceptTools([]string{"a"}, counting(&exceptCount)),
	))
	r.Register(&mockTool{name: "a"})
	r.Register(&mockTool{name: "b"})

	r.Execute(context.Background(), "a", nil)
	r.Execute(context.Background(), "b", nil)
	r.Execute(context.Background(), "b", nil)

	if forCount != 1 || exceptCount != 2 {
		t.Errorf("forCount = %d, exceptCount = %d", forCount, exceptCount)
	}
}

func TestBreakerHalfOpenFailureReopens(t *testing.T) {
	now := time.Now()
	b := &breaker{cfg: CircuitBreakerConfig{FailureThreshold: 1, SuccessThreshold: 2, OpenDuration: time.Second}}

	b.record(now, true)
	if b.allow(now) {
		t.Fatal("breaker should be open after the threshold")
	}

	later := now.Add(2 * time.Second)
	if !b.allow(later) || b.state != CircuitHalfOpen {
		t.Fatalf("state = %v, want half-open probe", b.state)
	}
	b.record(later, true)
	if b.state != CircuitOpen || b.allow(later) {
		t.Errorf("failed probe should reopen, state = %v", b.state)
	}

	again := later.Add(2 * time.Second)
	b.allow(again)
	b.record(again, false)
	b.record(again, false)
	if b.state != CircuitClosed {
		t.Errorf("state = %v after two good probes, want closed", b.state)
	}
}
