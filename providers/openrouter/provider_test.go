package openrouter

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/petal-labs/conduit/core"
	"github.com/petal-labs/conduit/providers"
)

func newTestProvider(t *testing.T, opts ...Option) *OpenRouter {
	t.Helper()
	p, err := New([]string{"test-key"}, opts...)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return p
}

func TestHandlesVendorPrefixedModels(t *testing.T) {
	p := newTestProvider(t)
	if !p.Handles("mistralai/mistral-large") {
		t.Error("should handle vendor/model IDs")
	}
	if p.Handles("gemini-2.5-flash") {
		t.Error("should not handle bare IDs")
	}
}

func TestBuildRequestReasoning(t *testing.T) {
	p := newTestProvider(t, WithReasoningEffort("high"))

	on, _ := json.Marshal(p.buildRequest(&core.TurnRequest{Model: ModelDeepSeekR1, Reasoning: true}))
	if !strings.Contains(string(on), `"reasoning":{"effort":"high"}`) {
		t.Errorf("reasoning on = %s", on)
	}
	off, _ := json.Marshal(p.buildRequest(&core.TurnRequest{Model: ModelDeepSeekR1}))
	if !strings.Contains(string(off), `"reasoning":{"exclude":true}`) {
		t.Errorf("reasoning off = %s", off)
	}
}

func TestStreamTurnNativeReasoningAndDiscardedPlanning(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Title") != "conduit" || r.Header.Get("HTTP-Referer") != "https://example.com" {
			t.Errorf("attribution headers = %v", r.Header)
		}
		io.Copy(io.Discard, r.Body)
		w.Header().Set("Content-Type", "text/event-stream")
		w.Write([]byte(": OPENROUTER PROCESSING\n\n"))
		for _, line := range []string{
			`{"choices":[{"delta":{"reasoning":"Need fresh data."}}]}`,
			`{"choices":[{"delta":{"content":"I'll search."}}]}`,
			`{"choices":[{"delta":{"tool_calls":[{"index":0,"id":"call_1","type":"function","function":{"name":"web_search","arguments":""}}]}}]}`,
			`{"choices":[{"delta":{"tool_calls":[{"index":0,"function":{"arguments":"{\"query\":\"go\"}"}}]}}]}`,
		} {
			w.Write([]byte("data: " + line + "\n\n"))
		}
		w.Write([]byte("data: [DONE]\n\n"))
	}))
	defer server.Close()

	p := newTestProvider(t, WithBaseURL(server.URL), WithAppInfo("https://example.com", "conduit"))
	var events []core.StreamEvent
	res, err := p.StreamTurn(context.Background(), &core.TurnRequest{
		Model:     ModelClaudeSonnet45,
		Reasoning: true,
		Messages:  []core.Message{{Role: core.RoleUser, Content: "news"}},
		Tools:     []core.ToolSpec{{Name: "web_search"}},
	}, func(ev core.StreamEvent) error {
		events = append(events, ev)
		return nil
	})
	if err != nil {
		t.Fatalf("StreamTurn() error = %v", err)
	}

	if len(events) != 2 || events[0].Type != core.EventThinking || events[1].Type != core.EventThinkingDone {
		t.Errorf("events = %+v, want thinking then thinking_done only", events)
	}
	if len(res.ToolCalls) != 1 || res.ToolCalls[0].ID != "call_1" || res.ToolCalls[0].Args["query"] != "go" {
		t.Errorf("tool calls = %+v", res.ToolCalls)
	}
}

func TestStreamTurnInStreamRateLimitRotates(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if attempts.Add(1) == 1 {
			// Rate limit reported inside a 200 stream before any output.
			w.Write([]byte(`data: {"error":{"code":429,"message":"Rate limit exceeded"}}` + "\n\n"))
			return
		}
		w.Write([]byte(`data: {"choices":[{"delta":{"content":"ok"}}]}` + "\n\n"))
	}))
	defer server.Close()

	p, _ := New([]string{"a", "b"}, WithBaseURL(server.URL))
	res, err := p.StreamTurn(context.Background(), &core.TurnRequest{Model: ModelGPT4oMini},
		func(core.StreamEvent) error { return nil })
	if err != nil {
		t.Fatalf("StreamTurn() error = %v", err)
	}
	if res.Text != "ok" || attempts.Load() != 2 {
		t.Errorf("text = %q, attempts = %d", res.Text, attempts.Load())
	}
}

func TestStreamTurnFailureAfterOutputIsNotRetried(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.Write([]byte(`data: {"choices":[{"delta":{"content":"partial"}}]}` + "\n\n"))
		w.Write([]byte(`data: {"error":{"code":429,"message":"Rate limit exceeded"}}` + "\n\n"))
	}))
	defer server.Close()

	p, _ := New([]string{"a", "b"}, WithBaseURL(server.URL))
	_, err := p.StreamTurn(context.Background(), &core.TurnRequest{Model: ModelGPT4oMini},
		func(core.StreamEvent) error { return nil })

	if !errors.Is(err, core.ErrTransport) || errors.Is(err, core.ErrRateLimited) {
		t.Errorf("error = %v, want non-retryable transport error", err)
	}
	if attempts.Load() != 1 {
		t.Errorf("attempts = %d, want 1", attempts.Load())
	}
}

func TestRegistered(t *testing.T) {
	p, err := providers.Create("openrouter", providers.Settings{Keys: []string{"k"}})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	want := core.CompactPolicy{MaxResults: 8, MaxChars: 6000, IncludeMetadata: true}
	if p.CompactPolicy() != want {
		t.Errorf("CompactPolicy() = %+v", p.CompactPolicy())
	}
}
