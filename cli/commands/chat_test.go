package commands

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/petal-labs/conduit/cli/config"
	"github.com/petal-labs/conduit/core"
)

func TestChatStreamsTextToStdout(t *testing.T) {
	ta := newTestApp(t, map[string]string{"FAKE_API_KEYS": "k1"}, nil, "")
	if err := ta.run("chat", "--model", "fake-1", "say", "hi"); err != nil {
		t.Fatalf("chat error = %v, stderr = %s", err, ta.stderr)
	}

	if got := ta.stdout.String(); got != "Hello world\n" {
		t.Errorf("stdout = %q", got)
	}
	if !strings.Contains(ta.stderr.String(), "thinking: hmm") {
		t.Errorf("stderr = %q, want the thinking line", ta.stderr)
	}
	turn := ta.provider.turns[0]
	if turn.Messages[0].Content != "say hi" {
		t.Errorf("prompt = %q", turn.Messages[0].Content)
	}
	if turn.SearchMode != core.SearchAuto {
		t.Errorf("search mode = %q, want auto", turn.SearchMode)
	}
}

func TestChatJSONTranscript(t *testing.T) {
	ta := newTestApp(t, map[string]string{"FAKE_API_KEYS": "k1"}, nil, "")
	if err := ta.run("--json", "chat", "--model", "fake-1", "--prompt", "hi", "--system", "be brief"); err != nil {
		t.Fatalf("chat error = %v", err)
	}

	var tr core.Transcript
	if err := json.Unmarshal(ta.stdout.Bytes(), &tr); err != nil {
		t.Fatalf("stdout is not a transcript: %v\n%s", err, ta.stdout)
	}
	if tr.Text != "Hello world" || tr.Thinking != "hmm" || !tr.Done {
		t.Errorf("transcript = %+v", tr)
	}
	if ta.provider.turns[0].System != "be brief" {
		t.Errorf("system = %q", ta.provider.turns[0].System)
	}
}

func TestChatWithSearchTools(t *testing.T) {
	var searched map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/search" || r.Header.Get("x-api-key") != "sk" {
			t.Errorf("path = %s, key = %q", r.URL.Path, r.Header.Get("x-api-key"))
		}
		json.NewDecoder(r.Body).Decode(&searched)
		fmt.Fprint(w, `{"results":[{"title":"Go","url":"https://go.dev","text":"The Go language"}]}`)
	}))
	defer server.Close()

	cfg := &config.Config{Tools: config.ToolsConfig{BaseURL: server.URL}}
	env := map[string]string{"FAKE_API_KEYS": "k1", "SEARCH_API_KEYS": "sk"}
	ta := newTestApp(t, env, cfg, "")

	if err := ta.run("--json", "chat", "--model", "fake-1", "--tools", "--search-mode", "deep", "news?"); err != nil {
		t.Fatalf("chat error = %v, stderr = %s", err, ta.stderr)
	}

	if searched["type"] != "deep" || searched["query"] != "go" {
		t.Errorf("search body = %v", searched)
	}
	if len(ta.provider.turns) != 2 {
		t.Fatalf("turns = %d, want 2", len(ta.provider.turns))
	}
	if len(ta.provider.turns[0].Tools) != 7 {
		t.Errorf("advertised tools = %d, want 7", len(ta.provider.turns[0].Tools))
	}
	msgs := ta.provider.turns[1].Messages
	last := msgs[len(msgs)-1]
	if last.Role != core.RoleTool || !strings.Contains(last.Content, "go.dev") {
		t.Errorf("tool message = %+v", last)
	}

	var tr core.Transcript
	if err := json.Unmarshal(ta.stdout.Bytes(), &tr); err != nil {
		t.Fatal(err)
	}
	if len(tr.ToolCalls) != 1 || tr.ToolCalls[0].Status != core.ToolCompleted {
		t.Errorf("tool calls = %+v", tr.ToolCalls)
	}
}

func TestChatToolsWithoutSearchKey(t *testing.T) {
	ta := newTestApp(t, map[string]string{"FAKE_API_KEYS": "k1"}, nil, "")
	if err := ta.run("chat", "--model", "fake-1", "--tools", "hi"); err != nil {
		t.Fatalf("chat error = %v", err)
	}
	if len(ta.provider.turns[0].Tools) != 0 {
		t.Errorf("tools advertised without an executor")
	}
	if !strings.Contains(ta.stderr.String(), "SEARCH_API_KEYS") {
		t.Errorf("stderr = %q, want a warning naming SEARCH_API_KEYS", ta.stderr)
	}
}

func TestChatAttachment(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notes.txt")
	if err := os.WriteFile(path, []byte("remember the milk"), 0o600); err != nil {
		t.Fatal(err)
	}
	ta := newTestApp(t, map[string]string{"FAKE_API_KEYS": "k1"}, nil, "")
	if err := ta.run("chat", "--model", "fake-1", "--attach", path); err != nil {
		t.Fatalf("chat error = %v", err)
	}
	atts := ta.provider.turns[0].Messages[0].Attachments
	if len(atts) != 1 || atts[0].Name != "notes.txt" || !strings.HasPrefix(atts[0].MIMEType, "text/plain") {
		t.Errorf("attachments = %+v", atts)
	}
}

func TestChatValidationErrors(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		args []string
		want string
	}{
		{"no model", map[string]string{"FAKE_API_KEYS": "k"}, []string{"chat", "hi"}, "model required"},
		{"no prompt", map[string]string{"FAKE_API_KEYS": "k"}, []string{"chat", "--model", "fake-1"}, "empty prompt"},
		{"bad mode", map[string]string{"FAKE_API_KEYS": "k"}, []string{"chat", "--model", "fake-1", "--search-mode", "slow", "hi"}, "invalid search mode"},
		{"unknown model", map[string]string{"FAKE_API_KEYS": "k"}, []string{"chat", "--model", "nope", "hi"}, "unknown model"},
		{"no keys", nil, []string{"chat", "--model", "fake-1", "hi"}, "FAKE_API_KEYS"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ta := newTestApp(t, tt.env, nil, "")
			err := ta.run(tt.args...)

			var ee *exitError
			if !errors.As(err, &ee) || ee.ExitCode() != ExitValidation {
				t.Fatalf("err = %v, want validation exit", err)
			}
			if !strings.Contains(ta.stderr.String(), tt.want) {
				t.Errorf("stderr = %q, want %q", ta.stderr, tt.want)
			}
		})
	}
}

func TestHandleChatError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
		wantMsg  string
	}{
		{"network", fmt.Errorf("dial: %w", core.ErrNetwork), ExitNetwork, core.FallbackMessage},
		{"provider", &core.ProviderError{Provider: "fake", Status: 500, Message: "upstream", Err: core.ErrTransport}, ExitProvider, core.FallbackMessage},
		{"exhausted", fmt.Errorf("%w: 2 keys", core.ErrExhaustedRetries), ExitProvider, core.FallbackMessage},
		{"validation", core.ErrModelRequired, ExitValidation, "model required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ta := newTestApp(t, nil, nil, "")
			err := ta.handleChatError(tt.err)

			var ee *exitError
			if !errors.As(err, &ee) || ee.ExitCode() != tt.wantCode {
				t.Fatalf("exit = %v, want %d", err, tt.wantCode)
			}
			if !strings.Contains(ta.stderr.String(), "Error: "+tt.wantMsg) {
				t.Errorf("stderr = %q", ta.stderr)
			}
		})
	}
}

func TestHandleChatErrorAbortIsSilent(t *testing.T) {
	ta := newTestApp(t, nil, nil, "")
	err := ta.handleChatError(core.Abort(errors.New("interrupted")))

	var ee *exitError
	if !errors.As(err, &ee) || ee.ExitCode() != ExitAborted {
		t.Fatalf("err = %v", err)
	}
	if ta.stderr.Len() != 0 {
		t.Errorf("abort wrote %q", ta.stderr)
	}
}

func TestHandleChatErrorJSON(t *testing.T) {
	ta := newTestApp(t, nil, nil, "")
	ta.jsonOutput = true
	_ = ta.handleChatError(fmt.Errorf("dial: %w", core.ErrNetwork))

	var out struct {
		Error struct{ Type, Message string }
	}
	// The log line precedes the JSON body.
	body := ta.stderr.String()
	if i := strings.Index(body, "{"); i >= 0 {
		body = body[i:]
	}
	if err := json.Unmarshal([]byte(body), &out); err != nil {
		t.Fatalf("stderr = %q: %v", ta.stderr, err)
	}
	if out.Error.Type != "network_error" || out.Error.Message != core.FallbackMessage {
		t.Errorf("error = %+v", out.Error)
	}
}

func TestChatProviderFailureShowsFallback(t *testing.T) {
	ta := newTestApp(t, map[string]string{"FAKE_API_KEYS": "k1"}, nil, "")
	ta.provider.fail = &core.ProviderError{Provider: "fake", Status: 400, Message: "bad", Err: core.ErrTransport}

	err := ta.run("chat", "--model", "fake-1", "hi")
	var ee *exitError
	if !errors.As(err, &ee) || ee.ExitCode() != ExitProvider {
		t.Fatalf("err = %v", err)
	}
	if !strings.Contains(ta.stderr.String(), core.FallbackMessage) || ta.stdout.Len() != 0 {
		t.Errorf("stdout = %q, stderr = %q", ta.stdout, ta.stderr)
	}
}

func TestRendererToolStatus(t *testing.T) {
	var out, status strings.Builder
	r := newRenderer(&out, &status)
	call := core.ToolCall{ID: "c1", Name: "web_search", Args: map[string]any{"query": "go"}, Status: core.ToolPending}

	r.render(core.ToolCallStartEvent(call))
	call.Status = core.ToolRunning
	r.render(core.ToolCallUpdateEvent(call))
	call.Status, call.Error = core.ToolError, "timed out"
	r.render(core.ToolCallUpdateEvent(call))
	r.render(core.TextEvent("done"))
	r.finish()

	want := "\n[pending] web_search {\"query\":\"go\"}\n[running] web_search\n[error] web_search: timed out\n"
	if status.String() != want {
		t.Errorf("status = %q, want %q", status.String(), want)
	}
	if out.String() != "done\n" {
		t.Errorf("out = %q", out.String())
	}
}

func TestChatInteractiveKeepsHistory(t *testing.T) {
	ta := newTestApp(t, map[string]string{"FAKE_API_KEYS": "k1"}, nil, "second\n\n/reset\nthird\n/exit\nignored\n")
	if err := ta.run("chat", "-i", "--model", "fake-1", "first"); err != nil {
		t.Fatalf("chat error = %v, stderr = %s", err, ta.stderr)
	}

	turns := ta.provider.turns
	if len(turns) != 3 {
		t.Fatalf("turns = %d, want 3", len(turns))
	}
	if n := len(turns[1].Messages); n != 3 {
		t.Errorf("second turn saw %d messages, want 3", n)
	}
	if n := len(turns[2].Messages); n != 1 {
		t.Errorf("turn after /reset saw %d messages, want 1", n)
	}
	if got := strings.Count(ta.stdout.String(), "Hello world\n"); got != 3 {
		t.Errorf("stdout = %q", ta.stdout)
	}
}

func TestRendererCompletedShowsSize(t *testing.T) {
	var out, status strings.Builder
	r := newRenderer(&out, &status)
	call := core.ToolCall{ID: "c1", Name: "fetch_url", Status: core.ToolPending}
	r.render(core.ToolCallStartEvent(call))
	call.Status, call.Result = core.ToolCompleted, strings.Repeat("x", 1200)
	r.render(core.ToolCallUpdateEvent(call))

	if !strings.HasSuffix(status.String(), "[completed] fetch_url (1.2 kB)\n") {
		t.Errorf("status = %q", status.String())
	}
}
