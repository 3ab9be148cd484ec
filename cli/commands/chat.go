package commands

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/petal-labs/conduit/core"
)

// Exit codes
const (
	ExitSuccess    = 0
	ExitValidation = 1
	ExitProvider   = 2
	ExitNetwork    = 3
	ExitAborted    = 130
)

type chatFlags struct {
	prompt      string
	system      string
	attach      []string
	tools       bool
	searchMode  string
	reasoning   bool
	interactive bool
	window      int
}

func (a *App) newChatCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chat [prompt]",
		Short: "Stream one chat request",
		Long: `Stream one chat request through the provider that serves --model.

Visible text goes to stdout; reasoning and tool activity go to stderr.

Examples:
  conduit chat --model gemini-2.5-flash "What is new in Go 1.24?"
  conduit chat --model qwen-3-32b --reasoning --tools --search-mode deep "Latest Go release?"
  conduit chat --model llama-3.3-70b-versatile --attach notes.txt "Summarize"
  conduit chat --json --prompt "Hello"`,
		RunE: a.runChat,
	}

	cmd.Flags().StringVar(&a.chat.prompt, "prompt", "", "user message (or pass it as arguments)")
	cmd.Flags().StringVar(&a.chat.system, "system", "", "system instruction")
	cmd.Flags().StringSliceVar(&a.chat.attach, "attach", nil, "attach a file (repeatable)")
	cmd.Flags().BoolVar(&a.chat.tools, "tools", false, "enable the search tools")
	cmd.Flags().StringVar(&a.chat.searchMode, "search-mode", "", "search depth: fast, auto or deep")
	cmd.Flags().BoolVar(&a.chat.reasoning, "reasoning", false, "ask the model to reason before answering")
	cmd.Flags().BoolVarP(&a.chat.interactive, "interactive", "i", false, "keep reading prompts from stdin; /reset forgets history")
	cmd.Flags().IntVar(&a.chat.window, "history", 20, "messages of history replayed in interactive mode (0 = all)")
	return cmd
}

func (a *App) chatRequest(args []string) (core.ChatRequest, error) {
	prompt := a.chat.prompt
	if prompt == "" {
		prompt = strings.Join(args, " ")
	}

	mode := core.SearchMode(a.chat.searchMode)
	if mode == "" && a.cfg != nil {
		mode = core.SearchMode(a.cfg.Tools.SearchMode)
	}
	switch mode {
	case "", core.SearchFast, core.SearchAuto, core.SearchDeep:
	default:
		return core.ChatRequest{}, fmt.Errorf("invalid search mode %q: use fast, auto or deep", mode)
	}

	req := core.ChatRequest{
		Model:       core.ModelID(a.model),
		Prompt:      prompt,
		System:      a.chat.system,
		EnableTools: a.chat.tools || (a.cfg != nil && a.cfg.Tools.Enabled),
		SearchMode:  mode,
		Reasoning:   a.chat.reasoning,
	}
	for _, path := range a.chat.attach {
		att, err := readAttachment(path)
		if err != nil {
			return core.ChatRequest{}, err
		}
		req.Attachments = append(req.Attachments, att)
	}
	return req, nil
}

func readAttachment(path string) (core.Attachment, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return core.Attachment{}, fmt.Errorf("attach %s: %w", path, err)
	}
	mt := mime.TypeByExtension(filepath.Ext(path))
	if mt == "" {
		mt = http.DetectContentType(data)
	}
	return core.Attachment{Name: filepath.Base(path), MIMEType: mt, Data: data}, nil
}

func (a *App) runChat(cmd *cobra.Command, args []string) error {
	req, err := a.chatRequest(args)
	if err != nil {
		return a.handleChatError(err)
	}
	if req.Model == "" {
		return a.handleChatError(core.ErrModelRequired)
	}
	if req.Prompt == "" && len(req.Attachments) == 0 && !a.chat.interactive {
		return a.handleChatError(core.ErrEmptyPrompt)
	}

	engine, _, err := a.buildEngine(req.EnableTools)
	if err != nil {
		return a.handleChatError(err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	if a.chat.interactive {
		return a.runInteractive(ctx, engine, req)
	}
	if a.jsonOutput {
		transcript, err := core.Collect(engine.Stream(ctx, req))
		if err != nil {
			return a.handleChatError(err)
		}
		return a.writeJSON(a.stdout, transcript)
	}

	r := newRenderer(a.stdout, a.stderr)
	for ev, err := range engine.Stream(ctx, req) {
		if err != nil {
			r.finish()
			return a.handleChatError(err)
		}
		r.render(ev)
	}
	r.finish()
	return nil
}

// runInteractive reads one prompt per line until EOF. A prompt given on the
// command line is sent first. Failed exchanges are reported and skipped.
func (a *App) runInteractive(ctx context.Context, engine *core.Engine, first core.ChatRequest) error {
	conv := core.NewConversation(engine, first.Model,
		core.WithSystemMessage(first.System),
		core.WithHistoryWindow(a.chat.window))

	send := func(req core.ChatRequest) error {
		r := newRenderer(a.stdout, a.stderr)
		defer r.finish()
		for ev, err := range conv.Send(ctx, req) {
			if err != nil {
				return err
			}
			r.render(ev)
		}
		return nil
	}

	req := first
	scanner := bufio.NewScanner(a.stdin)
	for {
		if req.Prompt != "" || len(req.Attachments) > 0 {
			if err := send(req); err != nil {
				if core.IsAbort(err) {
					return exitWithCode(ExitAborted, err)
				}
				_ = a.handleChatError(err)
			}
		}
		req.Prompt, req.Attachments = "", nil

		fmt.Fprint(a.stderr, "> ")
		if !scanner.Scan() {
			fmt.Fprintln(a.stderr)
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		switch line {
		case "":
		case "/reset":
			conv.Clear()
			fmt.Fprintln(a.stderr, "history cleared")
		case "/exit", "/quit":
			return nil
		default:
			req.Prompt = line
		}
	}
}

// renderer prints events for a human. Only text reaches out; everything
// else is side-channel output on status, drawn faint when it is a terminal.
type renderer struct {
	out, status io.Writer
	faint       lipgloss.Style
	names       map[string]string
	lastText    string
	thinking    bool
}

func newRenderer(out, status io.Writer) *renderer {
	return &renderer{
		out:    out,
		status: status,
		faint:  lipgloss.NewRenderer(status).NewStyle().Faint(true),
		names:  map[string]string{},
	}
}

func (r *renderer) statusf(format string, args ...any) {
	// One line at a time: lipgloss pads multi-line blocks to a common width.
	lines := strings.Split(fmt.Sprintf(format, args...), "\n")
	for i, l := range lines {
		if l != "" {
			lines[i] = r.faint.Render(l)
		}
	}
	fmt.Fprint(r.status, strings.Join(lines, "\n"))
}

func (r *renderer) render(ev core.StreamEvent) {
	switch ev.Type {
	case core.EventThinking:
		if !r.thinking {
			r.thinking = true
			r.statusf("thinking: ")
		}
		r.statusf("%s", ev.Content)
	case core.EventThinkingDone:
		if r.thinking {
			r.thinking = false
			fmt.Fprintln(r.status)
		}
	case core.EventText, core.EventPlanning:
		fmt.Fprint(r.out, ev.Content)
		r.lastText = ev.Content
	case core.EventToolCallStart:
		if ev.ToolCall == nil {
			return
		}
		r.names[ev.ToolCallID] = ev.ToolCall.Name
		r.statusf("\n[%s] %s %s\n", ev.Status, ev.ToolCall.Name, ev.ToolCall.ArgumentsJSON())
	case core.EventToolCallUpdate:
		name := r.names[ev.ToolCallID]
		switch ev.Status {
		case core.ToolError:
			r.statusf("[%s] %s: %s\n", ev.Status, name, ev.Error)
		case core.ToolCompleted:
			r.statusf("[%s] %s (%s)\n", ev.Status, name, humanize.Bytes(uint64(len(ev.Result))))
		default:
			r.statusf("[%s] %s\n", ev.Status, name)
		}
	}
}

func (r *renderer) finish() {
	if r.thinking {
		fmt.Fprintln(r.status)
		r.thinking = false
	}
	if r.lastText != "" && !strings.HasSuffix(r.lastText, "\n") {
		fmt.Fprintln(r.out)
	}
}

// handleChatError reports err and maps it to an exit code. Aborts are
// silent. Failures show the fallback message; the cause goes to the log.
func (a *App) handleChatError(err error) error {
	if core.IsAbort(err) {
		return exitWithCode(ExitAborted, err)
	}

	code := ExitProvider
	kind := "error"
	switch {
	case errors.Is(err, core.ErrModelRequired), errors.Is(err, core.ErrEmptyPrompt),
		errors.Is(err, core.ErrUnknownModel), errors.Is(err, core.ErrNoCredentials):
		code, kind = ExitValidation, "validation_error"
	case errors.Is(err, core.ErrNetwork):
		code, kind = ExitNetwork, "network_error"
	case errors.Is(err, core.ErrExhaustedRetries), errors.Is(err, core.ErrRateLimited):
		kind = "rate_limited"
	}

	var provErr *core.ProviderError
	if errors.As(err, &provErr) {
		a.log().Error("provider request failed", "provider", provErr.Provider,
			"status", provErr.Status, "request_id", provErr.RequestID, "error", err)
	} else {
		a.log().Error("chat failed", "error", err)
	}

	// Setup mistakes are worth showing verbatim; stream failures are not.
	message := core.FallbackMessage
	if code == ExitValidation {
		message = err.Error()
	}
	if a.jsonOutput {
		_ = a.writeJSON(a.stderr, map[string]any{
			"error": map[string]any{"type": kind, "message": message},
		})
	} else {
		fmt.Fprintf(a.stderr, "Error: %s\n", message)
	}
	return exitWithCode(code, err)
}

func (a *App) writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// exitError wraps an error with an exit code. It has already been reported.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string {
	return e.err.Error()
}

func (e *exitError) Unwrap() error {
	return e.err
}

func (e *exitError) ExitCode() int {
	return e.code
}

func exitWithCode(code int, err error) error {
	return &exitError{code: code, err: err}
}

