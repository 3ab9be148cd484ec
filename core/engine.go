package core

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
)

// EngineConfig configures the multi-turn tool loop.
type EngineConfig struct {
	// MaxIterations is the maximum number of adapter invocations per request,
	// the first included. When it is reached while the model still asks for
	// tools, the engine logs a warning and finishes normally.
	// Default: 5.
	MaxIterations int

	// ToolTimeout is the budget of each individual tool call. A call that
	// exceeds it fails on its own; the rest of the batch is unaffected.
	// Default: 15s.
	ToolTimeout time.Duration
}

// DefaultEngineConfig returns a configuration with sensible defaults.
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		MaxIterations: 5,
		ToolTimeout:   15 * time.Second,
	}
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithMaxIterations bounds adapter invocations per request.
func WithMaxIterations(n int) EngineOption {
	return func(e *Engine) {
		if n > 0 {
			e.cfg.MaxIterations = n
		}
	}
}

// WithToolTimeout sets the per-call tool budget.
func WithToolTimeout(d time.Duration) EngineOption {
	return func(e *Engine) {
		if d > 0 {
			e.cfg.ToolTimeout = d
		}
	}
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) EngineOption {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithTelemetry sets the telemetry hook.
func WithTelemetry(h TelemetryHook) EngineOption {
	return func(e *Engine) {
		if h != nil {
			e.telemetry = h
		}
	}
}

// Engine drives provider turns and tool execution for chat requests.
// An Engine is safe for concurrent use; each Stream call owns its transcript.
type Engine struct {
	resolver  Resolver
	tools     ToolExecutor
	cfg       EngineConfig
	logger    *slog.Logger
	telemetry TelemetryHook
}

// NewEngine creates an engine. tools may be nil when no tools are available.
func NewEngine(resolver Resolver, tools ToolExecutor, opts ...EngineOption) *Engine {
	e := &Engine{
		resolver:  resolver,
		tools:     tools,
		cfg:       DefaultEngineConfig(),
		logger:    slog.Default(),
		telemetry: NoopTelemetryHook{},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Config returns the effective configuration.
func (e *Engine) Config() EngineConfig {
	return e.cfg
}

// errConsumerGone stops producers once the consumer has left the range loop.
var errConsumerGone = errors.New("conduit: consumer stopped")

// Stream runs req and yields canonical events. The sequence ends after a done
// event, or with a single error. Cancelling ctx ends it with ErrAborted.
func (e *Engine) Stream(ctx context.Context, req ChatRequest) iter.Seq2[StreamEvent, error] {
	return func(yield func(StreamEvent, error) bool) {
		stopped := false
		emit := func(ev StreamEvent) error {
			if stopped {
				return errConsumerGone
			}
			if err := ctx.Err(); err != nil {
				return Abort(err)
			}
			if !yield(ev, nil) {
				stopped = true
				return errConsumerGone
			}
			return nil
		}

		err := e.run(ctx, req, emit)
		if err == nil || stopped {
			return
		}
		if ctx.Err() != nil {
			err = Abort(ctx.Err())
		}
		yield(StreamEvent{}, err)
	}
}

func (e *Engine) run(ctx context.Context, req ChatRequest, emit Emit) error {
	if req.Model == "" {
		return ErrModelRequired
	}
	if strings.TrimSpace(req.Prompt) == "" && len(req.Attachments) == 0 {
		return ErrEmptyPrompt
	}
	provider, err := e.resolver.Resolve(req.Model)
	if err != nil {
		return err
	}

	messages := make([]Message, 0, len(req.History)+1)
	messages = append(messages, req.History...)
	messages = append(messages, Message{Role: RoleUser, Content: req.Prompt, Attachments: req.Attachments})

	mode := req.SearchMode
	if mode == "" {
		mode = SearchAuto
	}
	turn := &TurnRequest{
		Model:      req.Model,
		System:     req.System,
		Messages:   messages,
		Reasoning:  req.Reasoning,
		SearchMode: mode,
	}
	if req.EnableTools && provider.Supports(FeatureToolCalling) {
		if lister, ok := e.tools.(ToolLister); ok {
			turn.Tools = lister.Specs()
		}
	}

	log := e.logger.With("provider", provider.ID(), "model", string(req.Model))
	for iteration := 1; ; iteration++ {
		result, err := e.streamTurn(ctx, provider, turn, iteration, emit)
		if err != nil {
			return err
		}
		if len(result.ToolCalls) == 0 {
			return emit(DoneEvent())
		}

		// No adapter turn would read the results of this batch.
		if iteration >= e.cfg.MaxIterations {
			log.Warn("tool loop reached iteration limit, finishing",
				"iterations", iteration, "pending_tool_calls", len(result.ToolCalls))
			return emit(DoneEvent())
		}

		turn.Messages = append(turn.Messages, Message{
			Role:      RoleAssistant,
			Content:   result.Text,
			ToolCalls: result.ToolCalls,
		})
		if err := e.executeTools(ctx, provider, turn, result.ToolCalls, iteration, emit); err != nil {
			return err
		}
	}
}

func (e *Engine) streamTurn(ctx context.Context, p Provider, turn *TurnRequest, iteration int, emit Emit) (*TurnResult, error) {
	id := uuid.NewString()
	start := time.Now()
	e.telemetry.OnRequestStart(RequestStartEvent{
		ID: id, Provider: p.ID(), Model: turn.Model, Iteration: iteration, Start: start,
	})

	result, err := p.StreamTurn(ctx, turn, emit)
	if err == nil && result == nil {
		result = &TurnResult{}
	}

	end := RequestEndEvent{
		ID: id, Provider: p.ID(), Model: turn.Model, Iteration: iteration,
		Start: start, End: time.Now(), Err: err,
	}
	if result != nil {
		end.ToolCalls = len(result.ToolCalls)
	}
	e.telemetry.OnRequestEnd(end)

	if err != nil {
		if ctx.Err() != nil {
			return nil, Abort(ctx.Err())
		}
		return nil, err
	}
	return result, nil
}

type toolOutcome struct {
	index  int
	result any
	err    error
}

// executeTools announces, runs and settles one batch of calls. Results are
// reported and appended to the transcript in completion order.
func (e *Engine) executeTools(ctx context.Context, p Provider, turn *TurnRequest, calls []ToolCall, iteration int, emit Emit) error {
	for i := range calls {
		calls[i].Status = ToolPending
		if err := emit(ToolCallStartEvent(calls[i])); err != nil {
			return err
		}
	}
	for i := range calls {
		calls[i].Transition(ToolRunning)
		if err := emit(ToolCallUpdateEvent(calls[i])); err != nil {
			return err
		}
	}

	results := make(chan toolOutcome, len(calls))
	for i := range calls {
		tc := ToolContext{
			CallID:     calls[i].ID,
			Tool:       calls[i].Name,
			Provider:   p.ID(),
			Iteration:  iteration,
			SearchMode: turn.SearchMode,
		}
		go func(i int, call ToolCall) {
			res, err := e.invoke(ctx, call, tc)
			results <- toolOutcome{index: i, result: res, err: err}
		}(i, calls[i])
	}

	policy := p.CompactPolicy()
	for settled := 0; settled < len(calls); settled++ {
		var o toolOutcome
		select {
		case <-ctx.Done():
			return Abort(ctx.Err())
		case o = <-results:
		}

		call := &calls[o.index]
		var content string
		if o.err != nil {
			call.Error = o.err.Error()
			call.Transition(ToolError)
			content = "Error: " + call.Error
			e.logger.Warn("tool call failed", "tool", call.Name, "id", call.ID, "error", o.err)
		} else {
			content = Compact(o.result, policy)
			call.Result = content
			call.Transition(ToolCompleted)
		}
		if err := emit(ToolCallUpdateEvent(*call)); err != nil {
			return err
		}
		turn.Messages = append(turn.Messages, Message{
			Role:       RoleTool,
			Content:    content,
			ToolCallID: call.ID,
			Name:       call.Name,
		})
	}
	return nil
}

// invoke runs one call under its own deadline. A panicking tool fails only
// its own call.
func (e *Engine) invoke(ctx context.Context, call ToolCall, tc ToolContext) (any, error) {
	if e.tools == nil {
		return nil, &UnknownToolError{Name: call.Name}
	}
	callCtx, cancel := context.WithTimeout(ContextWithToolContext(ctx, tc), e.cfg.ToolTimeout)
	defer cancel()

	done := make(chan toolOutcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- toolOutcome{err: fmt.Errorf("tool %q panicked: %v", call.Name, r)}
			}
		}()
		res, err := e.tools.Execute(callCtx, call.Name, call.Args)
		done <- toolOutcome{result: res, err: err}
	}()

	select {
	case o := <-done:
		if o.err != nil && errors.Is(o.err, context.DeadlineExceeded) && ctx.Err() == nil {
			return nil, &TimeoutError{Tool: call.Name, Budget: e.cfg.ToolTimeout}
		}
		return o.result, o.err
	case <-callCtx.Done():
		if ctx.Err() != nil {
			return nil, Abort(ctx.Err())
		}
		return nil, &TimeoutError{Tool: call.Name, Budget: e.cfg.ToolTimeout}
	}
}
