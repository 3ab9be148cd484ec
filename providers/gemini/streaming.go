package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/petal-labs/conduit/core"
	"github.com/petal-labs/conduit/internal/normalize"
	"github.com/petal-labs/conduit/providers/internal/sse"
	"github.com/petal-labs/conduit/providers/internal/thinking"
	"github.com/petal-labs/conduit/providers/internal/toolcalls"
)

// streamURL returns the SSE endpoint for model.
func (p *Gemini) streamURL(model core.ModelID) string {
	return fmt.Sprintf("%s/v1beta/models/%s:streamGenerateContent?alt=sse", p.config.BaseURL, model)
}

// attempt performs one call with key and drives its stream.
func (p *Gemini) attempt(ctx context.Context, key core.Secret, model core.ModelID, body []byte, toolsEnabled bool, emit core.Emit) (*core.TurnResult, error) {
	resp, err := normalize.Post(ctx, p.config.HTTPClient, normalize.Request{
		Provider: providerID,
		URL:      p.streamURL(model),
		Headers:  p.buildHeaders(key),
		Body:     body,
	})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	return parseStream(ctx, resp.Body, toolsEnabled, p.config.Logger, emit)
}

// turnParser turns Gemini chunks into canonical events. Gemini delivers
// each function call whole, so calls are indexed in arrival order.
type turnParser struct {
	emit      core.Emit
	logger    *slog.Logger
	segmenter *thinking.Segmenter
	planner   *toolcalls.Planner
	assembler *toolcalls.Assembler
	text      strings.Builder
	calls     int
}

func parseStream(ctx context.Context, body io.Reader, toolsEnabled bool, logger *slog.Logger, emit core.Emit) (*core.TurnResult, error) {
	tp := &turnParser{
		emit:      emit,
		logger:    logger,
		segmenter: thinking.New(thinking.ThinkingTags),
		planner:   toolcalls.NewPlanner(toolcalls.PlanningSurface, toolsEnabled),
		assembler: toolcalls.NewAssembler(logger),
	}

	framer, err := sse.Stream(ctx, normalize.TagReads(body), tp.handle)
	if framer != nil && framer.Skipped() > 0 {
		logger.Debug("skipped malformed stream lines", "provider", providerID, "count", framer.Skipped())
	}
	if err != nil {
		return nil, normalize.StreamError(ctx, providerID, err)
	}
	return tp.finish()
}

func (tp *turnParser) handle(payload json.RawMessage) error {
	if err := normalize.PayloadError(providerID, payload); err != nil {
		return err
	}

	var event wireChunk
	if err := json.Unmarshal(payload, &event); err != nil {
		tp.logger.Debug("skipping undecodable chunk", "provider", providerID, "error", err)
		return nil
	}
	if fb := event.PromptFeedback; fb != nil && fb.BlockReason != "" {
		return &core.ProviderError{
			Provider: providerID,
			Code:     fb.BlockReason,
			Message:  "prompt blocked",
			Err:      core.ErrTransport,
		}
	}
	if len(event.Candidates) == 0 {
		return nil
	}

	candidate := event.Candidates[0]
	for _, part := range candidate.Content.Parts {
		// Native thoughts are only sent when requested; they are not.
		if part.Thought != nil && *part.Thought {
			continue
		}
		if part.Text != "" {
			if err := tp.segments(tp.segmenter.Push(part.Text)); err != nil {
				return err
			}
		}
		if part.FunctionCall != nil {
			// Held-back text belongs before the call.
			if err := tp.segments(tp.segmenter.Settle()); err != nil {
				return err
			}
			if err := tp.emitAll(tp.planner.ToolCall()); err != nil {
				return err
			}
			args := string(part.FunctionCall.Args)
			if args == "" || args == "null" {
				args = "{}"
			}
			tp.assembler.AddFragment(toolcalls.Fragment{
				Index:     tp.calls,
				Name:      part.FunctionCall.Name,
				Arguments: args,
			})
			tp.calls++
		}
	}

	switch candidate.FinishReason {
	case "", "STOP", "MAX_TOKENS":
	default:
		tp.logger.Warn("gemini stopped early", "reason", candidate.FinishReason)
	}
	return nil
}

func (tp *turnParser) segments(segs []thinking.Segment) error {
	for _, sg := range segs {
		var err error
		switch sg.Kind {
		case thinking.KindText:
			tp.text.WriteString(sg.Content)
			err = tp.emitAll(tp.planner.Text(sg.Content))
		case thinking.KindThinking:
			err = tp.emit(core.ThinkingEvent(sg.Content))
		case thinking.KindThinkingDone:
			err = tp.emit(core.ThinkingDoneEvent())
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (tp *turnParser) emitAll(events []core.StreamEvent) error {
	for _, ev := range events {
		if err := tp.emit(ev); err != nil {
			return err
		}
	}
	return nil
}

func (tp *turnParser) finish() (*core.TurnResult, error) {
	if err := tp.segments(tp.segmenter.Flush()); err != nil {
		return nil, err
	}
	calls := tp.assembler.Finalize()
	if err := tp.emitAll(tp.planner.Finish(len(calls) > 0)); err != nil {
		return nil, err
	}
	return &core.TurnResult{Text: tp.text.String(), ToolCalls: calls}, nil
}
