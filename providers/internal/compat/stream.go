package compat

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/petal-labs/conduit/core"
	"github.com/petal-labs/conduit/internal/normalize"
	"github.com/petal-labs/conduit/providers/internal/sse"
	"github.com/petal-labs/conduit/providers/internal/thinking"
	"github.com/petal-labs/conduit/providers/internal/toolcalls"
)

// StreamConfig describes how one backend's deltas are interpreted.
type StreamConfig struct {
	Provider string

	// ReasoningField names a delta field that carries reasoning natively,
	// e.g. "reasoning". Such content bypasses the segmenter.
	ReasoningField string

	// Markers enables inline reasoning-tag segmentation of content.
	Markers *thinking.Markers

	Planning     toolcalls.PlanningPolicy
	ToolsEnabled bool
	Logger       *slog.Logger
}

// driver turns chunks into canonical events for one turn.
type driver struct {
	cfg       StreamConfig
	emit      core.Emit
	segmenter *thinking.Segmenter
	planner   *toolcalls.Planner
	assembler *toolcalls.Assembler
	text      strings.Builder

	reasoningPath string
	sawReasoning  bool
	reasoningDone bool
}

// Stream drives one chat-completions SSE body to completion.
func Stream(ctx context.Context, body io.Reader, cfg StreamConfig, emit core.Emit) (*core.TurnResult, error) {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	d := &driver{
		cfg:       cfg,
		emit:      emit,
		planner:   toolcalls.NewPlanner(cfg.Planning, cfg.ToolsEnabled),
		assembler: toolcalls.NewAssembler(cfg.Logger),
	}
	if cfg.Markers != nil {
		d.segmenter = thinking.New(*cfg.Markers)
	}
	if cfg.ReasoningField != "" {
		d.reasoningPath = "choices.0.delta." + cfg.ReasoningField
	}

	framer, err := sse.Stream(ctx, normalize.TagReads(body), d.handle)
	if framer != nil && framer.Skipped() > 0 {
		cfg.Logger.Debug("skipped malformed stream lines", "provider", cfg.Provider, "count", framer.Skipped())
	}
	if err != nil {
		return nil, normalize.StreamError(ctx, cfg.Provider, err)
	}
	return d.finish()
}

func (d *driver) handle(payload json.RawMessage) error {
	if err := normalize.PayloadError(d.cfg.Provider, payload); err != nil {
		return err
	}
	var chunk Chunk
	if err := json.Unmarshal(payload, &chunk); err != nil {
		d.cfg.Logger.Debug("skipping undecodable chunk", "provider", d.cfg.Provider, "error", err)
		return nil
	}
	if len(chunk.Choices) == 0 {
		return nil
	}
	delta := chunk.Choices[0].Delta

	if d.reasoningPath != "" {
		if r := gjson.GetBytes(payload, d.reasoningPath); r.Type == gjson.String && r.Str != "" {
			d.sawReasoning = true
			if err := d.emit(core.ThinkingEvent(r.Str)); err != nil {
				return err
			}
		}
	}

	if delta.Content != "" {
		if err := d.closeReasoning(); err != nil {
			return err
		}
		if err := d.content(delta.Content); err != nil {
			return err
		}
	}

	for _, tc := range delta.ToolCalls {
		if err := d.closeReasoning(); err != nil {
			return err
		}
		if err := d.settleText(); err != nil {
			return err
		}
		if err := d.emitAll(d.planner.ToolCall()); err != nil {
			return err
		}
		d.assembler.AddFragment(toolcalls.Fragment{
			Index:     tc.Index,
			ID:        tc.ID,
			Name:      tc.Function.Name,
			Arguments: tc.Function.Arguments,
		})
	}
	return nil
}

// closeReasoning emits the single thinking_done of a native reasoning
// channel, at the first non-reasoning delta.
func (d *driver) closeReasoning() error {
	if !d.sawReasoning || d.reasoningDone {
		return nil
	}
	d.reasoningDone = true
	return d.emit(core.ThinkingDoneEvent())
}

// settleText hands visible text the segmenter still holds back to the
// planner, so it is classified before the first tool call. An open
// reasoning block stays open.
func (d *driver) settleText() error {
	if d.segmenter == nil {
		return nil
	}
	return d.segments(d.segmenter.Settle())
}

func (d *driver) content(s string) error {
	if d.segmenter == nil {
		return d.visible(s)
	}
	return d.segments(d.segmenter.Push(s))
}

func (d *driver) segments(segs []thinking.Segment) error {
	for _, sg := range segs {
		var err error
		switch sg.Kind {
		case thinking.KindText:
			err = d.visible(sg.Content)
		case thinking.KindThinking:
			err = d.emit(core.ThinkingEvent(sg.Content))
		case thinking.KindThinkingDone:
			err = d.emit(core.ThinkingDoneEvent())
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (d *driver) visible(s string) error {
	d.text.WriteString(s)
	return d.emitAll(d.planner.Text(s))
}

func (d *driver) emitAll(events []core.StreamEvent) error {
	for _, ev := range events {
		if err := d.emit(ev); err != nil {
			return err
		}
	}
	return nil
}

func (d *driver) finish() (*core.TurnResult, error) {
	if d.segmenter != nil {
		if err := d.segments(d.segmenter.Flush()); err != nil {
			return nil, err
		}
	}
	if err := d.closeReasoning(); err != nil {
		return nil, err
	}
	calls := d.assembler.Finalize()
	if err := d.emitAll(d.planner.Finish(len(calls) > 0)); err != nil {
		return nil, err
	}
	return &core.TurnResult{Text: d.text.String(), ToolCalls: calls}, nil
}
