package groq

import (
	"context"
	"encoding/json"
	"io"
	"strings"

	"github.com/google/uuid"
	"github.com/tidwall/gjson"

	"github.com/petal-labs/conduit/core"
	"github.com/petal-labs/conduit/internal/normalize"
	"github.com/petal-labs/conduit/providers/internal/sse"
)

// maxCompoundBody caps a compound response.
const maxCompoundBody = 8 << 20

// toolNames maps compound tool types onto the names used by local tools so
// the UI renders both the same way.
var toolNames = map[string]string{
	"search":         "web_search",
	"web_search":     "web_search",
	"visit":          "fetch_url",
	"browser":        "fetch_url",
	"python":         "code_execution",
	"code_execution": "code_execution",
}

// compoundTurn runs one non-streamed compound call. Tools the backend
// already ran are reported as started and completed, and the answer is
// replayed through the synthetic framer with its citations rewritten.
func (p *Groq) compoundTurn(ctx context.Context, key core.Secret, req *core.TurnRequest, body []byte, emit core.Emit) (*core.TurnResult, error) {
	resp, err := p.post(ctx, key, body)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxCompoundBody))
	if err != nil {
		return nil, normalize.NetworkError(ctx, providerID, err)
	}
	if err := normalize.PayloadError(providerID, raw); err != nil {
		return nil, err
	}
	if !gjson.ValidBytes(raw) {
		return nil, normalize.DecodeError(providerID, io.ErrUnexpectedEOF)
	}

	msg := gjson.GetBytes(raw, "choices.0.message")

	if reasoning := strings.TrimSpace(msg.Get("reasoning").String()); reasoning != "" && req.Reasoning {
		if err := emit(core.ThinkingEvent(reasoning)); err != nil {
			return nil, err
		}
		if err := emit(core.ThinkingDoneEvent()); err != nil {
			return nil, err
		}
	}

	var all sources
	var toolErr error
	msg.Get("executed_tools").ForEach(func(_, tool gjson.Result) bool {
		srcs := extractSources(tool)
		for _, c := range srcs {
			all.add(c)
		}
		toolErr = p.reportExecutedTool(tool, srcs, emit)
		return toolErr == nil
	})
	if toolErr != nil {
		return nil, toolErr
	}

	answer := rewriteCitations(msg.Get("content").String(), all)
	pacing := sse.SyntheticConfig{ChunkSize: p.config.ChunkRunes, Delay: p.config.ChunkDelay}
	err = sse.Synthesize(ctx, answer, pacing, func(chunk string) error {
		return emit(core.TextEvent(chunk))
	})
	if err != nil {
		return nil, err
	}
	return &core.TurnResult{Text: answer}, nil
}

// reportExecutedTool emits the start and completion of one server-side tool.
func (p *Groq) reportExecutedTool(tool gjson.Result, srcs sources, emit core.Emit) error {
	typ := tool.Get("type").String()
	name, ok := toolNames[typ]
	if !ok {
		name = typ
	}
	if name == "" {
		name = "server_tool"
	}

	args := map[string]any{}
	if a := tool.Get("arguments"); a.Exists() {
		raw := a.Raw
		if a.Type == gjson.String {
			raw = a.Str
		}
		if err := json.Unmarshal([]byte(raw), &args); err != nil {
			p.config.Logger.Debug("unparseable compound tool arguments", "tool", name, "error", err)
			args = map[string]any{}
		}
	}

	call := core.ToolCall{
		ID:     "compound_" + uuid.NewString(),
		Name:   name,
		Args:   args,
		Status: core.ToolPending,
	}
	if err := emit(core.ToolCallStartEvent(call)); err != nil {
		return err
	}

	call.Transition(core.ToolCompleted)
	if len(srcs) > 0 {
		call.Result = core.Compact(srcs, p.CompactPolicy())
	} else {
		call.Result = core.Compact(tool.Get("output").String(), p.CompactPolicy())
	}
	return emit(core.ToolCallUpdateEvent(call))
}
