// Package toolcalls assembles streamed tool-call fragments and decides what
// happens to text the model writes before calling a tool.
package toolcalls

import (
	"encoding/json"
	"log/slog"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/petal-labs/conduit/core"
)

// Fragment represents one streaming tool-call delta fragment.
type Fragment struct {
	Index     int
	ID        string
	Name      string
	Arguments string
}

type assemblingCall struct {
	ID        string
	Name      strings.Builder
	Arguments strings.Builder
}

// Assembler accumulates fragmented tool calls keyed by index.
// It is owned by a single stream.
type Assembler struct {
	calls  map[int]*assemblingCall
	logger *slog.Logger
	newID  func() string
}

// NewAssembler creates a tool-call assembler. logger may be nil.
func NewAssembler(logger *slog.Logger) *Assembler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Assembler{
		calls:  make(map[int]*assemblingCall),
		logger: logger,
		newID:  func() string { return "call_" + uuid.NewString() },
	}
}

// AddFragment applies a streaming fragment, creating a call entry if needed.
// Name and argument pieces are appended in arrival order.
func (a *Assembler) AddFragment(f Fragment) {
	call, exists := a.calls[f.Index]
	if !exists {
		call = &assemblingCall{}
		a.calls[f.Index] = call
	}
	if f.ID != "" {
		call.ID = f.ID
	}
	call.Name.WriteString(f.Name)
	call.Arguments.WriteString(f.Arguments)
}

// Len reports how many indices have been seen.
func (a *Assembler) Len() int {
	return len(a.calls)
}

// Finalize returns the complete calls in index order with status pending.
// Calls missing a name or arguments are dropped. Arguments that are not a
// JSON object are replaced by an empty object.
func (a *Assembler) Finalize() []core.ToolCall {
	if len(a.calls) == 0 {
		return nil
	}
	indices := make([]int, 0, len(a.calls))
	for idx := range a.calls {
		indices = append(indices, idx)
	}
	sort.Ints(indices)

	out := make([]core.ToolCall, 0, len(indices))
	for _, idx := range indices {
		call := a.calls[idx]
		name := strings.TrimSpace(call.Name.String())
		raw := call.Arguments.String()
		if name == "" || raw == "" {
			a.logger.Debug("dropping incomplete tool call", "index", idx, "name", name)
			continue
		}

		args := map[string]any{}
		if err := json.Unmarshal([]byte(raw), &args); err != nil || args == nil {
			a.logger.Debug("tool call arguments are not a JSON object, using {}",
				"tool", name, "error", err)
			args = map[string]any{}
		}

		id := call.ID
		if id == "" {
			id = a.newID()
		}
		out = append(out, core.ToolCall{
			ID:     id,
			Name:   name,
			Args:   args,
			Status: core.ToolPending,
		})
	}
	return out
}
