package tools

import (
	"context"
	"encoding/json"

	"github.com/petal-labs/conduit/core"
)

// Tool is a capability the model may invoke by name.
type Tool interface {
	// Name returns the unique identifier for this tool.
	Name() string

	// Description is shown to the model to help it decide when to call the tool.
	Description() string

	// Parameters returns the JSON Schema object describing the arguments.
	Parameters() json.RawMessage

	// Call executes the tool with the model's arguments as a JSON object.
	Call(ctx context.Context, args json.RawMessage) (any, error)
}

// Spec describes t to a backend.
func Spec(t Tool) core.ToolSpec {
	params := t.Parameters()
	if len(params) == 0 {
		params = json.RawMessage(`{"type":"object","properties":{}}`)
	}
	return core.ToolSpec{
		Name:        t.Name(),
		Description: t.Description(),
		Parameters:  params,
	}
}

// Func adapts a plain function into a Tool.
func Func(name, description string, parameters json.RawMessage, fn ToolCallFunc) Tool {
	return &funcTool{name: name, description: description, parameters: parameters, fn: fn}
}

type funcTool struct {
	name        string
	description string
	parameters  json.RawMessage
	fn          ToolCallFunc
}

func (t *funcTool) Name() string                { return t.name }
func (t *funcTool) Description() string         { return t.description }
func (t *funcTool) Parameters() json.RawMessage { return t.parameters }

func (t *funcTool) Call(ctx context.Context, args json.RawMessage) (any, error) {
	return t.fn(ctx, args)
}
