package core

import "context"

// Provider is one backend adapter. It turns a single model turn into
// canonical events and reports the tool calls the model asked for.
type Provider interface {
	// ID returns the provider identifier (e.g., "gemini").
	ID() string

	// Models returns the catalog of models this provider serves.
	Models() []ModelInfo

	// Supports reports whether the provider implements a feature.
	Supports(feature Feature) bool

	// CompactPolicy bounds how tool results are fed back to this backend.
	CompactPolicy() CompactPolicy

	// StreamTurn performs one model turn. Events are passed to emit in stream
	// order; an error from emit must be returned unchanged. Tool calls in the
	// result are finalized and pending; they are not announced through emit.
	StreamTurn(ctx context.Context, req *TurnRequest, emit Emit) (*TurnResult, error)
}

// TurnRequest is everything an adapter needs to build one backend call.
type TurnRequest struct {
	Model      ModelID
	System     string
	Messages   []Message
	Tools      []ToolSpec
	Reasoning  bool
	SearchMode SearchMode
}

// TurnResult summarizes a finished turn.
type TurnResult struct {
	Text      string     // visible assistant text, planning included
	ToolCalls []ToolCall // finalized calls, in index order
}

// Resolver selects the provider that serves a model.
type Resolver interface {
	Resolve(model ModelID) (Provider, error)
}

// ResolverFunc adapts a function to Resolver.
type ResolverFunc func(model ModelID) (Provider, error)

// Resolve calls f.
func (f ResolverFunc) Resolve(model ModelID) (Provider, error) { return f(model) }

// SingleProvider resolves every model to p.
func SingleProvider(p Provider) Resolver {
	return ResolverFunc(func(ModelID) (Provider, error) { return p, nil })
}

// ToolExecutor runs tools by name on behalf of the engine.
type ToolExecutor interface {
	Execute(ctx context.Context, name string, args map[string]any) (any, error)
}

// ToolLister is implemented by executors that can describe their tools.
type ToolLister interface {
	Specs() []ToolSpec
}

// ToolContext carries per-call settings to tools. It replaces process-wide
// state so concurrent requests can use different search modes.
type ToolContext struct {
	CallID     string
	Tool       string
	Provider   string
	Iteration  int
	SearchMode SearchMode
}

type toolContextKey struct{}

// ContextWithToolContext attaches tc to ctx.
func ContextWithToolContext(ctx context.Context, tc ToolContext) context.Context {
	return context.WithValue(ctx, toolContextKey{}, tc)
}

// ToolContextFrom returns the ToolContext attached to ctx, if any.
func ToolContextFrom(ctx context.Context) (ToolContext, bool) {
	tc, ok := ctx.Value(toolContextKey{}).(ToolContext)
	return tc, ok
}

// SearchModeFrom returns the search mode for the current tool call,
// defaulting to SearchAuto.
func SearchModeFrom(ctx context.Context) SearchMode {
	if tc, ok := ToolContextFrom(ctx); ok && tc.SearchMode != "" {
		return tc.SearchMode
	}
	return SearchAuto
}
