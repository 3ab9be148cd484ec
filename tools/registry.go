package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
	"sync"

	"github.com/petal-labs/conduit/core"
)

// ErrDuplicateTool rejects a second tool under an existing name.
var ErrDuplicateTool = errors.New("tool already registered")

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithRegistryMiddleware wraps every tool in the registry with mws. Registry
// middleware runs outside any per-tool middleware.
func WithRegistryMiddleware(mws ...Middleware) RegistryOption {
	return func(r *Registry) {
		r.middleware = append(r.middleware, mws...)
	}
}

// Registry holds tools by name and serves as the engine's ToolExecutor and
// ToolLister. Safe for concurrent use.
type Registry struct {
	mu         sync.RWMutex
	tools      map[string]Tool
	middleware []Middleware
}

// NewRegistry returns an empty registry.
func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{
		tools: make(map[string]Tool),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register adds t under t.Name().
func (r *Registry) Register(t Tool) error {
	return r.RegisterWithMiddleware(t)
}

// RegisterWithMiddleware adds t with mws applied inside the registry-wide
// middleware.
func (r *Registry) RegisterWithMiddleware(t Tool, mws ...Middleware) error {
	if t == nil {
		return errors.New("tool cannot be nil")
	}
	name := t.Name()

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.tools[name]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateTool, name)
	}
	all := make([]Middleware, 0, len(r.middleware)+len(mws))
	all = append(all, r.middleware...)
	all = append(all, mws...)
	r.tools[name] = Wrap(t, all...)
	return nil
}

// Get returns the wrapped tool registered as name.
func (r *Registry) Get(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[name]
	return t, ok
}

// List returns the registered tools ordered by name.
func (r *Registry) List() []Tool {
	r.mu.RLock()
	list := slices.Collect(maps.Values(r.tools))
	r.mu.RUnlock()
	slices.SortFunc(list, func(a, b Tool) int { return strings.Compare(a.Name(), b.Name()) })
	return list
}

// Specs describes every registered tool, sorted by name.
func (r *Registry) Specs() []core.ToolSpec {
	list := r.List()
	specs := make([]core.ToolSpec, len(list))
	for i, t := range list {
		specs[i] = Spec(t)
	}
	return specs
}

// Execute runs the named tool. Arguments arrive as the decoded object the
// model produced and are passed to the tool as JSON.
func (r *Registry) Execute(ctx context.Context, name string, args map[string]any) (any, error) {
	tool, ok := r.Get(name)
	if !ok {
		return nil, &core.UnknownToolError{Name: name}
	}
	if args == nil {
		args = map[string]any{}
	}
	raw, err := json.Marshal(args)
	if err != nil {
		return nil, fmt.Errorf("encode %s arguments: %w", name, err)
	}
	return tool.Call(ctx, raw)
}

var (
	_ core.ToolExecutor = (*Registry)(nil)
	_ core.ToolLister   = (*Registry)(nil)
)
