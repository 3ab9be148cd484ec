// Package providers contains the backend adapters and routes model IDs to them.
//
// Each backend lives in its own subpackage (providers/gemini, providers/groq,
// providers/openrouter, providers/cerebras) and implements core.Provider.
// Subpackages register a factory from init(), so importing one for side
// effects makes it available to Create.
//
// # Concurrency
//
// Providers are safe for concurrent turns. All parsing state of a turn lives
// on that turn's stack.
//
// # Routing
//
// A Router picks the adapter for a model: an exact catalog match wins, then
// the first provider whose Handles method claims the ID.
package providers

import (
	"fmt"
	"sync"

	"github.com/petal-labs/conduit/core"
)

// Matcher is implemented by providers that serve model IDs beyond their
// static catalog, for example every ID with a vendor prefix.
type Matcher interface {
	Handles(model core.ModelID) bool
}

// Router resolves model IDs to providers. It implements core.Resolver.
type Router struct {
	mu        sync.RWMutex
	providers []core.Provider
	aliases   map[core.ModelID]string
}

// NewRouter creates a router over ps. Order matters for prefix matching.
func NewRouter(ps ...core.Provider) *Router {
	return &Router{providers: ps, aliases: make(map[core.ModelID]string)}
}

// Add appends a provider.
func (r *Router) Add(p core.Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers = append(r.providers, p)
}

// Alias pins model to the provider with the given ID.
func (r *Router) Alias(model core.ModelID, providerID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.aliases[model] = providerID
}

// Providers returns the registered providers in order.
func (r *Router) Providers() []core.Provider {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]core.Provider(nil), r.providers...)
}

// Resolve returns the provider serving model.
func (r *Router) Resolve(model core.ModelID) (core.Provider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if model == "" {
		return nil, core.ErrModelRequired
	}
	if id, ok := r.aliases[model]; ok {
		for _, p := range r.providers {
			if p.ID() == id {
				return p, nil
			}
		}
	}
	for _, p := range r.providers {
		for _, m := range p.Models() {
			if m.ID == model {
				return p, nil
			}
		}
	}
	for _, p := range r.providers {
		if m, ok := p.(Matcher); ok && m.Handles(model) {
			return p, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", core.ErrUnknownModel, model)
}

// Models lists every catalog entry with its provider ID.
func (r *Router) Models() []RoutedModel {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []RoutedModel
	for _, p := range r.providers {
		for _, m := range p.Models() {
			out = append(out, RoutedModel{Provider: p.ID(), Model: m})
		}
	}
	return out
}

// RoutedModel pairs a model with the provider serving it.
type RoutedModel struct {
	Provider string
	Model    core.ModelInfo
}

var _ core.Resolver = (*Router)(nil)
