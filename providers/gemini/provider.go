package gemini

import (
	"context"
	"encoding/json"
	"net/http"
	"slices"

	"github.com/petal-labs/conduit/core"
	"github.com/petal-labs/conduit/internal/normalize"
	"github.com/petal-labs/conduit/providers"
	"github.com/petal-labs/conduit/providers/internal/transport"
)

const providerID = "gemini"

// Gemini streams turns from the Generative Language API. Safe for
// concurrent use; each turn owns its parser state.
type Gemini struct {
	config Config
	keys   *core.KeyRotator
}

// New returns a provider rotating over keys.
func New(keys []string, opts ...Option) (*Gemini, error) {
	rotator, err := core.NewKeyRotator(keys...)
	if err != nil {
		return nil, err
	}

	var cfg Config
	for _, opt := range opts {
		opt(&cfg)
	}
	cfg.Settle(DefaultBaseURL)

	return &Gemini{config: cfg, keys: rotator}, nil
}

func (p *Gemini) ID() string { return providerID }

// Models returns a copy of the catalog.
func (p *Gemini) Models() []core.ModelInfo { return slices.Clone(models) }

// Handles claims any gemini-* model ID.
func (p *Gemini) Handles(model core.ModelID) bool { return isGeminiModel(model) }

// Supports reports features every Gemini chat model has.
func (p *Gemini) Supports(feature core.Feature) bool {
	return slices.Contains(features, feature)
}

// CompactPolicy bounds tool results fed back to Gemini.
func (p *Gemini) CompactPolicy() core.CompactPolicy {
	return core.CompactPolicy{MaxResults: 6, MaxChars: 4000, IncludeMetadata: true}
}

func (p *Gemini) buildHeaders(key core.Secret) http.Header {
	return p.config.Header(transport.APIKey("x-goog-api-key", key))
}

// StreamTurn performs one streamed model turn.
func (p *Gemini) StreamTurn(ctx context.Context, req *core.TurnRequest, emit core.Emit) (*core.TurnResult, error) {
	body, err := json.Marshal(buildRequest(req))
	if err != nil {
		return nil, normalize.DecodeError(providerID, err)
	}

	var result *core.TurnResult
	err = p.config.Retry.Do(ctx, p.keys, func(ctx context.Context, key core.Secret) error {
		guard := normalize.NewGuard(emit)
		res, err := p.attempt(ctx, key, req.Model, body, len(req.Tools) > 0, guard.Emit)
		if err != nil {
			return guard.Settle(err)
		}
		result = res
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

var (
	_ core.Provider     = (*Gemini)(nil)
	_ providers.Matcher = (*Gemini)(nil)
)
