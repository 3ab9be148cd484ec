// Package openrouter adapts the OpenRouter chat-completions API to conduit
// events. OpenRouter reports reasoning in its own delta field, so no inline
// tag parsing is needed.
package openrouter

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/petal-labs/conduit/core"
	"github.com/petal-labs/conduit/internal/normalize"
	"github.com/petal-labs/conduit/providers/internal/compat"
	"github.com/petal-labs/conduit/providers/internal/toolcalls"
	"github.com/petal-labs/conduit/providers/internal/transport"
)

const providerID = "openrouter"

// Model constants for a few commonly routed models. Any vendor/model ID is
// accepted.
const (
	ModelClaudeSonnet45 core.ModelID = "anthropic/claude-sonnet-4.5"
	ModelGPT4oMini      core.ModelID = "openai/gpt-4o-mini"
	ModelGemini25Flash  core.ModelID = "google/gemini-2.5-flash"
	ModelDeepSeekR1     core.ModelID = "deepseek/deepseek-r1"
	ModelGrok4Fast      core.ModelID = "x-ai/grok-4-fast"
)

var models = []core.ModelInfo{
	{ID: ModelClaudeSonnet45, DisplayName: "Claude Sonnet 4.5", Capabilities: []core.Feature{core.FeatureChatStreaming, core.FeatureToolCalling, core.FeatureReasoning, core.FeatureVision}},
	{ID: ModelGPT4oMini, DisplayName: "GPT-4o mini", Capabilities: []core.Feature{core.FeatureChatStreaming, core.FeatureToolCalling, core.FeatureVision}},
	{ID: ModelGemini25Flash, DisplayName: "Gemini 2.5 Flash (OpenRouter)", Capabilities: []core.Feature{core.FeatureChatStreaming, core.FeatureToolCalling, core.FeatureReasoning, core.FeatureVision}},
	{ID: ModelDeepSeekR1, DisplayName: "DeepSeek R1", Capabilities: []core.Feature{core.FeatureChatStreaming, core.FeatureReasoning}},
	{ID: ModelGrok4Fast, DisplayName: "Grok 4 Fast", Capabilities: []core.Feature{core.FeatureChatStreaming, core.FeatureToolCalling, core.FeatureReasoning}},
}

// OpenRouter is an LLM provider implementation for the OpenRouter API.
// OpenRouter is safe for concurrent use.
type OpenRouter struct {
	config Config
	keys   *core.KeyRotator
}

// New creates a new OpenRouter provider over one or more API keys.
func New(keys []string, opts ...Option) (*OpenRouter, error) {
	rotator, err := core.NewKeyRotator(keys...)
	if err != nil {
		return nil, err
	}

	cfg := Config{Effort: "medium"}
	for _, opt := range opts {
		opt(&cfg)
	}
	cfg.Settle(DefaultBaseURL)

	return &OpenRouter{config: cfg, keys: rotator}, nil
}

// ID returns the provider identifier.
func (p *OpenRouter) ID() string {
	return providerID
}

// Models returns the list of featured models.
func (p *OpenRouter) Models() []core.ModelInfo {
	result := make([]core.ModelInfo, len(models))
	copy(result, models)
	return result
}

// Handles claims every vendor-prefixed model ID, making OpenRouter the
// fallback for models no other provider lists.
func (p *OpenRouter) Handles(model core.ModelID) bool {
	return strings.Contains(string(model), "/")
}

// Supports reports whether the provider supports the given feature.
func (p *OpenRouter) Supports(feature core.Feature) bool {
	switch feature {
	case core.FeatureChatStreaming, core.FeatureToolCalling, core.FeatureReasoning, core.FeatureVision:
		return true
	default:
		return false
	}
}

// CompactPolicy bounds tool results fed back through OpenRouter.
func (p *OpenRouter) CompactPolicy() core.CompactPolicy {
	return core.CompactPolicy{MaxResults: 8, MaxChars: 6000, IncludeMetadata: true}
}

func (p *OpenRouter) buildHeaders(key core.Secret) http.Header {
	return p.config.Header(transport.Bearer(key))
}

// reasoningOptions is OpenRouter's unified reasoning control.
type reasoningOptions struct {
	Effort  string `json:"effort,omitempty"`
	Exclude bool   `json:"exclude,omitempty"`
}

type openRouterRequest struct {
	compat.Request
	Reasoning *reasoningOptions `json:"reasoning,omitempty"`
}

func (p *OpenRouter) buildRequest(req *core.TurnRequest) *openRouterRequest {
	body := &openRouterRequest{Request: compat.Request{
		Model:    string(req.Model),
		Messages: compat.MapMessages(req.System, req.Messages, compat.MapOptions{Images: true}),
		Stream:   true,
		Tools:    compat.MapTools(req.Tools),
	}}
	if len(body.Tools) > 0 {
		body.ToolChoice = "auto"
	}
	if req.Reasoning {
		body.Reasoning = &reasoningOptions{Effort: p.config.Effort}
	} else {
		body.Reasoning = &reasoningOptions{Exclude: true}
	}
	return body
}

// StreamTurn performs one streamed model turn.
func (p *OpenRouter) StreamTurn(ctx context.Context, req *core.TurnRequest, emit core.Emit) (*core.TurnResult, error) {
	body, err := json.Marshal(p.buildRequest(req))
	if err != nil {
		return nil, normalize.DecodeError(providerID, err)
	}

	cfg := compat.StreamConfig{
		Provider:       providerID,
		ReasoningField: "reasoning",
		Planning:       toolcalls.PlanningDiscard,
		ToolsEnabled:   len(req.Tools) > 0,
		Logger:         p.config.Logger,
	}

	var result *core.TurnResult
	err = p.config.Retry.Do(ctx, p.keys, func(ctx context.Context, key core.Secret) error {
		guard := normalize.NewGuard(emit)
		resp, err := normalize.Post(ctx, p.config.HTTPClient, normalize.Request{
			Provider: providerID,
			URL:      p.config.BaseURL + "/chat/completions",
			Headers:  p.buildHeaders(key),
			Body:     body,
		})
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		res, err := compat.Stream(ctx, resp.Body, cfg, guard.Emit)
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

// Compile-time check that OpenRouter implements Provider.
var _ core.Provider = (*OpenRouter)(nil)
