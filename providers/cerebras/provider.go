// Package cerebras adapts the Cerebras inference API to conduit events.
package cerebras

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/petal-labs/conduit/core"
	"github.com/petal-labs/conduit/internal/normalize"
	"github.com/petal-labs/conduit/providers/internal/compat"
	"github.com/petal-labs/conduit/providers/internal/thinking"
	"github.com/petal-labs/conduit/providers/internal/toolcalls"
	"github.com/petal-labs/conduit/providers/internal/transport"
)

const providerID = "cerebras"

// Model constants for Cerebras-hosted models.
const (
	ModelLlama31_8B  core.ModelID = "llama3.1-8b"
	ModelLlama33_70B core.ModelID = "llama-3.3-70b"
	ModelQwen3_32B   core.ModelID = "qwen-3-32b"
	ModelQwen3_235B  core.ModelID = "qwen-3-235b-a22b-instruct-2507"
	ModelGPTOSS120B  core.ModelID = "gpt-oss-120b"
	ModelZaiGLM46    core.ModelID = "zai-glm-4.6"
)

var (
	chat    = []core.Feature{core.FeatureChatStreaming, core.FeatureToolCalling}
	thinker = []core.Feature{core.FeatureChatStreaming, core.FeatureToolCalling, core.FeatureReasoning}
)

var models = []core.ModelInfo{
	{ID: ModelLlama31_8B, DisplayName: "Llama 3.1 8B", Capabilities: chat},
	{ID: ModelLlama33_70B, DisplayName: "Llama 3.3 70B", Capabilities: chat},
	{ID: ModelQwen3_32B, DisplayName: "Qwen 3 32B", Capabilities: thinker},
	{ID: ModelQwen3_235B, DisplayName: "Qwen 3 235B Instruct", Capabilities: chat},
	{ID: ModelGPTOSS120B, DisplayName: "GPT-OSS 120B", Capabilities: thinker},
	{ID: ModelZaiGLM46, DisplayName: "Z.ai GLM 4.6", Capabilities: thinker},
}

// nativeReasoning lists models that stream reasoning in a separate delta
// field rather than inline tags.
var nativeReasoning = map[core.ModelID]bool{
	ModelGPTOSS120B: true,
}

func supportsReasoning(id core.ModelID) bool {
	for _, m := range models {
		if m.ID == id {
			return m.HasCapability(core.FeatureReasoning)
		}
	}
	return false
}

// Cerebras is an LLM provider implementation for the Cerebras API.
// Cerebras is safe for concurrent use.
type Cerebras struct {
	config Config
	keys   *core.KeyRotator
}

// New creates a new Cerebras provider over one or more API keys.
func New(keys []string, opts ...Option) (*Cerebras, error) {
	rotator, err := core.NewKeyRotator(keys...)
	if err != nil {
		return nil, err
	}

	var cfg Config
	for _, opt := range opts {
		opt(&cfg)
	}
	cfg.Settle(DefaultBaseURL)

	return &Cerebras{config: cfg, keys: rotator}, nil
}

// ID returns the provider identifier.
func (p *Cerebras) ID() string {
	return providerID
}

// Models returns the list of available models.
func (p *Cerebras) Models() []core.ModelInfo {
	result := make([]core.ModelInfo, len(models))
	copy(result, models)
	return result
}

// Supports reports whether the provider supports the given feature.
// Cerebras models take no image input.
func (p *Cerebras) Supports(feature core.Feature) bool {
	switch feature {
	case core.FeatureChatStreaming, core.FeatureToolCalling, core.FeatureReasoning:
		return true
	default:
		return false
	}
}

// CompactPolicy keeps tool results short; Cerebras contexts are small.
func (p *Cerebras) CompactPolicy() core.CompactPolicy {
	return core.CompactPolicy{MaxResults: 4, MaxChars: 2500}
}

func (p *Cerebras) buildHeaders(key core.Secret) http.Header {
	return p.config.Header(transport.Bearer(key))
}

type cerebrasRequest struct {
	compat.Request
	DisableReasoning *bool `json:"disable_reasoning,omitempty"`
}

func buildRequest(req *core.TurnRequest) *cerebrasRequest {
	body := &cerebrasRequest{Request: compat.Request{
		Model:    string(req.Model),
		Messages: compat.MapMessages(req.System, req.Messages, compat.MapOptions{}),
		Stream:   true,
		Tools:    compat.MapTools(req.Tools),
	}}
	if len(body.Tools) > 0 {
		body.ToolChoice = "auto"
	}
	if supportsReasoning(req.Model) {
		disable := !req.Reasoning
		body.DisableReasoning = &disable
	}
	return body
}

func (p *Cerebras) streamConfig(model core.ModelID, toolsEnabled bool) compat.StreamConfig {
	cfg := compat.StreamConfig{
		Provider:     providerID,
		Planning:     toolcalls.PlanningDiscard,
		ToolsEnabled: toolsEnabled,
		Logger:       p.config.Logger,
	}
	if nativeReasoning[model] {
		cfg.ReasoningField = "reasoning"
	} else {
		cfg.Markers = &thinking.ThinkTags
	}
	return cfg
}

// StreamTurn performs one streamed model turn.
func (p *Cerebras) StreamTurn(ctx context.Context, req *core.TurnRequest, emit core.Emit) (*core.TurnResult, error) {
	body, err := json.Marshal(buildRequest(req))
	if err != nil {
		return nil, normalize.DecodeError(providerID, err)
	}
	cfg := p.streamConfig(req.Model, len(req.Tools) > 0)

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

// Compile-time check that Cerebras implements Provider.
var _ core.Provider = (*Cerebras)(nil)
