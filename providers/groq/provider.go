package groq

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

const providerID = "groq"

// Groq is an LLM provider implementation for the Groq API.
// Groq is safe for concurrent use.
type Groq struct {
	config Config
	keys   *core.KeyRotator
}

// New creates a new Groq provider over one or more API keys.
func New(keys []string, opts ...Option) (*Groq, error) {
	rotator, err := core.NewKeyRotator(keys...)
	if err != nil {
		return nil, err
	}

	var cfg Config
	for _, opt := range opts {
		opt(&cfg)
	}
	cfg.Settle(DefaultBaseURL)

	return &Groq{config: cfg, keys: rotator}, nil
}

// ID returns the provider identifier.
func (p *Groq) ID() string {
	return providerID
}

// Models returns the list of available models.
func (p *Groq) Models() []core.ModelInfo {
	result := make([]core.ModelInfo, len(catalog))
	for i, s := range catalog {
		result[i] = s.info
	}
	return result
}

// Supports reports whether the provider supports the given feature.
func (p *Groq) Supports(feature core.Feature) bool {
	switch feature {
	case core.FeatureChatStreaming, core.FeatureToolCalling, core.FeatureReasoning,
		core.FeatureServerTools, core.FeatureVision:
		return true
	default:
		return false
	}
}

// CompactPolicy bounds tool results fed back to Groq.
func (p *Groq) CompactPolicy() core.CompactPolicy {
	return core.CompactPolicy{MaxResults: 5, MaxChars: 3000, IncludeMetadata: true}
}

func (p *Groq) buildHeaders(key core.Secret) http.Header {
	return p.config.Header(transport.Bearer(key))
}

// groqRequest adds Groq's reasoning controls to the common body.
type groqRequest struct {
	compat.Request
	ReasoningFormat  string `json:"reasoning_format,omitempty"`
	IncludeReasoning *bool  `json:"include_reasoning,omitempty"`
}

// buildRequest maps a turn onto the Groq body. The two reasoning controls
// are mutually exclusive on the API side, so each model gets only the one it
// understands.
func buildRequest(req *core.TurnRequest, stream bool) *groqRequest {
	spec := specFor(req.Model)
	body := &groqRequest{Request: compat.Request{
		Model:    string(req.Model),
		Messages: compat.MapMessages(req.System, req.Messages, compat.MapOptions{Images: spec.info.HasCapability(core.FeatureVision)}),
		Stream:   stream,
	}}
	if !spec.compound {
		body.Tools = compat.MapTools(req.Tools)
		if len(body.Tools) > 0 {
			body.ToolChoice = "auto"
		}
	}

	switch spec.reasoning {
	case reasoningFormat:
		body.ReasoningFormat = "hidden"
		if req.Reasoning {
			body.ReasoningFormat = "raw"
		}
	case reasoningField:
		include := req.Reasoning
		body.IncludeReasoning = &include
	}
	return body
}

// streamConfig describes how the model's deltas are read.
func (p *Groq) streamConfig(model core.ModelID, toolsEnabled bool) compat.StreamConfig {
	cfg := compat.StreamConfig{
		Provider:     providerID,
		Planning:     toolcalls.PlanningSurface,
		ToolsEnabled: toolsEnabled,
		Logger:       p.config.Logger,
	}
	if specFor(model).reasoning == reasoningField {
		cfg.ReasoningField = "reasoning"
	} else {
		cfg.Markers = &thinking.ThinkTags
	}
	return cfg
}

// StreamTurn performs one model turn. Compound models answer in a single
// response that is replayed as a stream.
func (p *Groq) StreamTurn(ctx context.Context, req *core.TurnRequest, emit core.Emit) (*core.TurnResult, error) {
	compound := IsCompound(req.Model)
	body, err := json.Marshal(buildRequest(req, !compound))
	if err != nil {
		return nil, normalize.DecodeError(providerID, err)
	}

	var result *core.TurnResult
	err = p.config.Retry.Do(ctx, p.keys, func(ctx context.Context, key core.Secret) error {
		guard := normalize.NewGuard(emit)
		var res *core.TurnResult
		var err error
		if compound {
			res, err = p.compoundTurn(ctx, key, req, body, guard.Emit)
		} else {
			res, err = p.streamedTurn(ctx, key, req, body, guard.Emit)
		}
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

func (p *Groq) post(ctx context.Context, key core.Secret, body []byte) (*http.Response, error) {
	return normalize.Post(ctx, p.config.HTTPClient, normalize.Request{
		Provider: providerID,
		URL:      p.config.BaseURL + "/chat/completions",
		Headers:  p.buildHeaders(key),
		Body:     body,
	})
}

func (p *Groq) streamedTurn(ctx context.Context, key core.Secret, req *core.TurnRequest, body []byte, emit core.Emit) (*core.TurnResult, error) {
	resp, err := p.post(ctx, key, body)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	return compat.Stream(ctx, resp.Body, p.streamConfig(req.Model, len(req.Tools) > 0), emit)
}

// Compile-time check that Groq implements Provider.
var _ core.Provider = (*Groq)(nil)
