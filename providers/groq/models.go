// Package groq adapts the Groq chat-completions API, including its compound
// models that run search tools server-side, to conduit events.
package groq

import "github.com/petal-labs/conduit/core"

// Model constants for Groq-hosted models.
const (
	ModelLlama33Versatile core.ModelID = "llama-3.3-70b-versatile"
	ModelLlama31Instant   core.ModelID = "llama-3.1-8b-instant"
	ModelLlama4Scout      core.ModelID = "meta-llama/llama-4-scout-17b-16e-instruct"
	ModelKimiK2           core.ModelID = "moonshotai/kimi-k2-instruct"
	ModelQwen3            core.ModelID = "qwen/qwen3-32b"
	ModelGPTOSS120B       core.ModelID = "openai/gpt-oss-120b"
	ModelGPTOSS20B        core.ModelID = "openai/gpt-oss-20b"

	// Compound systems execute web search and code server-side and answer
	// in one non-streamed response.
	ModelCompound     core.ModelID = "groq/compound"
	ModelCompoundMini core.ModelID = "groq/compound-mini"
	ModelCompoundBeta core.ModelID = "compound-beta"
)

// reasoningStyle is how a model is asked to show or hide its reasoning.
type reasoningStyle int

const (
	reasoningNone   reasoningStyle = iota
	reasoningFormat                // reasoning_format raw|hidden, inline <think> tags
	reasoningField                 // include_reasoning, separate reasoning delta field
)

type modelSpec struct {
	info      core.ModelInfo
	reasoning reasoningStyle
	compound  bool
}

var (
	chat      = []core.Feature{core.FeatureChatStreaming, core.FeatureToolCalling}
	thinker   = []core.Feature{core.FeatureChatStreaming, core.FeatureToolCalling, core.FeatureReasoning}
	vision    = []core.Feature{core.FeatureChatStreaming, core.FeatureToolCalling, core.FeatureVision}
	compounds = []core.Feature{core.FeatureChatStreaming, core.FeatureServerTools, core.FeatureReasoning}
)

var catalog = []modelSpec{
	{info: core.ModelInfo{ID: ModelLlama33Versatile, DisplayName: "Llama 3.3 70B Versatile", Capabilities: chat}},
	{info: core.ModelInfo{ID: ModelLlama31Instant, DisplayName: "Llama 3.1 8B Instant", Capabilities: chat}},
	{info: core.ModelInfo{ID: ModelLlama4Scout, DisplayName: "Llama 4 Scout", Capabilities: vision}},
	{info: core.ModelInfo{ID: ModelKimiK2, DisplayName: "Kimi K2", Capabilities: chat}},
	{info: core.ModelInfo{ID: ModelQwen3, DisplayName: "Qwen3 32B", Capabilities: thinker}, reasoning: reasoningFormat},
	{info: core.ModelInfo{ID: ModelGPTOSS120B, DisplayName: "GPT-OSS 120B", Capabilities: thinker}, reasoning: reasoningField},
	{info: core.ModelInfo{ID: ModelGPTOSS20B, DisplayName: "GPT-OSS 20B", Capabilities: thinker}, reasoning: reasoningField},
	{info: core.ModelInfo{ID: ModelCompound, DisplayName: "Groq Compound", Capabilities: compounds}, compound: true},
	{info: core.ModelInfo{ID: ModelCompoundMini, DisplayName: "Groq Compound Mini", Capabilities: compounds}, compound: true},
	{info: core.ModelInfo{ID: ModelCompoundBeta, DisplayName: "Compound Beta", Capabilities: compounds}, compound: true},
}

var specs = buildSpecs()

func buildSpecs() map[core.ModelID]modelSpec {
	m := make(map[core.ModelID]modelSpec, len(catalog))
	for _, s := range catalog {
		m[s.info.ID] = s
	}
	return m
}

// specFor returns the catalog entry for id. Unknown models get no reasoning
// toggle and stream normally.
func specFor(id core.ModelID) modelSpec {
	if s, ok := specs[id]; ok {
		return s
	}
	return modelSpec{info: core.ModelInfo{ID: id}}
}

// IsCompound reports whether id names a server-side tool system.
func IsCompound(id core.ModelID) bool {
	return specFor(id).compound
}
