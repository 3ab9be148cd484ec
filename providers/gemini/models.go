// Package gemini adapts the Google Gemini streaming API to conduit events.
package gemini

import (
	"strings"

	"github.com/petal-labs/conduit/core"
)

const (
	ModelGemini3Pro        core.ModelID = "gemini-3-pro-preview"
	ModelGemini3Flash      core.ModelID = "gemini-3-flash-preview"
	ModelGemini25Pro       core.ModelID = "gemini-2.5-pro"
	ModelGemini25Flash     core.ModelID = "gemini-2.5-flash"
	ModelGemini25FlashLite core.ModelID = "gemini-2.5-flash-lite"
	ModelGemini20Flash     core.ModelID = "gemini-2.0-flash"
)

// Every Gemini chat model streams, calls tools, reads images and can be
// prompted into tagged reasoning.
var features = []core.Feature{
	core.FeatureChatStreaming,
	core.FeatureToolCalling,
	core.FeatureReasoning,
	core.FeatureVision,
}

var models = []core.ModelInfo{
	{ID: ModelGemini3Pro, DisplayName: "Gemini 3 Pro Preview", Capabilities: features},
	{ID: ModelGemini3Flash, DisplayName: "Gemini 3 Flash Preview", Capabilities: features},
	{ID: ModelGemini25Pro, DisplayName: "Gemini 2.5 Pro", Capabilities: features},
	{ID: ModelGemini25Flash, DisplayName: "Gemini 2.5 Flash", Capabilities: features},
	{ID: ModelGemini25FlashLite, DisplayName: "Gemini 2.5 Flash Lite", Capabilities: features},
	{ID: ModelGemini20Flash, DisplayName: "Gemini 2.0 Flash", Capabilities: features},
}

// GetModelInfo looks id up in the catalog; nil for unlisted models.
func GetModelInfo(id core.ModelID) *core.ModelInfo {
	for i := range models {
		if models[i].ID == id {
			return &models[i]
		}
	}
	return nil
}

// isGeminiModel accepts unlisted gemini-* IDs such as dated previews.
func isGeminiModel(id core.ModelID) bool {
	return strings.HasPrefix(string(id), "gemini-")
}
