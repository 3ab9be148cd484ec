// Package compat holds the wire types and stream driver shared by backends
// that speak the OpenAI chat-completions dialect.
package compat

import (
	"encoding/base64"
	"encoding/json"
	"strings"

	"github.com/petal-labs/conduit/core"
)

// Request is the common chat-completions body. Backends embed it and add
// their own reasoning fields alongside.
type Request struct {
	Model      string    `json:"model"`
	Messages   []Message `json:"messages"`
	Stream     bool      `json:"stream"`
	Tools      []Tool    `json:"tools,omitempty"`
	ToolChoice string    `json:"tool_choice,omitempty"`
}

// Message is one chat-completions message. Content is a string or a list of
// content parts.
type Message struct {
	Role       string     `json:"role"`
	Content    any        `json:"content"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
	Name       string     `json:"name,omitempty"`
}

// ContentPart is one element of multimodal content.
type ContentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *ImageURL `json:"image_url,omitempty"`
}

// ImageURL carries an inline data URL.
type ImageURL struct {
	URL string `json:"url"`
}

// Tool declares a function tool.
type Tool struct {
	Type     string       `json:"type"`
	Function ToolFunction `json:"function"`
}

// ToolFunction is the function part of a tool declaration.
type ToolFunction struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Parameters  json.RawMessage `json:"parameters,omitempty"`
}

// ToolCall is an assistant tool request replayed in the transcript.
type ToolCall struct {
	ID       string           `json:"id"`
	Type     string           `json:"type"`
	Function ToolCallFunction `json:"function"`
}

// ToolCallFunction names the function and carries JSON arguments.
type ToolCallFunction struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// Chunk is one streamed completion delta.
type Chunk struct {
	ID      string        `json:"id"`
	Model   string        `json:"model"`
	Choices []ChunkChoice `json:"choices"`
}

// ChunkChoice is a choice within a chunk.
type ChunkChoice struct {
	Index        int     `json:"index"`
	Delta        Delta   `json:"delta"`
	FinishReason *string `json:"finish_reason"`
}

// Delta carries incremental content.
type Delta struct {
	Role      string          `json:"role,omitempty"`
	Content   string          `json:"content,omitempty"`
	ToolCalls []ToolCallDelta `json:"tool_calls,omitempty"`
}

// ToolCallDelta is one tool-call fragment.
type ToolCallDelta struct {
	Index    int    `json:"index"`
	ID       string `json:"id,omitempty"`
	Type     string `json:"type,omitempty"`
	Function struct {
		Name      string `json:"name,omitempty"`
		Arguments string `json:"arguments,omitempty"`
	} `json:"function"`
}

// MapOptions controls message mapping.
type MapOptions struct {
	// Images sends image attachments inline. When false they are replaced by
	// a short placeholder naming the file.
	Images bool
}

// MapMessages converts a transcript into chat-completions messages, with the
// system prompt first.
func MapMessages(system string, msgs []core.Message, opts MapOptions) []Message {
	out := make([]Message, 0, len(msgs)+1)
	if strings.TrimSpace(system) != "" {
		out = append(out, Message{Role: "system", Content: system})
	}
	for _, m := range msgs {
		switch m.Role {
		case core.RoleTool:
			out = append(out, Message{Role: "tool", Content: m.Content, ToolCallID: m.ToolCallID, Name: m.Name})
		case core.RoleAssistant:
			msg := Message{Role: "assistant", Content: m.Content}
			for _, tc := range m.ToolCalls {
				msg.ToolCalls = append(msg.ToolCalls, ToolCall{
					ID:       tc.ID,
					Type:     "function",
					Function: ToolCallFunction{Name: tc.Name, Arguments: tc.ArgumentsJSON()},
				})
			}
			out = append(out, msg)
		default:
			out = append(out, Message{Role: string(m.Role), Content: userContent(m, opts)})
		}
	}
	return out
}

// userContent folds document text into the message and, when allowed,
// attaches images as data URLs.
func userContent(m core.Message, opts MapOptions) any {
	text := m.Content
	var images []ContentPart
	for _, a := range m.Attachments {
		switch {
		case a.IsImage() && opts.Images:
			images = append(images, ContentPart{
				Type:     "image_url",
				ImageURL: &ImageURL{URL: DataURL(a)},
			})
		case a.IsImage():
			text += "\n\n[image attachment omitted: " + a.Name + "]"
		case a.Text != "":
			text += "\n\n--- " + a.Name + " ---\n" + a.Text
		}
	}
	if len(images) == 0 {
		return text
	}
	parts := make([]ContentPart, 0, len(images)+1)
	if text != "" {
		parts = append(parts, ContentPart{Type: "text", Text: text})
	}
	return append(parts, images...)
}

// DataURL encodes an attachment as a base64 data URL.
func DataURL(a core.Attachment) string {
	return "data:" + a.MIMEType + ";base64," + base64.StdEncoding.EncodeToString(a.Data)
}

// MapTools converts tool specs into function tool declarations.
func MapTools(specs []core.ToolSpec) []Tool {
	if len(specs) == 0 {
		return nil
	}
	out := make([]Tool, len(specs))
	for i, s := range specs {
		params := s.Parameters
		if len(params) == 0 {
			params = json.RawMessage(`{"type":"object","properties":{}}`)
		}
		out[i] = Tool{
			Type:     "function",
			Function: ToolFunction{Name: s.Name, Description: s.Description, Parameters: params},
		}
	}
	return out
}
