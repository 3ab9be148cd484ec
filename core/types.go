package core

import (
	"encoding/json"
	"time"
)

// Feature represents a capability that a provider or model may support.
type Feature string

const (
	FeatureChatStreaming Feature = "chat_streaming"
	FeatureToolCalling   Feature = "tool_calling"
	FeatureReasoning     Feature = "reasoning"
	FeatureServerTools   Feature = "server_tools" // tools executed by the backend itself
	FeatureVision        Feature = "vision"
)

// ModelID is a string identifier for a model.
type ModelID string

// ModelInfo describes a model available from a provider.
type ModelInfo struct {
	ID           ModelID   `json:"id"`
	DisplayName  string    `json:"display_name"`
	Capabilities []Feature `json:"capabilities"`
}

// HasCapability reports whether the model supports the given feature.
func (m ModelInfo) HasCapability(f Feature) bool {
	for _, c := range m.Capabilities {
		if c == f {
			return true
		}
	}
	return false
}

// Role represents a message participant role.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// Attachment is a file supplied with a user message. Images travel inline as
// Data; documents arrive with their text already extracted into Text.
type Attachment struct {
	Name     string `json:"name"`
	MIMEType string `json:"mime_type"`
	Data     []byte `json:"-"`
	Text     string `json:"text,omitempty"`
}

// IsImage reports whether the attachment should be sent as inline image data.
func (a Attachment) IsImage() bool {
	return len(a.Data) > 0 && len(a.MIMEType) > 6 && a.MIMEType[:6] == "image/"
}

// Message is one entry of a conversation transcript.
type Message struct {
	Role        Role         `json:"role"`
	Content     string       `json:"content,omitempty"`
	Attachments []Attachment `json:"attachments,omitempty"`

	// ToolCalls is set on assistant messages that requested tools.
	ToolCalls []ToolCall `json:"tool_calls,omitempty"`

	// ToolCallID and Name are set on tool-response messages.
	ToolCallID string `json:"tool_call_id,omitempty"`
	Name       string `json:"name,omitempty"`
}

// SearchMode selects the depth used by search tools for one request.
type SearchMode string

const (
	SearchAuto SearchMode = "auto"
	SearchFast SearchMode = "fast"
	SearchDeep SearchMode = "deep"
)

// ChatRequest is the caller's input to Engine.Stream.
type ChatRequest struct {
	Model       ModelID
	Prompt      string
	Attachments []Attachment
	History     []Message
	System      string
	EnableTools bool
	SearchMode  SearchMode
	Reasoning   bool
}

// ToolSpec advertises one tool to a backend.
type ToolSpec struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Parameters  json.RawMessage `json:"parameters"`
}

// ToolStatus is the lifecycle state of a tool call.
type ToolStatus string

const (
	ToolPending   ToolStatus = "pending"
	ToolRunning   ToolStatus = "running"
	ToolCompleted ToolStatus = "completed"
	ToolError     ToolStatus = "error"
)

func (s ToolStatus) rank() int {
	switch s {
	case ToolPending:
		return 0
	case ToolRunning:
		return 1
	case ToolCompleted, ToolError:
		return 2
	}
	return -1
}

// Terminal reports whether no further transition is possible.
func (s ToolStatus) Terminal() bool {
	return s == ToolCompleted || s == ToolError
}

// ToolCall is a finalized tool invocation requested by the model.
type ToolCall struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Args        map[string]any `json:"args"`
	Status      ToolStatus     `json:"status"`
	Result      string         `json:"result,omitempty"`
	Error       string         `json:"error,omitempty"`
	StartedAt   time.Time      `json:"started_at,omitzero"`
	CompletedAt time.Time      `json:"completed_at,omitzero"`
}

// Transition moves the call to next. It returns false and leaves the call
// untouched when next would move backwards or leave a terminal state.
func (c *ToolCall) Transition(next ToolStatus) bool {
	if c.Status == "" {
		c.Status = ToolPending
	}
	if c.Status.Terminal() || next.rank() <= c.Status.rank() {
		return false
	}
	c.Status = next
	switch next {
	case ToolRunning:
		c.StartedAt = time.Now()
	case ToolCompleted, ToolError:
		c.CompletedAt = time.Now()
	}
	return true
}

// ArgumentsJSON renders Args as a JSON object for replaying the call to a backend.
func (c ToolCall) ArgumentsJSON() string {
	if len(c.Args) == 0 {
		return "{}"
	}
	b, err := json.Marshal(c.Args)
	if err != nil {
		return "{}"
	}
	return string(b)
}
