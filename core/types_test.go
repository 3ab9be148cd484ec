package core

import (
	"encoding/json"
	"testing"
)

func TestToolCallTransitionIsMonotonic(t *testing.T) {
	tests := []struct {
		name  string
		steps []ToolStatus
		want  []bool
		final ToolStatus
	}{
		{"happy path", []ToolStatus{ToolRunning, ToolCompleted}, []bool{true, true}, ToolCompleted},
		{"skip running", []ToolStatus{ToolError}, []bool{true}, ToolError},
		{"no reverse", []ToolStatus{ToolRunning, ToolPending}, []bool{true, false}, ToolRunning},
		{"terminal is final", []ToolStatus{ToolRunning, ToolCompleted, ToolError}, []bool{true, true, false}, ToolCompleted},
		{"repeat refused", []ToolStatus{ToolRunning, ToolRunning}, []bool{true, false}, ToolRunning},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := ToolCall{ID: "x", Name: "t"}
			for i, s := range tt.steps {
				if got := c.Transition(s); got != tt.want[i] {
					t.Errorf("Transition(%s) = %v, want %v", s, got, tt.want[i])
				}
			}
			if c.Status != tt.final {
				t.Errorf("Status = %s, want %s", c.Status, tt.final)
			}
		})
	}
}

func TestToolCallTransitionTimestamps(t *testing.T) {
	c := ToolCall{Status: ToolPending}
	c.Transition(ToolRunning)
	if c.StartedAt.IsZero() {
		t.Error("StartedAt not set on running")
	}
	c.Transition(ToolCompleted)
	if c.CompletedAt.Before(c.StartedAt) {
		t.Error("CompletedAt before StartedAt")
	}
}

func TestToolCallArgumentsJSON(t *testing.T) {
	if got := (ToolCall{}).ArgumentsJSON(); got != "{}" {
		t.Errorf("empty args = %q, want {}", got)
	}
	c := ToolCall{Args: map[string]any{"query": "go iter"}}
	var back map[string]any
	if err := json.Unmarshal([]byte(c.ArgumentsJSON()), &back); err != nil {
		t.Fatalf("ArgumentsJSON() not valid JSON: %v", err)
	}
	if back["query"] != "go iter" {
		t.Errorf("round trip = %v", back)
	}
}

func TestAttachmentIsImage(t *testing.T) {
	tests := []struct {
		a    Attachment
		want bool
	}{
		{Attachment{MIMEType: "image/png", Data: []byte{1}}, true},
		{Attachment{MIMEType: "image/png"}, false},
		{Attachment{MIMEType: "application/pdf", Data: []byte{1}, Text: "doc"}, false},
	}
	for _, tt := range tests {
		if got := tt.a.IsImage(); got != tt.want {
			t.Errorf("IsImage(%s) = %v, want %v", tt.a.MIMEType, got, tt.want)
		}
	}
}

func TestModelInfoHasCapability(t *testing.T) {
	m := ModelInfo{ID: "x", Capabilities: []Feature{FeatureChatStreaming, FeatureToolCalling}}
	if !m.HasCapability(FeatureToolCalling) {
		t.Error("expected tool calling")
	}
	if m.HasCapability(FeatureReasoning) {
		t.Error("unexpected reasoning")
	}
}
