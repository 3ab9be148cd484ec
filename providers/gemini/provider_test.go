package gemini

import (
	"errors"
	"net/http"
	"testing"

	"github.com/petal-labs/conduit/core"
)

func newTestProvider(t *testing.T, opts ...Option) *Gemini {
	t.Helper()
	p, err := New([]string{"test-key"}, opts...)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return p
}

func TestNew(t *testing.T) {
	p := newTestProvider(t)

	if p.config.BaseURL != DefaultBaseURL {
		t.Errorf("BaseURL = %q, want %q", p.config.BaseURL, DefaultBaseURL)
	}
	if p.config.HTTPClient != http.DefaultClient {
		t.Error("HTTPClient should be http.DefaultClient")
	}
	if p.config.Retry == nil || p.config.Logger == nil {
		t.Error("retry policy and logger should default")
	}
}

func TestNewWithoutKeys(t *testing.T) {
	_, err := New([]string{" ", ""})
	if !errors.Is(err, core.ErrNoCredentials) {
		t.Errorf("New() error = %v, want ErrNoCredentials", err)
	}
}

func TestID(t *testing.T) {
	p := newTestProvider(t)

	if p.ID() != "gemini" {
		t.Errorf("ID() = %q, want 'gemini'", p.ID())
	}
}

func TestModelsReturnsCopy(t *testing.T) {
	p := newTestProvider(t)

	models1 := p.Models()
	models2 := p.Models()

	models1[0].DisplayName = "Modified"

	if models2[0].DisplayName == "Modified" {
		t.Error("Models() should return a copy")
	}
	if GetModelInfo(ModelGemini25Flash) == nil {
		t.Error("GetModelInfo(gemini-2.5-flash) = nil")
	}
}

func TestHandles(t *testing.T) {
	p := newTestProvider(t)

	if !p.Handles("gemini-2.5-flash-preview-05-20") {
		t.Error("should handle gemini-* models")
	}
	if p.Handles("llama-3.3-70b") {
		t.Error("should not handle llama models")
	}
}

func TestSupports(t *testing.T) {
	p := newTestProvider(t)

	tests := []struct {
		feature core.Feature
		want    bool
	}{
		{core.FeatureChatStreaming, true},
		{core.FeatureToolCalling, true},
		{core.FeatureReasoning, true},
		{core.FeatureVision, true},
		{core.FeatureServerTools, false},
		{core.Feature("unknown"), false},
	}

	for _, tt := range tests {
		t.Run(string(tt.feature), func(t *testing.T) {
			if got := p.Supports(tt.feature); got != tt.want {
				t.Errorf("Supports(%q) = %v, want %v", tt.feature, got, tt.want)
			}
		})
	}
}

func TestCompactPolicy(t *testing.T) {
	got := newTestProvider(t).CompactPolicy()
	want := core.CompactPolicy{MaxResults: 6, MaxChars: 4000, IncludeMetadata: true}
	if got != want {
		t.Errorf("CompactPolicy() = %+v, want %+v", got, want)
	}
}

func TestBuildHeaders(t *testing.T) {
	p := newTestProvider(t, WithHeader("X-First", "first"), WithHeader("X-Second", "second"))
	headers := p.buildHeaders(core.NewSecret("rotated-key"))

	if headers.Get("x-goog-api-key") != "rotated-key" {
		t.Errorf("x-goog-api-key = %q, want 'rotated-key'", headers.Get("x-goog-api-key"))
	}
	if headers.Get("Content-Type") != "application/json" {
		t.Errorf("Content-Type = %q, want 'application/json'", headers.Get("Content-Type"))
	}
	if headers.Get("X-First") != "first" || headers.Get("X-Second") != "second" {
		t.Errorf("custom headers = %v", headers)
	}
}
