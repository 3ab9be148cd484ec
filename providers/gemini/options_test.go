package gemini

import (
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/petal-labs/conduit/core"
	"github.com/petal-labs/conduit/providers"
)

func TestOptions(t *testing.T) {
	client := &http.Client{Timeout: 30 * time.Second}
	logger := slog.Default()
	retry := core.DefaultRetryPolicy()

	tests := []struct {
		name  string
		opt   Option
		check func(Config) bool
	}{
		{"base url", WithBaseURL("https://custom.api.com"), func(c Config) bool { return c.BaseURL == "https://custom.api.com" }},
		{"http client", WithHTTPClient(client), func(c Config) bool { return c.HTTPClient == client }},
		{"header", WithHeader("X-Custom", "value"), func(c Config) bool { return c.Headers.Get("X-Custom") == "value" }},
		{"logger", WithLogger(logger), func(c Config) bool { return c.Logger == logger }},
		{"retry", WithRetryPolicy(retry), func(c Config) bool { return c.Retry == retry }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var cfg Config
			tt.opt(&cfg)
			if !tt.check(cfg) {
				t.Errorf("config = %+v", cfg)
			}
		})
	}
}

func TestNewSettlesDefaultsAfterOptions(t *testing.T) {
	p, err := New([]string{"k"}, WithBaseURL("http://local/"))
	if err != nil {
		t.Fatal(err)
	}
	if p.config.BaseURL != "http://local" {
		t.Errorf("BaseURL = %q, want trailing slash trimmed", p.config.BaseURL)
	}
	if p.config.Retry == nil {
		t.Error("default retry policy not set")
	}
}

func TestOptionsFromSettings(t *testing.T) {
	client := &http.Client{}
	retry := core.DefaultRetryPolicy()
	cfg := Config{}
	for _, opt := range optionsFrom(providers.Settings{BaseURL: "http://local", HTTPClient: client, Retry: retry}) {
		opt(&cfg)
	}

	if cfg.BaseURL != "http://local" || cfg.HTTPClient != client || cfg.Retry != retry {
		t.Errorf("config = %+v", cfg)
	}
}

func TestRegistered(t *testing.T) {
	p, err := providers.Create("gemini", providers.Settings{Keys: []string{"k"}})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if p.ID() != "gemini" {
		t.Errorf("ID() = %q", p.ID())
	}
}
