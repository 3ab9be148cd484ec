package gemini

import (
	"log/slog"
	"net/http"

	"github.com/petal-labs/conduit/core"
	"github.com/petal-labs/conduit/providers"
	"github.com/petal-labs/conduit/providers/internal/transport"
)

// DefaultBaseURL is the Generative Language API root.
const DefaultBaseURL = "https://generativelanguage.googleapis.com"

// Config holds the Gemini client settings.
type Config struct {
	transport.Base
}

// Option configures the Gemini provider.
type Option func(*Config)

func WithBaseURL(url string) Option { return func(c *Config) { c.BaseURL = url } }
func WithHTTPClient(client *http.Client) Option { return func(c *Config) { c.HTTPClient = client } }
func WithHeader(key, value string) Option { return func(c *Config) { c.AddHeader(key, value) } }
func WithLogger(l *slog.Logger) Option { return func(c *Config) { c.Logger = l } }
func WithRetryPolicy(r *core.RetryPolicy) Option { return func(c *Config) { c.Retry = r } }

func optionsFrom(s providers.Settings) []Option {
	return []Option{func(c *Config) { c.Adopt(s) }}
}
