package openrouter

import (
	"log/slog"
	"net/http"

	"github.com/petal-labs/conduit/core"
	"github.com/petal-labs/conduit/providers"
	"github.com/petal-labs/conduit/providers/internal/transport"
)

// DefaultBaseURL is the OpenRouter API root.
const DefaultBaseURL = "https://openrouter.ai/api/v1"

// Config holds the OpenRouter client settings.
type Config struct {
	transport.Base

	// Effort is the reasoning effort requested when reasoning is on.
	// Defaults to "medium".
	Effort string
}

// Option configures the OpenRouter provider.
type Option func(*Config)

func WithBaseURL(url string) Option { return func(c *Config) { c.BaseURL = url } }
func WithHTTPClient(client *http.Client) Option { return func(c *Config) { c.HTTPClient = client } }
func WithHeader(key, value string) Option { return func(c *Config) { c.AddHeader(key, value) } }
func WithLogger(l *slog.Logger) Option { return func(c *Config) { c.Logger = l } }
func WithRetryPolicy(r *core.RetryPolicy) Option { return func(c *Config) { c.Retry = r } }

// WithAppInfo sets the HTTP-Referer and X-Title headers OpenRouter uses to
// attribute traffic in its rankings.
func WithAppInfo(referer, name string) Option {
	return func(c *Config) {
		if referer != "" {
			c.AddHeader("HTTP-Referer", referer)
		}
		if name != "" {
			c.AddHeader("X-Title", name)
		}
	}
}

// WithReasoningEffort sets the effort level ("low", "medium" or "high").
func WithReasoningEffort(effort string) Option {
	return func(c *Config) { c.Effort = effort }
}

func optionsFrom(s providers.Settings) []Option {
	return []Option{func(c *Config) { c.Adopt(s) }}
}
