package cerebras

import (
	"log/slog"
	"net/http"

	"github.com/petal-labs/conduit/core"
	"github.com/petal-labs/conduit/providers"
	"github.com/petal-labs/conduit/providers/internal/transport"
)

// DefaultBaseURL is the Cerebras inference API root.
const DefaultBaseURL = "https://api.cerebras.ai/v1"

// Config holds the Cerebras client settings.
type Config struct {
	transport.Base
}

// Option configures the Cerebras provider.
type Option func(*Config)

func WithBaseURL(url string) Option { return func(c *Config) { c.BaseURL = url } }
func WithHTTPClient(client *http.Client) Option { return func(c *Config) { c.HTTPClient = client } }
func WithHeader(key, value string) Option { return func(c *Config) { c.AddHeader(key, value) } }
func WithLogger(l *slog.Logger) Option { return func(c *Config) { c.Logger = l } }
func WithRetryPolicy(r *core.RetryPolicy) Option { return func(c *Config) { c.Retry = r } }

func optionsFrom(s providers.Settings) []Option {
	return []Option{func(c *Config) { c.Adopt(s) }}
}
