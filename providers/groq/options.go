package groq

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/petal-labs/conduit/core"
	"github.com/petal-labs/conduit/providers"
	"github.com/petal-labs/conduit/providers/internal/transport"
)

// DefaultBaseURL is the Groq OpenAI-compatible API root.
const DefaultBaseURL = "https://api.groq.com/openai/v1"

// Config holds the Groq client settings.
type Config struct {
	transport.Base

	// ChunkRunes and ChunkDelay pace the replay of compound answers.
	// Zero values use the framer defaults; a negative delay disables pacing.
	ChunkRunes int
	ChunkDelay time.Duration
}

// Option configures the Groq provider.
type Option func(*Config)

func WithBaseURL(url string) Option { return func(c *Config) { c.BaseURL = url } }
func WithHTTPClient(client *http.Client) Option { return func(c *Config) { c.HTTPClient = client } }
func WithHeader(key, value string) Option { return func(c *Config) { c.AddHeader(key, value) } }
func WithLogger(l *slog.Logger) Option { return func(c *Config) { c.Logger = l } }
func WithRetryPolicy(r *core.RetryPolicy) Option { return func(c *Config) { c.Retry = r } }

// WithSyntheticPacing sets how compound answers are replayed as a stream.
func WithSyntheticPacing(runes int, delay time.Duration) Option {
	return func(c *Config) {
		c.ChunkRunes = runes
		c.ChunkDelay = delay
	}
}

func optionsFrom(s providers.Settings) []Option {
	return []Option{func(c *Config) { c.Adopt(s) }}
}
