package search

import (
	"log/slog"
	"net/http"

	"github.com/petal-labs/conduit/core"
)

// Config holds configuration for the search client.
type Config struct {
	// BaseURL is the API base URL. Defaults to https://api.exa.ai
	BaseURL string

	// HTTPClient is the HTTP client to use. Defaults to http.DefaultClient.
	HTTPClient *http.Client

	// Logger receives retry diagnostics. Defaults to slog.Default().
	Logger *slog.Logger

	// Retry decides how failed calls are repeated across keys.
	Retry *core.RetryPolicy

	// MaxTextChars caps page text requested per result.
	MaxTextChars int
}

// DefaultBaseURL is the default search API base URL.
const DefaultBaseURL = "https://api.exa.ai"

// Option configures the search client.
type Option func(*Config)

// WithBaseURL sets the API base URL.
func WithBaseURL(url string) Option {
	return func(c *Config) {
		c.BaseURL = url
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Config) {
		c.HTTPClient = client
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Config) {
		c.Logger = l
	}
}

// WithRetryPolicy sets the retry policy.
func WithRetryPolicy(r *core.RetryPolicy) Option {
	return func(c *Config) {
		c.Retry = r
	}
}

// WithMaxTextChars caps the page text requested per result.
func WithMaxTextChars(n int) Option {
	return func(c *Config) {
		c.MaxTextChars = n
	}
}
