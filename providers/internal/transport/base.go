// Package transport holds the HTTP settings every backend shares and the
// small helpers that turn them into requests.
package transport

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/petal-labs/conduit/core"
	"github.com/petal-labs/conduit/providers"
)

// Base is embedded in each backend's Config.
type Base struct {
	// BaseURL is the API root, without a trailing slash.
	BaseURL string

	// HTTPClient defaults to http.DefaultClient.
	HTTPClient *http.Client

	// Headers are added to every request after the credential.
	Headers http.Header

	// Logger receives retry and parse diagnostics. Defaults to slog.Default().
	Logger *slog.Logger

	// Retry decides how failed calls are repeated across keys.
	Retry *core.RetryPolicy
}

// Adopt copies the non-zero fields of registry settings.
func (b *Base) Adopt(s providers.Settings) {
	if s.BaseURL != "" {
		b.BaseURL = s.BaseURL
	}
	if s.HTTPClient != nil {
		b.HTTPClient = s.HTTPClient
	}
	if s.Logger != nil {
		b.Logger = s.Logger
	}
	if s.Retry != nil {
		b.Retry = s.Retry
	}
}

// Settle fills every unset field with its default.
func (b *Base) Settle(defaultURL string) {
	if b.BaseURL == "" {
		b.BaseURL = defaultURL
	}
	b.BaseURL = strings.TrimRight(b.BaseURL, "/")
	if b.HTTPClient == nil {
		b.HTTPClient = http.DefaultClient
	}
	if b.Logger == nil {
		b.Logger = slog.Default()
	}
	if b.Retry == nil {
		b.Retry = core.NewRetryPolicy(core.RetryConfig{Logger: b.Logger})
	}
}

// AddHeader records an extra request header.
func (b *Base) AddHeader(key, value string) {
	if b.Headers == nil {
		b.Headers = make(http.Header)
	}
	b.Headers.Set(key, value)
}

// Credential writes an API key into request headers.
type Credential func(h http.Header)

// Bearer sends key as an Authorization bearer token.
func Bearer(key core.Secret) Credential {
	return func(h http.Header) { h.Set("Authorization", "Bearer "+key.Expose()) }
}

// APIKey sends key in the named header.
func APIKey(name string, key core.Secret) Credential {
	return func(h http.Header) { h.Set(name, key.Expose()) }
}

// Header builds the headers for one JSON request.
func (b *Base) Header(cred Credential) http.Header {
	h := make(http.Header, 2+len(b.Headers))
	h.Set("Content-Type", "application/json")
	cred(h)
	for k, vs := range b.Headers {
		for _, v := range vs {
			h.Add(k, v)
		}
	}
	return h
}
