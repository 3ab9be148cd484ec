// Package normalize maps backend failures onto the core error taxonomy.
package normalize

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/petal-labs/conduit/core"
)

// rateLimitKeywords flag an error payload as a rate or quota rejection even
// when the backend does not answer with 429.
var rateLimitKeywords = []string{
	"rate limit",
	"rate_limit",
	"ratelimit",
	"too many requests",
	"quota",
	"resource_exhausted",
}

// messagePaths and codePaths cover the error envelopes of the supported
// backends, OpenAI style and Google style alike.
var (
	messagePaths = []string{"error.message", "message", "error.metadata.raw", "0.error.message"}
	codePaths    = []string{"error.code", "error.type", "error.status", "code", "0.error.status"}
)

// ProviderError classifies a non-success HTTP response. A 429 status or an
// error payload mentioning rate limits or quota yields ErrRateLimited; any
// other failure is a fatal ErrTransport.
func ProviderError(provider string, status int, body []byte, requestID string) error {
	message := firstString(body, messagePaths)
	if message == "" {
		if s := gjson.GetBytes(body, "error"); s.Type == gjson.String {
			message = s.String()
		}
	}
	if message == "" {
		message = http.StatusText(status)
	}
	code := firstString(body, codePaths)

	sentinel := core.ErrTransport
	if status == http.StatusTooManyRequests || mentionsRateLimit(body) {
		sentinel = core.ErrRateLimited
	}
	return &core.ProviderError{
		Provider:  provider,
		Status:    status,
		RequestID: requestID,
		Code:      code,
		Message:   message,
		Err:       sentinel,
	}
}

// PayloadError classifies an error object delivered inside an otherwise
// successful stream. It returns nil when payload carries no error.
func PayloadError(provider string, payload []byte) error {
	e := gjson.GetBytes(payload, "error")
	if !e.Exists() || e.Type == gjson.Null {
		return nil
	}
	status := int(e.Get("code").Int())
	if status < 400 || status > 599 {
		status = 0
	}
	return ProviderError(provider, status, payload, "")
}

// NetworkError wraps a failure to reach the backend. Cancellation of ctx is
// reported as an abort instead.
func NetworkError(ctx context.Context, provider string, err error) error {
	if ctx.Err() != nil {
		return core.Abort(ctx.Err())
	}
	if errors.Is(err, context.Canceled) {
		return core.Abort(err)
	}
	sentinel := core.ErrTransport
	var (
		netErr net.Error
		opErr  *net.OpError
	)
	if (errors.As(err, &netErr) && netErr.Timeout()) || errors.As(err, &opErr) ||
		errors.Is(err, context.DeadlineExceeded) || errors.Is(err, io.ErrUnexpectedEOF) || isResetLike(err) {
		sentinel = core.ErrNetwork
	}
	return &core.ProviderError{
		Provider: provider,
		Message:  err.Error(),
		Err:      sentinel,
	}
}

// DecodeError wraps a response body that could not be parsed.
func DecodeError(provider string, err error) error {
	return &core.ProviderError{
		Provider: provider,
		Message:  err.Error(),
		Err:      core.ErrParse,
	}
}

func mentionsRateLimit(body []byte) bool {
	lower := strings.ToLower(string(body))
	for _, kw := range rateLimitKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

func firstString(body []byte, paths []string) string {
	if !gjson.ValidBytes(body) {
		return ""
	}
	for _, p := range paths {
		if r := gjson.GetBytes(body, p); r.Exists() && r.Type != gjson.JSON && r.String() != "" {
			return r.String()
		}
	}
	return ""
}

func isResetLike(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "connection reset") ||
		strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "broken pipe") ||
		strings.Contains(msg, "unexpected eof")
}
