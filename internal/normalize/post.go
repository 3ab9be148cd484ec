package normalize

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
)

// maxErrorBody caps how much of a failed response is read for classification.
const maxErrorBody = 64 * 1024

// Request is one outbound JSON call.
type Request struct {
	Provider string
	URL      string
	Headers  http.Header
	Body     []byte
}

// Post sends req and returns the response when the status is 2xx. Failures
// come back already classified: network problems as ErrNetwork or
// ErrTransport, rejected statuses through ProviderError. The caller owns the
// returned body.
func Post(ctx context.Context, client *http.Client, req Request) (*http.Response, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, req.URL, bytes.NewReader(req.Body))
	if err != nil {
		return nil, NetworkError(ctx, req.Provider, err)
	}
	httpReq.Header = req.Headers.Clone()
	if httpReq.Header == nil {
		httpReq.Header = http.Header{}
	}
	if httpReq.Header.Get("Content-Type") == "" {
		httpReq.Header.Set("Content-Type", "application/json")
	}

	resp, err := client.Do(httpReq)
	if err != nil {
		return nil, NetworkError(ctx, req.Provider, err)
	}
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return resp, nil
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	return nil, ProviderError(req.Provider, resp.StatusCode, body, RequestID(resp.Header))
}

// RequestID extracts the backend's request identifier, if it sent one.
func RequestID(h http.Header) string {
	for _, k := range []string{"X-Request-Id", "X-Groq-Id", "Cf-Ray", "X-Goog-Request-Id"} {
		if v := h.Get(k); v != "" {
			return v
		}
	}
	return ""
}

// readError marks failures of a response body, as opposed to errors raised
// by event handling, which must reach the caller unchanged.
type readError struct{ err error }

func (e *readError) Error() string { return e.err.Error() }
func (e *readError) Unwrap() error { return e.err }

type taggedReader struct{ r io.Reader }

func (t taggedReader) Read(p []byte) (int, error) {
	n, err := t.r.Read(p)
	if err != nil && err != io.EOF {
		err = &readError{err: err}
	}
	return n, err
}

// TagReads wraps a response body so StreamError can recognize its failures.
func TagReads(r io.Reader) io.Reader {
	return taggedReader{r: r}
}

// StreamError classifies body read failures of a TagReads reader as network
// errors. Every other error is returned unchanged.
func StreamError(ctx context.Context, provider string, err error) error {
	var re *readError
	if errors.As(err, &re) {
		return NetworkError(ctx, provider, re.err)
	}
	return err
}
