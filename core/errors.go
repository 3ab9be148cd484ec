package core

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ProviderError represents an error returned by a provider with full context.
type ProviderError struct {
	Provider  string
	Status    int
	RequestID string
	Code      string
	Message   string
	Err       error
}

// Error implements the error interface.
func (e *ProviderError) Error() string {
	if e.RequestID != "" {
		return fmt.Sprintf("%s: %s (status=%d, code=%s, request_id=%s)",
			e.Provider, e.Message, e.Status, e.Code, e.RequestID)
	}
	return fmt.Sprintf("%s: %s (status=%d, code=%s)",
		e.Provider, e.Message, e.Status, e.Code)
}

// Unwrap returns the underlying error for error chaining.
func (e *ProviderError) Unwrap() error {
	return e.Err
}

// Sentinel errors for classification.
var (
	ErrTransport        = errors.New("transport error")
	ErrRateLimited      = errors.New("rate limited")
	ErrTimeout          = errors.New("timeout")
	ErrParse            = errors.New("parse error")
	ErrAborted          = errors.New("aborted")
	ErrUnknownTool      = errors.New("unknown tool")
	ErrExhaustedRetries = errors.New("retries exhausted")

	// ErrNetwork marks transient connection failures. It is a transport error
	// that the retry policy may repeat on the same credential.
	ErrNetwork = fmt.Errorf("%w: network", ErrTransport)
)

// Validation errors with actionable guidance.
var (
	ErrModelRequired  = errors.New("model required: set ChatRequest.Model, e.g. \"gemini-2.5-flash\"")
	ErrEmptyPrompt    = errors.New("empty prompt: set ChatRequest.Prompt or attach a document")
	ErrNoCredentials  = errors.New("no credentials: configure at least one API key for the provider")
	ErrUnknownModel   = errors.New("unknown model")
	ErrNoToolExecutor = errors.New("no tool executor configured")
)

// FallbackMessage is the single user-facing text shown when a stream fails
// for any reason other than an abort.
const FallbackMessage = "Sorry, something went wrong while generating a response. Please try again."

// TimeoutError reports a tool call that exceeded its time budget.
type TimeoutError struct {
	Tool   string
	Budget time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("tool %q timed out after %s", e.Tool, e.Budget)
}

// Is reports ErrTimeout for errors.Is.
func (e *TimeoutError) Is(target error) bool {
	return target == ErrTimeout
}

// UnknownToolError reports a tool name the executor does not recognize.
type UnknownToolError struct {
	Name string
}

func (e *UnknownToolError) Error() string {
	return fmt.Sprintf("unknown tool: %s", e.Name)
}

// Is reports ErrUnknownTool for errors.Is.
func (e *UnknownToolError) Is(target error) bool {
	return target == ErrUnknownTool
}

// ExhaustedRetriesError is returned once every allowed attempt has failed.
type ExhaustedRetriesError struct {
	Attempts int
	Last     error
}

func (e *ExhaustedRetriesError) Error() string {
	return fmt.Sprintf("retries exhausted after %d attempts: %v", e.Attempts, e.Last)
}

// Unwrap exposes the last attempt's error.
func (e *ExhaustedRetriesError) Unwrap() error {
	return e.Last
}

// Is reports ErrExhaustedRetries for errors.Is.
func (e *ExhaustedRetriesError) Is(target error) bool {
	return target == ErrExhaustedRetries
}

// Abort wraps a context error so that it matches ErrAborted.
func Abort(cause error) error {
	if cause == nil {
		cause = context.Canceled
	}
	if errors.Is(cause, ErrAborted) {
		return cause
	}
	return fmt.Errorf("%w: %w", ErrAborted, cause)
}

// IsAbort reports whether err is the result of caller cancellation.
// Aborts are expected and should never be shown to the user.
func IsAbort(err error) bool {
	return errors.Is(err, ErrAborted)
}
