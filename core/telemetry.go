package core

import "time"

// TelemetryHook receives notifications about each adapter invocation the
// engine makes. Events carry operational metadata only: credentials, prompts
// and model output never appear in them.
type TelemetryHook interface {
	// OnRequestStart is called before a provider turn begins streaming.
	OnRequestStart(e RequestStartEvent)

	// OnRequestEnd is called once the turn has finished or failed.
	OnRequestEnd(e RequestEndEvent)
}

// RequestStartEvent contains metadata about a starting turn.
type RequestStartEvent struct {
	ID        string    // Unique per turn; pairs start and end events
	Provider  string    // Provider identifier (e.g., "gemini", "groq")
	Model     ModelID   // Model being called
	Iteration int       // 1-based adapter invocation within the request
	Start     time.Time // When the turn started
}

// RequestEndEvent contains metadata about a completed turn.
type RequestEndEvent struct {
	ID        string
	Provider  string
	Model     ModelID
	Iteration int
	ToolCalls int // tool calls the model requested in this turn
	Start     time.Time
	End       time.Time
	Err       error // nil on success
}

// Duration returns the elapsed time for the turn.
func (e RequestEndEvent) Duration() time.Duration {
	return e.End.Sub(e.Start)
}

// NoopTelemetryHook is the default when no telemetry is configured.
type NoopTelemetryHook struct{}

// OnRequestStart does nothing.
func (NoopTelemetryHook) OnRequestStart(RequestStartEvent) {}

// OnRequestEnd does nothing.
func (NoopTelemetryHook) OnRequestEnd(RequestEndEvent) {}

var _ TelemetryHook = NoopTelemetryHook{}
