package normalize

import (
	"errors"

	"github.com/petal-labs/conduit/core"
)

// Guard tracks whether an attempt has already produced events. Once output
// reached the consumer a retry would duplicate it, so Settle turns retryable
// failures into plain transport errors.
type Guard struct {
	emit    core.Emit
	emitted bool
}

// NewGuard wraps emit.
func NewGuard(emit core.Emit) *Guard {
	return &Guard{emit: emit}
}

// Emit forwards ev and records that output was produced.
func (g *Guard) Emit(ev core.StreamEvent) error {
	g.emitted = true
	return g.emit(ev)
}

// Emitted reports whether any event was forwarded.
func (g *Guard) Emitted() bool {
	return g.emitted
}

// Settle returns err unchanged unless output was already produced and err
// would otherwise be retried.
func (g *Guard) Settle(err error) error {
	if err == nil || !g.emitted {
		return err
	}
	if errors.Is(err, core.ErrRateLimited) || errors.Is(err, core.ErrNetwork) {
		return &InterruptedError{Err: err}
	}
	return err
}

// InterruptedError reports a stream that failed after partial output. It
// matches core.ErrTransport but not the retryable sentinels.
type InterruptedError struct {
	Err error
}

func (e *InterruptedError) Error() string {
	return "stream interrupted: " + e.Err.Error()
}

// Is reports whether target is core.ErrTransport.
func (e *InterruptedError) Is(target error) bool {
	return target == core.ErrTransport
}

// Cause returns the underlying failure.
func (e *InterruptedError) Cause() error {
	return e.Err
}
