package toolcalls

import (
	"strings"

	"github.com/petal-labs/conduit/core"
)

// PlanningPolicy decides what happens to text written before the first tool
// call of a turn.
type PlanningPolicy int

const (
	// PlanningSurface re-emits the buffered text as a planning event.
	PlanningSurface PlanningPolicy = iota
	// PlanningDiscard drops it.
	PlanningDiscard
)

func (p PlanningPolicy) String() string {
	if p == PlanningDiscard {
		return "discard"
	}
	return "surface"
}

// Planner buffers visible text while tools are enabled, because until the
// turn ends it is unknown whether the text is an answer or a preamble to a
// tool call. With tools disabled text passes straight through.
type Planner struct {
	policy   PlanningPolicy
	enabled  bool
	toolSeen bool
	buf      strings.Builder
	held     string // preamble taken at the first tool call
}

// NewPlanner returns a planner. enabled should be true when the request
// advertised tools.
func NewPlanner(policy PlanningPolicy, enabled bool) *Planner {
	return &Planner{policy: policy, enabled: enabled}
}

// Text routes one visible text delta.
func (p *Planner) Text(s string) []core.StreamEvent {
	if s == "" {
		return nil
	}
	if !p.enabled || p.toolSeen {
		return []core.StreamEvent{core.TextEvent(s)}
	}
	p.buf.WriteString(s)
	return nil
}

// ToolCall marks the first tool-call fragment. Buffered text is surfaced or
// dropped according to the policy, but kept until Finish in case no call
// survives assembly.
func (p *Planner) ToolCall() []core.StreamEvent {
	if p.toolSeen {
		return nil
	}
	p.toolSeen = true
	p.held = p.buf.String()
	p.buf.Reset()
	if p.policy == PlanningSurface && strings.TrimSpace(p.held) != "" {
		return []core.StreamEvent{core.PlanningEvent(p.held)}
	}
	return nil
}

// Finish ends the turn. materialized reports whether any tool call was
// assembled; when none was, the buffered text is the answer and goes out as
// ordinary text.
func (p *Planner) Finish(materialized bool) []core.StreamEvent {
	s := p.buf.String()
	if p.toolSeen {
		s = p.held
		if materialized {
			s = ""
		}
	}
	p.buf.Reset()
	p.held = ""
	if s == "" {
		return nil
	}
	return []core.StreamEvent{core.TextEvent(s)}
}
