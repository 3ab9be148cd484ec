package core

import (
	"iter"
	"strings"
)

// EventType discriminates StreamEvent.
type EventType string

const (
	EventText           EventType = "text"
	EventThinking       EventType = "thinking"
	EventThinkingDone   EventType = "thinking_done"
	EventPlanning       EventType = "planning"
	EventToolCallStart  EventType = "tool_call_start"
	EventToolCallUpdate EventType = "tool_call_update"
	EventDone           EventType = "done"
)

// StreamEvent is one element of the canonical output sequence.
// Which fields are set depends on Type:
//
//	text, thinking, planning  Content
//	tool_call_start           ToolCall
//	tool_call_update          ToolCallID, Status, Result or Error
type StreamEvent struct {
	Type       EventType  `json:"type"`
	Content    string     `json:"content,omitempty"`
	ToolCall   *ToolCall  `json:"tool_call,omitempty"`
	ToolCallID string     `json:"id,omitempty"`
	Status     ToolStatus `json:"status,omitempty"`
	Result     string     `json:"result,omitempty"`
	Error      string     `json:"error,omitempty"`
}

// Emit delivers one event downstream. A non-nil error means the stream must stop
// and the error must be returned unchanged.
type Emit func(StreamEvent) error

func TextEvent(s string) StreamEvent     { return StreamEvent{Type: EventText, Content: s} }
func ThinkingEvent(s string) StreamEvent { return StreamEvent{Type: EventThinking, Content: s} }
func ThinkingDoneEvent() StreamEvent     { return StreamEvent{Type: EventThinkingDone} }
func PlanningEvent(s string) StreamEvent { return StreamEvent{Type: EventPlanning, Content: s} }
func DoneEvent() StreamEvent             { return StreamEvent{Type: EventDone} }

// ToolCallStartEvent snapshots call so later mutation does not leak into the event.
func ToolCallStartEvent(call ToolCall) StreamEvent {
	c := call
	return StreamEvent{Type: EventToolCallStart, ToolCall: &c, ToolCallID: c.ID, Status: c.Status}
}

// ToolCallUpdateEvent reports the current status of call.
func ToolCallUpdateEvent(call ToolCall) StreamEvent {
	return StreamEvent{
		Type:       EventToolCallUpdate,
		ToolCallID: call.ID,
		Status:     call.Status,
		Result:     call.Result,
		Error:      call.Error,
	}
}

// Transcript is the folded view of an event sequence.
type Transcript struct {
	Text      string     `json:"text"`
	Thinking  string     `json:"thinking,omitempty"`
	Planning  string     `json:"planning,omitempty"`
	ToolCalls []ToolCall `json:"tool_calls,omitempty"`
	Done      bool       `json:"done"`
}

// Collect drains seq into a Transcript. Tool calls keep the order in which
// they started and carry their last reported status.
func Collect(seq iter.Seq2[StreamEvent, error]) (*Transcript, error) {
	var (
		text, thinking, planning strings.Builder
		out                      Transcript
		index                    = map[string]int{}
	)
	for ev, err := range seq {
		if err != nil {
			out.Text, out.Thinking, out.Planning = text.String(), thinking.String(), planning.String()
			return &out, err
		}
		switch ev.Type {
		case EventText:
			text.WriteString(ev.Content)
		case EventThinking:
			thinking.WriteString(ev.Content)
		case EventPlanning:
			planning.WriteString(ev.Content)
		case EventToolCallStart:
			if ev.ToolCall != nil {
				index[ev.ToolCall.ID] = len(out.ToolCalls)
				out.ToolCalls = append(out.ToolCalls, *ev.ToolCall)
			}
		case EventToolCallUpdate:
			if i, ok := index[ev.ToolCallID]; ok {
				c := &out.ToolCalls[i]
				c.Status, c.Result, c.Error = ev.Status, ev.Result, ev.Error
			}
		case EventDone:
			out.Done = true
		}
	}
	out.Text, out.Thinking, out.Planning = text.String(), thinking.String(), planning.String()
	return &out, nil
}
