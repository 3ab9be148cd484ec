package core

import (
	"context"
	"iter"
	"strings"
	"sync"
)

// Memory holds the messages of one conversation. Implementations must be
// safe for concurrent use.
type Memory interface {
	// Append adds messages to the end of the history.
	Append(msgs ...Message)
	// History returns a copy of all messages.
	History() []Message
	// Clear removes all messages.
	Clear()
	// Len returns the number of messages.
	Len() int
}

// InMemoryStore is a Memory backed by a slice. Nothing survives the process.
type InMemoryStore struct {
	mu       sync.RWMutex
	messages []Message
}

// NewInMemoryStore creates an empty store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{}
}

func (m *InMemoryStore) Append(msgs ...Message) {
	if len(msgs) == 0 {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = append(m.messages, msgs...)
}

func (m *InMemoryStore) History() []Message {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]Message(nil), m.messages...)
}

func (m *InMemoryStore) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = nil
}

func (m *InMemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.messages)
}

// Conversation runs successive requests against one model, replaying earlier
// exchanges as history.
type Conversation struct {
	engine *Engine
	memory Memory
	model  ModelID
	system string
	window int
}

// ConversationOption configures a Conversation.
type ConversationOption func(*Conversation)

// WithSystemMessage sets the system instruction of every request.
func WithSystemMessage(system string) ConversationOption {
	return func(c *Conversation) {
		c.system = system
	}
}

// WithMemoryStore replaces the default in-memory store.
func WithMemoryStore(memory Memory) ConversationOption {
	return func(c *Conversation) {
		if memory != nil {
			c.memory = memory
		}
	}
}

// WithHistoryWindow limits replayed history to the last n messages.
// Zero replays everything.
func WithHistoryWindow(n int) ConversationOption {
	return func(c *Conversation) {
		if n >= 0 {
			c.window = n
		}
	}
}

// NewConversation creates a conversation with model on engine.
func NewConversation(engine *Engine, model ModelID, opts ...ConversationOption) *Conversation {
	c := &Conversation{
		engine: engine,
		memory: NewInMemoryStore(),
		model:  model,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Send streams one exchange. Unset Model and System fields of req take the
// conversation's values and History is replaced by the stored history.
// Only an exchange that reaches its done event is remembered: the prompt
// and the visible answer. Tool traffic is not replayed.
func (c *Conversation) Send(ctx context.Context, req ChatRequest) iter.Seq2[StreamEvent, error] {
	if req.Model == "" {
		req.Model = c.model
	}
	if req.System == "" {
		req.System = c.system
	}
	req.History = c.history()

	return func(yield func(StreamEvent, error) bool) {
		var answer strings.Builder
		for ev, err := range c.engine.Stream(ctx, req) {
			if err != nil {
				yield(ev, err)
				return
			}
			switch ev.Type {
			case EventText:
				answer.WriteString(ev.Content)
			case EventDone:
				c.memory.Append(
					Message{Role: RoleUser, Content: req.Prompt, Attachments: req.Attachments},
					Message{Role: RoleAssistant, Content: answer.String()},
				)
			}
			if !yield(ev, nil) {
				return
			}
		}
	}
}

// history returns the replayed window. It never starts on an assistant
// message.
func (c *Conversation) history() []Message {
	msgs := c.memory.History()
	if c.window > 0 && len(msgs) > c.window {
		msgs = msgs[len(msgs)-c.window:]
	}
	for len(msgs) > 0 && msgs[0].Role != RoleUser {
		msgs = msgs[1:]
	}
	return msgs
}

// History returns every remembered message.
func (c *Conversation) History() []Message {
	return c.memory.History()
}

// Clear forgets all exchanges.
func (c *Conversation) Clear() {
	c.memory.Clear()
}

// Len returns the number of remembered messages.
func (c *Conversation) Len() int {
	return c.memory.Len()
}
