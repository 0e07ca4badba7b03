package domain

import "encoding/json"

// Role tags a message in a conversation transcript.
type Role string

// Message roles understood by every LLM adapter.
const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// Message is a single entry in a conversation transcript.
type Message struct {
	// Role is who produced the message.
	Role Role

	// Content is the message text. May be empty for assistant tool-call turns.
	Content string

	// ToolCalls are the calls requested by an assistant message.
	ToolCalls []ToolCall

	// ToolCallID links a tool message to the call it answers.
	ToolCallID string

	// Name is the tool name for tool messages.
	Name string
}

// ToolCall is a structured request from the model to run a named tool.
type ToolCall struct {
	// ID is the provider-assigned call identifier.
	ID string

	// Name is the requested tool.
	Name string

	// Arguments is the raw JSON argument object.
	Arguments json.RawMessage
}

// ToolDefinition describes a tool to the model.
type ToolDefinition struct {
	// Name is the tool identifier the model uses to call it.
	Name string `json:"name"`

	// Description tells the model when to use the tool.
	Description string `json:"description"`

	// Parameters is a JSON schema object describing the arguments.
	Parameters map[string]any `json:"parameters"`
}

// ToolResult is the outcome of a single tool execution.
// Each execution returns its own result; nothing is shared between calls.
type ToolResult struct {
	// Content is the text fed back to the model.
	Content string

	// Sources are citations produced by this execution.
	Sources []Source
}

// Exchange is one user question and the assistant's final answer.
type Exchange struct {
	User      string
	Assistant string
}

// History is a fixed-capacity buffer of exchanges.
// Appending beyond capacity evicts the oldest exchange first.
// A History with capacity zero retains nothing.
type History struct {
	buf   []Exchange
	start int
	size  int
}

// NewHistory creates a history that retains at most capacity exchanges.
// Negative capacities are treated as zero.
func NewHistory(capacity int) *History {
	if capacity < 0 {
		capacity = 0
	}
	return &History{buf: make([]Exchange, capacity)}
}

// Capacity returns the maximum number of retained exchanges.
func (h *History) Capacity() int {
	return len(h.buf)
}

// Len returns the number of retained exchanges.
func (h *History) Len() int {
	return h.size
}

// Append adds an exchange, evicting the oldest one when full.
func (h *History) Append(e Exchange) {
	if len(h.buf) == 0 {
		return
	}
	if h.size < len(h.buf) {
		h.buf[(h.start+h.size)%len(h.buf)] = e
		h.size++
		return
	}
	h.buf[h.start] = e
	h.start = (h.start + 1) % len(h.buf)
}

// Exchanges returns the retained exchanges, oldest first.
func (h *History) Exchanges() []Exchange {
	out := make([]Exchange, h.size)
	for i := 0; i < h.size; i++ {
		out[i] = h.buf[(h.start+i)%len(h.buf)]
	}
	return out
}

// Messages renders the retained exchanges as alternating user/assistant messages.
func (h *History) Messages() []Message {
	msgs := make([]Message, 0, h.size*2)
	for _, e := range h.Exchanges() {
		msgs = append(msgs,
			Message{Role: RoleUser, Content: e.User},
			Message{Role: RoleAssistant, Content: e.Assistant},
		)
	}
	return msgs
}

// Clear drops every retained exchange.
func (h *History) Clear() {
	for i := range h.buf {
		h.buf[i] = Exchange{}
	}
	h.start = 0
	h.size = 0
}
