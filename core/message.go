package core

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Conversation roles. The closed set mirrors what the sync endpoint accepts.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
	RoleTool      = "tool"
)

// Message is one entry of a conversation log. Sequence numbers are 1-based
// and assigned by the MessageLog in arrival order; every field except the
// state of embedded tool-call parts is immutable after that assignment.
type Message struct {
	ID        string    `json:"id"`
	Role      string    `json:"role"`
	Sequence  uint64    `json:"sequence"` // 0 until appended to a log
	Parts     []Part    `json:"parts"`
	CreatedAt time.Time `json:"created_at"`
}

// NewMessage creates an unsequenced message with the given role and parts.
func NewMessage(role string, parts ...Part) *Message {
	return &Message{
		ID:        NewID(),
		Role:      role,
		Parts:     parts,
		CreatedAt: time.Now().UTC(),
	}
}

// NewUserMessage is a convenience wrapper for a user-authored text message.
func NewUserMessage(text string) *Message {
	return NewMessage(RoleUser, TextPart{Text: text})
}

// NewAssistantMessage is a convenience wrapper for an assistant text message.
func NewAssistantMessage(text string) *Message {
	return NewMessage(RoleAssistant, TextPart{Text: text})
}

// Text concatenates the message's text parts in order.
func (m *Message) Text() string {
	var b strings.Builder
	for _, p := range m.Parts {
		if tp, ok := p.(TextPart); ok {
			b.WriteString(tp.Text)
		}
	}
	return b.String()
}

// ToolCalls returns the tool-call parts of the message preserving order.
func (m *Message) ToolCalls() []*ToolCallPart {
	var calls []*ToolCallPart
	for _, p := range m.Parts {
		if tc, ok := p.(*ToolCallPart); ok {
			calls = append(calls, tc)
		}
	}
	return calls
}

// HasPendingToolCalls reports whether any tool-call part has not reached a
// terminal state yet.
func (m *Message) HasPendingToolCalls() bool {
	for _, tc := range m.ToolCalls() {
		if tc.State.Pending() {
			return true
		}
	}
	return false
}

// ContentForSync renders the message body for the external store. Plain text
// messages are forwarded verbatim; messages carrying tool calls are encoded
// as a JSON part list so no lifecycle information is lost on restore.
func (m *Message) ContentForSync() string {
	calls := m.ToolCalls()
	if len(calls) == 0 {
		return m.Text()
	}
	type syncedCall struct {
		CallID string          `json:"callId"`
		Tool   string          `json:"tool"`
		State  string          `json:"state"`
		Input  json.RawMessage `json:"input,omitempty"`
		Output any             `json:"output,omitempty"`
		Error  string          `json:"error,omitempty"`
	}
	body := struct {
		Text  string       `json:"text,omitempty"`
		Calls []syncedCall `json:"toolCalls"`
	}{Text: m.Text()}
	for _, c := range calls {
		body.Calls = append(body.Calls, syncedCall{
			CallID: c.CallID,
			Tool:   c.ToolName,
			State:  c.State.String(),
			Input:  c.Input,
			Output: c.Output,
			Error:  c.ErrText,
		})
	}
	raw, err := json.Marshal(body)
	if err != nil {
		return m.Text()
	}
	return string(raw)
}

// NewID generates a unique identifier for messages and sessions.
func NewID() string { return uuid.NewString() }
