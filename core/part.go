package core

import (
	"encoding/json"
	"fmt"
)

// Part represents a polymorphic segment of message content. Concrete part
// types implement the unexported isPart marker enabling a closed set.
type Part interface{ isPart() }

// TextPart is a plain text content segment.
type TextPart struct {
	Text string // Plain UTF-8 text
}

// isPart implements the Part interface for TextPart.
func (TextPart) isPart() {}

// ToolCallState tracks the lifecycle of a single tool call. The state only
// ever moves forward; a part never returns to an earlier state.
type ToolCallState int

const (
	// ToolCallInputStreaming means the model is still emitting arguments.
	// The call is not yet actionable.
	ToolCallInputStreaming ToolCallState = iota
	// ToolCallInputAvailable means arguments are complete but no result
	// exists yet. Gated tools wait here for a human decision.
	ToolCallInputAvailable
	// ToolCallOutputAvailable is terminal: the call executed and carries a result.
	ToolCallOutputAvailable
	// ToolCallOutputError is terminal: the call was denied or its execution failed.
	ToolCallOutputError
)

// String returns the wire representation of the state.
func (s ToolCallState) String() string {
	switch s {
	case ToolCallInputStreaming:
		return "input-streaming"
	case ToolCallInputAvailable:
		return "input-available"
	case ToolCallOutputAvailable:
		return "output-available"
	case ToolCallOutputError:
		return "output-error"
	default:
		return "unknown"
	}
}

// Terminal reports whether the state is one of the two final states.
func (s ToolCallState) Terminal() bool {
	return s == ToolCallOutputAvailable || s == ToolCallOutputError
}

// Pending reports whether the call has not produced an outcome yet. Pending
// calls are never forwarded to the model as conversational context.
func (s ToolCallState) Pending() bool { return !s.Terminal() }

// ToolCallPart is a tool invocation embedded in an assistant message. It is
// the only message content that changes after the owning message is appended:
// the state advances as the call moves through its lifecycle, while identity,
// tool name and input stay fixed. Parts are therefore held by pointer.
type ToolCallPart struct {
	CallID   string          // Per-call identifier assigned by the model provider
	ToolName string          // Registered tool name
	State    ToolCallState   // Current lifecycle state (forward-only)
	Input    json.RawMessage // Serialized argument payload
	Output   any             // Result attached on resolution
	ErrText  string          // Explanation attached on failure/denial
}

// isPart implements the Part interface for ToolCallPart.
func (*ToolCallPart) isPart() {}

// advance moves the part to a later state, rejecting regressions and
// transitions out of a terminal state.
func (p *ToolCallPart) advance(to ToolCallState) error {
	if to <= p.State {
		return fmt.Errorf("tool call %s: state %s cannot regress to %s", p.CallID, p.State, to)
	}
	if p.State.Terminal() {
		return fmt.Errorf("tool call %s: state %s is terminal", p.CallID, p.State)
	}
	p.State = to
	return nil
}

// MarkReady transitions the part from input-streaming to input-available.
func (p *ToolCallPart) MarkReady() error { return p.advance(ToolCallInputAvailable) }

// Resolve attaches a result and transitions the part to output-available.
func (p *ToolCallPart) Resolve(output any) error {
	if err := p.advance(ToolCallOutputAvailable); err != nil {
		return err
	}
	p.Output = output
	return nil
}

// Fail attaches an explanation and transitions the part to output-error.
func (p *ToolCallPart) Fail(reason string) error {
	if err := p.advance(ToolCallOutputError); err != nil {
		return err
	}
	p.ErrText = reason
	return nil
}
