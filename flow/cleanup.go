// Package flow prepares a session's message log for model invocation: the
// cleanup pass computes a view without incomplete tool calls, and the
// approval resolver applies pending human decisions to gated tool calls
// before generation proceeds.
package flow

import "github.com/studymesh/studymesh/core"

// Cleanup computes the conversational context view of a message list. The
// source log is never mutated; the returned slice may share messages with
// the input but carries copies where parts had to be filtered.
//
// The controlling rule: nothing in input-streaming or input-available state
// is ever sent to the model as context. A message whose only content is
// pending tool calls is dropped entirely; a message mixing text with pending
// calls is passed through with the pending parts removed. Messages without
// tool-call parts, or whose parts are all terminal, pass unchanged.
func Cleanup(messages []*core.Message) []*core.Message {
	out := make([]*core.Message, 0, len(messages))
	for _, m := range messages {
		if !m.HasPendingToolCalls() {
			out = append(out, m)
			continue
		}
		kept := make([]core.Part, 0, len(m.Parts))
		for _, p := range m.Parts {
			if tc, ok := p.(*core.ToolCallPart); ok && tc.State.Pending() {
				continue
			}
			kept = append(kept, p)
		}
		if len(kept) == 0 {
			continue
		}
		if onlyEmptyText(kept) {
			continue
		}
		cp := *m
		cp.Parts = kept
		out = append(out, &cp)
	}
	return out
}

// onlyEmptyText reports whether the parts carry no usable content (an
// assistant message reduced to an empty text shell after filtering).
func onlyEmptyText(parts []core.Part) bool {
	for _, p := range parts {
		switch v := p.(type) {
		case core.TextPart:
			if v.Text != "" {
				return false
			}
		default:
			return false
		}
	}
	return true
}
