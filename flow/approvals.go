package flow

import (
	"context"
	"strings"

	"github.com/studymesh/studymesh/core"
	"github.com/studymesh/studymesh/logging"
	"github.com/studymesh/studymesh/tool"
)

// Decision tokens of the approval protocol. Exactly these two literals,
// exchanged as the full text of a user message, count as decisions; any
// other content leaves a pending gated call untouched.
const (
	ApproveToken = "[APPROVE]"
	DenyToken    = "[DENY]"
)

// DecisionOf classifies a message as a decision. The second return is false
// when the message is not a valid decision.
func DecisionOf(m *core.Message) (approved bool, ok bool) {
	if m.Role != core.RoleUser || len(m.ToolCalls()) > 0 {
		return false, false
	}
	switch strings.TrimSpace(m.Text()) {
	case ApproveToken:
		return true, true
	case DenyToken:
		return false, true
	default:
		return false, false
	}
}

// Resolver applies human decisions to gated tool calls waiting in
// input-available state. Executors must cover every gated tool name the
// registry declares; a decision arriving for a call without one is a
// configuration defect and fails loudly.
//
// There is no timeout on a pending call: it stays input-available until a
// decision arrives or the session ends. That is a deliberate contract, not
// an oversight.
type Resolver struct {
	executors map[string]tool.Invoker
	gated     map[string]bool
	logger    logging.Logger
}

// NewResolver builds a resolver over the given per-caller executor map.
func NewResolver(executors map[string]tool.Invoker, gated map[string]bool, logger logging.Logger) *Resolver {
	if logger == nil {
		logger = logging.NoOpLogger{}
	}
	return &Resolver{executors: executors, gated: gated, logger: logger}
}

// Resolve scans the log in order, pairing each decision message with the
// earliest still-pending gated call that precedes it. An affirmative
// decision runs the bound executor with the call's original arguments and
// attaches the result; a denial, or an executor failure, transitions the
// call to output-error with an explanation. Calls with no decision yet are
// left untouched.
func (r *Resolver) Resolve(ctx context.Context, log *core.MessageLog) error {
	var pending []*core.ToolCallPart
	for _, m := range log.Snapshot() {
		for _, tc := range m.ToolCalls() {
			if tc.State == core.ToolCallInputAvailable && r.gated[tc.ToolName] {
				pending = append(pending, tc)
			}
		}

		approved, isDecision := DecisionOf(m)
		if !isDecision || len(pending) == 0 {
			continue
		}
		call := pending[0]
		pending = pending[1:]
		if err := r.apply(ctx, call, approved); err != nil {
			return err
		}
	}
	return nil
}

func (r *Resolver) apply(ctx context.Context, call *core.ToolCallPart, approved bool) error {
	if !approved {
		r.logger.Info("flow.approval.denied", "tool", call.ToolName, "call_id", call.CallID)
		return call.Fail("denied by user")
	}

	exec, ok := r.executors[call.ToolName]
	if !ok {
		return core.NewConfigurationError("no executor registered for gated tool %q", call.ToolName)
	}

	result, err := exec(ctx, call.Input)
	if err != nil {
		r.logger.Warn("flow.approval.execution_failed", "tool", call.ToolName, "call_id", call.CallID, "error", err.Error())
		return call.Fail(err.Error())
	}

	r.logger.Info("flow.approval.executed", "tool", call.ToolName, "call_id", call.CallID)
	return call.Resolve(result)
}
