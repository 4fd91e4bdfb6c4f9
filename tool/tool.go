// Package tool implements the tool subsystem of the StudyMesh agent runtime:
// declarative tool definitions, per-call binding to user-scoped data access
// capabilities, mode allow-lists and the auto/gated split that feeds the
// human-approval state machine in package flow.
package tool

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/studymesh/studymesh/internal/util"
)

// ExecFunc is a tool action already bound to a caller's capabilities. The
// arguments arrive schema-validated.
type ExecFunc func(ctx context.Context, args map[string]any) (any, error)

// Tool is the closed sum of the two tool variants. An AutoTool carries an
// executable action and runs as soon as the model requests it; a GatedTool
// carries no action at the point of use and must pass the approval state
// machine instead. "Requires confirmation" is therefore a type-level fact,
// not a flag that can drift out of sync with behavior.
type Tool interface {
	Name() string
	Description() string
	Parameters() map[string]any
	RequiresConfirmation() bool

	isTool()
}

// AutoTool executes immediately on model request.
type AutoTool struct {
	def Definition
	fn  ExecFunc
}

func (t *AutoTool) isTool() {}

// Name returns the unique tool name.
func (t *AutoTool) Name() string { return t.def.Name }

// Description returns the description shown to the model.
func (t *AutoTool) Description() string { return t.def.Description }

// Parameters returns the JSON schema describing accepted arguments.
func (t *AutoTool) Parameters() map[string]any { return t.def.Parameters }

// RequiresConfirmation is always false for auto tools.
func (t *AutoTool) RequiresConfirmation() bool { return false }

// Call validates raw arguments against the declared schema and invokes the
// bound action. Failures are returned as *ToolError with consistent codes.
func (t *AutoTool) Call(ctx context.Context, rawArgs json.RawMessage) (any, error) {
	return invoke(ctx, t.def, t.fn, rawArgs)
}

// GatedTool is offered to the model but holds no executable action; the
// approval resolver owns the bound action and runs it only after an
// affirmative human decision.
type GatedTool struct {
	def Definition
}

func (t *GatedTool) isTool() {}

// Name returns the unique tool name.
func (t *GatedTool) Name() string { return t.def.Name }

// Description returns the description shown to the model.
func (t *GatedTool) Description() string { return t.def.Description }

// Parameters returns the JSON schema describing accepted arguments.
func (t *GatedTool) Parameters() map[string]any { return t.def.Parameters }

// RequiresConfirmation is always true for gated tools.
func (t *GatedTool) RequiresConfirmation() bool { return true }

// ToolError represents errors that occur during tool execution.
type ToolError struct {
	Tool    string `json:"tool"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

func (e *ToolError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("tool error [%s] in %s: %s", e.Code, e.Tool, e.Message)
	}
	return fmt.Sprintf("tool error in %s: %s", e.Tool, e.Message)
}

// Error codes used by invoke.
const (
	CodeValidation = "VALIDATION_ERROR"
	CodeExecution  = "EXECUTION_ERROR"
	CodeBadArgs    = "ARGUMENT_DECODE_ERROR"
)

// invoke decodes, validates and executes a bound tool action.
func invoke(ctx context.Context, def Definition, fn ExecFunc, rawArgs json.RawMessage) (any, error) {
	args := map[string]any{}
	if len(rawArgs) > 0 {
		if err := json.Unmarshal(rawArgs, &args); err != nil {
			return nil, &ToolError{Tool: def.Name, Code: CodeBadArgs, Message: fmt.Sprintf("invalid argument payload: %v", err)}
		}
	}
	if err := util.ValidateParameters(args, def.Parameters); err != nil {
		return nil, &ToolError{Tool: def.Name, Code: CodeValidation, Message: err.Error()}
	}
	result, err := fn(ctx, args)
	if err != nil {
		if toolErr, ok := err.(*ToolError); ok {
			return nil, toolErr
		}
		return nil, &ToolError{Tool: def.Name, Code: CodeExecution, Message: err.Error()}
	}
	return result, nil
}
