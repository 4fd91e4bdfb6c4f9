package session

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/studymesh/studymesh/core"
	"github.com/studymesh/studymesh/flow"
	"github.com/studymesh/studymesh/logging"
	"github.com/studymesh/studymesh/mode"
	"github.com/studymesh/studymesh/model"
	"github.com/studymesh/studymesh/syncer"
	"github.com/studymesh/studymesh/tool"
)

// maxToolRounds bounds the generate/execute loop of a single turn so a model
// stuck requesting tools cannot spin forever.
const maxToolRounds = 8

// Event types emitted to the connected client while a turn runs.
const (
	EventDelta            = "message.delta"
	EventFinal            = "message.final"
	EventToolCall         = "tool.call"
	EventToolResult       = "tool.result"
	EventToolError        = "tool.error"
	EventApprovalRequired = "approval.required"
	EventTurnError        = "turn.error"
	EventTurnDone         = "turn.done"
)

// Event is one unit of turn output pushed to the client.
type Event struct {
	Type     string `json:"type"`
	Text     string `json:"text,omitempty"`
	CallID   string `json:"callId,omitempty"`
	ToolName string `json:"tool,omitempty"`
	Mode     string `json:"mode,omitempty"`
	Payload  any    `json:"payload,omitempty"`
}

// EmitFunc receives turn events in order. A nil EmitFunc discards them.
type EmitFunc func(Event)

// TurnInput is one inbound user message plus its optional session updates.
// Mode and context are sticky: empty values leave the current setting alone.
type TurnInput struct {
	Text        string `json:"text"`
	Mode        string `json:"mode,omitempty"`
	ContextID   string `json:"contextId,omitempty"`
	ContextType string `json:"contextType,omitempty"`
}

// Controller is the actor owning one conversation. All turn processing is
// serialized by its mutex; only the sync scheduler's wake-up touches shared
// state (the log and the watermark) from another goroutine, and both are
// safe for that.
type Controller struct {
	sess      *core.AgentSession
	log       *core.MessageLog
	composer  *mode.Composer
	models    model.Resolver
	deps      tool.Deps
	executors map[string]tool.Invoker
	gated     map[string]bool
	sched     *syncer.Scheduler
	approvals *flow.Resolver
	logger    logging.Logger

	mu sync.Mutex
}

// NewController assembles the runtime for one conversation. The registry
// binds tool executors to the caller's capabilities once, up front.
func NewController(sess *core.AgentSession, registry *tool.Registry, composer *mode.Composer, models model.Resolver, deps tool.Deps, pusher syncer.Pusher, window time.Duration, logger logging.Logger) *Controller {
	if logger == nil {
		logger = logging.NoOpLogger{}
	}
	log := core.NewMessageLog()
	gated := make(map[string]bool)
	for _, name := range registry.Names() {
		if registry.RequiresConfirmation(name) {
			gated[name] = true
		}
	}
	executors := registry.Executors(deps)
	c := &Controller{
		sess:      sess,
		log:       log,
		composer:  composer,
		models:    models,
		deps:      deps,
		executors: executors,
		gated:     gated,
		approvals: flow.NewResolver(executors, gated, logger),
		logger:    logger,
	}
	c.sched = syncer.NewScheduler(sess, log, pusher, window, logger)
	return c
}

// Session exposes the controller's session state.
func (c *Controller) Session() *core.AgentSession { return c.sess }

// Log exposes the controller's message log.
func (c *Controller) Log() *core.MessageLog { return c.log }

// Scheduler exposes the controller's sync scheduler.
func (c *Controller) Scheduler() *syncer.Scheduler { return c.sched }

// Authorize verifies that userID owns the conversation. Every entry point
// must pass before touching state.
func (c *Controller) Authorize(userID string) error {
	if userID != c.sess.UserID {
		return fmt.Errorf("conversation %s: %w", c.sess.ConversationID, core.ErrUnauthorized)
	}
	return nil
}

// Hydrate restores a previously synced transcript into an empty log and sets
// the watermark to the restored count, so reconnection does not re-push
// history the store already holds.
func (c *Controller) Hydrate(messages []*core.Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.log.Len() > 0 {
		return fmt.Errorf("conversation %s: log already populated", c.sess.ConversationID)
	}
	for _, m := range messages {
		m.Sequence = 0
		if _, err := c.log.Append(m); err != nil {
			return err
		}
	}
	c.sess.AdvanceSynced(len(messages))
	c.logger.Info("session.hydrated", "conversation_id", c.sess.ConversationID, "messages", len(messages))
	return nil
}

// HandleTurn processes one inbound user message end to end: session updates,
// approval resolution, generation with tool execution, and sync arming.
// Events stream to emit as they happen; the returned error is the turn's
// terminal failure, already reported via EventTurnError.
func (c *Controller) HandleTurn(ctx context.Context, input TurnInput, emit EmitFunc) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if emit == nil {
		emit = func(Event) {}
	}

	err := c.runTurn(ctx, input, emit)
	c.sched.Arm()
	if err != nil {
		c.logger.Error("session.turn.failed", "conversation_id", c.sess.ConversationID, "error", err.Error())
		emit(Event{Type: EventTurnError, Text: err.Error()})
		return err
	}
	emit(Event{Type: EventTurnDone, Mode: c.sess.Mode().String()})
	return nil
}

func (c *Controller) runTurn(ctx context.Context, input TurnInput, emit EmitFunc) error {
	c.sess.Touch()
	if input.Mode != "" {
		c.sess.SetMode(core.NormalizeMode(input.Mode))
	}
	if input.ContextID != "" {
		c.sess.SetContext(input.ContextID, input.ContextType)
	}

	cfg, err := c.composer.GetConfiguration(ctx, c.sess.Mode(), c.deps)
	if err != nil {
		return err
	}

	if _, err := c.log.Append(core.NewUserMessage(input.Text)); err != nil {
		return err
	}
	c.sched.Arm()

	// A decision token settles the oldest pending gated call before any
	// generation, so the model already sees the outcome this turn.
	if err := c.approvals.Resolve(ctx, c.log); err != nil {
		return err
	}

	mdl, err := c.models.Resolve(cfg.ModelID)
	if err != nil {
		return err
	}

	for round := 0; round < maxToolRounds; round++ {
		final, err := c.generate(ctx, mdl, cfg, emit)
		if err != nil {
			return err
		}

		msg, calls, err := c.appendAssistant(final)
		if err != nil {
			return err
		}
		c.sched.Arm()
		if msg == nil || len(calls) == 0 {
			if msg != nil {
				emit(Event{Type: EventFinal, Text: final.Text})
			}
			return nil
		}

		awaiting, err := c.dispatchCalls(ctx, cfg, calls, emit)
		if err != nil {
			return err
		}
		if awaiting {
			// The turn ends with the gated call parked in input-available;
			// the next user message carries the decision.
			return nil
		}
	}
	return fmt.Errorf("conversation %s: tool round limit reached", c.sess.ConversationID)
}

// generate runs one model invocation over the cleaned log view, forwarding
// partial text as delta events and returning the final response.
func (c *Controller) generate(ctx context.Context, mdl model.Model, cfg *mode.Configuration, emit EmitFunc) (model.Response, error) {
	req := model.Request{
		Instructions: cfg.Instructions,
		Messages:     flow.Cleanup(c.log.Snapshot()),
		Tools:        toolDefinitions(cfg.Tools),
		Stream:       true,
	}

	respCh, errCh := mdl.Generate(ctx, req)
	var final model.Response
	for respCh != nil || errCh != nil {
		select {
		case r, ok := <-respCh:
			if !ok {
				respCh = nil
				continue
			}
			if r.Partial {
				if r.Text != "" {
					emit(Event{Type: EventDelta, Text: r.Text})
				}
				continue
			}
			final = r
		case genErr, ok := <-errCh:
			if !ok {
				errCh = nil
				continue
			}
			if genErr != nil {
				return model.Response{}, genErr
			}
		case <-ctx.Done():
			return model.Response{}, ctx.Err()
		}
	}
	return final, nil
}

// appendAssistant converts the final model response into a logged assistant
// message. Tool-call parts enter the log already in input-available state
// since the provider delivered complete arguments.
func (c *Controller) appendAssistant(final model.Response) (*core.Message, []*core.ToolCallPart, error) {
	var parts []core.Part
	if final.Text != "" {
		parts = append(parts, core.TextPart{Text: final.Text})
	}
	var calls []*core.ToolCallPart
	for _, tc := range final.ToolCalls {
		part := &core.ToolCallPart{CallID: tc.ID, ToolName: tc.Name, Input: tc.Arguments}
		if err := part.MarkReady(); err != nil {
			return nil, nil, err
		}
		parts = append(parts, part)
		calls = append(calls, part)
	}
	if len(parts) == 0 {
		return nil, nil, nil
	}
	msg := core.NewMessage(core.RoleAssistant, parts...)
	if _, err := c.log.Append(msg); err != nil {
		return nil, nil, err
	}
	return msg, calls, nil
}

// dispatchCalls settles each requested call. Auto tools execute immediately;
// gated tools stay input-available and surface an approval prompt. The
// return reports whether at least one call is now awaiting a decision.
func (c *Controller) dispatchCalls(ctx context.Context, cfg *mode.Configuration, calls []*core.ToolCallPart, emit EmitFunc) (awaiting bool, err error) {
	for _, call := range calls {
		emit(Event{Type: EventToolCall, CallID: call.CallID, ToolName: call.ToolName, Payload: call.Input})

		if _, allowed := cfg.Tools[call.ToolName]; !allowed {
			if err := call.Fail(fmt.Sprintf("tool %q is not available in %s mode", call.ToolName, cfg.Mode)); err != nil {
				return false, err
			}
			emit(Event{Type: EventToolError, CallID: call.CallID, ToolName: call.ToolName, Text: call.ErrText})
			continue
		}

		if cfg.Confirm[call.ToolName] {
			c.logger.Info("session.approval.pending", "conversation_id", c.sess.ConversationID, "tool", call.ToolName, "call_id", call.CallID)
			emit(Event{Type: EventApprovalRequired, CallID: call.CallID, ToolName: call.ToolName, Payload: call.Input})
			awaiting = true
			continue
		}

		exec, ok := c.executors[call.ToolName]
		if !ok {
			return false, core.NewConfigurationError("no executor registered for tool %q", call.ToolName)
		}
		result, execErr := exec(ctx, call.Input)
		if execErr != nil {
			if err := call.Fail(execErr.Error()); err != nil {
				return false, err
			}
			emit(Event{Type: EventToolError, CallID: call.CallID, ToolName: call.ToolName, Text: call.ErrText})
			continue
		}
		if err := call.Resolve(result); err != nil {
			return false, err
		}
		emit(Event{Type: EventToolResult, CallID: call.CallID, ToolName: call.ToolName, Payload: result})
	}
	return awaiting, nil
}

// Close cancels pending sync work and flushes whatever the store has not
// accepted yet.
func (c *Controller) Close(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.sched.Close(ctx); err != nil {
		c.logger.Warn("session.close.flush_failed", "conversation_id", c.sess.ConversationID, "error", err.Error())
		return err
	}
	return nil
}

func toolDefinitions(tools map[string]tool.Tool) []model.ToolDefinition {
	names := make([]string, 0, len(tools))
	for name := range tools {
		names = append(names, name)
	}
	sort.Strings(names)
	defs := make([]model.ToolDefinition, 0, len(names))
	for _, name := range names {
		t := tools[name]
		defs = append(defs, model.ToolDefinition{
			Name:        t.Name(),
			Description: t.Description(),
			Parameters:  t.Parameters(),
		})
	}
	return defs
}
