// Package model defines the minimal interface the session controller needs
// to drive generation, plus provider-neutral request/response structures.
// Provider adapters live in the subpackages anthropic and openai.
package model

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/studymesh/studymesh/core"
)

// ToolDefinition declaratively exposes a callable tool to the model.
// Parameters is a minimal JSON Schema object.
type ToolDefinition struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

// Request captures the normalized model input produced by the session
// controller. Messages arrive pre-cleaned: no pending tool calls.
type Request struct {
	Instructions string           `json:"instructions"`
	Messages     []*core.Message  `json:"messages"`
	Tools        []ToolDefinition `json:"tools,omitempty"`
	Stream       bool             `json:"stream,omitempty"`
}

// ToolCall is a complete tool invocation request surfaced by a provider.
type ToolCall struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments,omitempty"`
}

// TokenUsage captures token usage statistics for a response.
type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Response is a (partial or final) chunk emitted by a model. Partial chunks
// carry text deltas; the final chunk carries the accumulated text plus any
// complete tool calls.
type Response struct {
	Partial      bool        `json:"partial"`
	Text         string      `json:"text,omitempty"`
	ToolCalls    []ToolCall  `json:"tool_calls,omitempty"`
	FinishReason string      `json:"finish_reason,omitempty"`
	Usage        *TokenUsage `json:"usage,omitempty"`
}

// Info contains metadata about a model implementation.
type Info struct {
	Name          string `json:"name"`
	Provider      string `json:"provider"`
	SupportsTools bool   `json:"supports_tools"`
}

// Model is the generation interface. The returned channels are closed when
// the invocation finishes; cancellation of ctx aborts an in-flight stream.
type Model interface {
	Generate(ctx context.Context, req Request) (<-chan Response, <-chan error)

	// Info returns information about the model implementation.
	Info() Info
}

// Resolver maps a mode configuration's model identifier onto a Model.
type Resolver interface {
	Resolve(modelID string) (Model, error)
}

// StaticResolver resolves from a fixed id->Model map with an optional
// fallback for unmapped ids.
type StaticResolver struct {
	mu       sync.RWMutex
	models   map[string]Model
	fallback Model
}

// NewStaticResolver creates an empty resolver with an optional fallback.
func NewStaticResolver(fallback Model) *StaticResolver {
	return &StaticResolver{models: make(map[string]Model), fallback: fallback}
}

// Register maps a model identifier to an implementation.
func (r *StaticResolver) Register(modelID string, m Model) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.models[modelID] = m
}

// Resolve implements Resolver. An unmapped id without a fallback is a
// configuration defect.
func (r *StaticResolver) Resolve(modelID string) (Model, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if m, ok := r.models[modelID]; ok {
		return m, nil
	}
	if r.fallback != nil {
		return r.fallback, nil
	}
	return nil, core.NewConfigurationError("no model registered for id %q", modelID)
}

// MockModel is a scripted in-memory Model for tests. Each Generate call pops
// the next script entry and emits its responses in order.
type MockModel struct {
	mu      sync.Mutex
	scripts [][]Response
	// Requests records every request for assertions.
	Requests []Request
}

// NewMockModel constructs an empty mock.
func NewMockModel() *MockModel { return &MockModel{} }

// Script enqueues the responses one Generate call will emit.
func (m *MockModel) Script(responses ...Response) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.scripts = append(m.scripts, responses)
}

// Generate implements Model.
func (m *MockModel) Generate(ctx context.Context, req Request) (<-chan Response, <-chan error) {
	respCh := make(chan Response, 16)
	errCh := make(chan error, 1)

	m.mu.Lock()
	m.Requests = append(m.Requests, req)
	var script []Response
	if len(m.scripts) > 0 {
		script = m.scripts[0]
		m.scripts = m.scripts[1:]
	}
	m.mu.Unlock()

	go func() {
		defer close(respCh)
		defer close(errCh)
		if script == nil {
			errCh <- fmt.Errorf("mock model: no scripted response")
			return
		}
		for _, resp := range script {
			select {
			case <-ctx.Done():
				errCh <- ctx.Err()
				return
			case respCh <- resp:
			}
		}
	}()
	return respCh, errCh
}

// Info implements Model.
func (m *MockModel) Info() Info {
	return Info{Name: "mock", Provider: "mock", SupportsTools: true}
}
