package core

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeMode(t *testing.T) {
	tests := []struct {
		raw  string
		want Mode
	}{
		{"EXAM", ModeExam},
		{"exam", ModeExam},
		{" study ", ModeStudy},
		{"REVIEW", ModeReview},
		{"DEFAULT", ModeDefault},
		{"", ModeDefault},
		{"UNKNOWN_VALUE", ModeDefault},
		{"examm", ModeDefault},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizeMode(tt.raw), "raw=%q", tt.raw)
	}
}

func TestToolCallPart_ForwardOnlyState(t *testing.T) {
	p := &ToolCallPart{CallID: "c1", ToolName: "list_tasks", State: ToolCallInputStreaming}

	require.NoError(t, p.MarkReady())
	assert.Equal(t, ToolCallInputAvailable, p.State)

	// No regression from ready back to streaming.
	assert.Error(t, p.advance(ToolCallInputStreaming))

	require.NoError(t, p.Resolve(map[string]any{"ok": true}))
	assert.Equal(t, ToolCallOutputAvailable, p.State)
	assert.NotNil(t, p.Output)

	// Terminal states never transition again.
	assert.Error(t, p.Fail("late denial"))
	assert.Empty(t, p.ErrText)
}

func TestToolCallPart_FailFromReady(t *testing.T) {
	p := &ToolCallPart{CallID: "c2", ToolName: "delete_task", State: ToolCallInputAvailable}
	require.NoError(t, p.Fail("denied by user"))
	assert.Equal(t, ToolCallOutputError, p.State)
	assert.Equal(t, "denied by user", p.ErrText)
}

func TestMessageLog_SequencesInArrivalOrder(t *testing.T) {
	log := NewMessageLog()

	seq1, err := log.Append(NewUserMessage("first"))
	require.NoError(t, err)
	seq2, err := log.Append(NewAssistantMessage("second"))
	require.NoError(t, err)

	assert.Equal(t, uint64(1), seq1)
	assert.Equal(t, uint64(2), seq2)
	assert.Equal(t, 2, log.Len())

	// Re-appending a sequenced message is rejected.
	msgs := log.Snapshot()
	_, err = log.Append(msgs[0])
	assert.Error(t, err)
}

func TestMessageLog_Since(t *testing.T) {
	log := NewMessageLog()
	for _, text := range []string{"a", "b", "c"} {
		_, err := log.Append(NewUserMessage(text))
		require.NoError(t, err)
	}

	delta := log.Since(1)
	require.Len(t, delta, 2)
	assert.Equal(t, uint64(2), delta[0].Sequence)
	assert.Equal(t, uint64(3), delta[1].Sequence)

	assert.Nil(t, log.Since(3))
	assert.Nil(t, log.Since(10))
}

func TestMessageLog_FindToolCall(t *testing.T) {
	log := NewMessageLog()
	call := &ToolCallPart{CallID: "abc", ToolName: "create_task", State: ToolCallInputAvailable}
	_, err := log.Append(NewMessage(RoleAssistant, TextPart{Text: "creating"}, call))
	require.NoError(t, err)

	msg, part, ok := log.FindToolCall("abc")
	require.True(t, ok)
	assert.Equal(t, RoleAssistant, msg.Role)
	assert.Same(t, call, part)

	_, _, ok = log.FindToolCall("missing")
	assert.False(t, ok)
}

func TestAgentSession_WatermarkNeverDecreases(t *testing.T) {
	s := NewAgentSession("conv-1", "user-1", "")

	assert.Equal(t, uint64(0), s.LastSyncedSeq())
	assert.Equal(t, uint64(3), s.AdvanceSynced(3))
	assert.Equal(t, uint64(3), s.AdvanceSynced(0))
	assert.Equal(t, uint64(3), s.AdvanceSynced(-5))
	assert.Equal(t, uint64(5), s.AdvanceSynced(2))
}

func TestMessage_ContentForSync(t *testing.T) {
	plain := NewUserMessage("hello")
	assert.Equal(t, "hello", plain.ContentForSync())

	call := &ToolCallPart{
		CallID:   "c9",
		ToolName: "delete_task",
		State:    ToolCallOutputError,
		Input:    json.RawMessage(`{"id":"t1"}`),
		ErrText:  "denied by user",
	}
	withCall := NewMessage(RoleAssistant, TextPart{Text: "removing"}, call)
	var decoded map[string]any
	require.NoError(t, json.Unmarshal([]byte(withCall.ContentForSync()), &decoded))
	assert.Equal(t, "removing", decoded["text"])
	calls, ok := decoded["toolCalls"].([]any)
	require.True(t, ok)
	require.Len(t, calls, 1)
	first := calls[0].(map[string]any)
	assert.Equal(t, "output-error", first["state"])
	assert.Equal(t, "delete_task", first["tool"])
}
