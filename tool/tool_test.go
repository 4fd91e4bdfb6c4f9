package tool

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/studymesh/studymesh/core"
	"github.com/studymesh/studymesh/logging"
)

// stubTaskStore records the user id of every call so scoping can be asserted.
type stubTaskStore struct {
	lastUserID string
	tasks      []Task
	deleteErr  error
}

func (s *stubTaskStore) Find(_ context.Context, userID string, _ TaskFilter) ([]Task, error) {
	s.lastUserID = userID
	return s.tasks, nil
}

func (s *stubTaskStore) Create(_ context.Context, userID string, t Task) (Task, error) {
	s.lastUserID = userID
	t.ID = "task-1"
	s.tasks = append(s.tasks, t)
	return t, nil
}

func (s *stubTaskStore) Update(_ context.Context, userID, taskID string, _ TaskUpdate) (Task, error) {
	s.lastUserID = userID
	return Task{ID: taskID}, nil
}

func (s *stubTaskStore) Delete(_ context.Context, userID, _ string) error {
	s.lastUserID = userID
	return s.deleteErr
}

func testDeps(tasks *stubTaskStore) Deps {
	return Deps{
		UserID: "user-42",
		Tasks:  tasks,
		Logger: logging.NoOpLogger{},
	}
}

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	r, err := NewDefaultRegistry(logging.NoOpLogger{})
	require.NoError(t, err)
	return r
}

func TestRegistry_GatedToolsHaveNoAction(t *testing.T) {
	r := newTestRegistry(t)
	tools := r.CreateTools(testDeps(&stubTaskStore{}))

	gated, ok := tools[DeleteTask].(*GatedTool)
	require.True(t, ok, "delete_task must be gated")
	assert.True(t, gated.RequiresConfirmation())

	auto, ok := tools[ListTasks].(*AutoTool)
	require.True(t, ok, "list_tasks must be auto")
	assert.False(t, auto.RequiresConfirmation())
}

func TestRegistry_RequiresConfirmation(t *testing.T) {
	r := newTestRegistry(t)
	assert.True(t, r.RequiresConfirmation(DeleteTask))
	assert.True(t, r.RequiresConfirmation(UpdateTask))
	assert.True(t, r.RequiresConfirmation(DeleteNotification))
	assert.True(t, r.RequiresConfirmation(UpdateProfile))
	assert.False(t, r.RequiresConfirmation(ListTasks))
	assert.False(t, r.RequiresConfirmation("no_such_tool"))
}

func TestRegistry_ToolsForMode(t *testing.T) {
	r := newTestRegistry(t)
	deps := testDeps(&stubTaskStore{})

	review := r.ToolsForMode(core.ModeReview, deps)
	assert.Contains(t, review, ListTasks)
	assert.NotContains(t, review, DeleteTask)
	assert.NotContains(t, review, CreateTask)

	def := r.ToolsForMode(core.ModeDefault, deps)
	for _, name := range r.Names() {
		assert.Contains(t, def, name)
	}
}

func TestRegistry_RejectsDanglingModeEntry(t *testing.T) {
	defs := []Definition{{
		Name:       "real_tool",
		Parameters: map[string]any{"type": "object", "properties": map[string]any{}},
		Bind: func(Deps) ExecFunc {
			return func(context.Context, map[string]any) (any, error) { return nil, nil }
		},
	}}
	modeMap := map[core.Mode][]string{core.ModeDefault: {"ghost_tool"}}
	_, err := NewRegistry(defs, modeMap, logging.NoOpLogger{})
	var cfgErr *core.ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
}

func TestAutoTool_CallBindsUserScope(t *testing.T) {
	r := newTestRegistry(t)
	tasks := &stubTaskStore{tasks: []Task{{ID: "t1", Title: "read ch. 4"}}}
	tools := r.CreateTools(testDeps(tasks))

	auto := tools[ListTasks].(*AutoTool)
	result, err := auto.Call(context.Background(), json.RawMessage(`{}`))
	require.NoError(t, err)
	assert.Equal(t, "user-42", tasks.lastUserID)
	assert.Len(t, result.([]Task), 1)
}

func TestAutoTool_CallValidationFailure(t *testing.T) {
	r := newTestRegistry(t)
	tools := r.CreateTools(testDeps(&stubTaskStore{}))

	auto := tools[CreateTask].(*AutoTool)
	_, err := auto.Call(context.Background(), json.RawMessage(`{"notes":"missing title"}`))
	var toolErr *ToolError
	require.ErrorAs(t, err, &toolErr)
	assert.Equal(t, CodeValidation, toolErr.Code)
}

func TestAutoTool_CallNullRequiredArgument(t *testing.T) {
	r := newTestRegistry(t)
	tools := r.CreateTools(testDeps(&stubTaskStore{}))

	auto := tools[CreateTask].(*AutoTool)
	_, err := auto.Call(context.Background(), json.RawMessage(`{"title":null}`))
	var toolErr *ToolError
	require.ErrorAs(t, err, &toolErr)
	assert.Equal(t, CodeValidation, toolErr.Code)
}

func TestAutoTool_CallBadPayload(t *testing.T) {
	r := newTestRegistry(t)
	tools := r.CreateTools(testDeps(&stubTaskStore{}))

	auto := tools[ListTasks].(*AutoTool)
	_, err := auto.Call(context.Background(), json.RawMessage(`not json`))
	var toolErr *ToolError
	require.ErrorAs(t, err, &toolErr)
	assert.Equal(t, CodeBadArgs, toolErr.Code)
}

func TestExecutors_IncludeGatedActions(t *testing.T) {
	r := newTestRegistry(t)
	tasks := &stubTaskStore{}
	execs := r.Executors(testDeps(tasks))

	del, ok := execs[DeleteTask]
	require.True(t, ok)
	result, err := del(context.Background(), json.RawMessage(`{"taskId":"t9"}`))
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"deleted": "t9"}, result)
	assert.Equal(t, "user-42", tasks.lastUserID)
}

func TestExecutors_WrapExecutionError(t *testing.T) {
	r := newTestRegistry(t)
	tasks := &stubTaskStore{deleteErr: errors.New("store offline")}
	execs := r.Executors(testDeps(tasks))

	_, err := execs[DeleteTask](context.Background(), json.RawMessage(`{"taskId":"t9"}`))
	var toolErr *ToolError
	require.ErrorAs(t, err, &toolErr)
	assert.Equal(t, CodeExecution, toolErr.Code)
}

func TestCreateTask_ParsesDueDate(t *testing.T) {
	r := newTestRegistry(t)
	tasks := &stubTaskStore{}
	tools := r.CreateTools(testDeps(tasks))

	due := time.Now().Add(48 * time.Hour).UTC().Format(time.RFC3339)
	raw, _ := json.Marshal(map[string]any{"title": "essay draft", "dueAt": due})
	result, err := tools[CreateTask].(*AutoTool).Call(context.Background(), raw)
	require.NoError(t, err)
	created := result.(Task)
	require.NotNil(t, created.DueAt)
	assert.Equal(t, due, created.DueAt.Format(time.RFC3339))

	raw, _ = json.Marshal(map[string]any{"title": "bad date", "dueAt": "tomorrow"})
	_, err = tools[CreateTask].(*AutoTool).Call(context.Background(), raw)
	assert.Error(t, err)
}
