package mode

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/studymesh/studymesh/core"
	"github.com/studymesh/studymesh/logging"
	"github.com/studymesh/studymesh/skill"
	"github.com/studymesh/studymesh/tool"
)

func newTestComposer(t *testing.T) *Composer {
	t.Helper()
	lib := skill.NewLibrary(skill.DefaultSource(), logging.NoOpLogger{})
	require.NoError(t, lib.Register(skill.DefaultSkills()...))
	reg, err := tool.NewDefaultRegistry(logging.NoOpLogger{})
	require.NoError(t, err)
	return NewComposer(lib, reg, logging.NoOpLogger{})
}

func testDeps() tool.Deps {
	return tool.Deps{UserID: "user-1", Logger: logging.NoOpLogger{}}
}

func TestComposer_EveryModeContainsBaseline(t *testing.T) {
	c := newTestComposer(t)
	src := skill.DefaultSource()
	base := []string{
		src.GetPrompt(context.Background(), "personality/tutor_persona.md"),
		src.GetPrompt(context.Background(), "personality/safety.md"),
		src.GetPrompt(context.Background(), "tools/conduct.md"),
		src.GetPrompt(context.Background(), "tools/safety.md"),
	}

	for _, m := range core.Modes() {
		cfg, err := c.GetConfiguration(context.Background(), m, testDeps())
		require.NoError(t, err, "mode %s", m)
		for _, frag := range base {
			assert.True(t, strings.Contains(cfg.Instructions, frag),
				"mode %s missing baseline fragment", m)
		}
	}
}

func TestComposer_UnknownModeEqualsDefault(t *testing.T) {
	c := newTestComposer(t)
	ctx := context.Background()

	def, err := c.GetConfiguration(ctx, core.ModeDefault, testDeps())
	require.NoError(t, err)
	unknown, err := c.GetConfiguration(ctx, core.NormalizeMode("UNKNOWN_VALUE"), testDeps())
	require.NoError(t, err)

	assert.Equal(t, def.Mode, unknown.Mode)
	assert.Equal(t, def.ModelID, unknown.ModelID)
	assert.Equal(t, def.Instructions, unknown.Instructions)
	assert.Equal(t, def.SkillIDs, unknown.SkillIDs)
	assert.ElementsMatch(t, keys(def.Tools), keys(unknown.Tools))
}

func TestComposer_ConfirmIsIntersection(t *testing.T) {
	c := newTestComposer(t)

	// REVIEW allows no gated tools at all.
	review, err := c.GetConfiguration(context.Background(), core.ModeReview, testDeps())
	require.NoError(t, err)
	assert.Empty(t, review.Confirm)

	// EXAM allows update_task (gated) but not delete_task.
	exam, err := c.GetConfiguration(context.Background(), core.ModeExam, testDeps())
	require.NoError(t, err)
	assert.True(t, exam.Confirm[tool.UpdateTask])
	assert.NotContains(t, exam.Confirm, tool.DeleteTask)
	assert.NotContains(t, exam.Tools, tool.DeleteTask)

	// DEFAULT allows all four gated tools.
	def, err := c.GetConfiguration(context.Background(), core.ModeDefault, testDeps())
	require.NoError(t, err)
	assert.Len(t, def.Confirm, 4)
}

func TestComposer_GetModeConfigSkipsSkillLoads(t *testing.T) {
	lib := skill.NewLibrary(&failingSource{}, logging.NoOpLogger{})
	require.NoError(t, lib.Register(skill.DefaultSkills()...))
	reg, err := tool.NewDefaultRegistry(logging.NoOpLogger{})
	require.NoError(t, err)
	c := NewComposer(lib, reg, logging.NoOpLogger{})

	meta := c.GetModeConfig(core.ModeExam)
	assert.Equal(t, "Exam Coach", meta.DisplayName)
	assert.NotEmpty(t, meta.ModelID)

	metas := c.ListModes()
	assert.Len(t, metas, 4)
}

func TestComposer_InstructionCache(t *testing.T) {
	counting := &countingSource{inner: skill.DefaultSource()}
	lib := skill.NewLibrary(counting, logging.NoOpLogger{})
	require.NoError(t, lib.Register(skill.DefaultSkills()...))
	reg, err := tool.NewDefaultRegistry(logging.NoOpLogger{})
	require.NoError(t, err)
	c := NewComposer(lib, reg, logging.NoOpLogger{})

	_, err = c.GetConfiguration(context.Background(), core.ModeStudy, testDeps())
	require.NoError(t, err)
	first := counting.calls

	_, err = c.GetConfiguration(context.Background(), core.ModeStudy, testDeps())
	require.NoError(t, err)
	assert.Equal(t, first, counting.calls, "second configuration must not re-load skills")
}

// failingSource panics when touched; used to prove metadata paths never load.
type failingSource struct{}

func (failingSource) GetPrompt(context.Context, string) string {
	panic("metadata lookup must not load skill text")
}

type countingSource struct {
	inner *skill.StaticSource
	calls int
}

func (s *countingSource) GetPrompt(ctx context.Context, locator string) string {
	s.calls++
	return s.inner.GetPrompt(ctx, locator)
}

func keys(m map[string]tool.Tool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}
