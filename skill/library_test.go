package skill

import (
	"context"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/studymesh/studymesh/logging"
)

// countingSource records how many times each locator was fetched.
type countingSource struct {
	prompts map[string]string
	calls   atomic.Int64
}

func (s *countingSource) GetPrompt(_ context.Context, locator string) string {
	s.calls.Add(1)
	if text, ok := s.prompts[locator]; ok {
		return text
	}
	return "fallback"
}

func newTestLibrary(t *testing.T) (*Library, *countingSource) {
	t.Helper()
	src := &countingSource{prompts: map[string]string{
		"p1.md": "persona one",
		"p2.md": "persona two",
		"m1.md": "mode one",
		"k1.md": "knowledge one",
		"t1.md": "tool one",
	}}
	lib := NewLibrary(src, logging.NoOpLogger{})
	require.NoError(t, lib.Register(
		Skill{ID: "p1", Category: CategoryPersonality, Locator: "p1.md"},
		Skill{ID: "p2", Category: CategoryPersonality, Locator: "p2.md"},
		Skill{ID: "m1", Category: CategoryMode, Locator: "m1.md"},
		Skill{ID: "k1", Category: CategoryKnowledge, Locator: "k1.md"},
		Skill{ID: "t1", Category: CategoryTool, Locator: "t1.md"},
	))
	return lib, src
}

func TestLibrary_LoadMemoizes(t *testing.T) {
	lib, src := newTestLibrary(t)
	ctx := context.Background()

	text, err := lib.Load(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, "persona one", text)

	_, err = lib.Load(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), src.calls.Load())

	lib.ClearCache()
	_, err = lib.Load(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), src.calls.Load())
}

func TestLibrary_LoadUnknownSkill(t *testing.T) {
	lib, _ := newTestLibrary(t)
	_, err := lib.Load(context.Background(), "nope")
	var unknown *UnknownSkillError
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, "nope", unknown.ID)
}

func TestLibrary_ComposeEmpty(t *testing.T) {
	lib, src := newTestLibrary(t)
	text, err := lib.Compose(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, text)
	assert.Equal(t, int64(0), src.calls.Load())
}

func TestLibrary_ComposeGroupsByCategory(t *testing.T) {
	lib, _ := newTestLibrary(t)

	// Interleave categories; output must regroup them in fixed category order
	// while keeping caller order within each category.
	text, err := lib.Compose(context.Background(), []string{"t1", "p1", "k1", "p2", "m1"})
	require.NoError(t, err)

	sections := strings.Split(text, CategorySeparator)
	require.Len(t, sections, 4)
	assert.Equal(t, "persona one\n\npersona two", sections[0])
	assert.Equal(t, "mode one", sections[1])
	assert.Equal(t, "knowledge one", sections[2])
	assert.Equal(t, "tool one", sections[3])

	// Each fragment appears exactly once.
	for _, frag := range []string{"persona one", "persona two", "mode one", "knowledge one", "tool one"} {
		assert.Equal(t, 1, strings.Count(text, frag), "fragment %q", frag)
	}
}

func TestLibrary_ComposeUnknownIDFailsWhole(t *testing.T) {
	lib, _ := newTestLibrary(t)
	_, err := lib.Compose(context.Background(), []string{"p1", "ghost"})
	var unknown *UnknownSkillError
	require.ErrorAs(t, err, &unknown)
}

func TestLibrary_RegisterConflict(t *testing.T) {
	lib, _ := newTestLibrary(t)
	err := lib.Register(Skill{ID: "p1", Category: CategoryTool, Locator: "other.md"})
	assert.Error(t, err)
}

func TestDefaultSourceFallsBack(t *testing.T) {
	src := DefaultSource()
	assert.Equal(t, FallbackPrompt, src.GetPrompt(context.Background(), "missing/asset.md"))
	assert.NotEqual(t, FallbackPrompt, src.GetPrompt(context.Background(), "tools/safety.md"))
}

func TestFileSourceFallsBack(t *testing.T) {
	src := &FileSource{Root: t.TempDir(), Fallback: "default text"}
	assert.Equal(t, "default text", src.GetPrompt(context.Background(), "absent.md"))
}
