// Package mode builds the full per-mode agent configuration: composed
// instruction text from the skill library, the mode's bound tool set from
// the tool registry, the confirmation-required subset and the model
// selection.
package mode

import (
	"context"
	"sync"

	"github.com/studymesh/studymesh/core"
	"github.com/studymesh/studymesh/logging"
	"github.com/studymesh/studymesh/skill"
	"github.com/studymesh/studymesh/tool"
)

// Meta is the cheap per-mode metadata exposed for UI/listing use without
// touching the skill library.
type Meta struct {
	Mode        core.Mode `json:"mode"`
	DisplayName string    `json:"displayName"`
	ModelID     string    `json:"modelId"`
}

// Configuration is the full runtime configuration of one mode for one caller.
type Configuration struct {
	Mode         core.Mode
	DisplayName  string
	ModelID      string
	SkillIDs     []string
	Instructions string
	Tools        map[string]tool.Tool
	// Confirm is the subset of Tools requiring human approval: the
	// intersection of gated tools and the mode's allow-list.
	Confirm map[string]bool
}

// spec fixes a mode's metadata and skill composition.
type spec struct {
	displayName string
	modelID     string
	skillIDs    []string // mode-specific additions to the baseline
}

// baselineSkills are included in every mode's composition: the full base
// personality plus all tool-behavior conventions.
var baselineSkills = []string{skill.TutorPersona, skill.SafetyPersona, skill.ToolConduct, skill.ToolSafety}

var modeSpecs = map[core.Mode]spec{
	core.ModeDefault: {
		displayName: "Assistant",
		modelID:     "gpt-4o-mini",
		skillIDs:    []string{skill.DefaultConduct, skill.AcademicTerms},
	},
	core.ModeExam: {
		displayName: "Exam Coach",
		modelID:     "claude-3-5-sonnet-20241022",
		skillIDs:    []string{skill.ExamCoach, skill.AcademicTerms},
	},
	core.ModeStudy: {
		displayName: "Study Guide",
		modelID:     "gpt-4o",
		skillIDs:    []string{skill.StudyGuide, skill.AcademicTerms, skill.StudyMethods},
	},
	core.ModeReview: {
		displayName: "Review Planner",
		modelID:     "claude-3-5-haiku-20241022",
		skillIDs:    []string{skill.ReviewPlanner, skill.AcademicTerms},
	},
}

// Composer assembles mode configurations. Composed instruction text is
// cached per mode; tools are bound fresh per call since they close over the
// caller's capabilities.
type Composer struct {
	library  *skill.Library
	registry *tool.Registry
	logger   logging.Logger

	mu         sync.Mutex
	instrCache map[core.Mode]string
}

// NewComposer wires the composer to its collaborators.
func NewComposer(library *skill.Library, registry *tool.Registry, logger logging.Logger) *Composer {
	if logger == nil {
		logger = logging.NoOpLogger{}
	}
	return &Composer{
		library:    library,
		registry:   registry,
		logger:     logger,
		instrCache: make(map[core.Mode]string),
	}
}

// SkillIDs returns the ordered skill id list for a mode: the shared baseline
// plus the mode's own fragments. Unknown modes fall back to DEFAULT.
func SkillIDs(m core.Mode) []string {
	sp, ok := modeSpecs[m]
	if !ok {
		sp = modeSpecs[core.ModeDefault]
	}
	ids := make([]string, 0, len(baselineSkills)+len(sp.skillIDs))
	ids = append(ids, baselineSkills...)
	ids = append(ids, sp.skillIDs...)
	return ids
}

// GetModeConfig returns a mode's metadata without loading any skill text.
// Unknown modes map to the DEFAULT metadata.
func (c *Composer) GetModeConfig(m core.Mode) Meta {
	sp, ok := modeSpecs[m]
	if !ok {
		m = core.ModeDefault
		sp = modeSpecs[core.ModeDefault]
	}
	return Meta{Mode: m, DisplayName: sp.displayName, ModelID: sp.modelID}
}

// ListModes returns metadata for every defined mode in declaration order.
func (c *Composer) ListModes() []Meta {
	out := make([]Meta, 0, len(modeSpecs))
	for _, m := range core.Modes() {
		out = append(out, c.GetModeConfig(m))
	}
	return out
}

// GetConfiguration builds the full configuration for a mode and the given
// caller capabilities. An unrecognized mode value silently resolves to
// DEFAULT; that is the fallback policy, not an error. Composition failures
// (unknown skill ids) are configuration defects and propagate.
func (c *Composer) GetConfiguration(ctx context.Context, m core.Mode, deps tool.Deps) (*Configuration, error) {
	if _, ok := modeSpecs[m]; !ok {
		m = core.ModeDefault
	}
	sp := modeSpecs[m]
	ids := SkillIDs(m)

	instructions, err := c.composedInstructions(ctx, m, ids)
	if err != nil {
		return nil, err
	}

	tools := c.registry.ToolsForMode(m, deps)
	confirm := make(map[string]bool)
	for name := range tools {
		if c.registry.RequiresConfirmation(name) {
			confirm[name] = true
		}
	}

	return &Configuration{
		Mode:         m,
		DisplayName:  sp.displayName,
		ModelID:      sp.modelID,
		SkillIDs:     ids,
		Instructions: instructions,
		Tools:        tools,
		Confirm:      confirm,
	}, nil
}

func (c *Composer) composedInstructions(ctx context.Context, m core.Mode, ids []string) (string, error) {
	c.mu.Lock()
	cached, ok := c.instrCache[m]
	c.mu.Unlock()
	if ok {
		return cached, nil
	}

	text, err := c.library.Compose(ctx, ids)
	if err != nil {
		return "", err
	}

	c.mu.Lock()
	c.instrCache[m] = text
	c.mu.Unlock()
	c.logger.Debug("mode.instructions.composed", "mode", m.String(), "skills", len(ids), "bytes", len(text))
	return text, nil
}

// InvalidateInstructions drops the composed text cache, forcing the next
// GetConfiguration to re-compose. Pairs with skill.Library.ClearCache.
func (c *Composer) InvalidateInstructions() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.instrCache = make(map[core.Mode]string)
}
