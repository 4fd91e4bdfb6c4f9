// Package skill implements the instruction fragment library: named,
// categorized pieces of model instructions that the mode composer assembles
// into a per-mode system prompt. Fragment text is loaded lazily from a
// Source and memoized for the process lifetime until ClearCache.
package skill

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// Category classifies a skill fragment. The composition order of categories
// is fixed (see composeOrder); within a category the caller-supplied id order
// is preserved.
type Category int

const (
	// CategoryPersonality holds the assistant's base persona fragments.
	CategoryPersonality Category = iota
	// CategoryMode holds mode-specific behavior fragments.
	CategoryMode
	// CategoryKnowledge holds academic domain knowledge fragments.
	CategoryKnowledge
	// CategoryTool holds tool usage convention fragments.
	CategoryTool
)

// composeOrder is the fixed total order categories appear in composed output.
var composeOrder = []Category{CategoryPersonality, CategoryMode, CategoryKnowledge, CategoryTool}

// String returns the category's name.
func (c Category) String() string {
	switch c {
	case CategoryPersonality:
		return "personality"
	case CategoryMode:
		return "mode-behavior"
	case CategoryKnowledge:
		return "domain-knowledge"
	case CategoryTool:
		return "tool-behavior"
	default:
		return "unknown"
	}
}

// Skill identifies one instruction fragment: a unique id resolving to exactly
// one category and one content locator.
type Skill struct {
	ID       string
	Category Category
	Locator  string // passed verbatim to the Source
}

// UnknownSkillError is returned when an id was never registered. It marks a
// configuration defect, never a user input problem.
type UnknownSkillError struct {
	ID string
}

func (e *UnknownSkillError) Error() string {
	return fmt.Sprintf("unknown skill: %s", e.ID)
}

// Source supplies fragment text for a locator. Implementations must degrade
// gracefully: when an asset is unavailable they return a baked-in default
// string instead of an error, so the agent keeps working with reduced
// instructions rather than crashing.
type Source interface {
	GetPrompt(ctx context.Context, locator string) string
}

// FileSource reads fragment text from files under a root directory, falling
// back to the given default text when a file is missing or unreadable.
type FileSource struct {
	Root     string
	Fallback string
}

// GetPrompt implements Source.
func (s *FileSource) GetPrompt(_ context.Context, locator string) string {
	raw, err := os.ReadFile(filepath.Join(s.Root, filepath.Clean(locator)))
	if err != nil {
		return s.Fallback
	}
	return string(raw)
}

// StaticSource serves fragments from an in-memory map. Locators without an
// entry yield the fallback. Used in tests and as the built-in default corpus.
type StaticSource struct {
	Prompts  map[string]string
	Fallback string
}

// GetPrompt implements Source.
func (s *StaticSource) GetPrompt(_ context.Context, locator string) string {
	if text, ok := s.Prompts[locator]; ok {
		return text
	}
	return s.Fallback
}
