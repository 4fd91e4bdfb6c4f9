package core

import "strings"

// Mode is a named behavioral preset selecting an instruction composition,
// model and tool allow-list. The set is closed; anything a client sends that
// is not recognized maps to ModeDefault via NormalizeMode.
type Mode int

const (
	// ModeDefault is the general tutoring preset and the universal fallback.
	ModeDefault Mode = iota
	// ModeExam is the exam-preparation preset.
	ModeExam
	// ModeStudy is the deep-study preset.
	ModeStudy
	// ModeReview is the read-mostly revision preset.
	ModeReview
)

// String returns the canonical uppercase name of the mode.
func (m Mode) String() string {
	switch m {
	case ModeExam:
		return "EXAM"
	case ModeStudy:
		return "STUDY"
	case ModeReview:
		return "REVIEW"
	default:
		return "DEFAULT"
	}
}

// Modes lists every defined mode in declaration order.
func Modes() []Mode {
	return []Mode{ModeDefault, ModeExam, ModeStudy, ModeReview}
}

// NormalizeMode maps a raw client-supplied string onto the closed Mode set.
// The mapping is total: unrecognized or empty input yields ModeDefault. This
// is the single place the fallback policy lives; callers must not add their
// own defaulting.
func NormalizeMode(raw string) Mode {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "EXAM":
		return ModeExam
	case "STUDY":
		return ModeStudy
	case "REVIEW":
		return ModeReview
	default:
		return ModeDefault
	}
}
