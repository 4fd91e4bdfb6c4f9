package skill

// Built-in skill corpus. Deployments normally point a FileSource at a prompt
// asset directory; the texts below double as the baked-in fallback corpus so
// the agent degrades instead of crashing when assets are unavailable.

// Registered skill ids. The mode composer refers to these, so they are
// exported constants rather than loose strings.
const (
	TutorPersona   = "tutor-persona"
	SafetyPersona  = "safety-persona"
	DefaultConduct = "default-conduct"
	ExamCoach      = "exam-coach"
	StudyGuide     = "study-guide"
	ReviewPlanner  = "review-planner"
	AcademicTerms  = "academic-terms"
	StudyMethods   = "study-methods"
	ToolConduct    = "tool-conduct"
	ToolSafety     = "tool-safety"
)

// FallbackPrompt is returned by sources when an asset cannot be read.
const FallbackPrompt = "You are a helpful academic assistant. Be concise and accurate."

var defaultPrompts = map[string]string{
	"personality/tutor_persona.md": "You are StudyMesh, a patient academic tutor. " +
		"You explain concepts step by step, ask clarifying questions before assuming, " +
		"and adapt your level to the student's responses.",
	"personality/safety.md": "Never fabricate grades, deadlines or schedule entries. " +
		"When you are unsure about the student's data, look it up with a tool instead of guessing.",
	"modes/default.md": "Help the student with whatever they bring up: coursework, planning, " +
		"organization or quick questions about their classes.",
	"modes/exam_coach.md": "The student is preparing for an exam. Quiz them actively, " +
		"identify weak areas, and build short focused practice plans around upcoming deadlines.",
	"modes/study_guide.md": "The student is in a deep study session. Favor long-form explanations, " +
		"worked examples, and connections between topics over quick answers.",
	"modes/review_planner.md": "The student is revising past material. Summarize, build recap " +
		"schedules from their term calendar, and avoid introducing new topics unprompted.",
	"knowledge/academic_terms.md": "Terms contain subjects; subjects contain classes and tasks. " +
		"Tasks have due dates and completion state. Notifications alert the student to changes.",
	"knowledge/study_methods.md": "Prefer evidence-based techniques: spaced repetition, " +
		"active recall, interleaving. Suggest them where they fit the student's situation.",
	"tools/conduct.md": "Use tools to read or change the student's academic data. " +
		"Report what a tool returned instead of inventing results. Pass ids exactly as retrieved.",
	"tools/safety.md": "Destructive changes (updating or deleting tasks, notifications or the " +
		"profile) require the student's explicit approval before they run. Tell the student what " +
		"will change and wait for their decision.",
}

// DefaultSkills returns the built-in skill registrations.
func DefaultSkills() []Skill {
	return []Skill{
		{ID: TutorPersona, Category: CategoryPersonality, Locator: "personality/tutor_persona.md"},
		{ID: SafetyPersona, Category: CategoryPersonality, Locator: "personality/safety.md"},
		{ID: DefaultConduct, Category: CategoryMode, Locator: "modes/default.md"},
		{ID: ExamCoach, Category: CategoryMode, Locator: "modes/exam_coach.md"},
		{ID: StudyGuide, Category: CategoryMode, Locator: "modes/study_guide.md"},
		{ID: ReviewPlanner, Category: CategoryMode, Locator: "modes/review_planner.md"},
		{ID: AcademicTerms, Category: CategoryKnowledge, Locator: "knowledge/academic_terms.md"},
		{ID: StudyMethods, Category: CategoryKnowledge, Locator: "knowledge/study_methods.md"},
		{ID: ToolConduct, Category: CategoryTool, Locator: "tools/conduct.md"},
		{ID: ToolSafety, Category: CategoryTool, Locator: "tools/safety.md"},
	}
}

// DefaultSource serves the baked-in corpus from memory.
func DefaultSource() *StaticSource {
	return &StaticSource{Prompts: defaultPrompts, Fallback: FallbackPrompt}
}
