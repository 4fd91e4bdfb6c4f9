package tool

import (
	"context"
	"time"

	"github.com/studymesh/studymesh/logging"
)

// Deps carries the per-call capabilities a tool binding closes over: the
// caller's identity and the user-scoped data access interfaces. Every store
// method takes the user id explicitly so a bound tool can never be redirected
// to another user's data.
type Deps struct {
	UserID string
	OrgID  string

	Tasks         TaskStore
	Subjects      SubjectStore
	Terms         TermStore
	Classes       ClassStore
	Notifications NotificationStore
	Profiles      ProfileStore

	Logger logging.Logger
}

// Task is an actionable item (homework, reading, exam prep) owned by a user.
type Task struct {
	ID        string     `json:"id"`
	Title     string     `json:"title"`
	SubjectID string     `json:"subjectId,omitempty"`
	DueAt     *time.Time `json:"dueAt,omitempty"`
	Completed bool       `json:"completed"`
	Notes     string     `json:"notes,omitempty"`
}

// TaskUpdate carries optional task field changes; nil means "leave as is".
type TaskUpdate struct {
	Title     *string    `json:"title,omitempty"`
	DueAt     *time.Time `json:"dueAt,omitempty"`
	Completed *bool      `json:"completed,omitempty"`
	Notes     *string    `json:"notes,omitempty"`
}

// TaskFilter narrows task lookups.
type TaskFilter struct {
	SubjectID string
	Completed *bool
	DueBefore *time.Time
}

// Subject is a course of study within a term.
type Subject struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	TermID string `json:"termId,omitempty"`
}

// Term is an academic period (semester, quarter).
type Term struct {
	ID    string    `json:"id"`
	Name  string    `json:"name"`
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Class is a scheduled meeting of a subject.
type Class struct {
	ID        string    `json:"id"`
	SubjectID string    `json:"subjectId"`
	StartsAt  time.Time `json:"startsAt"`
	EndsAt    time.Time `json:"endsAt"`
	Location  string    `json:"location,omitempty"`
}

// Notification is a message surfaced to the student outside the chat.
type Notification struct {
	ID        string     `json:"id"`
	Title     string     `json:"title"`
	Body      string     `json:"body,omitempty"`
	CreatedAt time.Time  `json:"createdAt"`
	ReadAt    *time.Time `json:"readAt,omitempty"`
}

// Profile is the student's account profile.
type Profile struct {
	UserID      string            `json:"userId"`
	DisplayName string            `json:"displayName"`
	Preferences map[string]string `json:"preferences,omitempty"`
}

// ProfileUpdate carries optional profile changes; nil means "leave as is".
type ProfileUpdate struct {
	DisplayName *string           `json:"displayName,omitempty"`
	Preferences map[string]string `json:"preferences,omitempty"`
}

// TaskStore is the CRUD capability over tasks, scoped by user id.
type TaskStore interface {
	Find(ctx context.Context, userID string, filter TaskFilter) ([]Task, error)
	Create(ctx context.Context, userID string, t Task) (Task, error)
	Update(ctx context.Context, userID, taskID string, u TaskUpdate) (Task, error)
	Delete(ctx context.Context, userID, taskID string) error
}

// SubjectStore lists a user's subjects.
type SubjectStore interface {
	Find(ctx context.Context, userID string) ([]Subject, error)
}

// TermStore lists a user's academic terms.
type TermStore interface {
	Find(ctx context.Context, userID string) ([]Term, error)
}

// ClassStore looks up a user's scheduled classes in a time window.
type ClassStore interface {
	Find(ctx context.Context, userID string, from, to time.Time) ([]Class, error)
}

// NotificationStore is the CRUD capability over notifications.
type NotificationStore interface {
	Find(ctx context.Context, userID string) ([]Notification, error)
	Create(ctx context.Context, userID string, n Notification) (Notification, error)
	Delete(ctx context.Context, userID, notificationID string) error
}

// ProfileStore reads and updates the student's profile.
type ProfileStore interface {
	Get(ctx context.Context, userID string) (Profile, error)
	Update(ctx context.Context, userID string, u ProfileUpdate) (Profile, error)
}
