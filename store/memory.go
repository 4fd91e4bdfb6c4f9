// Package store provides the in-memory academic data backend. It is a
// volatile, process-local implementation of the tool capability interfaces,
// safe for concurrent access and suited for tests and single-node demo
// deployments.
package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/studymesh/studymesh/core"
	"github.com/studymesh/studymesh/tool"
)

// ErrNotFound reports a lookup for an entity the user does not own or that
// does not exist; deliberately the same error for both so ids cannot be
// probed across users.
var ErrNotFound = fmt.Errorf("not found")

// InMemory holds every user's academic data in process-local maps. The
// capability interfaces are exposed through small per-entity adapters since
// they share method names with different signatures.
type InMemory struct {
	mu            sync.RWMutex
	tasks         map[string]map[string]tool.Task
	subjects      map[string][]tool.Subject
	terms         map[string][]tool.Term
	classes       map[string][]tool.Class
	notifications map[string]map[string]tool.Notification
	profiles      map[string]tool.Profile
}

// NewInMemory constructs an empty store.
func NewInMemory() *InMemory {
	return &InMemory{
		tasks:         make(map[string]map[string]tool.Task),
		subjects:      make(map[string][]tool.Subject),
		terms:         make(map[string][]tool.Term),
		classes:       make(map[string][]tool.Class),
		notifications: make(map[string]map[string]tool.Notification),
		profiles:      make(map[string]tool.Profile),
	}
}

// Deps bundles the store's capabilities for one caller. The identity travels
// separately through every method so a binding cannot leak across users.
func (s *InMemory) Deps(userID, orgID string) tool.Deps {
	return tool.Deps{
		UserID:        userID,
		OrgID:         orgID,
		Tasks:         taskAPI{s},
		Subjects:      subjectAPI{s},
		Terms:         termAPI{s},
		Classes:       classAPI{s},
		Notifications: notificationAPI{s},
		Profiles:      profileAPI{s},
	}
}

type taskAPI struct{ s *InMemory }

func (a taskAPI) Find(_ context.Context, userID string, filter tool.TaskFilter) ([]tool.Task, error) {
	a.s.mu.RLock()
	defer a.s.mu.RUnlock()
	out := []tool.Task{}
	for _, t := range a.s.tasks[userID] {
		if filter.SubjectID != "" && t.SubjectID != filter.SubjectID {
			continue
		}
		if filter.Completed != nil && t.Completed != *filter.Completed {
			continue
		}
		if filter.DueBefore != nil && (t.DueAt == nil || t.DueAt.After(*filter.DueBefore)) {
			continue
		}
		out = append(out, t)
	}
	return out, nil
}

func (a taskAPI) Create(_ context.Context, userID string, t tool.Task) (tool.Task, error) {
	a.s.mu.Lock()
	defer a.s.mu.Unlock()
	if t.ID == "" {
		t.ID = core.NewID()
	}
	if a.s.tasks[userID] == nil {
		a.s.tasks[userID] = make(map[string]tool.Task)
	}
	a.s.tasks[userID][t.ID] = t
	return t, nil
}

func (a taskAPI) Update(_ context.Context, userID, taskID string, u tool.TaskUpdate) (tool.Task, error) {
	a.s.mu.Lock()
	defer a.s.mu.Unlock()
	t, ok := a.s.tasks[userID][taskID]
	if !ok {
		return tool.Task{}, fmt.Errorf("task %s: %w", taskID, ErrNotFound)
	}
	if u.Title != nil {
		t.Title = *u.Title
	}
	if u.DueAt != nil {
		t.DueAt = u.DueAt
	}
	if u.Completed != nil {
		t.Completed = *u.Completed
	}
	if u.Notes != nil {
		t.Notes = *u.Notes
	}
	a.s.tasks[userID][taskID] = t
	return t, nil
}

func (a taskAPI) Delete(_ context.Context, userID, taskID string) error {
	a.s.mu.Lock()
	defer a.s.mu.Unlock()
	if _, ok := a.s.tasks[userID][taskID]; !ok {
		return fmt.Errorf("task %s: %w", taskID, ErrNotFound)
	}
	delete(a.s.tasks[userID], taskID)
	return nil
}

type subjectAPI struct{ s *InMemory }

func (a subjectAPI) Find(_ context.Context, userID string) ([]tool.Subject, error) {
	a.s.mu.RLock()
	defer a.s.mu.RUnlock()
	return append([]tool.Subject{}, a.s.subjects[userID]...), nil
}

type termAPI struct{ s *InMemory }

func (a termAPI) Find(_ context.Context, userID string) ([]tool.Term, error) {
	a.s.mu.RLock()
	defer a.s.mu.RUnlock()
	return append([]tool.Term{}, a.s.terms[userID]...), nil
}

type classAPI struct{ s *InMemory }

func (a classAPI) Find(_ context.Context, userID string, from, to time.Time) ([]tool.Class, error) {
	a.s.mu.RLock()
	defer a.s.mu.RUnlock()
	out := []tool.Class{}
	for _, c := range a.s.classes[userID] {
		if c.StartsAt.Before(from) || c.StartsAt.After(to) {
			continue
		}
		out = append(out, c)
	}
	return out, nil
}

type notificationAPI struct{ s *InMemory }

func (a notificationAPI) Find(_ context.Context, userID string) ([]tool.Notification, error) {
	a.s.mu.RLock()
	defer a.s.mu.RUnlock()
	out := []tool.Notification{}
	for _, n := range a.s.notifications[userID] {
		out = append(out, n)
	}
	return out, nil
}

func (a notificationAPI) Create(_ context.Context, userID string, n tool.Notification) (tool.Notification, error) {
	a.s.mu.Lock()
	defer a.s.mu.Unlock()
	if n.ID == "" {
		n.ID = core.NewID()
	}
	if a.s.notifications[userID] == nil {
		a.s.notifications[userID] = make(map[string]tool.Notification)
	}
	a.s.notifications[userID][n.ID] = n
	return n, nil
}

func (a notificationAPI) Delete(_ context.Context, userID, notificationID string) error {
	a.s.mu.Lock()
	defer a.s.mu.Unlock()
	if _, ok := a.s.notifications[userID][notificationID]; !ok {
		return fmt.Errorf("notification %s: %w", notificationID, ErrNotFound)
	}
	delete(a.s.notifications[userID], notificationID)
	return nil
}

type profileAPI struct{ s *InMemory }

func (a profileAPI) Get(_ context.Context, userID string) (tool.Profile, error) {
	a.s.mu.RLock()
	defer a.s.mu.RUnlock()
	if p, ok := a.s.profiles[userID]; ok {
		return p, nil
	}
	return tool.Profile{UserID: userID}, nil
}

func (a profileAPI) Update(_ context.Context, userID string, u tool.ProfileUpdate) (tool.Profile, error) {
	a.s.mu.Lock()
	defer a.s.mu.Unlock()
	p, ok := a.s.profiles[userID]
	if !ok {
		p = tool.Profile{UserID: userID}
	}
	if u.DisplayName != nil {
		p.DisplayName = *u.DisplayName
	}
	if len(u.Preferences) > 0 {
		if p.Preferences == nil {
			p.Preferences = make(map[string]string)
		}
		for k, v := range u.Preferences {
			p.Preferences[k] = v
		}
	}
	a.s.profiles[userID] = p
	return p, nil
}

// SeedSubjects replaces a user's subject list. Wiring helper for demo data.
func (s *InMemory) SeedSubjects(userID string, subjects []tool.Subject) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subjects[userID] = append([]tool.Subject(nil), subjects...)
}

// SeedTerms replaces a user's term list.
func (s *InMemory) SeedTerms(userID string, terms []tool.Term) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.terms[userID] = append([]tool.Term(nil), terms...)
}

// SeedClasses replaces a user's class schedule.
func (s *InMemory) SeedClasses(userID string, classes []tool.Class) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.classes[userID] = append([]tool.Class(nil), classes...)
}
