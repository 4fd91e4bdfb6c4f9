package tool

import (
	"context"
	"fmt"
	"time"

	"github.com/studymesh/studymesh/core"
)

// Built-in tool names.
const (
	ListTasks          = "list_tasks"
	CreateTask         = "create_task"
	UpdateTask         = "update_task"
	DeleteTask         = "delete_task"
	GetSchedule        = "get_schedule"
	ListSubjects       = "list_subjects"
	ListTerms          = "list_terms"
	CreateNotification = "create_notification"
	DeleteNotification = "delete_notification"
	GetProfile         = "get_profile"
	UpdateProfile      = "update_profile"
)

// AcademicModeTools is the mode allow-list for the built-in tool set.
// ModeDefault gets everything; the presets narrow it to what fits their
// behavior (REVIEW is read-only).
func AcademicModeTools() map[core.Mode][]string {
	return map[core.Mode][]string{
		core.ModeDefault: {
			ListTasks, CreateTask, UpdateTask, DeleteTask,
			GetSchedule, ListSubjects, ListTerms,
			CreateNotification, DeleteNotification,
			GetProfile, UpdateProfile,
		},
		core.ModeExam: {
			ListTasks, CreateTask, UpdateTask,
			GetSchedule, ListSubjects, CreateNotification,
		},
		core.ModeStudy: {
			ListTasks, CreateTask, UpdateTask,
			GetSchedule, ListSubjects, GetProfile,
		},
		core.ModeReview: {
			ListTasks, GetSchedule, ListSubjects, ListTerms, GetProfile,
		},
	}
}

// AcademicDefinitions declares the built-in academic tool set. Destructive
// operations (updates and deletes) are gated; reads and additive writes run
// automatically.
func AcademicDefinitions() []Definition {
	return []Definition{
		{
			Name:        ListTasks,
			Description: "List the student's tasks, optionally filtered by subject or completion state.",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"subjectId": map[string]any{"type": "string", "description": "Restrict to one subject"},
					"completed": map[string]any{"type": "boolean", "description": "Filter by completion state"},
				},
			},
			Bind: func(deps Deps) ExecFunc {
				return func(ctx context.Context, args map[string]any) (any, error) {
					filter := TaskFilter{}
					if v, ok := args["subjectId"].(string); ok {
						filter.SubjectID = v
					}
					if v, ok := args["completed"].(bool); ok {
						filter.Completed = &v
					}
					return deps.Tasks.Find(ctx, deps.UserID, filter)
				}
			},
		},
		{
			Name:        CreateTask,
			Description: "Create a new task for the student.",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"title":     map[string]any{"type": "string", "description": "Short task title"},
					"subjectId": map[string]any{"type": "string", "description": "Owning subject id"},
					"dueAt":     map[string]any{"type": "string", "description": "Due date, RFC 3339"},
					"notes":     map[string]any{"type": "string", "description": "Free-form notes"},
				},
				"required": []string{"title"},
			},
			Bind: func(deps Deps) ExecFunc {
				return func(ctx context.Context, args map[string]any) (any, error) {
					t := Task{Title: args["title"].(string)}
					if v, ok := args["subjectId"].(string); ok {
						t.SubjectID = v
					}
					if v, ok := args["notes"].(string); ok {
						t.Notes = v
					}
					if v, ok := args["dueAt"].(string); ok && v != "" {
						due, err := time.Parse(time.RFC3339, v)
						if err != nil {
							return nil, fmt.Errorf("invalid dueAt %q: %w", v, err)
						}
						t.DueAt = &due
					}
					return deps.Tasks.Create(ctx, deps.UserID, t)
				}
			},
		},
		{
			Name:        UpdateTask,
			Description: "Change an existing task's title, due date, notes or completion state.",
			Gated:       true,
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"taskId":    map[string]any{"type": "string", "description": "Task to change"},
					"title":     map[string]any{"type": "string"},
					"dueAt":     map[string]any{"type": "string", "description": "New due date, RFC 3339"},
					"completed": map[string]any{"type": "boolean"},
					"notes":     map[string]any{"type": "string"},
				},
				"required": []string{"taskId"},
			},
			Bind: func(deps Deps) ExecFunc {
				return func(ctx context.Context, args map[string]any) (any, error) {
					u := TaskUpdate{}
					if v, ok := args["title"].(string); ok {
						u.Title = &v
					}
					if v, ok := args["completed"].(bool); ok {
						u.Completed = &v
					}
					if v, ok := args["notes"].(string); ok {
						u.Notes = &v
					}
					if v, ok := args["dueAt"].(string); ok && v != "" {
						due, err := time.Parse(time.RFC3339, v)
						if err != nil {
							return nil, fmt.Errorf("invalid dueAt %q: %w", v, err)
						}
						u.DueAt = &due
					}
					return deps.Tasks.Update(ctx, deps.UserID, args["taskId"].(string), u)
				}
			},
		},
		{
			Name:        DeleteTask,
			Description: "Permanently delete one of the student's tasks.",
			Gated:       true,
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"taskId": map[string]any{"type": "string", "description": "Task to delete"},
				},
				"required": []string{"taskId"},
			},
			Bind: func(deps Deps) ExecFunc {
				return func(ctx context.Context, args map[string]any) (any, error) {
					id := args["taskId"].(string)
					if err := deps.Tasks.Delete(ctx, deps.UserID, id); err != nil {
						return nil, err
					}
					return map[string]any{"deleted": id}, nil
				}
			},
		},
		{
			Name:        GetSchedule,
			Description: "Get the student's scheduled classes in a date range.",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"from": map[string]any{"type": "string", "description": "Range start, RFC 3339"},
					"to":   map[string]any{"type": "string", "description": "Range end, RFC 3339"},
				},
				"required": []string{"from", "to"},
			},
			Bind: func(deps Deps) ExecFunc {
				return func(ctx context.Context, args map[string]any) (any, error) {
					from, err := time.Parse(time.RFC3339, args["from"].(string))
					if err != nil {
						return nil, fmt.Errorf("invalid from: %w", err)
					}
					to, err := time.Parse(time.RFC3339, args["to"].(string))
					if err != nil {
						return nil, fmt.Errorf("invalid to: %w", err)
					}
					return deps.Classes.Find(ctx, deps.UserID, from, to)
				}
			},
		},
		{
			Name:        ListSubjects,
			Description: "List the student's subjects.",
			Parameters:  map[string]any{"type": "object", "properties": map[string]any{}},
			Bind: func(deps Deps) ExecFunc {
				return func(ctx context.Context, _ map[string]any) (any, error) {
					return deps.Subjects.Find(ctx, deps.UserID)
				}
			},
		},
		{
			Name:        ListTerms,
			Description: "List the student's academic terms.",
			Parameters:  map[string]any{"type": "object", "properties": map[string]any{}},
			Bind: func(deps Deps) ExecFunc {
				return func(ctx context.Context, _ map[string]any) (any, error) {
					return deps.Terms.Find(ctx, deps.UserID)
				}
			},
		},
		{
			Name:        CreateNotification,
			Description: "Create a reminder notification for the student.",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"title": map[string]any{"type": "string", "description": "Notification title"},
					"body":  map[string]any{"type": "string", "description": "Notification body"},
				},
				"required": []string{"title"},
			},
			Bind: func(deps Deps) ExecFunc {
				return func(ctx context.Context, args map[string]any) (any, error) {
					n := Notification{Title: args["title"].(string), CreatedAt: time.Now().UTC()}
					if v, ok := args["body"].(string); ok {
						n.Body = v
					}
					return deps.Notifications.Create(ctx, deps.UserID, n)
				}
			},
		},
		{
			Name:        DeleteNotification,
			Description: "Permanently delete one of the student's notifications.",
			Gated:       true,
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"notificationId": map[string]any{"type": "string", "description": "Notification to delete"},
				},
				"required": []string{"notificationId"},
			},
			Bind: func(deps Deps) ExecFunc {
				return func(ctx context.Context, args map[string]any) (any, error) {
					id := args["notificationId"].(string)
					if err := deps.Notifications.Delete(ctx, deps.UserID, id); err != nil {
						return nil, err
					}
					return map[string]any{"deleted": id}, nil
				}
			},
		},
		{
			Name:        GetProfile,
			Description: "Get the student's profile and preferences.",
			Parameters:  map[string]any{"type": "object", "properties": map[string]any{}},
			Bind: func(deps Deps) ExecFunc {
				return func(ctx context.Context, _ map[string]any) (any, error) {
					return deps.Profiles.Get(ctx, deps.UserID)
				}
			},
		},
		{
			Name:        UpdateProfile,
			Description: "Change the student's display name or preferences.",
			Gated:       true,
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"displayName": map[string]any{"type": "string"},
					"preferences": map[string]any{"type": "object", "description": "Preference key/value pairs"},
				},
			},
			Bind: func(deps Deps) ExecFunc {
				return func(ctx context.Context, args map[string]any) (any, error) {
					u := ProfileUpdate{}
					if v, ok := args["displayName"].(string); ok {
						u.DisplayName = &v
					}
					if prefs, ok := args["preferences"].(map[string]any); ok {
						u.Preferences = make(map[string]string, len(prefs))
						for k, v := range prefs {
							u.Preferences[k] = fmt.Sprintf("%v", v)
						}
					}
					return deps.Profiles.Update(ctx, deps.UserID, u)
				}
			},
		},
	}
}
