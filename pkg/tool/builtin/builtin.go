// Copyright 2026 © The Valet Authors
// SPDX-License-Identifier: Apache-2.0

// Package builtin provides the stock tool set backed by the assistant's
// store and notifier. Tools are bound to a user at registration time so
// the model never chooses whose data it touches.
package builtin

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/valetd/valet/pkg/core"
	"github.com/valetd/valet/pkg/notify"
	"github.com/valetd/valet/pkg/storage"
	"github.com/valetd/valet/pkg/tool"
)

// Register adds every builtin tool for userID to the registry. The push
// tool is registered only when notifier is non-nil.
func Register(reg *tool.Registry, store storage.Store, notifier notify.Notifier, userID string) error {
	tools := []tool.Tool{
		GetTasks(store, userID),
		CreateTask(store, userID),
		CompleteTask(store, userID),
		GetProjects(store, userID),
		GetHabitsDue(store, userID),
		LogHabit(store, userID),
		SavePreference(store, userID),
	}
	if notifier != nil {
		tools = append(tools, SendPush(notifier, userID))
	}
	for _, t := range tools {
		if err := reg.Register(t); err != nil {
			return err
		}
	}
	return nil
}

// GetTasks lists the user's tasks, open by default.
func GetTasks(store storage.Store, userID string) tool.Tool {
	return tool.NewFunc(tool.Descriptor{
		Name:        "get_tasks",
		Description: "List the user's tasks. Open tasks only unless include_done is set.",
		ReadOnly:    true,
		Parameters: []tool.Parameter{
			{Name: "include_done", Type: "boolean", Description: "Include completed tasks"},
		},
	}, func(ctx context.Context, args map[string]any) (any, error) {
		tasks, err := store.GetTasks(ctx, userID, boolArg(args, "include_done"))
		if err != nil {
			return nil, err
		}
		return map[string]any{"tasks": tasks, "count": len(tasks)}, nil
	})
}

// CreateTask records a new task for the user.
func CreateTask(store storage.Store, userID string) tool.Tool {
	return tool.NewFunc(tool.Descriptor{
		Name:        "create_task",
		Description: "Create a new task with a title, optional notes, project, priority, and due date.",
		Parameters: []tool.Parameter{
			{Name: "title", Type: "string", Description: "Short task title", Required: true},
			{Name: "notes", Type: "string", Description: "Extra detail"},
			{Name: "project_id", Type: "string", Description: "Project to file the task under"},
			{Name: "priority", Type: "string", Enum: []string{"low", "normal", "high"}},
			{Name: "due_at", Type: "string", Description: "Due date in RFC 3339"},
		},
	}, func(ctx context.Context, args map[string]any) (any, error) {
		task := core.Task{
			ID:        uuid.NewString(),
			UserID:    userID,
			Title:     strings.TrimSpace(stringArg(args, "title")),
			Notes:     stringArg(args, "notes"),
			ProjectID: stringArg(args, "project_id"),
			Priority:  parsePriority(stringArg(args, "priority")),
			CreatedAt: time.Now().UTC(),
		}
		if task.Title == "" {
			return nil, fmt.Errorf("title must not be blank")
		}
		if raw := stringArg(args, "due_at"); raw != "" {
			due, err := time.Parse(time.RFC3339, raw)
			if err != nil {
				return nil, fmt.Errorf("due_at is not RFC 3339: %w", err)
			}
			task.DueAt = &due
		}
		created, err := store.CreateTask(ctx, task)
		if err != nil {
			return nil, err
		}
		return created, nil
	})
}

// CompleteTask marks a task done by ID.
func CompleteTask(store storage.Store, userID string) tool.Tool {
	return tool.NewFunc(tool.Descriptor{
		Name:        "complete_task",
		Description: "Mark a task as done.",
		Parameters: []tool.Parameter{
			{Name: "task_id", Type: "string", Description: "ID of the task to complete", Required: true},
		},
	}, func(ctx context.Context, args map[string]any) (any, error) {
		id := stringArg(args, "task_id")
		if err := store.CompleteTask(ctx, userID, id); err != nil {
			return nil, err
		}
		return map[string]any{"task_id": id, "done": true}, nil
	})
}

// GetProjects lists the user's projects.
func GetProjects(store storage.Store, userID string) tool.Tool {
	return tool.NewFunc(tool.Descriptor{
		Name:        "get_projects",
		Description: "List the user's projects and their status.",
		ReadOnly:    true,
	}, func(ctx context.Context, args map[string]any) (any, error) {
		projects, err := store.GetProjects(ctx, userID)
		if err != nil {
			return nil, err
		}
		return map[string]any{"projects": projects, "count": len(projects)}, nil
	})
}

// GetHabitsDue lists habits still due today.
func GetHabitsDue(store storage.Store, userID string) tool.Tool {
	return tool.NewFunc(tool.Descriptor{
		Name:        "get_habits_due",
		Description: "List the habits the user has not done yet today.",
		ReadOnly:    true,
	}, func(ctx context.Context, args map[string]any) (any, error) {
		habits, err := store.GetHabitsDueToday(ctx, userID, time.Now())
		if err != nil {
			return nil, err
		}
		return map[string]any{"habits": habits, "count": len(habits)}, nil
	})
}

// LogHabit records a habit completion for today.
func LogHabit(store storage.Store, userID string) tool.Tool {
	return tool.NewFunc(tool.Descriptor{
		Name:        "log_habit",
		Description: "Record that the user completed a habit today.",
		Parameters: []tool.Parameter{
			{Name: "habit_id", Type: "string", Description: "ID of the habit", Required: true},
		},
	}, func(ctx context.Context, args map[string]any) (any, error) {
		id := stringArg(args, "habit_id")
		if err := store.LogHabit(ctx, userID, id, time.Now()); err != nil {
			return nil, err
		}
		return map[string]any{"habit_id": id, "logged": true}, nil
	})
}

// SavePreference stores a durable key/value fact about the user.
func SavePreference(store storage.Store, userID string) tool.Tool {
	return tool.NewFunc(tool.Descriptor{
		Name:        "save_preference",
		Description: "Save a lasting preference or fact about the user as a key/value pair.",
		Parameters: []tool.Parameter{
			{Name: "key", Type: "string", Description: "Short snake_case key", Required: true},
			{Name: "value", Type: "string", Description: "The preference value", Required: true},
		},
	}, func(ctx context.Context, args map[string]any) (any, error) {
		key := strings.TrimSpace(stringArg(args, "key"))
		value := strings.TrimSpace(stringArg(args, "value"))
		if key == "" || value == "" {
			return nil, fmt.Errorf("key and value must not be blank")
		}
		if err := store.SavePreference(ctx, userID, key, value); err != nil {
			return nil, err
		}
		return map[string]any{"key": key, "saved": true}, nil
	})
}

// SendPush delivers a push notification to the user's device.
func SendPush(notifier notify.Notifier, userID string) tool.Tool {
	return tool.NewFunc(tool.Descriptor{
		Name:        "send_push",
		Description: "Send a push notification to the user's phone.",
		Parameters: []tool.Parameter{
			{Name: "title", Type: "string", Description: "Notification title", Required: true},
			{Name: "message", Type: "string", Description: "Notification body", Required: true},
		},
	}, func(ctx context.Context, args map[string]any) (any, error) {
		title := stringArg(args, "title")
		message := stringArg(args, "message")
		if err := notifier.Push(ctx, userID, title, message); err != nil {
			return nil, err
		}
		return map[string]any{"delivered": true}, nil
	})
}

func stringArg(args map[string]any, name string) string {
	s, _ := args[name].(string)
	return s
}

func boolArg(args map[string]any, name string) bool {
	b, _ := args[name].(bool)
	return b
}

func parsePriority(s string) core.Priority {
	switch core.Priority(strings.ToLower(s)) {
	case core.PriorityLow:
		return core.PriorityLow
	case core.PriorityHigh:
		return core.PriorityHigh
	default:
		return core.PriorityNormal
	}
}
