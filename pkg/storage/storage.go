// Copyright 2026 © The Valet Authors
// SPDX-License-Identifier: Apache-2.0

// Package storage defines the persistence collaborator the assistant
// core consumes. The core owns no schema; implementations define their
// own consistency mechanism (e.g. row-level upsert for preferences).
package storage

import (
	"context"
	"time"

	"github.com/valetd/valet/pkg/core"
)

// Store is the narrow persistence contract consumed by the orchestrator
// and the capability modules.
type Store interface {
	GetUserProfile(ctx context.Context, userID string) (core.UserProfile, error)
	GetPreferences(ctx context.Context, userID string) (map[string]string, error)
	SavePreference(ctx context.Context, userID, key, value string) error

	GetChatHistory(ctx context.Context, userID string, limit int) ([]core.ChatMessage, error)
	SaveChat(ctx context.Context, msg core.ChatMessage) error

	GetTasks(ctx context.Context, userID string, includeDone bool) ([]core.Task, error)
	CreateTask(ctx context.Context, task core.Task) (core.Task, error)
	CompleteTask(ctx context.Context, userID, taskID string) error

	GetProjects(ctx context.Context, userID string) ([]core.Project, error)
	CreateProject(ctx context.Context, project core.Project) (core.Project, error)

	GetHabitsDueToday(ctx context.Context, userID string, now time.Time) ([]core.Habit, error)
	LogHabit(ctx context.Context, userID, habitID string, when time.Time) error

	GetEntities(ctx context.Context, userID string) ([]core.Entity, error)
	SaveEntity(ctx context.Context, entity core.Entity) error
}
