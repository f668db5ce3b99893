// Copyright 2026 © The Valet Authors
// SPDX-License-Identifier: Apache-2.0

package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/valetd/valet/pkg/core"

	_ "modernc.org/sqlite"
)

const (
	profileTable    = "valet_profiles"
	preferenceTable = "valet_preferences"
	chatTable       = "valet_chat"
	taskTable       = "valet_tasks"
	projectTable    = "valet_projects"
	habitTable      = "valet_habits"
	entityTable     = "valet_entities"
)

// SQLiteStore persists assistant state in a SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (or creates) a SQLite database at path and ensures schema.
func OpenSQLite(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	return NewSQLiteStore(db)
}

// NewSQLiteStore wraps an existing database handle and ensures schema.
func NewSQLiteStore(db *sql.DB) (*SQLiteStore, error) {
	if db == nil {
		return nil, fmt.Errorf("db is nil")
	}
	if err := ensureSchema(db); err != nil {
		return nil, err
	}
	return &SQLiteStore{db: db}, nil
}

// DB exposes the underlying handle for health checks.
func (s *SQLiteStore) DB() *sql.DB { return s.db }

func ensureSchema(db *sql.DB) error {
	stmts := []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			user_id TEXT PRIMARY KEY,
			name TEXT NOT NULL DEFAULT '',
			timezone TEXT NOT NULL DEFAULT '',
			traits_json BLOB
		);`, profileTable),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			user_id TEXT NOT NULL,
			key TEXT NOT NULL,
			value TEXT NOT NULL,
			updated_at INTEGER NOT NULL,
			PRIMARY KEY(user_id, key)
		);`, preferenceTable),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			role TEXT NOT NULL,
			content TEXT NOT NULL,
			created_at INTEGER NOT NULL
		);`, chatTable),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_%s_user ON %s(user_id, created_at);`, chatTable, chatTable),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			title TEXT NOT NULL,
			notes TEXT NOT NULL DEFAULT '',
			project_id TEXT NOT NULL DEFAULT '',
			priority TEXT NOT NULL DEFAULT 'normal',
			done INTEGER NOT NULL DEFAULT 0,
			due_at INTEGER,
			created_at INTEGER NOT NULL
		);`, taskTable),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_%s_user ON %s(user_id, done);`, taskTable, taskTable),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			name TEXT NOT NULL,
			status TEXT NOT NULL DEFAULT 'active',
			created_at INTEGER NOT NULL
		);`, projectTable),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			name TEXT NOT NULL,
			schedule TEXT NOT NULL DEFAULT 'daily',
			streak INTEGER NOT NULL DEFAULT 0,
			last_done INTEGER NOT NULL DEFAULT 0,
			created_at INTEGER NOT NULL
		);`, habitTable),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			name TEXT NOT NULL,
			kind TEXT NOT NULL DEFAULT '',
			notes TEXT NOT NULL DEFAULT '',
			created_at INTEGER NOT NULL
		);`, entityTable),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_%s_user ON %s(user_id);`, entityTable, entityTable),
	}
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// GetUserProfile returns the stored profile, or an empty one for unknown users.
func (s *SQLiteStore) GetUserProfile(ctx context.Context, userID string) (core.UserProfile, error) {
	profile := core.UserProfile{UserID: userID}
	var traitsJSON []byte
	err := s.db.QueryRowContext(ctx,
		fmt.Sprintf("SELECT name, timezone, traits_json FROM %s WHERE user_id = ?", profileTable),
		userID,
	).Scan(&profile.Name, &profile.Timezone, &traitsJSON)
	if err == sql.ErrNoRows {
		return profile, nil
	}
	if err != nil {
		return profile, fmt.Errorf("get profile: %w", err)
	}
	if len(traitsJSON) > 0 {
		if err := json.Unmarshal(traitsJSON, &profile.Traits); err != nil {
			profile.Traits = nil
		}
	}
	return profile, nil
}

// GetPreferences returns all stored preferences for a user.
func (s *SQLiteStore) GetPreferences(ctx context.Context, userID string) (map[string]string, error) {
	rows, err := s.db.QueryContext(ctx,
		fmt.Sprintf("SELECT key, value FROM %s WHERE user_id = ?", preferenceTable),
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("get preferences: %w", err)
	}
	defer rows.Close()

	prefs := make(map[string]string)
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, err
		}
		prefs[k] = v
	}
	return prefs, rows.Err()
}

// SavePreference upserts one preference row. Concurrent writers are
// serialized by the row-level upsert rather than in-memory coordination.
func (s *SQLiteStore) SavePreference(ctx context.Context, userID, key, value string) error {
	_, err := s.db.ExecContext(ctx,
		fmt.Sprintf(`INSERT INTO %s (user_id, key, value, updated_at) VALUES (?, ?, ?, ?)
			ON CONFLICT(user_id, key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
			preferenceTable),
		userID, key, value, time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("save preference: %w", err)
	}
	return nil
}

// GetChatHistory returns the most recent messages, oldest first.
func (s *SQLiteStore) GetChatHistory(ctx context.Context, userID string, limit int) ([]core.ChatMessage, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		fmt.Sprintf(`SELECT id, role, content, created_at FROM %s
			WHERE user_id = ? ORDER BY created_at DESC LIMIT ?`, chatTable),
		userID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("get chat history: %w", err)
	}
	defer rows.Close()

	var newestFirst []core.ChatMessage
	for rows.Next() {
		msg := core.ChatMessage{UserID: userID}
		var created int64
		if err := rows.Scan(&msg.ID, &msg.Role, &msg.Content, &created); err != nil {
			return nil, err
		}
		msg.CreatedAt = time.Unix(created, 0)
		newestFirst = append(newestFirst, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Reverse to chronological order.
	for i, j := 0, len(newestFirst)-1; i < j; i, j = i+1, j-1 {
		newestFirst[i], newestFirst[j] = newestFirst[j], newestFirst[i]
	}
	return newestFirst, nil
}

// SaveChat persists one conversation turn.
func (s *SQLiteStore) SaveChat(ctx context.Context, msg core.ChatMessage) error {
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		fmt.Sprintf("INSERT INTO %s (id, user_id, role, content, created_at) VALUES (?, ?, ?, ?, ?)", chatTable),
		msg.ID, msg.UserID, msg.Role, msg.Content, msg.CreatedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("save chat: %w", err)
	}
	return nil
}

// GetTasks returns a user's tasks, open ones first unless includeDone.
func (s *SQLiteStore) GetTasks(ctx context.Context, userID string, includeDone bool) ([]core.Task, error) {
	query := fmt.Sprintf(`SELECT id, title, notes, project_id, priority, done, due_at, created_at
		FROM %s WHERE user_id = ?`, taskTable)
	if !includeDone {
		query += " AND done = 0"
	}
	query += " ORDER BY created_at"

	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("get tasks: %w", err)
	}
	defer rows.Close()

	var tasks []core.Task
	for rows.Next() {
		task := core.Task{UserID: userID}
		var done int
		var dueAt sql.NullInt64
		var created int64
		var priority string
		if err := rows.Scan(&task.ID, &task.Title, &task.Notes, &task.ProjectID, &priority, &done, &dueAt, &created); err != nil {
			return nil, err
		}
		task.Priority = core.Priority(priority)
		task.Done = done != 0
		task.CreatedAt = time.Unix(created, 0)
		if dueAt.Valid {
			due := time.Unix(dueAt.Int64, 0)
			task.DueAt = &due
		}
		tasks = append(tasks, task)
	}
	return tasks, rows.Err()
}

// CreateTask inserts a task, filling in id/priority/created_at defaults.
func (s *SQLiteStore) CreateTask(ctx context.Context, task core.Task) (core.Task, error) {
	if task.ID == "" {
		task.ID = uuid.NewString()
	}
	if task.Priority == "" {
		task.Priority = core.PriorityNormal
	}
	if task.CreatedAt.IsZero() {
		task.CreatedAt = time.Now()
	}
	var dueAt interface{}
	if task.DueAt != nil {
		dueAt = task.DueAt.Unix()
	}
	_, err := s.db.ExecContext(ctx,
		fmt.Sprintf(`INSERT INTO %s (id, user_id, title, notes, project_id, priority, done, due_at, created_at)
			VALUES (?, ?, ?, ?, ?, ?, 0, ?, ?)`, taskTable),
		task.ID, task.UserID, task.Title, task.Notes, task.ProjectID, string(task.Priority), dueAt, task.CreatedAt.Unix(),
	)
	if err != nil {
		return core.Task{}, fmt.Errorf("create task: %w", err)
	}
	return task, nil
}

// CompleteTask marks a task done. Unknown ids report CodeNotFound-style errors.
func (s *SQLiteStore) CompleteTask(ctx context.Context, userID, taskID string) error {
	res, err := s.db.ExecContext(ctx,
		fmt.Sprintf("UPDATE %s SET done = 1 WHERE user_id = ? AND id = ?", taskTable),
		userID, taskID,
	)
	if err != nil {
		return fmt.Errorf("complete task: %w", err)
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return fmt.Errorf("task not found: %s", taskID)
	}
	return nil
}

// GetProjects returns a user's projects.
func (s *SQLiteStore) GetProjects(ctx context.Context, userID string) ([]core.Project, error) {
	rows, err := s.db.QueryContext(ctx,
		fmt.Sprintf("SELECT id, name, status, created_at FROM %s WHERE user_id = ? ORDER BY created_at", projectTable),
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("get projects: %w", err)
	}
	defer rows.Close()

	var projects []core.Project
	for rows.Next() {
		project := core.Project{UserID: userID}
		var created int64
		if err := rows.Scan(&project.ID, &project.Name, &project.Status, &created); err != nil {
			return nil, err
		}
		project.CreatedAt = time.Unix(created, 0)
		projects = append(projects, project)
	}
	return projects, rows.Err()
}

// CreateProject inserts a project with defaults filled in.
func (s *SQLiteStore) CreateProject(ctx context.Context, project core.Project) (core.Project, error) {
	if project.ID == "" {
		project.ID = uuid.NewString()
	}
	if project.Status == "" {
		project.Status = "active"
	}
	if project.CreatedAt.IsZero() {
		project.CreatedAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		fmt.Sprintf("INSERT INTO %s (id, user_id, name, status, created_at) VALUES (?, ?, ?, ?, ?)", projectTable),
		project.ID, project.UserID, project.Name, project.Status, project.CreatedAt.Unix(),
	)
	if err != nil {
		return core.Project{}, fmt.Errorf("create project: %w", err)
	}
	return project, nil
}

// GetHabitsDueToday returns habits whose last completion is before the
// start of the current day in server time.
func (s *SQLiteStore) GetHabitsDueToday(ctx context.Context, userID string, now time.Time) ([]core.Habit, error) {
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	rows, err := s.db.QueryContext(ctx,
		fmt.Sprintf(`SELECT id, name, schedule, streak, last_done, created_at FROM %s
			WHERE user_id = ? AND last_done < ? ORDER BY created_at`, habitTable),
		userID, dayStart.Unix(),
	)
	if err != nil {
		return nil, fmt.Errorf("get habits: %w", err)
	}
	defer rows.Close()

	var habits []core.Habit
	for rows.Next() {
		habit := core.Habit{UserID: userID}
		var lastDone, created int64
		if err := rows.Scan(&habit.ID, &habit.Name, &habit.Schedule, &habit.Streak, &lastDone, &created); err != nil {
			return nil, err
		}
		if lastDone > 0 {
			habit.LastDone = time.Unix(lastDone, 0)
		}
		habit.CreatedAt = time.Unix(created, 0)
		habits = append(habits, habit)
	}
	return habits, rows.Err()
}

// LogHabit marks a habit done and bumps the streak counter.
func (s *SQLiteStore) LogHabit(ctx context.Context, userID, habitID string, when time.Time) error {
	res, err := s.db.ExecContext(ctx,
		fmt.Sprintf("UPDATE %s SET last_done = ?, streak = streak + 1 WHERE user_id = ? AND id = ?", habitTable),
		when.Unix(), userID, habitID,
	)
	if err != nil {
		return fmt.Errorf("log habit: %w", err)
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return fmt.Errorf("habit not found: %s", habitID)
	}
	return nil
}

// CreateHabit inserts a habit. Not part of the core Store contract but
// used by seeding and tests.
func (s *SQLiteStore) CreateHabit(ctx context.Context, habit core.Habit) (core.Habit, error) {
	if habit.ID == "" {
		habit.ID = uuid.NewString()
	}
	if habit.Schedule == "" {
		habit.Schedule = "daily"
	}
	if habit.CreatedAt.IsZero() {
		habit.CreatedAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		fmt.Sprintf("INSERT INTO %s (id, user_id, name, schedule, streak, last_done, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)", habitTable),
		habit.ID, habit.UserID, habit.Name, habit.Schedule, habit.Streak, habit.LastDone.Unix(), habit.CreatedAt.Unix(),
	)
	if err != nil {
		return core.Habit{}, fmt.Errorf("create habit: %w", err)
	}
	return habit, nil
}

// GetEntities returns every remembered entity for a user.
func (s *SQLiteStore) GetEntities(ctx context.Context, userID string) ([]core.Entity, error) {
	rows, err := s.db.QueryContext(ctx,
		fmt.Sprintf("SELECT id, name, kind, notes, created_at FROM %s WHERE user_id = ? ORDER BY created_at", entityTable),
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("get entities: %w", err)
	}
	defer rows.Close()

	var entities []core.Entity
	for rows.Next() {
		entity := core.Entity{UserID: userID}
		var created int64
		if err := rows.Scan(&entity.ID, &entity.Name, &entity.Kind, &entity.Notes, &created); err != nil {
			return nil, err
		}
		entity.CreatedAt = time.Unix(created, 0)
		entities = append(entities, entity)
	}
	return entities, rows.Err()
}

// SaveEntity inserts a remembered entity.
func (s *SQLiteStore) SaveEntity(ctx context.Context, entity core.Entity) error {
	if entity.ID == "" {
		entity.ID = uuid.NewString()
	}
	if entity.CreatedAt.IsZero() {
		entity.CreatedAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		fmt.Sprintf("INSERT INTO %s (id, user_id, name, kind, notes, created_at) VALUES (?, ?, ?, ?, ?, ?)", entityTable),
		entity.ID, entity.UserID, entity.Name, entity.Kind, entity.Notes, entity.CreatedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("save entity: %w", err)
	}
	return nil
}

var _ Store = (*SQLiteStore)(nil)
