// Copyright 2026 © The Valet Authors
// SPDX-License-Identifier: Apache-2.0

package storage

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/valetd/valet/pkg/core"
)

// MemoryStore implements Store with in-memory maps. Suitable for
// development and testing; data is lost on restart.
type MemoryStore struct {
	mu          sync.RWMutex
	profiles    map[string]core.UserProfile
	preferences map[string]map[string]string
	chat        map[string][]core.ChatMessage
	tasks       map[string][]core.Task
	projects    map[string][]core.Project
	habits      map[string][]core.Habit
	entities    map[string][]core.Entity
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		profiles:    make(map[string]core.UserProfile),
		preferences: make(map[string]map[string]string),
		chat:        make(map[string][]core.ChatMessage),
		tasks:       make(map[string][]core.Task),
		projects:    make(map[string][]core.Project),
		habits:      make(map[string][]core.Habit),
		entities:    make(map[string][]core.Entity),
	}
}

// SetUserProfile seeds a profile (test/dev helper).
func (m *MemoryStore) SetUserProfile(profile core.UserProfile) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.profiles[profile.UserID] = profile
}

func (m *MemoryStore) GetUserProfile(_ context.Context, userID string) (core.UserProfile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if profile, ok := m.profiles[userID]; ok {
		return profile, nil
	}
	return core.UserProfile{UserID: userID}, nil
}

func (m *MemoryStore) GetPreferences(_ context.Context, userID string) (map[string]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	prefs := make(map[string]string, len(m.preferences[userID]))
	for k, v := range m.preferences[userID] {
		prefs[k] = v
	}
	return prefs, nil
}

func (m *MemoryStore) SavePreference(_ context.Context, userID, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.preferences[userID] == nil {
		m.preferences[userID] = make(map[string]string)
	}
	m.preferences[userID][key] = value
	return nil
}

func (m *MemoryStore) GetChatHistory(_ context.Context, userID string, limit int) ([]core.ChatMessage, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	all := m.chat[userID]
	if limit <= 0 || len(all) <= limit {
		out := make([]core.ChatMessage, len(all))
		copy(out, all)
		return out, nil
	}
	out := make([]core.ChatMessage, limit)
	copy(out, all[len(all)-limit:])
	return out, nil
}

func (m *MemoryStore) SaveChat(_ context.Context, msg core.ChatMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now()
	}
	m.chat[msg.UserID] = append(m.chat[msg.UserID], msg)
	return nil
}

func (m *MemoryStore) GetTasks(_ context.Context, userID string, includeDone bool) ([]core.Task, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var tasks []core.Task
	for _, task := range m.tasks[userID] {
		if !includeDone && task.Done {
			continue
		}
		tasks = append(tasks, task)
	}
	return tasks, nil
}

func (m *MemoryStore) CreateTask(_ context.Context, task core.Task) (core.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if task.ID == "" {
		task.ID = uuid.NewString()
	}
	if task.Priority == "" {
		task.Priority = core.PriorityNormal
	}
	if task.CreatedAt.IsZero() {
		task.CreatedAt = time.Now()
	}
	m.tasks[task.UserID] = append(m.tasks[task.UserID], task)
	return task, nil
}

func (m *MemoryStore) CompleteTask(_ context.Context, userID, taskID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, task := range m.tasks[userID] {
		if task.ID == taskID {
			m.tasks[userID][i].Done = true
			return nil
		}
	}
	return fmt.Errorf("task not found: %s", taskID)
}

func (m *MemoryStore) GetProjects(_ context.Context, userID string) ([]core.Project, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]core.Project, len(m.projects[userID]))
	copy(out, m.projects[userID])
	return out, nil
}

func (m *MemoryStore) CreateProject(_ context.Context, project core.Project) (core.Project, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if project.ID == "" {
		project.ID = uuid.NewString()
	}
	if project.Status == "" {
		project.Status = "active"
	}
	if project.CreatedAt.IsZero() {
		project.CreatedAt = time.Now()
	}
	m.projects[project.UserID] = append(m.projects[project.UserID], project)
	return project, nil
}

func (m *MemoryStore) GetHabitsDueToday(_ context.Context, userID string, now time.Time) ([]core.Habit, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	var due []core.Habit
	for _, habit := range m.habits[userID] {
		if habit.LastDone.Before(dayStart) {
			due = append(due, habit)
		}
	}
	return due, nil
}

func (m *MemoryStore) LogHabit(_ context.Context, userID, habitID string, when time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, habit := range m.habits[userID] {
		if habit.ID == habitID {
			m.habits[userID][i].LastDone = when
			m.habits[userID][i].Streak++
			return nil
		}
	}
	return fmt.Errorf("habit not found: %s", habitID)
}

// CreateHabit seeds a habit (test/dev helper).
func (m *MemoryStore) CreateHabit(habit core.Habit) core.Habit {
	m.mu.Lock()
	defer m.mu.Unlock()
	if habit.ID == "" {
		habit.ID = uuid.NewString()
	}
	if habit.Schedule == "" {
		habit.Schedule = "daily"
	}
	m.habits[habit.UserID] = append(m.habits[habit.UserID], habit)
	return habit
}

func (m *MemoryStore) GetEntities(_ context.Context, userID string) ([]core.Entity, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]core.Entity, len(m.entities[userID]))
	copy(out, m.entities[userID])
	return out, nil
}

func (m *MemoryStore) SaveEntity(_ context.Context, entity core.Entity) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if entity.ID == "" {
		entity.ID = uuid.NewString()
	}
	if entity.CreatedAt.IsZero() {
		entity.CreatedAt = time.Now()
	}
	m.entities[entity.UserID] = append(m.entities[entity.UserID], entity)
	return nil
}

var _ Store = (*MemoryStore)(nil)
