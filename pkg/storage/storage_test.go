// Copyright 2026 © The Valet Authors
// SPDX-License-Identifier: Apache-2.0

package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/valetd/valet/pkg/core"
)

// storeUnderTest runs the same contract checks against both implementations.
func storeUnderTest(t *testing.T) map[string]Store {
	t.Helper()
	sqlite, err := OpenSQLite(filepath.Join(t.TempDir(), "valet.db"))
	if err != nil {
		t.Fatalf("OpenSQLite failed: %v", err)
	}
	return map[string]Store{
		"memory": NewMemoryStore(),
		"sqlite": sqlite,
	}
}

func TestPreferencesUpsert(t *testing.T) {
	for name, store := range storeUnderTest(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			if err := store.SavePreference(ctx, "u1", "tone", "casual"); err != nil {
				t.Fatalf("SavePreference failed: %v", err)
			}
			if err := store.SavePreference(ctx, "u1", "tone", "formal"); err != nil {
				t.Fatalf("SavePreference upsert failed: %v", err)
			}

			prefs, err := store.GetPreferences(ctx, "u1")
			if err != nil {
				t.Fatalf("GetPreferences failed: %v", err)
			}
			if prefs["tone"] != "formal" {
				t.Errorf("expected upserted value 'formal', got %q", prefs["tone"])
			}
			if len(prefs) != 1 {
				t.Errorf("expected 1 preference, got %d", len(prefs))
			}
		})
	}
}

func TestChatHistoryOrderAndLimit(t *testing.T) {
	for name, store := range storeUnderTest(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			base := time.Now().Add(-time.Hour)
			for i, content := range []string{"one", "two", "three"} {
				err := store.SaveChat(ctx, core.ChatMessage{
					UserID:    "u1",
					Role:      "user",
					Content:   content,
					CreatedAt: base.Add(time.Duration(i) * time.Minute),
				})
				if err != nil {
					t.Fatalf("SaveChat failed: %v", err)
				}
			}

			history, err := store.GetChatHistory(ctx, "u1", 2)
			if err != nil {
				t.Fatalf("GetChatHistory failed: %v", err)
			}
			if len(history) != 2 {
				t.Fatalf("expected 2 messages, got %d", len(history))
			}
			if history[0].Content != "two" || history[1].Content != "three" {
				t.Errorf("expected chronological tail [two three], got [%s %s]",
					history[0].Content, history[1].Content)
			}
		})
	}
}

func TestTaskLifecycle(t *testing.T) {
	for name, store := range storeUnderTest(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			created, err := store.CreateTask(ctx, core.Task{UserID: "u1", Title: "review code"})
			if err != nil {
				t.Fatalf("CreateTask failed: %v", err)
			}
			if created.ID == "" {
				t.Fatal("expected generated task id")
			}
			if created.Priority != core.PriorityNormal {
				t.Errorf("expected default priority, got %s", created.Priority)
			}

			if err := store.CompleteTask(ctx, "u1", created.ID); err != nil {
				t.Fatalf("CompleteTask failed: %v", err)
			}

			open, err := store.GetTasks(ctx, "u1", false)
			if err != nil {
				t.Fatalf("GetTasks failed: %v", err)
			}
			if len(open) != 0 {
				t.Errorf("expected no open tasks, got %d", len(open))
			}

			all, err := store.GetTasks(ctx, "u1", true)
			if err != nil {
				t.Fatalf("GetTasks(all) failed: %v", err)
			}
			if len(all) != 1 || !all[0].Done {
				t.Errorf("expected one done task, got %+v", all)
			}
		})
	}
}

func TestCompleteUnknownTask(t *testing.T) {
	for name, store := range storeUnderTest(t) {
		t.Run(name, func(t *testing.T) {
			if err := store.CompleteTask(context.Background(), "u1", "nope"); err == nil {
				t.Error("expected error for unknown task id")
			}
		})
	}
}

func TestHabitsDueTodayAndLogging(t *testing.T) {
	ctx := context.Background()
	now := time.Now()

	t.Run("memory", func(t *testing.T) {
		store := NewMemoryStore()
		habit := store.CreateHabit(core.Habit{UserID: "u1", Name: "stretch"})

		due, err := store.GetHabitsDueToday(ctx, "u1", now)
		if err != nil {
			t.Fatalf("GetHabitsDueToday failed: %v", err)
		}
		if len(due) != 1 {
			t.Fatalf("expected 1 due habit, got %d", len(due))
		}

		if err := store.LogHabit(ctx, "u1", habit.ID, now); err != nil {
			t.Fatalf("LogHabit failed: %v", err)
		}
		due, _ = store.GetHabitsDueToday(ctx, "u1", now)
		if len(due) != 0 {
			t.Errorf("expected no due habits after logging, got %d", len(due))
		}
	})

	t.Run("sqlite", func(t *testing.T) {
		store, err := OpenSQLite(filepath.Join(t.TempDir(), "valet.db"))
		if err != nil {
			t.Fatalf("OpenSQLite failed: %v", err)
		}
		habit, err := store.CreateHabit(ctx, core.Habit{UserID: "u1", Name: "stretch"})
		if err != nil {
			t.Fatalf("CreateHabit failed: %v", err)
		}

		due, err := store.GetHabitsDueToday(ctx, "u1", now)
		if err != nil {
			t.Fatalf("GetHabitsDueToday failed: %v", err)
		}
		if len(due) != 1 {
			t.Fatalf("expected 1 due habit, got %d", len(due))
		}

		if err := store.LogHabit(ctx, "u1", habit.ID, now); err != nil {
			t.Fatalf("LogHabit failed: %v", err)
		}
		due, _ = store.GetHabitsDueToday(ctx, "u1", now)
		if len(due) != 0 {
			t.Errorf("expected no due habits after logging, got %d", len(due))
		}
	})
}

func TestEntities(t *testing.T) {
	for name, store := range storeUnderTest(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			err := store.SaveEntity(ctx, core.Entity{UserID: "u1", Name: "john", Kind: "person"})
			if err != nil {
				t.Fatalf("SaveEntity failed: %v", err)
			}

			entities, err := store.GetEntities(ctx, "u1")
			if err != nil {
				t.Fatalf("GetEntities failed: %v", err)
			}
			if len(entities) != 1 || entities[0].Name != "john" {
				t.Errorf("expected [john], got %+v", entities)
			}
		})
	}
}

func TestProfileDefaultsForUnknownUser(t *testing.T) {
	for name, store := range storeUnderTest(t) {
		t.Run(name, func(t *testing.T) {
			profile, err := store.GetUserProfile(context.Background(), "stranger")
			if err != nil {
				t.Fatalf("GetUserProfile failed: %v", err)
			}
			if profile.UserID != "stranger" {
				t.Errorf("expected user id echoed back, got %q", profile.UserID)
			}
		})
	}
}
