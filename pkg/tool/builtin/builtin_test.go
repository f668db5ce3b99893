// Copyright 2026 © The Valet Authors
// SPDX-License-Identifier: Apache-2.0

package builtin

import (
	"context"
	"testing"
	"time"

	"github.com/valetd/valet/pkg/core"
	"github.com/valetd/valet/pkg/storage"
	"github.com/valetd/valet/pkg/tool"
)

func TestRegister_RegistersAllTools(t *testing.T) {
	reg := tool.NewRegistry()
	store := storage.NewMemoryStore()

	if err := Register(reg, store, nil, "u1"); err != nil {
		t.Fatalf("Register: %v", err)
	}

	want := []string{
		"complete_task", "create_task", "get_habits_due",
		"get_projects", "get_tasks", "log_habit", "save_preference",
	}
	got := reg.Names()
	if len(got) != len(want) {
		t.Fatalf("registered %v, want %v", got, want)
	}
	for i, name := range want {
		if got[i] != name {
			t.Errorf("Names()[%d] = %q, want %q", i, got[i], name)
		}
	}
}

func TestRegister_PushToolNeedsNotifier(t *testing.T) {
	reg := tool.NewRegistry()
	if err := Register(reg, storage.NewMemoryStore(), fakeNotifier{}, "u1"); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if _, ok := reg.Lookup("send_push"); !ok {
		t.Error("send_push should be registered when a notifier is supplied")
	}
}

func TestCreateTask_PersistsAndReturnsTask(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	create := CreateTask(store, "u1")

	due := time.Now().Add(24 * time.Hour).UTC().Truncate(time.Second)
	res := tool.SafeExecute(ctx, create, map[string]any{
		"title":    "buy milk",
		"priority": "high",
		"due_at":   due.Format(time.RFC3339),
	})
	if !res.Success {
		t.Fatalf("create failed: %s", res.Error)
	}

	task, ok := res.Data.(core.Task)
	if !ok {
		t.Fatalf("Data = %T, want core.Task", res.Data)
	}
	if task.Title != "buy milk" || task.Priority != core.PriorityHigh {
		t.Errorf("task = %+v", task)
	}
	if task.DueAt == nil || !task.DueAt.Equal(due) {
		t.Errorf("DueAt = %v, want %v", task.DueAt, due)
	}

	tasks, err := store.GetTasks(ctx, "u1", false)
	if err != nil {
		t.Fatal(err)
	}
	if len(tasks) != 1 {
		t.Fatalf("stored %d tasks, want 1", len(tasks))
	}
}

func TestCreateTask_RejectsBlankTitle(t *testing.T) {
	res := tool.SafeExecute(context.Background(),
		CreateTask(storage.NewMemoryStore(), "u1"),
		map[string]any{"title": "   "})
	if res.Success {
		t.Fatal("blank title should fail")
	}
}

func TestCreateTask_RejectsBadDueDate(t *testing.T) {
	res := tool.SafeExecute(context.Background(),
		CreateTask(storage.NewMemoryStore(), "u1"),
		map[string]any{"title": "x", "due_at": "tomorrow-ish"})
	if res.Success {
		t.Fatal("non RFC 3339 due_at should fail")
	}
}

func TestGetTasks_FiltersDone(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	open, _ := store.CreateTask(ctx, core.Task{ID: "t1", UserID: "u1", Title: "open"})
	done, _ := store.CreateTask(ctx, core.Task{ID: "t2", UserID: "u1", Title: "done"})
	_ = open
	if err := store.CompleteTask(ctx, "u1", done.ID); err != nil {
		t.Fatal(err)
	}

	res := tool.SafeExecute(ctx, GetTasks(store, "u1"), map[string]any{})
	if !res.Success {
		t.Fatalf("get_tasks failed: %s", res.Error)
	}
	data := res.Data.(map[string]any)
	if data["count"].(int) != 1 {
		t.Errorf("open count = %v, want 1", data["count"])
	}

	res = tool.SafeExecute(ctx, GetTasks(store, "u1"), map[string]any{"include_done": true})
	data = res.Data.(map[string]any)
	if data["count"].(int) != 2 {
		t.Errorf("all count = %v, want 2", data["count"])
	}
}

func TestCompleteTask_UnknownID(t *testing.T) {
	res := tool.SafeExecute(context.Background(),
		CompleteTask(storage.NewMemoryStore(), "u1"),
		map[string]any{"task_id": "missing"})
	if res.Success {
		t.Fatal("completing an unknown task should fail")
	}
}

func TestLogHabit_Increments(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	habit := store.CreateHabit(core.Habit{
		ID: "h1", UserID: "u1", Name: "run", Schedule: "daily", Streak: 2,
		LastDone: time.Now().Add(-24 * time.Hour),
	})

	res := tool.SafeExecute(ctx, LogHabit(store, "u1"), map[string]any{"habit_id": habit.ID})
	if !res.Success {
		t.Fatalf("log_habit failed: %s", res.Error)
	}

	due := tool.SafeExecute(ctx, GetHabitsDue(store, "u1"), map[string]any{})
	if !due.Success {
		t.Fatalf("get_habits_due failed: %s", due.Error)
	}
	data := due.Data.(map[string]any)
	if data["count"].(int) != 0 {
		t.Errorf("habits still due = %v, want 0", data["count"])
	}
}

func TestSavePreference_RoundTrip(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()

	res := tool.SafeExecute(ctx, SavePreference(store, "u1"), map[string]any{
		"key": "wake_time", "value": "6am",
	})
	if !res.Success {
		t.Fatalf("save_preference failed: %s", res.Error)
	}

	prefs, err := store.GetPreferences(ctx, "u1")
	if err != nil {
		t.Fatal(err)
	}
	if prefs["wake_time"] != "6am" {
		t.Errorf("prefs = %v", prefs)
	}
}

func TestSavePreference_RequiredParams(t *testing.T) {
	// Missing required parameters are rejected before the body runs.
	res := tool.SafeExecute(context.Background(),
		SavePreference(storage.NewMemoryStore(), "u1"),
		map[string]any{"key": "wake_time"})
	if res.Success {
		t.Fatal("missing value should fail")
	}
	if res.Error != "Missing required parameter: value" {
		t.Errorf("error = %q", res.Error)
	}
}

func TestSendPush_DelegatesToNotifier(t *testing.T) {
	n := &recordingNotifier{}
	res := tool.SafeExecute(context.Background(), SendPush(n, "u1"), map[string]any{
		"title": "Reminder", "message": "standup in 5",
	})
	if !res.Success {
		t.Fatalf("send_push failed: %s", res.Error)
	}
	if n.userID != "u1" || n.title != "Reminder" || n.message != "standup in 5" {
		t.Errorf("notifier got %+v", *n)
	}
}

type fakeNotifier struct{}

func (fakeNotifier) Push(context.Context, string, string, string) error { return nil }

type recordingNotifier struct {
	userID, title, message string
}

func (r *recordingNotifier) Push(_ context.Context, userID, title, message string) error {
	r.userID, r.title, r.message = userID, title, message
	return nil
}
