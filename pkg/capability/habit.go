// Copyright 2026 © The Valet Authors
// SPDX-License-Identifier: Apache-2.0

package capability

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/valetd/valet/pkg/core"
	"github.com/valetd/valet/pkg/storage"
)

// Habits reports what is due today and logs completions when the request
// names a habit as done.
type Habits struct {
	store storage.Store
	now   func() time.Time
}

func NewHabits(store storage.Store) *Habits {
	return &Habits{store: store, now: time.Now}
}

func (h *Habits) Kind() core.CapabilityKind { return core.KindHabit }

func (h *Habits) Description() string {
	return "Tracks recurring habits and streaks"
}

func (h *Habits) CanHandle(actx *core.AgentContext) float64 {
	if actx.Intent == "habit" {
		return 1
	}
	return 0.2
}

func (h *Habits) Execute(ctx context.Context, actx *core.AgentContext) Result {
	result := Result{Kind: core.KindHabit, Success: true, Data: map[string]any{}}

	due, err := h.store.GetHabitsDueToday(ctx, actx.UserID, h.now())
	if err != nil {
		result.Success = false
		result.Err = err.Error()
		return result
	}
	result.Data["due"] = due

	// A "did X" or "done with X" phrasing logs the named habit.
	if habit, ok := matchDoneHabit(actx.Input, due); ok {
		if err := h.store.LogHabit(ctx, actx.UserID, habit.ID, h.now()); err != nil {
			result.Actions = append(result.Actions, Action{
				Type: "log_habit", Description: habit.Name, Error: err.Error(),
			})
			result.Success = false
			result.Err = err.Error()
			return result
		}
		result.Actions = append(result.Actions, Action{
			Type: "log_habit", Description: habit.Name, Success: true,
		})
		result.Fragments = append(result.Fragments,
			fmt.Sprintf("Logged %s. Streak is now %d.", habit.Name, habit.Streak+1))
		return result
	}

	switch len(due) {
	case 0:
		result.Fragments = append(result.Fragments, "No habits due today. You're all caught up.")
	default:
		names := make([]string, len(due))
		for i, habit := range due {
			names[i] = habit.Name
		}
		result.Fragments = append(result.Fragments,
			fmt.Sprintf("Due today: %s.", strings.Join(names, ", ")))
		result.Suggestions = append(result.Suggestions,
			fmt.Sprintf("Tell me when you've done %s and I'll log it.", names[0]))
	}
	return result
}

// matchDoneHabit finds a due habit named in a completion phrasing.
func matchDoneHabit(input string, due []core.Habit) (core.Habit, bool) {
	lower := strings.ToLower(input)
	if !strings.Contains(lower, "done") && !strings.Contains(lower, "did") &&
		!strings.Contains(lower, "finished") && !strings.Contains(lower, "completed") {
		return core.Habit{}, false
	}
	for _, habit := range due {
		if strings.Contains(lower, strings.ToLower(habit.Name)) {
			return habit, true
		}
	}
	return core.Habit{}, false
}
