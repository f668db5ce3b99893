// Copyright 2026 © The Valet Authors
// SPDX-License-Identifier: Apache-2.0

package core

import "time"

// UserProfile is the stored profile snapshot hydrated into an AgentContext.
type UserProfile struct {
	UserID   string            `json:"user_id"`
	Name     string            `json:"name,omitempty"`
	Timezone string            `json:"timezone,omitempty"`
	Traits   map[string]string `json:"traits,omitempty"`
}

// ChatMessage is one persisted conversation turn.
type ChatMessage struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Role      string    `json:"role"` // user, assistant
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// Task is a stored actionable item.
type Task struct {
	ID        string     `json:"id"`
	UserID    string     `json:"user_id"`
	Title     string     `json:"title"`
	Notes     string     `json:"notes,omitempty"`
	ProjectID string     `json:"project_id,omitempty"`
	Priority  Priority   `json:"priority"`
	Done      bool       `json:"done"`
	DueAt     *time.Time `json:"due_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

// Project groups tasks under a shared goal.
type Project struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Name      string    `json:"name"`
	Status    string    `json:"status"` // active, paused, done
	CreatedAt time.Time `json:"created_at"`
}

// Habit is a recurring commitment tracked per user.
type Habit struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Name      string    `json:"name"`
	Schedule  string    `json:"schedule"` // daily, weekly, ...
	Streak    int       `json:"streak"`
	LastDone  time.Time `json:"last_done,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Entity is a remembered person, place, or thing the user has mentioned.
type Entity struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Name      string    `json:"name"`
	Kind      string    `json:"kind,omitempty"` // person, place, org, ...
	Notes     string    `json:"notes,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// AgentContext is the per-request value object threaded through routing,
// capability execution, and the tool loop. It is built once per request,
// enriched once by the memory capability, and treated as read-only during
// the parallel capability fan-out.
type AgentContext struct {
	UserID        string
	Input         string
	Intent        string
	Topic         string
	Mentions      []string
	Profile       UserProfile
	Preferences   map[string]string
	RelatedTasks  []Task
	Projects      []Project
	Entities      []Entity
	Recall        []string // semantic memory snippets, newest first
	History       []ChatMessage
	Timestamp     time.Time
	Channel       string // cli, api, push
	MaxIterations int    // per-request tool loop budget; 0 means executor default
}

// RoutingDecision selects which capability modules run for a request.
// Produced once by the router, consumed once by the orchestrator, immutable.
type RoutingDecision struct {
	Intent     string
	Topic      string
	Required   []CapabilityKind
	Optional   []CapabilityKind
	Priority   Priority
	Mentions   []string
	Confidence float64
}

// EnsureMemory force-appends the memory capability if missing.
// Every decision must include it; enrichment is load-bearing for the
// rest of the pipeline.
func (d *RoutingDecision) EnsureMemory() {
	for _, k := range d.Required {
		if k == KindMemory {
			return
		}
	}
	d.Required = append(d.Required, KindMemory)
}

// Requires reports whether the decision names the given capability.
func (d *RoutingDecision) Requires(kind CapabilityKind) bool {
	for _, k := range d.Required {
		if k == kind {
			return true
		}
	}
	return false
}
