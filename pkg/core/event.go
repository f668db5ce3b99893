// Copyright 2026 © The Valet Authors
// SPDX-License-Identifier: Apache-2.0

package core

import (
	"context"
	"time"
)

// EventType identifies a semantic event emitted during a conversational turn.
type EventType string

const (
	EventTurnStarted         EventType = "turn.started"
	EventTurnCompleted       EventType = "turn.completed"
	EventRoutingDecided      EventType = "routing.decided"
	EventCapabilityStarted   EventType = "capability.started"
	EventCapabilityCompleted EventType = "capability.completed"
	EventToolCalled          EventType = "tool.called"
	EventError               EventType = "error"
)

// Event captures a semantic streaming/logging event.
type Event struct {
	Type      EventType
	UserID    string
	RunID     string
	Timestamp time.Time
	Payload   map[string]any
}

// EventEmitter receives semantic events.
type EventEmitter interface {
	Emit(ctx context.Context, event Event)
}

// NoopEventEmitter is a default no-op implementation.
type NoopEventEmitter struct{}

// Emit implements EventEmitter.
func (NoopEventEmitter) Emit(_ context.Context, _ Event) {}

// NewEvent builds a default event with timestamp.
func NewEvent(eventType EventType, userID, runID string, payload map[string]any) Event {
	return Event{
		Type:      eventType,
		UserID:    userID,
		RunID:     runID,
		Timestamp: time.Now().UTC(),
		Payload:   payload,
	}
}
