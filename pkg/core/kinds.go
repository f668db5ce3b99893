// Copyright 2026 © The Valet Authors
// SPDX-License-Identifier: Apache-2.0

// Package core defines the shared contracts and value objects threaded
// through routing, orchestration, and the tool-calling loop.
package core

// CapabilityKind identifies one domain capability module.
type CapabilityKind string

const (
	KindMemory  CapabilityKind = "memory"
	KindTask    CapabilityKind = "task"
	KindHabit   CapabilityKind = "habit"
	KindProject CapabilityKind = "project"
	KindGeneral CapabilityKind = "general"
)

// Priority classifies routing urgency for a request.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityNormal Priority = "normal"
	PriorityHigh   Priority = "high"
)

// KnownKinds returns every capability kind the system ships with.
func KnownKinds() []CapabilityKind {
	return []CapabilityKind{KindMemory, KindTask, KindHabit, KindProject, KindGeneral}
}

// ParseKind maps a free-form label onto a CapabilityKind.
// Unknown labels are reported with ok=false so callers can discard them.
func ParseKind(label string) (CapabilityKind, bool) {
	switch CapabilityKind(label) {
	case KindMemory, KindTask, KindHabit, KindProject, KindGeneral:
		return CapabilityKind(label), true
	}
	return "", false
}
