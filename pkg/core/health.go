// Copyright 2026 © The Valet Authors
// SPDX-License-Identifier: Apache-2.0

package core

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// HealthStatus represents the health state of a collaborator.
type HealthStatus string

const (
	// HealthHealthy indicates the collaborator is fully operational.
	HealthHealthy HealthStatus = "HEALTHY"

	// HealthDegraded indicates the collaborator is operational but with reduced capacity.
	HealthDegraded HealthStatus = "DEGRADED"

	// HealthUnhealthy indicates the collaborator is not operational.
	HealthUnhealthy HealthStatus = "UNHEALTHY"
)

// HealthResult represents the result of a health check.
type HealthResult struct {
	Status    HealthStatus
	Component string
	Message   string
	LastCheck time.Time
	Error     error
}

// HealthChecker checks the health of one collaborator (storage, LLM
// provider, vector memory, push gateway).
type HealthChecker interface {
	Check(ctx context.Context) HealthResult
}

// HealthCheckerFunc adapts a function to the HealthChecker interface.
type HealthCheckerFunc func(ctx context.Context) HealthResult

// Check calls the underlying function.
func (f HealthCheckerFunc) Check(ctx context.Context) HealthResult {
	result := f(ctx)
	if result.LastCheck.IsZero() {
		result.LastCheck = time.Now()
	}
	return result
}

// HealthRegistry aggregates health checkers for the assistant's collaborators.
type HealthRegistry struct {
	mu       sync.RWMutex
	checkers map[string]HealthChecker
}

// NewHealthRegistry creates an empty health registry.
func NewHealthRegistry() *HealthRegistry {
	return &HealthRegistry{checkers: make(map[string]HealthChecker)}
}

// Register adds a checker for a named collaborator.
func (r *HealthRegistry) Register(name string, checker HealthChecker) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.checkers[name] = checker
}

// Check runs the checker for a specific collaborator.
func (r *HealthRegistry) Check(ctx context.Context, name string) (HealthResult, error) {
	r.mu.RLock()
	checker, exists := r.checkers[name]
	r.mu.RUnlock()

	if !exists {
		return HealthResult{}, fmt.Errorf("checker not registered: %s", name)
	}
	return checker.Check(ctx), nil
}

// CheckAll checks every registered collaborator.
// Overall status is Healthy only when every collaborator is Healthy.
func (r *HealthRegistry) CheckAll(ctx context.Context) ([]HealthResult, HealthStatus) {
	r.mu.RLock()
	checkers := make(map[string]HealthChecker, len(r.checkers))
	for name, checker := range r.checkers {
		checkers[name] = checker
	}
	r.mu.RUnlock()

	results := make([]HealthResult, 0, len(checkers))
	overall := HealthHealthy
	for name, checker := range checkers {
		result := checker.Check(ctx)
		result.Component = name
		results = append(results, result)

		switch result.Status {
		case HealthUnhealthy:
			overall = HealthUnhealthy
		case HealthDegraded:
			if overall == HealthHealthy {
				overall = HealthDegraded
			}
		}
	}
	return results, overall
}
