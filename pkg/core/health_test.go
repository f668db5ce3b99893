// Copyright 2026 © The Valet Authors
// SPDX-License-Identifier: Apache-2.0

package core

import (
	"context"
	"errors"
	"testing"
)

func staticChecker(status HealthStatus, msg string) HealthChecker {
	return HealthCheckerFunc(func(_ context.Context) HealthResult {
		return HealthResult{Status: status, Message: msg}
	})
}

func TestHealthRegistryCheckAll(t *testing.T) {
	reg := NewHealthRegistry()
	reg.Register("storage", staticChecker(HealthHealthy, "ok"))
	reg.Register("llm", staticChecker(HealthHealthy, "ok"))

	results, overall := reg.CheckAll(context.Background())
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if overall != HealthHealthy {
		t.Errorf("expected overall HEALTHY, got %s", overall)
	}
}

func TestHealthRegistryDegradedWins(t *testing.T) {
	reg := NewHealthRegistry()
	reg.Register("storage", staticChecker(HealthHealthy, "ok"))
	reg.Register("vector", staticChecker(HealthDegraded, "slow"))

	_, overall := reg.CheckAll(context.Background())
	if overall != HealthDegraded {
		t.Errorf("expected overall DEGRADED, got %s", overall)
	}
}

func TestHealthRegistryUnhealthyWins(t *testing.T) {
	reg := NewHealthRegistry()
	reg.Register("storage", staticChecker(HealthDegraded, "slow"))
	reg.Register("llm", HealthCheckerFunc(func(_ context.Context) HealthResult {
		return HealthResult{Status: HealthUnhealthy, Error: errors.New("connection refused")}
	}))

	_, overall := reg.CheckAll(context.Background())
	if overall != HealthUnhealthy {
		t.Errorf("expected overall UNHEALTHY, got %s", overall)
	}
}

func TestHealthRegistryUnknownComponent(t *testing.T) {
	reg := NewHealthRegistry()
	if _, err := reg.Check(context.Background(), "nope"); err == nil {
		t.Error("expected error for unregistered checker")
	}
}
