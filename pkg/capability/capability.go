// Copyright 2026 © The Valet Authors
// SPDX-License-Identifier: Apache-2.0

// Package capability defines the pluggable skill modules the orchestrator
// fans out to, and the contract every module must honor: never panic,
// never block forever, report failure in the Result.
package capability

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/valetd/valet/pkg/core"
	"github.com/valetd/valet/pkg/telemetry"
	"go.opentelemetry.io/otel"
)

// Metrics carries per-execution accounting.
type Metrics struct {
	Elapsed time.Duration `json:"elapsed"`
	Tokens  int           `json:"tokens,omitempty"`
}

// Action records one side effect a capability performed.
type Action struct {
	Type        string `json:"type"`
	Description string `json:"description,omitempty"`
	Success     bool   `json:"success"`
	Error       string `json:"error,omitempty"`
}

// Result is what a capability hands back to the orchestrator. Fragments are
// short user-facing sentences the synthesizer composes into one reply;
// Suggestions are optional follow-ups.
type Result struct {
	Kind        core.CapabilityKind `json:"kind"`
	Success     bool                `json:"success"`
	Data        map[string]any      `json:"data,omitempty"`
	Actions     []Action            `json:"actions,omitempty"`
	Suggestions []string            `json:"suggestions,omitempty"`
	Fragments   []string            `json:"fragments,omitempty"`
	Err         string              `json:"error,omitempty"`
	Metrics     Metrics             `json:"metrics"`
}

// Capability is one skill module. Execute must treat the context as
// read-only; enrichment happens before the fan-out, never during it.
//
// CanHandle reports how relevant the module considers the context, 0 to
// 1. The score is advisory: it feeds events and logs, it never decides
// whether a routed module runs.
type Capability interface {
	Kind() core.CapabilityKind
	Description() string
	CanHandle(actx *core.AgentContext) float64
	Execute(ctx context.Context, actx *core.AgentContext) Result
}

// Run executes a capability with panic containment and timing. A panicking
// module degrades to a failed Result; it never takes the turn down with it.
func Run(ctx context.Context, c Capability, actx *core.AgentContext) (result Result) {
	tracer := otel.Tracer("valet/capability")
	ctx, span := tracer.Start(ctx, "Capability.Execute")
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			slog.Error("capability.panic",
				slog.String("kind", string(c.Kind())),
				slog.Any("panic", r),
			)
			result = Result{
				Kind:    c.Kind(),
				Success: false,
				Err:     fmt.Sprintf("capability panicked: %v", r),
			}
		}
		result.Kind = c.Kind()
		result.Metrics.Elapsed = time.Since(start)
		span.SetAttributes(telemetry.CapabilityAttributes(
			string(c.Kind()), result.Success,
			float64(result.Metrics.Elapsed)/float64(time.Millisecond),
			len(result.Actions),
		)...)
		span.End()
	}()

	return c.Execute(ctx, actx)
}
