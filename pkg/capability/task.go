// Copyright 2026 © The Valet Authors
// SPDX-License-Identifier: Apache-2.0

package capability

import (
	"context"

	"github.com/valetd/valet/pkg/core"
	"github.com/valetd/valet/pkg/executor"
)

// Tasks handles task intents by delegating to the tool loop: the model
// decides which task tools to call and composes the working answer.
type Tasks struct {
	exec *executor.Executor
}

// NewTasks wraps an executor whose registry carries the task tools.
func NewTasks(exec *executor.Executor) *Tasks {
	return &Tasks{exec: exec}
}

func (t *Tasks) Kind() core.CapabilityKind { return core.KindTask }

func (t *Tasks) Description() string {
	return "Creates, lists, and completes tasks"
}

func (t *Tasks) CanHandle(actx *core.AgentContext) float64 {
	if actx.Intent == "task" {
		return 1
	}
	return 0.2
}

func (t *Tasks) Execute(ctx context.Context, actx *core.AgentContext) Result {
	run := t.exec.Run(ctx, actx.Input, actx)

	result := Result{
		Kind:    core.KindTask,
		Success: run.Success,
		Data: map[string]any{
			"state": string(run.State),
		},
		Metrics: Metrics{Tokens: run.TotalTokens},
	}

	for _, step := range run.Steps {
		action := Action{
			Type:        step.ToolName,
			Description: step.Thought,
		}
		if step.Result != nil {
			action.Success = step.Result.Success
			action.Error = step.Result.Error
		}
		result.Actions = append(result.Actions, action)
	}

	if run.Response != "" {
		result.Fragments = append(result.Fragments, run.Response)
	}
	if run.Err != nil {
		result.Err = run.Err.Error()
	}
	return result
}
