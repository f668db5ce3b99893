// Copyright 2026 © The Valet Authors
// SPDX-License-Identifier: Apache-2.0

package executor

import (
	"context"
	"log/slog"

	"github.com/valetd/valet/pkg/core"
)

// StreamEvent is one element of a streaming run. Exactly one field group is
// populated: Content for incremental text, Step for a completed tool call,
// or Result when the run finishes.
type StreamEvent struct {
	Content string
	Step    *ExecutionStep
	Result  *RunResult
}

// RunStream executes one turn like Run but delivers text incrementally.
// Tool calls are still resolved synchronously between text turns; the
// channel is closed after the final Result event. The caller owns draining
// the channel.
func (e *Executor) RunStream(ctx context.Context, input string, actx *core.AgentContext) <-chan StreamEvent {
	out := make(chan StreamEvent, 16)

	go func() {
		defer close(out)

		ctx, runID := core.EnsureRunID(ctx)
		initMetrics()
		runCounter.Add(ctx, 1)
		log := slog.Default()

		log.Info("executor.stream.start", slog.String("run_id", runID))

		stepSink := func(content string) {
			select {
			case out <- StreamEvent{Content: content}:
			case <-ctx.Done():
			}
		}

		result := e.loopStream(ctx, log, runID, input, actx, stepSink, out)
		if result.Err != nil {
			errorCounter.Add(ctx, 1)
		}

		select {
		case out <- StreamEvent{Result: &result}:
		case <-ctx.Done():
		}

		log.Info("executor.stream.complete",
			slog.String("run_id", runID),
			slog.String("state", string(result.State)),
			slog.Int("steps", len(result.Steps)),
		)
	}()

	return out
}

// loopStream runs the shared loop with a step observer that relays each
// completed tool step on out. Content chunks already flow through sink.
func (e *Executor) loopStream(ctx context.Context, log *slog.Logger, runID, input string, actx *core.AgentContext, sink emit, out chan<- StreamEvent) RunResult {
	return e.loop(ctx, log, runID, input, actx, sink, func(step ExecutionStep) {
		s := step
		select {
		case out <- StreamEvent{Step: &s}:
		case <-ctx.Done():
		}
	})
}
