// Copyright 2026 © The Valet Authors
// SPDX-License-Identifier: Apache-2.0

// Package executor implements the bounded think-act-observe loop that
// lets a language model drive discrete, schema-validated tool calls.
package executor

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/valetd/valet/pkg/core"
	verrors "github.com/valetd/valet/pkg/errors"
	"github.com/valetd/valet/pkg/llm"
	"github.com/valetd/valet/pkg/telemetry"
	"github.com/valetd/valet/pkg/tool"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// State is the loop's current phase.
type State string

const (
	StateThinking      State = "thinking"
	StateToolExecuting State = "tool_executing"
	StateDone          State = "done"
	StateFailed        State = "failed"
	StateExhausted     State = "exhausted"
)

// ExecutionStep records one loop iteration. Steps are append-only per run.
type ExecutionStep struct {
	Seq       int            `json:"seq"`
	Thought   string         `json:"thought,omitempty"`
	ToolName  string         `json:"tool_name,omitempty"`
	Arguments map[string]any `json:"arguments,omitempty"`
	Result    *tool.Result   `json:"result,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// RunResult is the outcome of one executor run.
type RunResult struct {
	Success       bool            `json:"success"`
	State         State           `json:"state"`
	Response      string          `json:"response"`
	Steps         []ExecutionStep `json:"steps"`
	ToolCallsMade int             `json:"tool_calls_made"`
	TotalTokens   int             `json:"total_tokens"`
	Err           error           `json:"-"`
}

const (
	defaultMaxIterations = 8
	defaultHistoryWindow = 10

	exhaustedMessage = "I couldn't finish working on that in the allotted steps. Here's where I got to; ask me to continue if you'd like."
)

// Executor drives one conversational turn via tool calls.
type Executor struct {
	provider      llm.Provider
	registry      *tool.Registry
	systemPrompt  string
	model         string
	temperature   float64
	maxTokens     int
	maxIterations int
	historyWindow int
	tracer        trace.Tracer
}

// Option configures an Executor.
type Option func(*Executor)

// WithSystemPrompt overrides the default system prompt.
func WithSystemPrompt(prompt string) Option {
	return func(e *Executor) { e.systemPrompt = prompt }
}

// WithModel sets the model requested from the provider.
func WithModel(model string) Option {
	return func(e *Executor) { e.model = model }
}

// WithTemperature sets the sampling temperature.
func WithTemperature(t float64) Option {
	return func(e *Executor) { e.temperature = t }
}

// WithMaxTokens caps completion length per LLM call.
func WithMaxTokens(n int) Option {
	return func(e *Executor) { e.maxTokens = n }
}

// WithMaxIterations caps tool-loop iterations. The effective budget for a
// run is the smaller of this and the request context's own budget.
func WithMaxIterations(n int) Option {
	return func(e *Executor) {
		if n > 0 {
			e.maxIterations = n
		}
	}
}

// WithHistoryWindow sets how many prior turns are replayed to the model.
func WithHistoryWindow(n int) Option {
	return func(e *Executor) {
		if n >= 0 {
			e.historyWindow = n
		}
	}
}

// New creates an Executor over a provider and a tool registry.
func New(provider llm.Provider, registry *tool.Registry, opts ...Option) *Executor {
	e := &Executor{
		provider:      provider,
		registry:      registry,
		systemPrompt:  defaultSystemPrompt,
		maxIterations: defaultMaxIterations,
		historyWindow: defaultHistoryWindow,
		tracer:        otel.Tracer("valet/executor"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

const defaultSystemPrompt = `You are Valet, a personal assistant. You can call tools to read and change the user's tasks, projects, and habits. Call a tool when you need real data or need to make a change; answer directly when you already know enough. Keep final answers short and concrete.`

// budget returns the effective iteration cap for a run:
// min(executor.maxIterations, context.MaxIterations) with zero meaning
// "no per-request override".
func (e *Executor) budget(actx *core.AgentContext) int {
	limit := e.maxIterations
	if actx != nil && actx.MaxIterations > 0 && actx.MaxIterations < limit {
		limit = actx.MaxIterations
	}
	return limit
}

// Run executes one think-act-observe turn. It never panics; every failure
// mode degrades to a returned RunResult.
func (e *Executor) Run(ctx context.Context, input string, actx *core.AgentContext) RunResult {
	ctx, runID := core.EnsureRunID(ctx)
	ctx, span := e.tracer.Start(ctx, "Executor.Run", trace.WithAttributes(
		attribute.String("run_id", runID),
	))
	defer span.End()

	initMetrics()
	runCounter.Add(ctx, 1)
	start := time.Now()
	log := slog.Default()

	log.Info("executor.run.start",
		slog.String("run_id", runID),
		slog.Int("tools", e.registry.Len()),
	)

	result := e.loop(ctx, log, runID, input, actx, nil, nil)

	runLatencyMs.Record(ctx, time.Since(start).Seconds()*1000)
	span.SetAttributes(telemetry.ExecutorAttributes(string(result.State), len(result.Steps), result.ToolCallsMade, result.TotalTokens)...)
	if result.Err != nil {
		span.RecordError(result.Err)
		errorCounter.Add(ctx, 1)
	}

	log.Info("executor.run.complete",
		slog.String("run_id", runID),
		slog.String("state", string(result.State)),
		slog.Int("steps", len(result.Steps)),
		slog.Int("tool_calls", result.ToolCallsMade),
		slog.Int("tokens", result.TotalTokens),
	)
	return result
}

// emit is an optional sink for incremental text; nil during blocking runs.
type emit func(content string)

func (e *Executor) loop(ctx context.Context, log *slog.Logger, runID, input string, actx *core.AgentContext, sink emit, observe func(ExecutionStep)) RunResult {
	result := RunResult{State: StateThinking}
	limit := e.budget(actx)
	messages := e.buildMessages(input, actx)
	defs := e.registry.Definitions()

	for iteration := 0; iteration < limit; iteration++ {
		resp, err := e.think(ctx, messages, defs, sink)
		if err != nil {
			result.State = StateFailed
			result.Err = verrors.New(verrors.CodeLLMError, "LLM call failed", err).
				WithContext("iteration", iteration).
				WithRecoverable(true)
			log.Error("executor.run.error",
				slog.String("run_id", runID),
				slog.Int("iteration", iteration),
				slog.String("error", err.Error()),
				slog.String("error_code", string(verrors.CodeLLMError)),
			)
			return result
		}
		result.TotalTokens += resp.Usage.TotalTokens

		if len(resp.ToolCalls) == 0 {
			// Final answer.
			result.State = StateDone
			result.Success = true
			result.Response = resp.Content
			return result
		}

		// Only the first requested tool call is acted on per iteration,
		// even when the model returns several. Kept as an explicit design
		// choice: a single observation per think step keeps the transcript
		// unambiguous for the next iteration.
		call := resp.ToolCalls[0]
		step := e.executeToolCall(ctx, log, runID, iteration, resp, call)
		result.Steps = append(result.Steps, step)
		result.ToolCallsMade++
		if observe != nil {
			observe(step)
		}

		messages = append(messages, llm.Message{
			Role:      llm.RoleAssistant,
			Content:   resp.Content,
			ToolCalls: []llm.ToolCall{call},
		})
		messages = append(messages, toolResultMessage(call, step.Result))
	}

	result.State = StateExhausted
	result.Response = exhaustedMessage
	log.Warn("executor.run.exhausted",
		slog.String("run_id", runID),
		slog.Int("iterations", limit),
	)
	return result
}

// think performs one LLM call, streaming content into sink when possible.
func (e *Executor) think(ctx context.Context, messages []llm.Message, defs []llm.Tool, sink emit) (*llm.ChatResponse, error) {
	req := llm.ChatRequest{
		Model:       e.model,
		Messages:    messages,
		Tools:       defs,
		Temperature: e.temperature,
		MaxTokens:   e.maxTokens,
	}

	streaming, ok := e.provider.(llm.StreamingProvider)
	if sink == nil || !ok {
		return e.provider.Chat(ctx, req)
	}

	chunks, err := streaming.ChatStream(ctx, req)
	if err != nil {
		return nil, err
	}

	resp := &llm.ChatResponse{}
	for chunk := range chunks {
		if chunk.Error != nil {
			return nil, chunk.Error
		}
		if chunk.Content != "" {
			resp.Content += chunk.Content
			// Tool-call turns carry no outcome text, so forwarding content
			// as it arrives never races a pending side effect.
			sink(chunk.Content)
		}
		if chunk.Done {
			resp.ToolCalls = chunk.ToolCalls
			if chunk.Usage != nil {
				resp.Usage = *chunk.Usage
			}
		}
	}
	return resp, nil
}

func (e *Executor) executeToolCall(ctx context.Context, log *slog.Logger, runID string, iteration int, resp *llm.ChatResponse, call llm.ToolCall) ExecutionStep {
	step := ExecutionStep{
		Seq:       iteration,
		Thought:   resp.Content,
		ToolName:  call.Function.Name,
		Timestamp: time.Now().UTC(),
	}

	args := map[string]any{}
	if trimmed := call.Function.Arguments; trimmed != "" {
		if err := json.Unmarshal([]byte(trimmed), &args); err != nil {
			failed := tool.Fail(fmt.Sprintf("invalid tool arguments: %v", err))
			step.Result = &failed
			return step
		}
	}
	step.Arguments = args

	t, ok := e.registry.Lookup(call.Function.Name)
	if !ok {
		failed := tool.Fail(fmt.Sprintf("Unknown tool: %s", call.Function.Name))
		step.Result = &failed
		return step
	}

	toolStart := time.Now()
	toolCtx, toolSpan := e.tracer.Start(ctx, "Executor.Tool.Call", trace.WithAttributes(
		attribute.String("tool.name", call.Function.Name),
	))
	res := tool.SafeExecute(toolCtx, t, args)
	toolSpan.SetAttributes(telemetry.ToolCallAttributes(call.Function.Name, call.ID, time.Since(toolStart).Seconds()*1000, res.Success)...)
	toolSpan.End()
	toolCallCounter.Add(ctx, 1)

	if !res.Success {
		log.Warn("executor.tool.failed",
			slog.String("run_id", runID),
			slog.String("tool", call.Function.Name),
			slog.String("error", res.Error),
		)
	} else {
		log.Info("executor.tool.complete",
			slog.String("run_id", runID),
			slog.String("tool", call.Function.Name),
		)
	}

	step.Result = &res
	return step
}

// buildMessages assembles the system prompt, the trailing window of prior
// turns, and the current input.
func (e *Executor) buildMessages(input string, actx *core.AgentContext) []llm.Message {
	messages := []llm.Message{{Role: llm.RoleSystem, Content: e.systemPrompt}}

	if actx != nil {
		if summary := contextSummary(actx); summary != "" {
			messages = append(messages, llm.Message{Role: llm.RoleSystem, Content: summary})
		}
		history := actx.History
		if e.historyWindow > 0 && len(history) > e.historyWindow {
			history = history[len(history)-e.historyWindow:]
		}
		for _, msg := range history {
			role := llm.RoleUser
			if msg.Role == "assistant" {
				role = llm.RoleAssistant
			}
			messages = append(messages, llm.Message{Role: role, Content: msg.Content})
		}
	}

	messages = append(messages, llm.Message{Role: llm.RoleUser, Content: input})
	return messages
}

// contextSummary renders enriched context the model should see.
func contextSummary(actx *core.AgentContext) string {
	type summary struct {
		User        string            `json:"user,omitempty"`
		Timezone    string            `json:"timezone,omitempty"`
		Preferences map[string]string `json:"preferences,omitempty"`
		Recall      []string          `json:"recall,omitempty"`
	}
	s := summary{
		User:        actx.Profile.Name,
		Timezone:    actx.Profile.Timezone,
		Preferences: actx.Preferences,
		Recall:      actx.Recall,
	}
	if s.User == "" && len(s.Preferences) == 0 && len(s.Recall) == 0 {
		return ""
	}
	data, err := json.Marshal(s)
	if err != nil {
		return ""
	}
	return "Known context about the user:\n" + string(data)
}

// toolResultMessage re-injects a tool outcome as a distinct message.
func toolResultMessage(call llm.ToolCall, res *tool.Result) llm.Message {
	payload, err := json.Marshal(res)
	if err != nil {
		payload = []byte(`{"success":false,"error":"unencodable tool result"}`)
	}
	return llm.Message{
		Role:       llm.RoleTool,
		Content:    string(payload),
		ToolCallID: call.ID,
	}
}
