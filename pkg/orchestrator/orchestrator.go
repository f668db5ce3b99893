// Copyright 2026 © The Valet Authors
// SPDX-License-Identifier: Apache-2.0

// Package orchestrator wires routing, context building, the capability
// fan-out, and reply synthesis into one conversational turn. Process is
// the single public entry point; whatever breaks inside, the user gets a
// sentence back.
package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/valetd/valet/pkg/capability"
	"github.com/valetd/valet/pkg/core"
	"github.com/valetd/valet/pkg/errors"
	"github.com/valetd/valet/pkg/llm"
	"github.com/valetd/valet/pkg/resilience"
	"github.com/valetd/valet/pkg/router"
	"github.com/valetd/valet/pkg/storage"
	"github.com/valetd/valet/pkg/telemetry"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

const (
	defaultHistoryLimit    = 20
	defaultResponseTimeout = 60 * time.Second

	// Fragment counts up to this synthesize by template; beyond it the
	// model composes the reply.
	templateFragmentLimit = 5
	maxSuggestions        = 2

	apologyReply = "Sorry, something went wrong on my end. Please try that again."
	slowReply    = "That's taking longer than it should. Please try again in a moment."
	emptyReply   = "I'm not sure how to help with that yet."
)

// Orchestrator runs conversational turns.
type Orchestrator struct {
	router          *router.Router
	caps            *capability.Set
	provider        llm.Provider
	store           storage.Store
	emitter         core.EventEmitter
	model           string
	persona         string
	historyLimit    int
	responseTimeout time.Duration
	learning        bool
	tracer          trace.Tracer
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithEventEmitter installs an event sink for turn progress.
func WithEventEmitter(emitter core.EventEmitter) Option {
	return func(o *Orchestrator) { o.emitter = emitter }
}

// WithModel sets the synthesis model.
func WithModel(model string) Option {
	return func(o *Orchestrator) { o.model = model }
}

// WithPersona overrides the synthesis persona prompt.
func WithPersona(persona string) Option {
	return func(o *Orchestrator) { o.persona = persona }
}

// WithHistoryLimit sets how many prior turns are loaded into context.
func WithHistoryLimit(n int) Option {
	return func(o *Orchestrator) {
		if n >= 0 {
			o.historyLimit = n
		}
	}
}

// WithResponseTimeout bounds a whole turn. Zero disables the bound.
func WithResponseTimeout(d time.Duration) Option {
	return func(o *Orchestrator) { o.responseTimeout = d }
}

// WithLearning toggles preference extraction after each turn. Enabled
// by default.
func WithLearning(enabled bool) Option {
	return func(o *Orchestrator) { o.learning = enabled }
}

const defaultPersona = `You are Valet, a personal assistant: warm, brief, and concrete. Compose one reply from the findings below. Don't enumerate them mechanically; answer the user's message.`

// New creates an Orchestrator.
func New(r *router.Router, caps *capability.Set, provider llm.Provider, store storage.Store, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		router:          r,
		caps:            caps,
		provider:        provider,
		store:           store,
		emitter:         core.NoopEventEmitter{},
		persona:         defaultPersona,
		historyLimit:    defaultHistoryLimit,
		responseTimeout: defaultResponseTimeout,
		learning:        true,
		tracer:          otel.Tracer("valet/orchestrator"),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Process handles one user turn and always returns something sayable.
// Errors, panics, and timeouts inside the pipeline all degrade to a
// polite reply; nothing propagates to the caller.
func (o *Orchestrator) Process(ctx context.Context, userID, input string) (reply string) {
	ctx, runID := core.EnsureRunID(ctx)
	ctx, sessionID := core.EnsureSessionID(ctx)
	log := slog.Default()

	defer func() {
		if r := recover(); r != nil {
			log.Error("turn.panic",
				slog.String("run_id", runID),
				slog.Any("panic", r),
			)
			reply = apologyReply
		}
	}()

	ctx, span := o.tracer.Start(ctx, "Orchestrator.Process", trace.WithAttributes(
		telemetry.TurnAttributes(runID, sessionID, userID, "")...,
	))
	defer span.End()

	start := time.Now()
	o.emitter.Emit(ctx, core.NewEvent(core.EventTurnStarted, userID, runID, map[string]any{
		"input_chars": len(input),
	}))
	log.Info("turn.started",
		slog.String("run_id", runID),
		slog.String("user_id", userID),
	)

	// The timeout budget and the enforcement share one deadline; every
	// downstream call sees it through ctx.
	reply, err := resilience.WithTimeoutResult(ctx,
		resilience.TimeoutConfig{Duration: o.responseTimeout},
		func(ctx context.Context) (reply string, err error) {
			// processTurn runs on the timeout goroutine, out of reach of
			// the recover installed above. Catch panics here so they come
			// back as errors instead of crashing the process.
			defer func() {
				if r := recover(); r != nil {
					err = errors.New(errors.CodeInternal, fmt.Sprintf("turn panicked: %v", r), nil)
				}
			}()
			return o.processTurn(ctx, log, runID, userID, input), nil
		},
	)
	if err != nil {
		span.RecordError(err)
		if ve := errors.AsValetError(err); ve != nil && ve.Code == errors.CodeTimeout {
			log.Warn("turn.timeout",
				slog.String("run_id", runID),
				slog.Duration("budget", o.responseTimeout),
			)
			reply = slowReply
		} else {
			log.Error("turn.failed",
				slog.String("run_id", runID),
				slog.String("error", err.Error()),
			)
			reply = apologyReply
		}
	}

	o.emitter.Emit(ctx, core.NewEvent(core.EventTurnCompleted, userID, runID, map[string]any{
		"elapsed_ms": time.Since(start).Milliseconds(),
	}))
	log.Info("turn.completed",
		slog.String("run_id", runID),
		slog.Duration("elapsed", time.Since(start)),
	)
	return reply
}

func (o *Orchestrator) processTurn(ctx context.Context, log *slog.Logger, runID, userID, input string) string {
	decision := o.router.Route(ctx, input)
	o.emitter.Emit(ctx, core.NewEvent(core.EventRoutingDecided, userID, runID, map[string]any{
		"intent":     decision.Intent,
		"topic":      decision.Topic,
		"confidence": decision.Confidence,
	}))

	actx := o.buildContext(ctx, log, userID, input, decision)

	// Memory enriches before anyone else reads the context. After this
	// point the context is read-only; the fan-out shares it across
	// goroutines without locks.
	if mem, ok := o.memory(); ok {
		mem.Enrich(ctx, actx)
	}

	results := o.fanOut(ctx, log, runID, userID, decision, actx)
	reply := o.synthesize(ctx, log, actx, results)

	o.learn(ctx, log, userID, input, reply)
	o.persist(ctx, log, userID, input, reply)
	return reply
}

// buildContext hydrates the per-request context. Storage misses degrade
// to an emptier context, never to a failed turn.
func (o *Orchestrator) buildContext(ctx context.Context, log *slog.Logger, userID, input string, decision core.RoutingDecision) *core.AgentContext {
	actx := &core.AgentContext{
		UserID:    userID,
		Input:     input,
		Intent:    decision.Intent,
		Topic:     decision.Topic,
		Mentions:  decision.Mentions,
		Timestamp: time.Now().UTC(),
	}

	if profile, err := o.store.GetUserProfile(ctx, userID); err != nil {
		log.Warn("turn.profile_unavailable",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
	} else {
		actx.Profile = profile
	}

	if history, err := o.store.GetChatHistory(ctx, userID, o.historyLimit); err != nil {
		log.Warn("turn.history_unavailable",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
	} else {
		actx.History = history
	}

	return actx
}

// memory returns the registered memory capability when it carries the
// concrete enrich/learn surface.
func (o *Orchestrator) memory() (*capability.Memory, bool) {
	c, ok := o.caps.Get(core.KindMemory)
	if !ok {
		return nil, false
	}
	mem, ok := c.(*capability.Memory)
	return mem, ok
}

// fanOut runs the selected capabilities in parallel and returns their
// results in invocation order. capability.Run contains panics, so one
// broken module costs its own slot and nothing else.
func (o *Orchestrator) fanOut(ctx context.Context, log *slog.Logger, runID, userID string, decision core.RoutingDecision, actx *core.AgentContext) []capability.Result {
	selected := o.caps.Select(decision)
	results := make([]capability.Result, len(selected))

	var wg sync.WaitGroup
	for i, c := range selected {
		wg.Add(1)
		o.emitter.Emit(ctx, core.NewEvent(core.EventCapabilityStarted, userID, runID, map[string]any{
			"kind":  string(c.Kind()),
			"score": c.CanHandle(actx),
		}))
		go func(i int, c capability.Capability) {
			defer wg.Done()
			results[i] = capability.Run(ctx, c, actx)
		}(i, c)
	}
	wg.Wait()

	for _, result := range results {
		o.emitter.Emit(ctx, core.NewEvent(core.EventCapabilityCompleted, userID, runID, map[string]any{
			"kind":    string(result.Kind),
			"success": result.Success,
		}))
		if !result.Success {
			log.Warn("capability.failed",
				slog.String("run_id", runID),
				slog.String("kind", string(result.Kind)),
				slog.String("error", result.Err),
			)
		}
	}
	return results
}

// synthesize composes one reply from the capability results. Failed
// capabilities contribute nothing; as long as one module produced
// fragments the turn still answers.
func (o *Orchestrator) synthesize(ctx context.Context, log *slog.Logger, actx *core.AgentContext, results []capability.Result) string {
	var fragments, suggestions []string
	for _, result := range results {
		if !result.Success {
			continue
		}
		fragments = append(fragments, result.Fragments...)
		suggestions = append(suggestions, result.Suggestions...)
	}

	switch {
	case len(fragments) == 0:
		return o.synthesizeEmpty(ctx, actx)
	case len(fragments) <= templateFragmentLimit:
		return templateReply(fragments, suggestions)
	default:
		// Model synthesis, degrading to the template when the model is
		// unavailable.
		reply, err := resilience.WithFallback(ctx,
			func(ctx context.Context) (string, error) {
				return o.synthesizeLLM(ctx, actx, fragments, suggestions)
			},
			&resilience.StaticFallback[string]{Value: templateReply(fragments, suggestions)},
		)
		if err != nil {
			return templateReply(fragments, suggestions)
		}
		return reply
	}
}

// synthesizeEmpty answers when no capability had anything to say.
func (o *Orchestrator) synthesizeEmpty(ctx context.Context, actx *core.AgentContext) string {
	if o.provider == nil {
		return emptyReply
	}
	resp, err := o.provider.Chat(ctx, llm.ChatRequest{
		Model: o.model,
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: o.persona},
			{Role: llm.RoleUser, Content: actx.Input},
		},
	})
	if err != nil || strings.TrimSpace(resp.Content) == "" {
		return emptyReply
	}
	return resp.Content
}

func (o *Orchestrator) synthesizeLLM(ctx context.Context, actx *core.AgentContext, fragments, suggestions []string) (string, error) {
	if o.provider == nil {
		return templateReply(fragments, suggestions), nil
	}

	var b strings.Builder
	b.WriteString("User message: ")
	b.WriteString(actx.Input)
	b.WriteString("\n\nFindings:\n")
	for _, fragment := range fragments {
		b.WriteString("- ")
		b.WriteString(fragment)
		b.WriteString("\n")
	}
	if len(suggestions) > 0 {
		b.WriteString("\nPossible follow-ups:\n")
		for _, s := range suggestions {
			b.WriteString("- ")
			b.WriteString(s)
			b.WriteString("\n")
		}
	}

	resp, err := o.provider.Chat(ctx, llm.ChatRequest{
		Model: o.model,
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: o.persona},
			{Role: llm.RoleUser, Content: b.String()},
		},
	})
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(resp.Content) == "" {
		return templateReply(fragments, suggestions), nil
	}
	return resp.Content, nil
}

// templateReply joins fragments directly, then appends at most two
// suggestions.
func templateReply(fragments, suggestions []string) string {
	var parts []string
	parts = append(parts, fragments...)
	for i, s := range suggestions {
		if i >= maxSuggestions {
			break
		}
		parts = append(parts, s)
	}
	if len(parts) == 0 {
		return emptyReply
	}
	return strings.Join(parts, " ")
}

// learn extracts durable facts after the reply is decided. Failures are
// logged and swallowed; learning never delays or breaks the turn's
// outcome beyond this call.
func (o *Orchestrator) learn(ctx context.Context, log *slog.Logger, userID, input, reply string) {
	if !o.learning {
		return
	}
	mem, ok := o.memory()
	if !ok {
		return
	}
	if err := mem.Learn(ctx, userID, input, reply); err != nil {
		log.Warn("turn.learning_failed",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
	}
}

// persist appends the exchange to chat history, best effort.
func (o *Orchestrator) persist(ctx context.Context, log *slog.Logger, userID, input, reply string) {
	now := time.Now().UTC()
	for _, msg := range []core.ChatMessage{
		{ID: uuid.NewString(), UserID: userID, Role: "user", Content: input, CreatedAt: now},
		{ID: uuid.NewString(), UserID: userID, Role: "assistant", Content: reply, CreatedAt: now},
	} {
		if err := o.store.SaveChat(ctx, msg); err != nil {
			log.Warn("turn.persist_failed",
				slog.String("user_id", userID),
				slog.String("role", msg.Role),
				slog.String("error", err.Error()),
			)
		}
	}
}
