// Copyright 2026 © The Valet Authors
// SPDX-License-Identifier: Apache-2.0

// Package router turns raw user input into a routing decision: which
// intent the request carries and which capability modules should run.
// A fast regexp pass handles the common phrasings; everything else goes
// to the model. Routing never fails; the worst case is the conservative
// general fallback.
package router

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	"github.com/valetd/valet/pkg/core"
	"github.com/valetd/valet/pkg/llm"
	"github.com/valetd/valet/pkg/resilience"
	"github.com/valetd/valet/pkg/telemetry"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

const (
	patternConfidence  = 0.85
	fallbackConfidence = 0.5
)

// Router resolves input to a RoutingDecision.
type Router struct {
	patterns []Pattern
	provider llm.Provider
	model    string
	tracer   trace.Tracer
}

// Option configures a Router.
type Option func(*Router)

// WithPatterns replaces the default pattern table.
func WithPatterns(patterns []Pattern) Option {
	return func(r *Router) { r.patterns = patterns }
}

// WithModel sets the model used for LLM fallback routing.
func WithModel(model string) Option {
	return func(r *Router) { r.model = model }
}

// New creates a Router. provider may be nil: pattern misses then resolve
// straight to the general fallback.
func New(provider llm.Provider, opts ...Option) *Router {
	r := &Router{
		patterns: DefaultPatterns(),
		provider: provider,
		tracer:   otel.Tracer("valet/router"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Route decides which capabilities handle the input. It never returns an
// error; every failure path degrades to the general fallback. The memory
// capability is force-included on every decision.
func (r *Router) Route(ctx context.Context, input string) core.RoutingDecision {
	ctx, span := r.tracer.Start(ctx, "Router.Route")
	defer span.End()
	start := time.Now()

	decision, source := r.route(ctx, input)
	decision.EnsureMemory()

	span.SetAttributes(telemetry.RoutingAttributes(
		decision.Intent, decision.Topic, source, decision.Confidence,
		kindLabels(decision.Required),
	)...)
	slog.Debug("routing.decided",
		slog.String("intent", decision.Intent),
		slog.String("topic", decision.Topic),
		slog.String("source", source),
		slog.Float64("confidence", decision.Confidence),
		slog.Duration("elapsed", time.Since(start)),
	)
	return decision
}

func (r *Router) route(ctx context.Context, input string) (core.RoutingDecision, string) {
	trimmed := strings.TrimSpace(input)

	for _, pattern := range r.patterns {
		if decision, ok := pattern.Match(trimmed); ok {
			return decision, "pattern"
		}
	}

	if r.provider != nil {
		if decision, ok := r.routeLLM(ctx, trimmed); ok {
			return decision, "llm"
		}
	}

	return fallbackDecision(), "fallback"
}

// classifyRetry gives the classification call one quick second chance
// before the router degrades to the general fallback.
var classifyRetry = resilience.RetryConfig{
	MaxAttempts:  2,
	InitialDelay: 50 * time.Millisecond,
	MaxDelay:     time.Second,
}

const routePrompt = `Classify the user's message for a personal assistant. Reply with only a JSON object:
{"intent": "task|habit|project|memory|general", "topic": "main subject or empty", "required": ["capability", ...], "optional": [...], "confidence": 0.0-1.0}
Capabilities: task (todo items), habit (recurring routines), project (grouped work), memory (people, preferences, past conversations), general (anything else).`

// routeLLM asks the model to classify. The reply is parsed defensively:
// any malformed field degrades that field, and a fully unusable reply
// reports a miss so the caller falls back.
func (r *Router) routeLLM(ctx context.Context, input string) (core.RoutingDecision, bool) {
	resp, err := resilience.DoWithResult(ctx, classifyRetry, func() (*llm.ChatResponse, error) {
		return r.provider.Chat(ctx, llm.ChatRequest{
			Model: r.model,
			Messages: []llm.Message{
				{Role: llm.RoleSystem, Content: routePrompt},
				{Role: llm.RoleUser, Content: input},
			},
			Temperature: 0,
		})
	})
	if err != nil {
		slog.Warn("routing.llm_failed", slog.String("error", err.Error()))
		return core.RoutingDecision{}, false
	}

	raw := extractJSONObject(resp.Content)
	if raw == "" {
		return core.RoutingDecision{}, false
	}

	var parsed struct {
		Intent     string   `json:"intent"`
		Topic      string   `json:"topic"`
		Required   []string `json:"required"`
		Optional   []string `json:"optional"`
		Confidence float64  `json:"confidence"`
	}
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		slog.Warn("routing.llm_unparseable", slog.String("error", err.Error()))
		return core.RoutingDecision{}, false
	}
	if parsed.Intent == "" {
		return core.RoutingDecision{}, false
	}

	decision := core.RoutingDecision{
		Intent:     strings.ToLower(parsed.Intent),
		Topic:      strings.ToLower(strings.TrimSpace(parsed.Topic)),
		Required:   parseKinds(parsed.Required),
		Optional:   parseKinds(parsed.Optional),
		Priority:   core.PriorityNormal,
		Confidence: clamp(parsed.Confidence),
	}
	if len(decision.Required) == 0 {
		if kind, ok := core.ParseKind(decision.Intent); ok {
			decision.Required = []core.CapabilityKind{kind}
		} else {
			decision.Required = []core.CapabilityKind{core.KindGeneral}
			decision.Intent = "general"
		}
	}
	return decision, true
}

// fallbackDecision is what routing returns when neither patterns nor the
// classifier produced anything usable: a general turn backed only by
// memory, so the assistant can still answer from what it already knows.
func fallbackDecision() core.RoutingDecision {
	return core.RoutingDecision{
		Intent:     "general",
		Required:   []core.CapabilityKind{core.KindMemory},
		Priority:   core.PriorityNormal,
		Confidence: fallbackConfidence,
	}
}

func parseKinds(labels []string) []core.CapabilityKind {
	var kinds []core.CapabilityKind
	seen := map[core.CapabilityKind]bool{}
	for _, label := range labels {
		kind, ok := core.ParseKind(strings.ToLower(strings.TrimSpace(label)))
		if !ok || seen[kind] {
			continue
		}
		seen[kind] = true
		kinds = append(kinds, kind)
	}
	return kinds
}

func kindLabels(kinds []core.CapabilityKind) []string {
	out := make([]string, len(kinds))
	for i, kind := range kinds {
		out[i] = string(kind)
	}
	return out
}

func clamp(f float64) float64 {
	switch {
	case f < 0:
		return 0
	case f > 1:
		return 1
	}
	return f
}

// extractJSONObject pulls the first balanced {...} block out of model
// text, tolerating prose and code fences around it.
func extractJSONObject(s string) string {
	start := strings.Index(s, "{")
	if start < 0 {
		return ""
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1]
			}
		}
	}
	return ""
}
