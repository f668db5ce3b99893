// Copyright 2026 © The Valet Authors
// SPDX-License-Identifier: Apache-2.0

package capability

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/valetd/valet/pkg/core"
	verrors "github.com/valetd/valet/pkg/errors"
	"github.com/valetd/valet/pkg/llm"
	"github.com/valetd/valet/pkg/storage"
)

// Recaller is the semantic memory surface the memory capability consumes.
// A nil Recaller disables recall without disabling the capability.
type Recaller interface {
	Recall(ctx context.Context, userID, query string, limit int) ([]string, error)
	Remember(ctx context.Context, userID, text string) error
}

const defaultRecallLimit = 5

// Memory loads what is known about the user into the context before the
// fan-out, answers "what do you know about X" style requests, and extracts
// durable facts from finished turns.
type Memory struct {
	store       storage.Store
	recaller    Recaller
	provider    llm.Provider
	model       string
	recallLimit int
}

// NewMemory creates the memory capability. recaller and provider may be
// nil; recall and learning degrade to no-ops.
func NewMemory(store storage.Store, recaller Recaller, provider llm.Provider, model string) *Memory {
	return &Memory{
		store:       store,
		recaller:    recaller,
		provider:    provider,
		model:       model,
		recallLimit: defaultRecallLimit,
	}
}

func (m *Memory) Kind() core.CapabilityKind { return core.KindMemory }

func (m *Memory) Description() string {
	return "Recalls preferences, people, and past conversations"
}

// CanHandle always scores full relevance: routing force-includes memory
// on every decision, and enrichment must never be skipped.
func (m *Memory) CanHandle(*core.AgentContext) float64 { return 1 }

// Enrich hydrates the context with preferences, known entities, and
// semantic recall. Each source is best effort: a failed lookup is logged
// and the rest still load. Enrich runs once, before the fan-out; Execute
// must not mutate the context again.
func (m *Memory) Enrich(ctx context.Context, actx *core.AgentContext) {
	log := slog.Default()

	if prefs, err := m.store.GetPreferences(ctx, actx.UserID); err != nil {
		log.Warn("memory.enrich.preferences_failed",
			slog.String("user_id", actx.UserID),
			slog.String("error", err.Error()),
		)
	} else {
		actx.Preferences = prefs
	}

	if entities, err := m.store.GetEntities(ctx, actx.UserID); err != nil {
		log.Warn("memory.enrich.entities_failed",
			slog.String("user_id", actx.UserID),
			slog.String("error", err.Error()),
		)
	} else {
		actx.Entities = entities
	}

	if m.recaller != nil {
		snippets, err := m.recaller.Recall(ctx, actx.UserID, actx.Input, m.recallLimit)
		if err != nil {
			log.Warn("memory.enrich.recall_failed",
				slog.String("user_id", actx.UserID),
				slog.String("error", err.Error()),
			)
		} else {
			actx.Recall = snippets
		}
	}
}

// Execute answers from what is already loaded: entities matching the topic
// or mentions, preference hits, and recall snippets. It performs no writes.
func (m *Memory) Execute(ctx context.Context, actx *core.AgentContext) Result {
	result := Result{Kind: core.KindMemory, Success: true, Data: map[string]any{}}

	names := make([]string, 0, len(actx.Mentions)+1)
	if actx.Topic != "" {
		names = append(names, actx.Topic)
	}
	names = append(names, actx.Mentions...)

	matched := matchEntities(actx.Entities, names)
	for _, ent := range matched {
		fragment := ent.Name
		if ent.Kind != "" {
			fragment += " (" + ent.Kind + ")"
		}
		if ent.Notes != "" {
			fragment += ": " + ent.Notes
		}
		result.Fragments = append(result.Fragments, fragment)
	}
	if len(matched) > 0 {
		result.Data["entities"] = matched
	}

	if hits := matchPreferences(actx.Preferences, names); len(hits) > 0 {
		result.Data["preferences"] = hits
		for key, value := range hits {
			result.Fragments = append(result.Fragments, fmt.Sprintf("You prefer %s: %s", key, value))
		}
	}

	if len(actx.Recall) > 0 {
		result.Data["recall"] = actx.Recall
	}

	// The honest miss only belongs on turns that asked memory directly;
	// on task or habit turns silence is the right contribution.
	if len(result.Fragments) == 0 && len(names) > 0 && actx.Intent == "memory" {
		result.Fragments = append(result.Fragments,
			fmt.Sprintf("I don't have anything saved about %s yet.", names[0]))
	}

	return result
}

// matchEntities returns entities whose name contains any of the lookup
// names, case-insensitive.
func matchEntities(entities []core.Entity, names []string) []core.Entity {
	if len(names) == 0 {
		return nil
	}
	var out []core.Entity
	for _, ent := range entities {
		lower := strings.ToLower(ent.Name)
		for _, name := range names {
			if name == "" {
				continue
			}
			if strings.Contains(lower, strings.ToLower(name)) {
				out = append(out, ent)
				break
			}
		}
	}
	return out
}

func matchPreferences(prefs map[string]string, names []string) map[string]string {
	if len(prefs) == 0 || len(names) == 0 {
		return nil
	}
	hits := map[string]string{}
	for key, value := range prefs {
		lowerKey := strings.ToLower(key)
		for _, name := range names {
			if name == "" {
				continue
			}
			if strings.Contains(lowerKey, strings.ToLower(name)) {
				hits[key] = value
				break
			}
		}
	}
	if len(hits) == 0 {
		return nil
	}
	return hits
}

const learnPrompt = `Extract durable facts about the user from this exchange. Reply with a JSON array of {"key": "...", "value": "..."} preference pairs, or [] if nothing is worth remembering. Only include stable facts (preferences, people, recurring plans), never one-off details.`

// Learn runs after the reply is sent. It asks the model for durable facts
// in the exchange and persists them. Failures are reported, never fatal;
// the orchestrator only logs them.
func (m *Memory) Learn(ctx context.Context, userID, input, reply string) error {
	if m.provider == nil {
		return nil
	}

	resp, err := m.provider.Chat(ctx, llm.ChatRequest{
		Model: m.model,
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: learnPrompt},
			{Role: llm.RoleUser, Content: fmt.Sprintf("User: %s\nAssistant: %s", input, reply)},
		},
		Temperature: 0,
	})
	if err != nil {
		return verrors.New(verrors.CodeMemoryError, "learning extraction failed", err).
			WithContext("user_id", userID).
			WithRecoverable(true)
	}

	var facts []struct {
		Key   string `json:"key"`
		Value string `json:"value"`
	}
	raw := extractJSONArray(resp.Content)
	if raw == "" {
		return nil
	}
	if err := json.Unmarshal([]byte(raw), &facts); err != nil {
		// Model noise, not a system fault. Skip the turn.
		return nil
	}

	for _, fact := range facts {
		if fact.Key == "" || fact.Value == "" {
			continue
		}
		if err := m.store.SavePreference(ctx, userID, fact.Key, fact.Value); err != nil {
			return verrors.New(verrors.CodeStorageError, "saving learned preference failed", err).
				WithContext("key", fact.Key)
		}
		if m.recaller != nil {
			if err := m.recaller.Remember(ctx, userID, fact.Key+": "+fact.Value); err != nil {
				slog.Warn("memory.learn.remember_failed",
					slog.String("user_id", userID),
					slog.String("error", err.Error()),
				)
			}
		}
	}
	return nil
}

// extractJSONArray pulls the first balanced [...] block out of model text,
// tolerating prose around it.
func extractJSONArray(s string) string {
	start := strings.Index(s, "[")
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
		case '[':
			depth++
		case ']':
			depth--
			if depth == 0 {
				return s[start : i+1]
			}
		}
	}
	return ""
}
