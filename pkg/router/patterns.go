// Copyright 2026 © The Valet Authors
// SPDX-License-Identifier: Apache-2.0

package router

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/valetd/valet/pkg/core"
	"gopkg.in/yaml.v3"
)

// Pattern is one ordered fast-path rule. The first matching pattern wins;
// order in the table is the tiebreak.
type Pattern struct {
	re       *regexp.Regexp
	intent   string
	required []core.CapabilityKind
	optional []core.CapabilityKind
	priority core.Priority
}

// MustPattern compiles a rule, panicking on a bad expression. Intended
// for the static default table and startup-time config loading.
func MustPattern(expr, intent string, required []core.CapabilityKind, optional ...core.CapabilityKind) Pattern {
	return Pattern{
		re:       regexp.MustCompile(expr),
		intent:   intent,
		required: required,
		optional: optional,
		priority: core.PriorityNormal,
	}
}

// Match tests the input. On a hit it builds the decision: pattern hits
// carry fixed high confidence, and the first capture group (when present)
// becomes the topic.
func (p Pattern) Match(input string) (core.RoutingDecision, bool) {
	groups := p.re.FindStringSubmatch(input)
	if groups == nil {
		return core.RoutingDecision{}, false
	}

	decision := core.RoutingDecision{
		Intent:     p.intent,
		Required:   append([]core.CapabilityKind(nil), p.required...),
		Optional:   append([]core.CapabilityKind(nil), p.optional...),
		Priority:   p.priority,
		Confidence: patternConfidence,
	}
	if len(groups) > 1 && groups[1] != "" {
		decision.Topic = strings.ToLower(strings.TrimSpace(groups[1]))
		decision.Mentions = []string{decision.Topic}
	}
	return decision, true
}

// DefaultPatterns is the built-in rule table. Rules are ordered from most
// to least specific; keep new rules above the catch-alls they overlap.
func DefaultPatterns() []Pattern {
	return []Pattern{
		MustPattern(`(?i)\b(?:create|add|make|new)\b.*\btask\b(?:\s+(?:to|for|about)\s+(.+))?`, "task",
			[]core.CapabilityKind{core.KindTask}),
		MustPattern(`(?i)\btask\b.*\b(?:done|complete|finished)\b`, "task",
			[]core.CapabilityKind{core.KindTask}),
		MustPattern(`(?i)\b(?:my|list|show|what)\b.*\btasks?\b`, "task",
			[]core.CapabilityKind{core.KindTask}),
		MustPattern(`(?i)\bhabits?\b`, "habit",
			[]core.CapabilityKind{core.KindHabit}),
		MustPattern(`(?i)\bstreak\b`, "habit",
			[]core.CapabilityKind{core.KindHabit}),
		MustPattern(`(?i)\bprojects?\b(?:\s+(.+))?`, "project",
			[]core.CapabilityKind{core.KindProject}, core.KindTask),
		MustPattern(`(?i)^who\s+is\s+(.+?)\??$`, "memory",
			[]core.CapabilityKind{core.KindMemory}),
		MustPattern(`(?i)^(?:do you )?remember\b(?:\s+(.+))?`, "memory",
			[]core.CapabilityKind{core.KindMemory}),
		MustPattern(`(?i)\bwhat do (?:you|i) (?:know|prefer)\b.*?(?:about\s+(.+))?`, "memory",
			[]core.CapabilityKind{core.KindMemory}),
	}
}

// patternFile is the YAML shape for an external rule table.
type patternFile struct {
	Patterns []struct {
		Expr     string   `yaml:"expr"`
		Intent   string   `yaml:"intent"`
		Required []string `yaml:"required"`
		Optional []string `yaml:"optional"`
	} `yaml:"patterns"`
}

// LoadPatterns reads an ordered rule table from a YAML file. Unknown
// capability labels and bad expressions are errors; a half-loaded table
// would silently misroute.
func LoadPatterns(path string) ([]Pattern, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading pattern file: %w", err)
	}

	var file patternFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parsing pattern file: %w", err)
	}

	patterns := make([]Pattern, 0, len(file.Patterns))
	for i, entry := range file.Patterns {
		re, err := regexp.Compile(entry.Expr)
		if err != nil {
			return nil, fmt.Errorf("pattern %d: %w", i, err)
		}
		if entry.Intent == "" {
			return nil, fmt.Errorf("pattern %d: missing intent", i)
		}
		required, err := parseKindLabels(entry.Required)
		if err != nil {
			return nil, fmt.Errorf("pattern %d: %w", i, err)
		}
		optional, err := parseKindLabels(entry.Optional)
		if err != nil {
			return nil, fmt.Errorf("pattern %d: %w", i, err)
		}
		patterns = append(patterns, Pattern{
			re:       re,
			intent:   entry.Intent,
			required: required,
			optional: optional,
			priority: core.PriorityNormal,
		})
	}
	return patterns, nil
}

func parseKindLabels(labels []string) ([]core.CapabilityKind, error) {
	var kinds []core.CapabilityKind
	for _, label := range labels {
		kind, ok := core.ParseKind(label)
		if !ok {
			return nil, fmt.Errorf("unknown capability %q", label)
		}
		kinds = append(kinds, kind)
	}
	return kinds, nil
}
