// Copyright 2026 © The Valet Authors
// SPDX-License-Identifier: Apache-2.0

// Package testing provides utilities for exercising assistant turns:
// scripted model doubles, a declarative scenario runner, and an event
// collector for verifying turn lifecycles.
//
// Example:
//
//	scenario := valettest.NewScenario("greeting").
//	    WithInput("Hello").
//	    ExpectReply(valettest.Contains("Hello")).
//	    ExpectEvent(core.EventTurnCompleted)
//
//	scenario.Run(t, assistant)
package testing

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/valetd/valet/pkg/core"
)

// TurnRunner handles one conversational turn. The orchestrator
// satisfies it.
type TurnRunner interface {
	Process(ctx context.Context, userID, input string) string
}

// Scenario is a declarative single-turn test case.
type Scenario struct {
	name          string
	userID        string
	input         string
	timeout       time.Duration
	collector     *EventCollector
	expectations  []Expectation
	setupFuncs    []func() error
	teardownFuncs []func() error
}

// Expectation is a condition verified after the turn completes.
type Expectation interface {
	Check(result *ScenarioResult) error
	Description() string
}

// ScenarioResult is the observed outcome of one scenario run.
type ScenarioResult struct {
	Reply    string
	Events   []core.Event
	Duration time.Duration
}

// NewScenario creates a scenario with a 30 second default timeout.
func NewScenario(name string) *Scenario {
	return &Scenario{
		name:    name,
		userID:  "test-user",
		timeout: 30 * time.Second,
	}
}

// WithUser sets the user the turn runs as.
func (s *Scenario) WithUser(userID string) *Scenario {
	s.userID = userID
	return s
}

// WithInput sets the user message.
func (s *Scenario) WithInput(input string) *Scenario {
	s.input = input
	return s
}

// WithTimeout bounds the turn.
func (s *Scenario) WithTimeout(d time.Duration) *Scenario {
	s.timeout = d
	return s
}

// WithEventCollector attaches a collector whose events feed the
// scenario's event expectations. Install the same collector as the
// assistant's event emitter.
func (s *Scenario) WithEventCollector(c *EventCollector) *Scenario {
	s.collector = c
	return s
}

// WithSetup registers a function run before the turn.
func (s *Scenario) WithSetup(fn func() error) *Scenario {
	s.setupFuncs = append(s.setupFuncs, fn)
	return s
}

// WithTeardown registers a function run after the turn.
func (s *Scenario) WithTeardown(fn func() error) *Scenario {
	s.teardownFuncs = append(s.teardownFuncs, fn)
	return s
}

// Expect adds a custom expectation.
func (s *Scenario) Expect(exp Expectation) *Scenario {
	s.expectations = append(s.expectations, exp)
	return s
}

// ExpectReply asserts on the assistant's reply text.
func (s *Scenario) ExpectReply(matcher StringMatcher) *Scenario {
	return s.Expect(&replyExpectation{matcher: matcher})
}

// ExpectEvent asserts an event of the given type was emitted.
func (s *Scenario) ExpectEvent(eventType core.EventType) *Scenario {
	return s.Expect(&eventExpectation{eventType: eventType})
}

// ExpectNoEvent asserts no event of the given type was emitted.
func (s *Scenario) ExpectNoEvent(eventType core.EventType) *Scenario {
	return s.Expect(&noEventExpectation{eventType: eventType})
}

// ExpectMaxDuration asserts the turn completed within d.
func (s *Scenario) ExpectMaxDuration(d time.Duration) *Scenario {
	return s.Expect(&maxDurationExpectation{max: d})
}

// Run executes the scenario and checks every expectation.
func (s *Scenario) Run(t *testing.T, runner TurnRunner) *ScenarioResult {
	t.Helper()

	for _, setup := range s.setupFuncs {
		if err := setup(); err != nil {
			t.Fatalf("scenario %q setup failed: %v", s.name, err)
		}
	}
	defer func() {
		for _, teardown := range s.teardownFuncs {
			if err := teardown(); err != nil {
				t.Errorf("scenario %q teardown failed: %v", s.name, err)
			}
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	start := time.Now()
	reply := runner.Process(ctx, s.userID, s.input)

	result := &ScenarioResult{
		Reply:    reply,
		Duration: time.Since(start),
	}
	if s.collector != nil {
		result.Events = s.collector.Events()
	}

	for _, exp := range s.expectations {
		if err := exp.Check(result); err != nil {
			t.Errorf("scenario %q: expectation %q failed: %v", s.name, exp.Description(), err)
		}
	}
	return result
}

// StringMatcher matches reply text in expectations.
type StringMatcher interface {
	Match(s string) bool
	Description() string
}

// Contains matches strings containing substr.
func Contains(substr string) StringMatcher {
	return matcherFunc{
		fn:   func(s string) bool { return strings.Contains(s, substr) },
		desc: fmt.Sprintf("contains %q", substr),
	}
}

// Equals matches exactly.
func Equals(expected string) StringMatcher {
	return matcherFunc{
		fn:   func(s string) bool { return s == expected },
		desc: fmt.Sprintf("equals %q", expected),
	}
}

// Regex matches against a compiled pattern. Panics on a bad pattern.
func Regex(pattern string) StringMatcher {
	re := regexp.MustCompile(pattern)
	return matcherFunc{
		fn:   re.MatchString,
		desc: fmt.Sprintf("matches %q", pattern),
	}
}

type matcherFunc struct {
	fn   func(string) bool
	desc string
}

func (m matcherFunc) Match(s string) bool { return m.fn(s) }
func (m matcherFunc) Description() string { return m.desc }

type replyExpectation struct {
	matcher StringMatcher
}

func (e *replyExpectation) Check(r *ScenarioResult) error {
	if !e.matcher.Match(r.Reply) {
		return fmt.Errorf("reply %q does not match: %s", r.Reply, e.matcher.Description())
	}
	return nil
}

func (e *replyExpectation) Description() string {
	return fmt.Sprintf("reply %s", e.matcher.Description())
}

type eventExpectation struct {
	eventType core.EventType
}

func (e *eventExpectation) Check(r *ScenarioResult) error {
	for _, ev := range r.Events {
		if ev.Type == e.eventType {
			return nil
		}
	}
	return fmt.Errorf("event %q was not emitted", e.eventType)
}

func (e *eventExpectation) Description() string {
	return fmt.Sprintf("event %q emitted", e.eventType)
}

type noEventExpectation struct {
	eventType core.EventType
}

func (e *noEventExpectation) Check(r *ScenarioResult) error {
	for _, ev := range r.Events {
		if ev.Type == e.eventType {
			return fmt.Errorf("event %q was emitted", e.eventType)
		}
	}
	return nil
}

func (e *noEventExpectation) Description() string {
	return fmt.Sprintf("no event %q", e.eventType)
}

type maxDurationExpectation struct {
	max time.Duration
}

func (e *maxDurationExpectation) Check(r *ScenarioResult) error {
	if r.Duration > e.max {
		return fmt.Errorf("duration %v exceeds maximum %v", r.Duration, e.max)
	}
	return nil
}

func (e *maxDurationExpectation) Description() string {
	return fmt.Sprintf("duration <= %v", e.max)
}

// EventCollector records events emitted during a turn. It satisfies
// core.EventEmitter.
type EventCollector struct {
	mu     sync.RWMutex
	events []core.Event
}

// NewEventCollector creates an empty collector.
func NewEventCollector() *EventCollector {
	return &EventCollector{}
}

// Emit implements core.EventEmitter.
func (c *EventCollector) Emit(_ context.Context, event core.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, event)
}

// Events returns a copy of every collected event.
func (c *EventCollector) Events() []core.Event {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]core.Event, len(c.events))
	copy(out, c.events)
	return out
}

// Types returns the event types in emission order.
func (c *EventCollector) Types() []core.EventType {
	c.mu.RLock()
	defer c.mu.RUnlock()
	types := make([]core.EventType, len(c.events))
	for i, ev := range c.events {
		types[i] = ev.Type
	}
	return types
}

// Has reports whether an event of the given type was collected.
func (c *EventCollector) Has(eventType core.EventType) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, ev := range c.events {
		if ev.Type == eventType {
			return true
		}
	}
	return false
}

// Reset clears the collector.
func (c *EventCollector) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = c.events[:0]
}

var _ core.EventEmitter = (*EventCollector)(nil)
