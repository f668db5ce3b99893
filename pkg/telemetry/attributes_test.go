// Copyright 2026 © The Valet Authors
// SPDX-License-Identifier: Apache-2.0

package telemetry

import (
	"testing"

	"go.opentelemetry.io/otel/attribute"
)

func TestTurnAttributes(t *testing.T) {
	attrs := TurnAttributes("run-1", "sess-1", "user-1", "cli")
	assertAttributes(t, attrs, map[string]any{
		AttrTurnRunID:     "run-1",
		AttrTurnSessionID: "sess-1",
		AttrTurnUserID:    "user-1",
		AttrTurnChannel:   "cli",
	})
}

func TestTurnAttributes_OmitsEmpty(t *testing.T) {
	attrs := TurnAttributes("run-1", "", "user-1", "")
	if len(attrs) != 2 {
		t.Fatalf("expected 2 attributes, got %d", len(attrs))
	}
}

func TestRoutingAttributes(t *testing.T) {
	attrs := RoutingAttributes("task", "groceries", "pattern", 0.85, []string{"memory", "task"})
	assertAttributes(t, attrs, map[string]any{
		AttrRouteIntent:     "task",
		AttrRouteTopic:      "groceries",
		AttrRouteSource:     "pattern",
		AttrRouteConfidence: 0.85,
	})
}

func TestCapabilityAttributes(t *testing.T) {
	attrs := CapabilityAttributes("memory", true, 12.5, 2)
	assertAttributes(t, attrs, map[string]any{
		AttrCapabilityKind:    "memory",
		AttrCapabilitySuccess: true,
		AttrCapabilityDurMs:   12.5,
		AttrCapabilityActions: 2,
	})
}

func TestExecutorAttributes(t *testing.T) {
	attrs := ExecutorAttributes("done", 3, 3, 420)
	assertAttributes(t, attrs, map[string]any{
		AttrExecutorState:     "done",
		AttrExecutorSteps:     3,
		AttrExecutorToolCalls: 3,
		AttrExecutorTokens:    420,
	})
}

func TestToolCallAttributes(t *testing.T) {
	attrs := ToolCallAttributes("create_task", "call-1", 3.2, true)
	assertAttributes(t, attrs, map[string]any{
		AttrToolName:       "create_task",
		AttrToolCallID:     "call-1",
		AttrToolDurationMs: 3.2,
		AttrToolSuccess:    true,
	})
}

func TestToolCallArgsResult_Truncation(t *testing.T) {
	long := make([]byte, 600)
	for i := range long {
		long[i] = 'x'
	}
	attrs := ToolCallArgsResult(string(long), "ok", 500)
	for _, kv := range attrs {
		if string(kv.Key) == AttrToolArgs {
			if got := len(kv.Value.AsString()); got != 503 {
				t.Errorf("expected truncated args of length 503, got %d", got)
			}
		}
	}
}

func TestLLMUsageAttributes(t *testing.T) {
	attrs := LLMUsageAttributes(100, 40, 250.0)
	assertAttributes(t, attrs, map[string]any{
		AttrLLMTokensInput:  100,
		AttrLLMTokensOutput: 40,
		AttrLLMTokensTotal:  140,
		AttrLLMDurationMs:   250.0,
	})
}

func TestMemoryAttributes(t *testing.T) {
	attrs := MemoryAttributes("valet_memories", 5, true)
	assertAttributes(t, attrs, map[string]any{
		AttrMemoryCollection: "valet_memories",
		AttrMemoryRetrieved:  5,
		AttrMemoryStored:     true,
	})
}

func assertAttributes(t *testing.T, attrs []attribute.KeyValue, expected map[string]any) {
	t.Helper()
	byKey := make(map[string]attribute.Value, len(attrs))
	for _, kv := range attrs {
		byKey[string(kv.Key)] = kv.Value
	}
	for key, want := range expected {
		val, ok := byKey[key]
		if !ok {
			t.Errorf("missing attribute %q", key)
			continue
		}
		switch w := want.(type) {
		case string:
			if val.AsString() != w {
				t.Errorf("%s = %q, want %q", key, val.AsString(), w)
			}
		case int:
			if val.AsInt64() != int64(w) {
				t.Errorf("%s = %d, want %d", key, val.AsInt64(), w)
			}
		case float64:
			if val.AsFloat64() != w {
				t.Errorf("%s = %f, want %f", key, val.AsFloat64(), w)
			}
		case bool:
			if val.AsBool() != w {
				t.Errorf("%s = %v, want %v", key, val.AsBool(), w)
			}
		}
	}
}
