// Copyright 2026 © The Valet Authors
// SPDX-License-Identifier: Apache-2.0

package llm

import (
	"context"
	"errors"
	"testing"
)

func TestMockProvider(t *testing.T) {
	mock := &MockProvider{Response: "Hello world"}
	resp, err := mock.Chat(context.Background(), ChatRequest{
		Messages: []Message{{Role: RoleUser, Content: "Hi"}},
	})
	if err != nil {
		t.Fatalf("Chat failed: %v", err)
	}
	if resp.Content != "Hello world" {
		t.Errorf("Expected 'Hello world', got '%s'", resp.Content)
	}
}

func TestMockProviderToolCalls(t *testing.T) {
	mock := &MockProvider{
		ToolCalls: []ToolCall{{
			Type:     ToolTypeFunction,
			Function: FunctionCall{Name: "get_tasks", Arguments: "{}"},
		}},
	}
	resp, err := mock.Chat(context.Background(), ChatRequest{})
	if err != nil {
		t.Fatalf("Chat failed: %v", err)
	}
	if len(resp.ToolCalls) != 1 || resp.ToolCalls[0].Function.Name != "get_tasks" {
		t.Errorf("Expected get_tasks tool call, got %+v", resp.ToolCalls)
	}
}

func TestScriptedMockProvider(t *testing.T) {
	scripted := NewScriptedMockProvider("first", "second")

	for i, want := range []string{"first", "second"} {
		resp, err := scripted.Chat(context.Background(), ChatRequest{})
		if err != nil {
			t.Fatalf("Chat %d failed: %v", i, err)
		}
		if resp.Content != want {
			t.Errorf("Chat %d: expected %q, got %q", i, want, resp.Content)
		}
	}

	if _, err := scripted.Chat(context.Background(), ChatRequest{}); err == nil {
		t.Error("Expected error when responses are exhausted")
	}
	if scripted.CallCount != 3 {
		t.Errorf("Expected 3 calls, got %d", scripted.CallCount)
	}
}

func TestFailingMockProvider(t *testing.T) {
	boom := errors.New("boom")
	failing := &FailingMockProvider{Err: boom}
	if _, err := failing.Chat(context.Background(), ChatRequest{}); !errors.Is(err, boom) {
		t.Errorf("Expected boom, got %v", err)
	}
}
