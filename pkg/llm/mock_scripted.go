// Copyright 2026 © The Valet Authors
// SPDX-License-Identifier: Apache-2.0

package llm

import (
	"context"
	"errors"
	"sync"
)

// ScriptedMockProvider is a mock provider that returns a pre-defined sequence
// of responses. Useful for testing multi-turn interactions (e.g. the tool loop).
type ScriptedMockProvider struct {
	mu        sync.Mutex
	Responses []string
	Err       error
	// CallCount tracks how many times Chat has been called
	CallCount int
}

// NewScriptedMockProvider creates a new ScriptedMockProvider.
func NewScriptedMockProvider(responses ...string) *ScriptedMockProvider {
	return &ScriptedMockProvider{
		Responses: responses,
	}
}

// Chat pops the next scripted response or returns the configured error.
func (s *ScriptedMockProvider) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.CallCount++

	if s.Err != nil {
		return nil, s.Err
	}

	if len(s.Responses) == 0 {
		return nil, errors.New("scripted mock: no more responses available")
	}

	content := s.Responses[0]
	s.Responses = s.Responses[1:]

	return &ChatResponse{
		Content: content,
		Usage: Usage{
			PromptTokens:     10,
			CompletionTokens: 10,
			TotalTokens:      20,
		},
	}, nil
}

// AddResponse appends a response to the queue.
func (s *ScriptedMockProvider) AddResponse(response string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Responses = append(s.Responses, response)
}

// ToolScriptProvider replays a fixed sequence of full chat responses,
// including tool calls. Useful for exercising the tool loop deterministically.
type ToolScriptProvider struct {
	mu        sync.Mutex
	Script    []*ChatResponse
	CallCount int
}

// NewToolScriptProvider creates a provider that replays script in order.
// When the script runs out, the last response is repeated.
func NewToolScriptProvider(script ...*ChatResponse) *ToolScriptProvider {
	return &ToolScriptProvider{Script: script}
}

func (s *ToolScriptProvider) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.Script) == 0 {
		return nil, errors.New("tool script: empty script")
	}

	idx := s.CallCount
	if idx >= len(s.Script) {
		idx = len(s.Script) - 1
	}
	s.CallCount++

	resp := *s.Script[idx]
	if resp.Usage.TotalTokens == 0 {
		resp.Usage = Usage{PromptTokens: 10, CompletionTokens: 10, TotalTokens: 20}
	}
	return &resp, nil
}

// ToolCallResponse builds a chat response requesting a single tool call.
func ToolCallResponse(callID, name, arguments string) *ChatResponse {
	return &ChatResponse{
		ToolCalls: []ToolCall{{
			ID:   callID,
			Type: ToolTypeFunction,
			Function: FunctionCall{
				Name:      name,
				Arguments: arguments,
			},
		}},
	}
}

// TextResponse builds a plain final-answer chat response.
func TextResponse(content string) *ChatResponse {
	return &ChatResponse{Content: content}
}
