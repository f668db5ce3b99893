// Copyright 2026 © The Valet Authors
// SPDX-License-Identifier: Apache-2.0

package testing

import (
	"context"
	"sync"

	"github.com/valetd/valet/pkg/llm"
)

// ScenarioProvider is a scripted model double with request capture and
// conditional responses, for callers assembling their own assistants.
type ScenarioProvider struct {
	mu           sync.Mutex
	responses    []ScriptedResponse
	currentIndex int
	requests     []llm.ChatRequest
	onChat       func(req llm.ChatRequest) (*llm.ChatResponse, error)
}

// ScriptedResponse defines one queued model response. When Condition is
// set the response only fires for matching requests.
type ScriptedResponse struct {
	Content   string
	ToolCalls []llm.ToolCall
	Error     error
	Usage     llm.Usage
	Condition func(req llm.ChatRequest) bool
}

// NewScenarioProvider creates an empty scenario provider.
func NewScenarioProvider() *ScenarioProvider {
	return &ScenarioProvider{}
}

// AddResponse queues a plain text response.
func (p *ScenarioProvider) AddResponse(content string) *ScenarioProvider {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.responses = append(p.responses, ScriptedResponse{Content: content})
	return p
}

// AddToolCallResponse queues a response containing tool calls.
func (p *ScenarioProvider) AddToolCallResponse(toolCalls ...llm.ToolCall) *ScenarioProvider {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.responses = append(p.responses, ScriptedResponse{ToolCalls: toolCalls})
	return p
}

// AddError queues a provider failure.
func (p *ScenarioProvider) AddError(err error) *ScenarioProvider {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.responses = append(p.responses, ScriptedResponse{Error: err})
	return p
}

// AddScripted queues a fully specified response.
func (p *ScenarioProvider) AddScripted(resp ScriptedResponse) *ScenarioProvider {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.responses = append(p.responses, resp)
	return p
}

// OnChat installs a handler that overrides the queued script entirely.
func (p *ScenarioProvider) OnChat(fn func(req llm.ChatRequest) (*llm.ChatResponse, error)) *ScenarioProvider {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.onChat = fn
	return p
}

// Chat implements llm.Provider. The script is consumed in order; entries
// with a non-matching Condition are skipped for the current request. An
// exhausted script repeats its last unconditional entry.
func (p *ScenarioProvider) Chat(_ context.Context, req llm.ChatRequest) (*llm.ChatResponse, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.requests = append(p.requests, req)

	if p.onChat != nil {
		return p.onChat(req)
	}

	for i := p.currentIndex; i < len(p.responses); i++ {
		resp := p.responses[i]
		if resp.Condition != nil && !resp.Condition(req) {
			continue
		}
		p.currentIndex = i + 1
		return materialize(resp)
	}

	// Replay the last unconditional entry so long conversations keep
	// getting answers.
	for i := len(p.responses) - 1; i >= 0; i-- {
		if p.responses[i].Condition == nil {
			return materialize(p.responses[i])
		}
	}
	return &llm.ChatResponse{Content: ""}, nil
}

// Requests returns a copy of every captured request.
func (p *ScenarioProvider) Requests() []llm.ChatRequest {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]llm.ChatRequest, len(p.requests))
	copy(out, p.requests)
	return out
}

// CallCount returns how many Chat calls were made.
func (p *ScenarioProvider) CallCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.requests)
}

// Reset clears captured requests and rewinds the script.
func (p *ScenarioProvider) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.requests = nil
	p.currentIndex = 0
}

func materialize(resp ScriptedResponse) (*llm.ChatResponse, error) {
	if resp.Error != nil {
		return nil, resp.Error
	}
	usage := resp.Usage
	if usage.TotalTokens == 0 {
		usage = llm.Usage{PromptTokens: 10, CompletionTokens: 10, TotalTokens: 20}
	}
	return &llm.ChatResponse{
		Content:   resp.Content,
		ToolCalls: resp.ToolCalls,
		Usage:     usage,
	}, nil
}

var _ llm.Provider = (*ScenarioProvider)(nil)
