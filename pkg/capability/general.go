// Copyright 2026 © The Valet Authors
// SPDX-License-Identifier: Apache-2.0

package capability

import (
	"context"

	"github.com/valetd/valet/pkg/core"
	"github.com/valetd/valet/pkg/llm"
)

const generalPrompt = `You are Valet, a personal assistant. Answer the user's message conversationally in one or two sentences. You have no tools here; if the request needs real data you don't have, say so briefly.`

// General is the conversational fallback for requests no specialized
// module claims.
type General struct {
	provider llm.Provider
	model    string
}

func NewGeneral(provider llm.Provider, model string) *General {
	return &General{provider: provider, model: model}
}

func (g *General) Kind() core.CapabilityKind { return core.KindGeneral }

func (g *General) Description() string {
	return "Answers open-ended conversation"
}

// CanHandle scores general conversation highest but never zero; the
// module can say something about almost any context.
func (g *General) CanHandle(actx *core.AgentContext) float64 {
	if actx.Intent == "general" {
		return 1
	}
	return 0.5
}

func (g *General) Execute(ctx context.Context, actx *core.AgentContext) Result {
	result := Result{Kind: core.KindGeneral}

	resp, err := g.provider.Chat(ctx, llm.ChatRequest{
		Model: g.model,
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: generalPrompt},
			{Role: llm.RoleUser, Content: actx.Input},
		},
	})
	if err != nil {
		result.Err = err.Error()
		return result
	}

	result.Success = true
	result.Fragments = append(result.Fragments, resp.Content)
	result.Metrics.Tokens = resp.Usage.TotalTokens
	return result
}
