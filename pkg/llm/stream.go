// Copyright 2026 © The Valet Authors
// SPDX-License-Identifier: Apache-2.0

package llm

import "context"

// StreamChunk is one incremental unit of a streamed completion.
// Content chunks arrive first; the final chunk carries Done=true together
// with any accumulated tool calls and usage totals.
type StreamChunk struct {
	Content   string
	ToolCalls []ToolCall
	Usage     *Usage
	Done      bool
	Error     error
}

// StreamingProvider is implemented by providers that support incremental
// token delivery. The returned channel is closed when the stream ends.
type StreamingProvider interface {
	Provider
	ChatStream(ctx context.Context, req ChatRequest) (<-chan StreamChunk, error)
}
