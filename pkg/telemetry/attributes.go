// Copyright 2026 © The Valet Authors
// SPDX-License-Identifier: Apache-2.0

// Package telemetry provides OpenTelemetry integration with rich attributes
// for assistant observability.
package telemetry

import (
	"go.opentelemetry.io/otel/attribute"
)

// Semantic conventions for Valet telemetry.
// These follow OpenTelemetry naming conventions where applicable.
const (
	// Turn attributes
	AttrTurnRunID     = "valet.turn.run_id"
	AttrTurnSessionID = "valet.turn.session_id"
	AttrTurnUserID    = "valet.turn.user_id"
	AttrTurnChannel   = "valet.turn.channel"

	// Routing attributes
	AttrRouteIntent     = "valet.route.intent"
	AttrRouteTopic      = "valet.route.topic"
	AttrRouteConfidence = "valet.route.confidence"
	AttrRouteSource     = "valet.route.source" // "pattern", "llm", "fallback"
	AttrRouteRequired   = "valet.route.required"

	// Capability attributes
	AttrCapabilityKind    = "valet.capability.kind"
	AttrCapabilitySuccess = "valet.capability.success"
	AttrCapabilityDurMs   = "valet.capability.duration_ms"
	AttrCapabilityActions = "valet.capability.action_count"

	// Executor attributes
	AttrExecutorState     = "valet.executor.state"
	AttrExecutorSteps     = "valet.executor.steps"
	AttrExecutorToolCalls = "valet.executor.tool_calls"
	AttrExecutorTokens    = "valet.executor.tokens"

	// Tool attributes
	AttrToolName       = "valet.tool.name"
	AttrToolCallID     = "valet.tool.call_id"
	AttrToolArgs       = "valet.tool.arguments"
	AttrToolResult     = "valet.tool.result"
	AttrToolDurationMs = "valet.tool.duration_ms"
	AttrToolSuccess    = "valet.tool.success"

	// LLM attributes (extending standard gen_ai conventions)
	AttrLLMModel        = "gen_ai.request.model"
	AttrLLMProvider     = "gen_ai.system"
	AttrLLMMessages     = "gen_ai.request.messages"
	AttrLLMTokensInput  = "gen_ai.usage.input_tokens"
	AttrLLMTokensOutput = "gen_ai.usage.output_tokens"
	AttrLLMTokensTotal  = "gen_ai.usage.total_tokens"
	AttrLLMDurationMs   = "gen_ai.duration_ms"
	AttrLLMToolCalls    = "gen_ai.tool_calls"

	// Memory attributes
	AttrMemoryCollection = "valet.memory.collection"
	AttrMemoryRetrieved  = "valet.memory.retrieved_count"
	AttrMemoryStored     = "valet.memory.stored"

	// Event attributes
	AttrEventType    = "valet.event.type"
	AttrEventPayload = "valet.event.payload"
)

// TurnAttributes returns common attributes for a conversational turn span.
func TurnAttributes(runID, sessionID, userID, channel string) []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		attribute.String(AttrTurnRunID, runID),
		attribute.String(AttrTurnUserID, userID),
	}
	if sessionID != "" {
		attrs = append(attrs, attribute.String(AttrTurnSessionID, sessionID))
	}
	if channel != "" {
		attrs = append(attrs, attribute.String(AttrTurnChannel, channel))
	}
	return attrs
}

// RoutingAttributes returns attributes describing a routing decision.
func RoutingAttributes(intent, topic, source string, confidence float64, required []string) []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		attribute.String(AttrRouteIntent, intent),
		attribute.Float64(AttrRouteConfidence, confidence),
	}
	if topic != "" {
		attrs = append(attrs, attribute.String(AttrRouteTopic, topic))
	}
	if source != "" {
		attrs = append(attrs, attribute.String(AttrRouteSource, source))
	}
	if len(required) > 0 {
		attrs = append(attrs, attribute.StringSlice(AttrRouteRequired, required))
	}
	return attrs
}

// CapabilityAttributes returns attributes for a capability execution span.
func CapabilityAttributes(kind string, success bool, durationMs float64, actionCount int) []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		attribute.String(AttrCapabilityKind, kind),
		attribute.Bool(AttrCapabilitySuccess, success),
		attribute.Float64(AttrCapabilityDurMs, durationMs),
	}
	if actionCount > 0 {
		attrs = append(attrs, attribute.Int(AttrCapabilityActions, actionCount))
	}
	return attrs
}

// ExecutorAttributes returns attributes summarizing a tool-loop run.
func ExecutorAttributes(state string, steps, toolCalls, tokens int) []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		attribute.String(AttrExecutorState, state),
		attribute.Int(AttrExecutorSteps, steps),
		attribute.Int(AttrExecutorToolCalls, toolCalls),
	}
	if tokens > 0 {
		attrs = append(attrs, attribute.Int(AttrExecutorTokens, tokens))
	}
	return attrs
}

// ToolCallAttributes returns attributes for a tool call span.
func ToolCallAttributes(name, callID string, durationMs float64, success bool) []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		attribute.String(AttrToolName, name),
		attribute.Float64(AttrToolDurationMs, durationMs),
		attribute.Bool(AttrToolSuccess, success),
	}
	if callID != "" {
		attrs = append(attrs, attribute.String(AttrToolCallID, callID))
	}
	return attrs
}

// ToolCallArgsResult returns attributes with tool arguments and result (truncated for safety).
func ToolCallArgsResult(args, result string, maxLen int) []attribute.KeyValue {
	if maxLen <= 0 {
		maxLen = 500
	}
	attrs := []attribute.KeyValue{}
	if args != "" {
		if len(args) > maxLen {
			args = args[:maxLen] + "..."
		}
		attrs = append(attrs, attribute.String(AttrToolArgs, args))
	}
	if result != "" {
		if len(result) > maxLen {
			result = result[:maxLen] + "..."
		}
		attrs = append(attrs, attribute.String(AttrToolResult, result))
	}
	return attrs
}

// LLMAttributes returns attributes for LLM call spans.
func LLMAttributes(model, provider string, msgCount int, toolCallCount int) []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		attribute.String(AttrLLMModel, model),
		attribute.Int(AttrLLMMessages, msgCount),
	}
	if provider != "" {
		attrs = append(attrs, attribute.String(AttrLLMProvider, provider))
	}
	if toolCallCount > 0 {
		attrs = append(attrs, attribute.Int(AttrLLMToolCalls, toolCallCount))
	}
	return attrs
}

// LLMUsageAttributes returns token usage attributes.
func LLMUsageAttributes(inputTokens, outputTokens int, durationMs float64) []attribute.KeyValue {
	attrs := []attribute.KeyValue{}
	if inputTokens > 0 {
		attrs = append(attrs, attribute.Int(AttrLLMTokensInput, inputTokens))
	}
	if outputTokens > 0 {
		attrs = append(attrs, attribute.Int(AttrLLMTokensOutput, outputTokens))
	}
	if inputTokens > 0 || outputTokens > 0 {
		attrs = append(attrs, attribute.Int(AttrLLMTokensTotal, inputTokens+outputTokens))
	}
	if durationMs > 0 {
		attrs = append(attrs, attribute.Float64(AttrLLMDurationMs, durationMs))
	}
	return attrs
}

// MemoryAttributes returns attributes for semantic memory operations.
func MemoryAttributes(collection string, retrieved int, stored bool) []attribute.KeyValue {
	attrs := []attribute.KeyValue{}
	if collection != "" {
		attrs = append(attrs, attribute.String(AttrMemoryCollection, collection))
	}
	if retrieved > 0 {
		attrs = append(attrs, attribute.Int(AttrMemoryRetrieved, retrieved))
	}
	if stored {
		attrs = append(attrs, attribute.Bool(AttrMemoryStored, stored))
	}
	return attrs
}
