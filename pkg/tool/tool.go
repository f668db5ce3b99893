// Copyright 2026 © The Valet Authors
// SPDX-License-Identifier: Apache-2.0

// Package tool defines the schema-described operation contract the
// language model invokes through the executor loop, plus the registry
// that catalogs tools by name.
package tool

import (
	"context"

	"github.com/valetd/valet/pkg/llm"
)

// Parameter describes one argument a tool accepts.
type Parameter struct {
	Name        string   `json:"name"`
	Type        string   `json:"type"` // string, number, integer, boolean, array, object
	Description string   `json:"description,omitempty"`
	Required    bool     `json:"required"`
	Default     any      `json:"default,omitempty"`
	Enum        []string `json:"enum,omitempty"`
}

// Descriptor is the immutable schema of a tool. Registered once; the
// registry rejects duplicate names.
type Descriptor struct {
	Name         string      `json:"name"`
	Description  string      `json:"description"`
	Parameters   []Parameter `json:"parameters"`
	ReadOnly     bool        `json:"read_only"`
	RequiresAuth bool        `json:"requires_auth"`
}

// Result is the outcome of one tool invocation. Exactly one of Success
// or Error holds: a successful result never carries an error string and
// a failed one always does.
type Result struct {
	Success  bool           `json:"success"`
	Error    string         `json:"error,omitempty"`
	Data     any            `json:"data,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// OK builds a successful result.
func OK(data any) Result {
	return Result{Success: true, Data: data}
}

// Fail builds a failure result.
func Fail(msg string) Result {
	return Result{Success: false, Error: msg}
}

// Tool is one discrete operation the model may request.
type Tool interface {
	Descriptor() Descriptor
	Execute(ctx context.Context, args map[string]any) (any, error)
}

// Definition converts the descriptor into an LLM function tool with a
// JSON Schema parameter object.
func (d Descriptor) Definition() llm.Tool {
	properties := make(map[string]any, len(d.Parameters))
	var required []string
	for _, p := range d.Parameters {
		prop := map[string]any{
			"type": p.Type,
		}
		if p.Description != "" {
			prop["description"] = p.Description
		}
		if len(p.Enum) > 0 {
			prop["enum"] = p.Enum
		}
		if p.Default != nil {
			prop["default"] = p.Default
		}
		properties[p.Name] = prop
		if p.Required {
			required = append(required, p.Name)
		}
	}
	if required == nil {
		required = []string{}
	}
	return llm.Tool{
		Type: llm.ToolTypeFunction,
		Function: llm.FunctionDef{
			Name:        d.Name,
			Description: d.Description,
			Parameters: map[string]any{
				"type":       "object",
				"properties": properties,
				"required":   required,
			},
		},
	}
}
