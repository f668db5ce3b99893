// Copyright 2026 © The Valet Authors
// SPDX-License-Identifier: Apache-2.0

package mcptool

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/valetd/valet/pkg/tool"
)

// Caller abstracts MCP tool execution so adapters can be tested without
// a live server. *Client satisfies it.
type Caller interface {
	CallTool(ctx context.Context, name string, args map[string]any) (*mcp.CallToolResult, error)
}

// Lister abstracts tool discovery. *Client satisfies it.
type Lister interface {
	ListTools(ctx context.Context) ([]mcp.Tool, error)
}

// Adapter wraps one remote MCP tool as a tool.Tool.
type Adapter struct {
	desc   tool.Descriptor
	caller Caller
}

// NewAdapter builds an adapter from an MCP tool definition and a caller.
func NewAdapter(t mcp.Tool, caller Caller) (*Adapter, error) {
	if t.Name == "" {
		return nil, errors.New("mcp tool name is required")
	}
	if caller == nil {
		return nil, errors.New("tool caller is required")
	}
	return &Adapter{
		desc:   descriptorFrom(t),
		caller: caller,
	}, nil
}

// Descriptor returns the local schema derived from the MCP definition.
func (a *Adapter) Descriptor() tool.Descriptor { return a.desc }

// Execute invokes the remote tool and flattens its result.
func (a *Adapter) Execute(ctx context.Context, args map[string]any) (any, error) {
	if args == nil {
		args = map[string]any{}
	}
	result, err := a.caller.CallTool(ctx, a.desc.Name, args)
	if err != nil {
		return nil, err
	}
	return resultOutput(result)
}

var _ tool.Tool = (*Adapter)(nil)

// Discover lists the server's tools and wraps each as a tool.Tool.
func Discover(ctx context.Context, lister Lister, caller Caller) ([]tool.Tool, error) {
	remote, err := lister.ListTools(ctx)
	if err != nil {
		return nil, err
	}
	tools := make([]tool.Tool, 0, len(remote))
	for _, t := range remote {
		adapter, err := NewAdapter(t, caller)
		if err != nil {
			return nil, fmt.Errorf("adapt %q: %w", t.Name, err)
		}
		tools = append(tools, adapter)
	}
	return tools, nil
}

// RegisterAll discovers the client's tools and registers them all.
func RegisterAll(ctx context.Context, reg *tool.Registry, c *Client) error {
	tools, err := Discover(ctx, c, c)
	if err != nil {
		return err
	}
	for _, t := range tools {
		if err := reg.Register(t); err != nil {
			return err
		}
	}
	return nil
}

// descriptorFrom flattens the MCP input schema into the local parameter
// list. Nested object schemas are passed through as plain objects.
func descriptorFrom(t mcp.Tool) tool.Descriptor {
	desc := tool.Descriptor{
		Name:        t.Name,
		Description: t.Description,
	}

	schema := t.InputSchema
	required := make(map[string]bool, len(schema.Required))
	for _, name := range schema.Required {
		required[name] = true
	}

	for name, raw := range schema.Properties {
		param := tool.Parameter{
			Name:     name,
			Type:     "string",
			Required: required[name],
		}
		if prop, ok := raw.(map[string]any); ok {
			if typ, ok := prop["type"].(string); ok && typ != "" {
				param.Type = typ
			}
			if d, ok := prop["description"].(string); ok {
				param.Description = d
			}
			if options, ok := prop["enum"].([]any); ok {
				for _, option := range options {
					if s, ok := option.(string); ok {
						param.Enum = append(param.Enum, s)
					}
				}
			}
		}
		desc.Parameters = append(desc.Parameters, param)
	}
	sort.Slice(desc.Parameters, func(i, j int) bool {
		return desc.Parameters[i].Name < desc.Parameters[j].Name
	})
	return desc
}

func resultOutput(result *mcp.CallToolResult) (any, error) {
	if result == nil {
		return nil, errors.New("mcp tool result is nil")
	}

	if result.IsError {
		return nil, fmt.Errorf("mcp tool returned error: %s", textContent(result.Content))
	}

	if result.StructuredContent != nil {
		return result.StructuredContent, nil
	}

	if text := textContent(result.Content); text != "" {
		return text, nil
	}

	return result, nil
}

func textContent(items []mcp.Content) string {
	if len(items) == 0 {
		return ""
	}
	var parts []string
	for _, item := range items {
		switch content := item.(type) {
		case mcp.TextContent:
			parts = append(parts, content.Text)
		case *mcp.TextContent:
			parts = append(parts, content.Text)
		}
	}
	return strings.Join(parts, "\n")
}
