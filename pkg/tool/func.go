// Copyright 2026 © The Valet Authors
// SPDX-License-Identifier: Apache-2.0

package tool

import "context"

// Func adapts a plain function to the Tool interface.
type Func struct {
	Desc Descriptor
	Fn   func(ctx context.Context, args map[string]any) (any, error)
}

// NewFunc builds a function-backed tool.
func NewFunc(desc Descriptor, fn func(ctx context.Context, args map[string]any) (any, error)) *Func {
	return &Func{Desc: desc, Fn: fn}
}

// Descriptor returns the tool schema.
func (f *Func) Descriptor() Descriptor { return f.Desc }

// Execute invokes the wrapped function.
func (f *Func) Execute(ctx context.Context, args map[string]any) (any, error) {
	return f.Fn(ctx, args)
}

var _ Tool = (*Func)(nil)
