// Copyright 2026 © The Valet Authors
// SPDX-License-Identifier: Apache-2.0

package tool

import (
	"context"
	"testing"
)

func noopTool(name string) *Func {
	return NewFunc(Descriptor{Name: name}, func(_ context.Context, _ map[string]any) (any, error) {
		return nil, nil
	})
}

func TestRegistryRegisterAndLookup(t *testing.T) {
	reg := NewRegistry()
	if err := reg.Register(noopTool("get_tasks")); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	if _, ok := reg.Lookup("get_tasks"); !ok {
		t.Error("expected to find get_tasks")
	}
	if _, ok := reg.Lookup("missing"); ok {
		t.Error("lookup of unregistered tool should fail")
	}
}

func TestRegistryRejectsDuplicates(t *testing.T) {
	reg := NewRegistry()
	if err := reg.Register(noopTool("get_tasks")); err != nil {
		t.Fatalf("first Register failed: %v", err)
	}
	if err := reg.Register(noopTool("get_tasks")); err == nil {
		t.Error("duplicate registration must be rejected")
	}
	if reg.Len() != 1 {
		t.Errorf("expected 1 tool, got %d", reg.Len())
	}
}

func TestRegistryRejectsAnonymous(t *testing.T) {
	reg := NewRegistry()
	if err := reg.Register(noopTool("")); err == nil {
		t.Error("empty tool name must be rejected")
	}
	if err := reg.Register(nil); err == nil {
		t.Error("nil tool must be rejected")
	}
}

func TestRegistryDefinitionsStableOrder(t *testing.T) {
	reg := NewRegistry()
	for _, name := range []string{"zeta", "alpha", "mid"} {
		if err := reg.Register(noopTool(name)); err != nil {
			t.Fatalf("Register %s failed: %v", name, err)
		}
	}

	defs := reg.Definitions()
	want := []string{"alpha", "mid", "zeta"}
	if len(defs) != len(want) {
		t.Fatalf("expected %d definitions, got %d", len(want), len(defs))
	}
	for i, name := range want {
		if defs[i].Function.Name != name {
			t.Errorf("definition %d: expected %s, got %s", i, name, defs[i].Function.Name)
		}
	}
}
