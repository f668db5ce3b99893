// Copyright 2026 © The Valet Authors
// SPDX-License-Identifier: Apache-2.0

package capability

import (
	"fmt"

	"github.com/valetd/valet/pkg/core"
)

// Set is the fixed collection of capability modules available to the
// orchestrator. It is assembled once at startup and read-only afterwards.
type Set struct {
	byKind map[core.CapabilityKind]Capability
	order  []core.CapabilityKind
}

// NewSet registers the given capabilities. Duplicate kinds are an error;
// two modules answering for the same kind would make fan-out ambiguous.
func NewSet(caps ...Capability) (*Set, error) {
	s := &Set{byKind: make(map[core.CapabilityKind]Capability, len(caps))}
	for _, c := range caps {
		if c == nil {
			return nil, fmt.Errorf("nil capability")
		}
		kind := c.Kind()
		if _, exists := s.byKind[kind]; exists {
			return nil, fmt.Errorf("duplicate capability kind %q", kind)
		}
		s.byKind[kind] = c
		s.order = append(s.order, kind)
	}
	return s, nil
}

// MustNewSet is NewSet that panics on error, for startup wiring.
func MustNewSet(caps ...Capability) *Set {
	s, err := NewSet(caps...)
	if err != nil {
		panic(err)
	}
	return s
}

// Get returns the capability registered for kind.
func (s *Set) Get(kind core.CapabilityKind) (Capability, bool) {
	c, ok := s.byKind[kind]
	return c, ok
}

// Select resolves a routing decision to the modules that will run, in
// invocation order: required kinds first, then optional ones, each in the
// order the decision lists them. Unknown kinds are skipped and no module
// runs twice. The router's decision is authoritative here; CanHandle
// scores never veto a routed kind.
func (s *Set) Select(decision core.RoutingDecision) []Capability {
	seen := make(map[core.CapabilityKind]bool, len(decision.Required)+len(decision.Optional))
	var selected []Capability

	pick := func(kinds []core.CapabilityKind) {
		for _, kind := range kinds {
			if seen[kind] {
				continue
			}
			seen[kind] = true
			c, ok := s.byKind[kind]
			if !ok {
				continue
			}
			selected = append(selected, c)
		}
	}
	pick(decision.Required)
	pick(decision.Optional)
	return selected
}

// Kinds returns the registered kinds in registration order.
func (s *Set) Kinds() []core.CapabilityKind {
	out := make([]core.CapabilityKind, len(s.order))
	copy(out, s.order)
	return out
}

// Len returns the number of registered capabilities.
func (s *Set) Len() int {
	return len(s.byKind)
}
