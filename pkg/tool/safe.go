// Copyright 2026 © The Valet Authors
// SPDX-License-Identifier: Apache-2.0

package tool

import (
	"context"
	"fmt"
)

// ValidateArgs checks args against the descriptor's parameter contract:
// every required parameter must be present and enum-constrained values
// must be members of their enum. Returns nil when the contract holds.
func ValidateArgs(d Descriptor, args map[string]any) error {
	for _, p := range d.Parameters {
		value, present := args[p.Name]
		if !present {
			if p.Required {
				return fmt.Errorf("Missing required parameter: %s", p.Name)
			}
			continue
		}
		if len(p.Enum) > 0 {
			str := fmt.Sprint(value)
			valid := false
			for _, allowed := range p.Enum {
				if str == allowed {
					valid = true
					break
				}
			}
			if !valid {
				return fmt.Errorf("Invalid value for parameter %s: %q (allowed: %v)", p.Name, str, p.Enum)
			}
		}
	}
	return nil
}

// ApplyDefaults returns args with declared defaults filled in for absent
// optional parameters. The input map is not mutated.
func ApplyDefaults(d Descriptor, args map[string]any) map[string]any {
	out := make(map[string]any, len(args))
	for k, v := range args {
		out[k] = v
	}
	for _, p := range d.Parameters {
		if _, ok := out[p.Name]; !ok && p.Default != nil {
			out[p.Name] = p.Default
		}
	}
	return out
}

// SafeExecute runs a tool behind a containment boundary. Validation
// violations short-circuit with a failure result before the tool body
// runs; execution errors and panics are converted to failure results so
// one misbehaving tool can never crash the executor loop.
func SafeExecute(ctx context.Context, t Tool, args map[string]any) (result Result) {
	desc := t.Descriptor()

	if args == nil {
		args = map[string]any{}
	}
	if err := ValidateArgs(desc, args); err != nil {
		return Fail(err.Error())
	}
	args = ApplyDefaults(desc, args)

	defer func() {
		if r := recover(); r != nil {
			result = Fail(fmt.Sprintf("tool %s panicked: %v", desc.Name, r))
		}
	}()

	data, err := t.Execute(ctx, args)
	if err != nil {
		return Fail(err.Error())
	}
	out := OK(data)
	out.Metadata = map[string]any{"tool": desc.Name}
	return out
}
