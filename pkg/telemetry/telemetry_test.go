// Copyright 2026 © The Valet Authors
// SPDX-License-Identifier: Apache-2.0

package telemetry

import (
	"context"
	"testing"
)

func TestInit_StdoutDefault(t *testing.T) {
	shutdown, err := Init("test-service", "v0.0.1", Config{})
	if err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	if shutdown == nil {
		t.Fatal("Shutdown function should not be nil")
	}

	// Ensure shutdown works
	if err := shutdown(context.Background()); err != nil {
		t.Errorf("Shutdown failed: %v", err)
	}
}

func TestInit_RejectsUnknownExporter(t *testing.T) {
	if _, err := Init("test-service", "v0.0.1", Config{Exporter: "statsd"}); err == nil {
		t.Fatal("expected error for unknown exporter")
	}
}

func TestInit_OTLPNeedsEndpoint(t *testing.T) {
	if _, err := Init("test-service", "v0.0.1", Config{Exporter: "otlp"}); err == nil {
		t.Fatal("expected error when otlp endpoint is missing")
	}
}
