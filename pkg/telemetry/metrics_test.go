// Copyright 2026 © The Valet Authors
// SPDX-License-Identifier: Apache-2.0

package telemetry

import (
	"context"
	"sync"
	"testing"

	"github.com/valetd/valet/pkg/errors"
)

func TestNewErrorMetrics(t *testing.T) {
	em, err := NewErrorMetrics(context.Background())
	if err != nil {
		t.Fatalf("NewErrorMetrics failed: %v", err)
	}
	if em == nil {
		t.Fatal("expected metrics instance")
	}
}

func TestRecordErrorMetric(t *testing.T) {
	em, err := NewErrorMetrics(context.Background())
	if err != nil {
		t.Fatalf("NewErrorMetrics failed: %v", err)
	}

	// Typed error
	ve := errors.New(errors.CodeLLMError, "provider unavailable", nil).WithRecoverable(true)
	em.RecordErrorMetric(context.Background(), ve, "executor")

	// Generic error
	em.RecordErrorMetric(context.Background(), context.Canceled, "executor")

	// Nil error is a no-op
	em.RecordErrorMetric(context.Background(), nil, "executor")
}

func TestRecordErrorMetric_NilReceiver(t *testing.T) {
	var em *ErrorMetrics
	em.RecordErrorMetric(context.Background(), context.Canceled, "router")
	em.RecordRecovery(context.Background(), errors.CodeTimeout)
	em.RecordErrorRate(context.Background(), "router", 1.5)
	em.RecordHealthStatus(context.Background(), "storage", 2)
}

func TestRecordRecovery(t *testing.T) {
	em, err := NewErrorMetrics(context.Background())
	if err != nil {
		t.Fatalf("NewErrorMetrics failed: %v", err)
	}
	em.RecordRecovery(context.Background(), errors.CodeLLMError)
}

func TestConcurrentMetrics(t *testing.T) {
	em, err := NewErrorMetrics(context.Background())
	if err != nil {
		t.Fatalf("NewErrorMetrics failed: %v", err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			em.RecordErrorMetric(context.Background(), context.Canceled, "capability")
			em.RecordRecovery(context.Background(), errors.CodeCapabilityError)
			em.RecordErrorRate(context.Background(), "capability", 0.2)
			em.RecordHealthStatus(context.Background(), "capability", 2)
		}()
	}
	wg.Wait()
}
