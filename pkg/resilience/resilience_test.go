// Copyright 2026 © The Valet Authors
// SPDX-License-Identifier: Apache-2.0

package resilience

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/valetd/valet/pkg/errors"
)

func TestRetry_SucceedsAfterFailures(t *testing.T) {
	var attempts atomic.Int32
	cfg := DefaultRetryConfig().WithInitialDelay(time.Millisecond).WithMaxDelay(5 * time.Millisecond)

	err := cfg.Do(context.Background(), func() error {
		if attempts.Add(1) < 3 {
			return fmt.Errorf("transient")
		}
		return nil
	})

	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if attempts.Load() != 3 {
		t.Errorf("expected 3 attempts, got %d", attempts.Load())
	}
}

func TestRetry_StopsOnNonRecoverable(t *testing.T) {
	var attempts atomic.Int32
	cfg := DefaultRetryConfig().WithInitialDelay(time.Millisecond)

	fatal := errors.New(errors.CodeInvalidInput, "bad input", nil).WithRecoverable(false)
	err := cfg.Do(context.Background(), func() error {
		attempts.Add(1)
		return fatal
	})

	if err == nil {
		t.Fatal("expected error")
	}
	if attempts.Load() != 1 {
		t.Errorf("non-recoverable errors must not retry, got %d attempts", attempts.Load())
	}
}

func TestRetry_ExhaustsAttempts(t *testing.T) {
	var attempts atomic.Int32
	cfg := DefaultRetryConfig().WithMaxAttempts(2).WithInitialDelay(time.Millisecond)

	err := cfg.Do(context.Background(), func() error {
		attempts.Add(1)
		return fmt.Errorf("still broken")
	})

	if err == nil || attempts.Load() != 2 {
		t.Fatalf("expected 2 attempts then failure, attempts=%d err=%v", attempts.Load(), err)
	}
}

func TestRetry_ContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	cfg := DefaultRetryConfig().WithInitialDelay(50 * time.Millisecond)
	err := cfg.Do(ctx, func() error { return fmt.Errorf("transient") })

	ve := errors.AsValetError(err)
	if ve == nil || ve.Code != errors.CodeTimeout {
		t.Fatalf("expected timeout-coded cancel error, got %v", err)
	}
}

func TestDoWithResult(t *testing.T) {
	cfg := DefaultRetryConfig().WithInitialDelay(time.Millisecond)
	var attempts int
	value, err := DoWithResult(context.Background(), cfg, func() (string, error) {
		attempts++
		if attempts < 2 {
			return "", fmt.Errorf("transient")
		}
		return "ok", nil
	})
	if err != nil || value != "ok" {
		t.Fatalf("expected ok, got %q err=%v", value, err)
	}
}

func TestWithTimeout_DeadlinePropagates(t *testing.T) {
	var sawDeadline bool
	err := WithTimeout(context.Background(), TimeoutConfig{Duration: 50 * time.Millisecond}, func(ctx context.Context) error {
		_, sawDeadline = ctx.Deadline()
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	if !sawDeadline {
		t.Error("expected the body to observe the deadline")
	}
}

func TestWithTimeout_Exceeded(t *testing.T) {
	err := WithTimeout(context.Background(), TimeoutConfig{Duration: 10 * time.Millisecond}, func(ctx context.Context) error {
		select {
		case <-time.After(time.Second):
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	})

	ve := errors.AsValetError(err)
	if ve == nil || ve.Code != errors.CodeTimeout {
		t.Fatalf("expected timeout error, got %v", err)
	}
	if !ve.Recoverable {
		t.Error("timeouts should be marked recoverable")
	}
}

func TestWithTimeout_ZeroDurationMeansUnbounded(t *testing.T) {
	ran := false
	err := WithTimeout(context.Background(), TimeoutConfig{}, func(ctx context.Context) error {
		ran = true
		if _, ok := ctx.Deadline(); ok {
			t.Error("no deadline expected")
		}
		return nil
	})
	if err != nil || !ran {
		t.Fatalf("expected passthrough, ran=%v err=%v", ran, err)
	}
}

func TestWithTimeoutResult(t *testing.T) {
	value, err := WithTimeoutResult(context.Background(), TimeoutConfig{Duration: 100 * time.Millisecond}, func(ctx context.Context) (int, error) {
		return 42, nil
	})
	if err != nil || value != 42 {
		t.Fatalf("expected 42, got %d err=%v", value, err)
	}

	_, err = WithTimeoutResult(context.Background(), TimeoutConfig{Duration: 10 * time.Millisecond}, func(ctx context.Context) (int, error) {
		<-ctx.Done()
		return 0, ctx.Err()
	})
	if err == nil {
		t.Fatal("expected timeout")
	}
}

func TestWithTimeout_PanicBecomesError(t *testing.T) {
	err := WithTimeout(context.Background(), TimeoutConfig{Duration: time.Second}, func(ctx context.Context) error {
		panic("worker blew up")
	})

	ve := errors.AsValetError(err)
	if ve == nil || ve.Code != errors.CodeInternal {
		t.Fatalf("expected internal error, got %v", err)
	}
	if !strings.Contains(ve.Message, "worker blew up") {
		t.Errorf("expected panic value in message, got %q", ve.Message)
	}
}

func TestWithTimeoutResult_PanicBecomesError(t *testing.T) {
	value, err := WithTimeoutResult(context.Background(), TimeoutConfig{Duration: time.Second}, func(ctx context.Context) (string, error) {
		panic("worker blew up")
	})

	if value != "" {
		t.Errorf("expected zero value after panic, got %q", value)
	}
	ve := errors.AsValetError(err)
	if ve == nil || ve.Code != errors.CodeInternal {
		t.Fatalf("expected internal error, got %v", err)
	}
	if !strings.Contains(ve.Message, "worker blew up") {
		t.Errorf("expected panic value in message, got %q", ve.Message)
	}
}

func TestWithFallback(t *testing.T) {
	value, err := WithFallback(context.Background(),
		func(ctx context.Context) (string, error) { return "", fmt.Errorf("primary down") },
		&StaticFallback[string]{Value: "plan b"},
	)
	if err != nil || value != "plan b" {
		t.Fatalf("expected fallback value, got %q err=%v", value, err)
	}

	value, err = WithFallback(context.Background(),
		func(ctx context.Context) (string, error) { return "primary", nil },
		&StaticFallback[string]{Value: "plan b"},
	)
	if err != nil || value != "primary" {
		t.Fatalf("expected primary value, got %q err=%v", value, err)
	}
}

func TestChainedFallback(t *testing.T) {
	chain := &ChainedFallback[string]{
		Fallbacks: []FallbackStrategy[string]{
			FallbackFunc[string](func(ctx context.Context, err error) (string, error) {
				return "", fmt.Errorf("first fallback down too")
			}),
			&StaticFallback[string]{Value: "last resort"},
		},
	}
	value, err := chain.Execute(context.Background(), fmt.Errorf("primary"))
	if err != nil || value != "last resort" {
		t.Fatalf("expected chained recovery, got %q err=%v", value, err)
	}
}

func TestErrorFallback(t *testing.T) {
	_, err := (&ErrorFallback[string]{Message: "all options exhausted"}).Execute(context.Background(), fmt.Errorf("primary"))
	ve := errors.AsValetError(err)
	if ve == nil || ve.Code != errors.CodeInternal || ve.Recoverable {
		t.Fatalf("expected non-recoverable internal error, got %v", err)
	}
}

func TestCircuitBreaker_OpensAfterThreshold(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{
		FailureThreshold: 2,
		Timeout:          time.Hour,
		Name:             "test",
	})

	fail := func() error { return fmt.Errorf("down") }
	cb.Call(context.Background(), fail)
	cb.Call(context.Background(), fail)

	if cb.State() != StateOpen {
		t.Fatalf("expected open after threshold, got %s", cb.State())
	}

	err := cb.Call(context.Background(), func() error { return nil })
	ve := errors.AsValetError(err)
	if ve == nil || ve.Context["breaker"] != "test" {
		t.Fatalf("expected rejection with breaker context, got %v", err)
	}
}

func TestCircuitBreaker_RecoversThroughHalfOpen(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{
		FailureThreshold: 1,
		SuccessThreshold: 1,
		Timeout:          time.Millisecond,
	})

	cb.Call(context.Background(), func() error { return fmt.Errorf("down") })
	if cb.State() != StateOpen {
		t.Fatalf("expected open, got %s", cb.State())
	}

	time.Sleep(5 * time.Millisecond)
	if err := cb.Call(context.Background(), func() error { return nil }); err != nil {
		t.Fatalf("expected half-open probe to pass, got %v", err)
	}
	if cb.State() != StateClosed {
		t.Fatalf("expected closed after successful probe, got %s", cb.State())
	}
}

func TestCircuitBreaker_ManualControls(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{})
	cb.Open()
	if cb.State() != StateOpen {
		t.Fatal("expected open")
	}
	cb.Reset()
	if cb.State() != StateClosed {
		t.Fatal("expected closed")
	}
}
