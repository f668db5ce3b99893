// Copyright 2026 © The Valet Authors
// SPDX-License-Identifier: Apache-2.0

// Package telemetry provides observability for Valet error handling.
package telemetry

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/valetd/valet/pkg/errors"
)

// ErrorMetrics tracks error rates, types, and recovery patterns for production monitoring.
type ErrorMetrics struct {
	// errorCounter tracks total errors by code and component
	errorCounter metric.Int64Counter

	// recoveryCounter tracks successful recoveries
	recoveryCounter metric.Int64Counter

	// errorRateGauge tracks error rate (errors per minute)
	errorRateGauge metric.Float64Gauge

	// healthStatusGauge tracks component health (0=unhealthy, 1=degraded, 2=healthy)
	healthStatusGauge metric.Int64Gauge

	mu sync.RWMutex
}

// NewErrorMetrics creates a new error metrics tracker with OTEL meters.
func NewErrorMetrics(ctx context.Context) (*ErrorMetrics, error) {
	meter := otel.Meter("valet/errors")

	errorCounter, err := meter.Int64Counter(
		"valet.errors.total",
		metric.WithDescription("Total errors by code and component"),
	)
	if err != nil {
		return nil, err
	}

	recoveryCounter, err := meter.Int64Counter(
		"valet.errors.recovered",
		metric.WithDescription("Successful error recoveries by code"),
	)
	if err != nil {
		return nil, err
	}

	errorRateGauge, err := meter.Float64Gauge(
		"valet.errors.rate",
		metric.WithDescription("Error rate per minute by component"),
	)
	if err != nil {
		return nil, err
	}

	healthStatusGauge, err := meter.Int64Gauge(
		"valet.health.status",
		metric.WithDescription("Component health status (0=unhealthy, 1=degraded, 2=healthy)"),
	)
	if err != nil {
		return nil, err
	}

	return &ErrorMetrics{
		errorCounter:      errorCounter,
		recoveryCounter:   recoveryCounter,
		errorRateGauge:    errorRateGauge,
		healthStatusGauge: healthStatusGauge,
	}, nil
}

// RecordErrorMetric increments the error counter for the given error code and component.
// This is called by error handling code to track error rates.
func (em *ErrorMetrics) RecordErrorMetric(ctx context.Context, err error, component string) {
	if em == nil || err == nil {
		return
	}

	em.mu.RLock()
	defer em.mu.RUnlock()

	if ve, ok := err.(*errors.ValetError); ok {
		em.errorCounter.Add(ctx, 1,
			metric.WithAttributes(
				attribute.String("error.code", string(ve.Code)),
				attribute.String("component", component),
				attribute.String("recoverable", ve.RecoverableString()),
			),
		)
	} else {
		// Generic error
		em.errorCounter.Add(ctx, 1,
			metric.WithAttributes(
				attribute.String("error.code", "UNKNOWN"),
				attribute.String("component", component),
				attribute.String("recoverable", "unknown"),
			),
		)
	}
}

// RecordRecovery increments the recovery counter for the given error code.
// This is called when an error is successfully handled (retry succeeded, fallback used, etc).
func (em *ErrorMetrics) RecordRecovery(ctx context.Context, errorCode errors.ErrorCode) {
	if em == nil {
		return
	}

	em.mu.RLock()
	defer em.mu.RUnlock()

	em.recoveryCounter.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("error.code", string(errorCode)),
		),
	)
}

// RecordErrorRate records the current error rate for a component (errors per minute).
func (em *ErrorMetrics) RecordErrorRate(ctx context.Context, component string, ratePerMinute float64) {
	if em == nil {
		return
	}

	em.mu.RLock()
	defer em.mu.RUnlock()

	em.errorRateGauge.Record(ctx, ratePerMinute,
		metric.WithAttributes(
			attribute.String("component", component),
		),
	)
}

// RecordHealthStatus records the health status of a component (0=unhealthy, 1=degraded, 2=healthy).
func (em *ErrorMetrics) RecordHealthStatus(ctx context.Context, component string, status int64) {
	if em == nil {
		return
	}

	em.mu.RLock()
	defer em.mu.RUnlock()

	em.healthStatusGauge.Record(ctx, status,
		metric.WithAttributes(
			attribute.String("component", component),
		),
	)
}
