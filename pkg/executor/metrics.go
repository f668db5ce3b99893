// Copyright 2026 © The Valet Authors
// SPDX-License-Identifier: Apache-2.0

package executor

import (
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

var (
	metricsOnce     sync.Once
	runCounter      metric.Int64Counter
	errorCounter    metric.Int64Counter
	toolCallCounter metric.Int64Counter
	runLatencyMs    metric.Float64Histogram
)

// initMetrics instruments lazily so package import order never matters:
// the meter provider may be installed after this package is loaded.
func initMetrics() {
	metricsOnce.Do(func() {
		meter := otel.Meter("valet/executor")

		runCounter, _ = meter.Int64Counter(
			"valet.executor.runs",
			metric.WithDescription("Tool-loop runs started"),
		)
		errorCounter, _ = meter.Int64Counter(
			"valet.executor.errors",
			metric.WithDescription("Tool-loop runs that ended in failure"),
		)
		toolCallCounter, _ = meter.Int64Counter(
			"valet.executor.tool_calls",
			metric.WithDescription("Tool calls executed"),
		)
		runLatencyMs, _ = meter.Float64Histogram(
			"valet.executor.run_ms",
			metric.WithDescription("Tool-loop run latency in milliseconds"),
		)
	})
}
