package lsp

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

var (
	tracer = otel.Tracer("composels.lsp")
	meter  = otel.Meter("composels.lsp")
)

var (
	dispatchLatency metric.Float64Histogram
	dispatchTotal   metric.Int64Counter
	resultCount     metric.Int64Histogram

	metricsOnce sync.Once
	metricsErr  error
)

// initMetrics creates the dispatch instruments. Safe to call multiple times.
func initMetrics() error {
	metricsOnce.Do(func() {
		var err error

		dispatchLatency, err = meter.Float64Histogram(
			"composels_dispatch_duration_seconds",
			metric.WithDescription("Duration of provider dispatches"),
			metric.WithUnit("s"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		dispatchTotal, err = meter.Int64Counter(
			"composels_dispatch_total",
			metric.WithDescription("Total number of provider dispatches"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		resultCount, err = meter.Int64Histogram(
			"composels_dispatch_result_count",
			metric.WithDescription("Number of results returned by a dispatch"),
		)
		if err != nil {
			metricsErr = err
			return
		}
	})

	return metricsErr
}

func startDispatchSpan(ctx context.Context, capability Capability, providers int) (context.Context, trace.Span) {
	return tracer.Start(ctx, "Dispatch."+string(capability),
		trace.WithAttributes(
			attribute.String("composels.capability", string(capability)),
			attribute.Int("composels.providers", providers),
		),
	)
}

// endDispatchSpan records the outcome on span.
func endDispatchSpan(span trace.Span, results int, err error) {
	span.SetAttributes(
		attribute.Int("composels.result_count", results),
		attribute.Bool("composels.success", err == nil),
	)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
}

func recordDispatchMetrics(ctx context.Context, capability Capability, duration time.Duration, results int, success bool) {
	if err := initMetrics(); err != nil {
		return
	}

	attrs := metric.WithAttributes(
		attribute.String("capability", string(capability)),
		attribute.Bool("success", success),
	)

	dispatchLatency.Record(ctx, duration.Seconds(), attrs)
	dispatchTotal.Add(ctx, 1, attrs)

	if success {
		resultCount.Record(ctx, int64(results), metric.WithAttributes(
			attribute.String("capability", string(capability)),
		))
	}
}
