package compiler

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
	tracer = otel.Tracer("gplan.compiler")
	meter  = otel.Meter("gplan.compiler")
)

var (
	compileLatency  metric.Float64Histogram
	compileTotal    metric.Int64Counter
	compileVertices metric.Int64Histogram

	metricsOnce sync.Once
	metricsErr  error
)

// initMetrics creates the instruments once. Safe to call many times.
func initMetrics() error {
	metricsOnce.Do(func() {
		var err error

		compileLatency, err = meter.Float64Histogram(
			"gplan_compile_duration_seconds",
			metric.WithDescription("Duration of traversal compilations"),
			metric.WithUnit("s"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		compileTotal, err = meter.Int64Counter(
			"gplan_compile_total",
			metric.WithDescription("Total number of traversal compilations"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		compileVertices, err = meter.Int64Histogram(
			"gplan_compile_vertices",
			metric.WithDescription("Number of vertices per compiled plan"),
		)
		if err != nil {
			metricsErr = err
			return
		}
	})
	return metricsErr
}

func startCompileSpan(ctx context.Context, queryID string, steps int) (context.Context, trace.Span) {
	return tracer.Start(ctx, "Compiler.Compile",
		trace.WithAttributes(
			attribute.String("gplan.query_id", queryID),
			attribute.Int("gplan.steps", steps),
		),
	)
}

func setCompileSpanResult(span trace.Span, vertices int) {
	span.SetAttributes(
		attribute.Int("gplan.vertices", vertices),
		attribute.Bool("gplan.success", true),
	)
}

func setCompileSpanError(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	span.SetAttributes(attribute.Bool("gplan.success", false))
}

func recordCompileMetrics(ctx context.Context, duration time.Duration, vertices int, outcome string) {
	if err := initMetrics(); err != nil {
		return
	}

	attrs := metric.WithAttributes(attribute.String("outcome", outcome))
	compileLatency.Record(ctx, duration.Seconds(), attrs)
	compileTotal.Add(ctx, 1, attrs)
	if vertices > 0 {
		compileVertices.Record(ctx, int64(vertices))
	}
}
