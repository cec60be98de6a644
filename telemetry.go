package paserk

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// instrumentationName is the tracer and meter name.
const instrumentationName = "github.com/rbaliyan/paserk-kms"

// Operation names used for spans and the op metric attribute.
const (
	opWrap   = "wrap"
	opUnwrap = "unwrap"
)

type telemetry struct {
	tracer trace.Tracer
	ops    metric.Int64Counter
}

func newTelemetry(tp trace.TracerProvider, mp metric.MeterProvider) (*telemetry, error) {
	ops, err := mp.Meter(instrumentationName).Int64Counter(
		"paserk.wrap.operations",
		metric.WithDescription("Number of key wrap and unwrap operations"),
		metric.WithUnit("{operation}"),
	)
	if err != nil {
		return nil, fmt.Errorf("paserk: failed to create operations counter: %w", err)
	}
	return &telemetry{
		tracer: tp.Tracer(instrumentationName),
		ops:    ops,
	}, nil
}

// start opens a span for op. The returned func ends it and records the outcome.
func (t *telemetry) start(ctx context.Context, op string) (context.Context, func(error)) {
	ctx, span := t.tracer.Start(ctx, "paserk."+op, trace.WithSpanKind(trace.SpanKindInternal))
	return ctx, func(err error) {
		result := "ok"
		if err != nil {
			result = "error"
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		t.ops.Add(ctx, 1, metric.WithAttributes(
			attribute.String("op", op),
			attribute.String("result", result),
		))
		span.End()
	}
}
