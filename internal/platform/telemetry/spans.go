package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "nutritrack"

// StartDispatchSpan starts a span for one queue item being run.
func StartDispatchSpan(ctx context.Context, taskID string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "dispatch",
		trace.WithAttributes(
			attribute.String("task.id", taskID),
		),
	)
}

// StartComputeSpan starts a span covering a full submit-and-poll run.
func StartComputeSpan(ctx context.Context, planType string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "compute.run",
		trace.WithAttributes(
			attribute.String("mealplan.plan_type", planType),
		),
	)
}

// StartPollSpan starts a span for a single status poll of a deferred job.
func StartPollSpan(ctx context.Context, jobID string, attempt int) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "compute.poll",
		trace.WithAttributes(
			attribute.String("job.id", jobID),
			attribute.Int("poll.attempt", attempt),
		),
	)
}
