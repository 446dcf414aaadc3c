package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "nutritrack"

// Metrics holds all task orchestration metric instruments.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	TasksSubmitted metric.Int64Counter
	TasksCompleted metric.Int64Counter
	TasksFailed    metric.Int64Counter
	PollAttempts   metric.Int64Counter
	QueueDepth     metric.Int64UpDownCounter
	RunDuration    metric.Float64Histogram
}

// NewMetrics creates all metric instruments on mp, or on the global provider
// when mp is nil.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	if mp == nil {
		mp = otel.GetMeterProvider()
	}
	meter := mp.Meter(meterName)
	m := &Metrics{}
	var err error

	m.TasksSubmitted, err = meter.Int64Counter("nutritrack.tasks.submitted",
		metric.WithDescription("Number of meal plan tasks submitted"))
	if err != nil {
		return nil, err
	}

	m.TasksCompleted, err = meter.Int64Counter("nutritrack.tasks.completed",
		metric.WithDescription("Number of meal plan tasks completed"))
	if err != nil {
		return nil, err
	}

	m.TasksFailed, err = meter.Int64Counter("nutritrack.tasks.failed",
		metric.WithDescription("Number of meal plan tasks failed"))
	if err != nil {
		return nil, err
	}

	m.PollAttempts, err = meter.Int64Counter("nutritrack.compute.poll_attempts",
		metric.WithDescription("Number of status polls sent to the compute service"))
	if err != nil {
		return nil, err
	}

	m.QueueDepth, err = meter.Int64UpDownCounter("nutritrack.queue.depth",
		metric.WithDescription("Number of items waiting in the dispatch queue"))
	if err != nil {
		return nil, err
	}

	m.RunDuration, err = meter.Float64Histogram("nutritrack.run.duration_seconds",
		metric.WithDescription("Time spent running one queue item against the compute service"),
		metric.WithUnit("s"))
	if err != nil {
		return nil, err
	}

	return m, nil
}

// TaskSubmitted records a new submission.
func (m *Metrics) TaskSubmitted(ctx context.Context) {
	if m == nil {
		return
	}
	m.TasksSubmitted.Add(ctx, 1)
}

// TaskFinished records a terminal outcome and how long the run took.
func (m *Metrics) TaskFinished(ctx context.Context, succeeded bool, elapsed time.Duration) {
	if m == nil {
		return
	}
	if succeeded {
		m.TasksCompleted.Add(ctx, 1)
	} else {
		m.TasksFailed.Add(ctx, 1)
	}
	m.RunDuration.Record(ctx, elapsed.Seconds(),
		metric.WithAttributes(attribute.Bool("succeeded", succeeded)))
}

// TaskAbandoned records a task that was failed without running, because the
// queue stopped first. It counts as failed but adds no run duration.
func (m *Metrics) TaskAbandoned(ctx context.Context) {
	if m == nil {
		return
	}
	m.TasksFailed.Add(ctx, 1, metric.WithAttributes(attribute.Bool("abandoned", true)))
}

// PollAttempted records one status poll.
func (m *Metrics) PollAttempted(ctx context.Context) {
	if m == nil {
		return
	}
	m.PollAttempts.Add(ctx, 1)
}

// QueueChanged adjusts the queue depth gauge by delta.
func (m *Metrics) QueueChanged(ctx context.Context, delta int64) {
	if m == nil {
		return
	}
	m.QueueDepth.Add(ctx, delta)
}
