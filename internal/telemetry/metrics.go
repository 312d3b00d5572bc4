package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Deletion outcomes.
const (
	OutcomeDeleted = "deleted"
	OutcomePlanned = "planned"
	OutcomeSkipped = "skipped"
	OutcomeFailed  = "failed"
	OutcomeAbsent  = "absent"
)

// Metrics holds the operational instruments of rebel. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	deletions         metric.Int64Counter
	stackPolls        metric.Int64Counter
	operationDuration metric.Float64Histogram
}

func newMetrics(meter metric.Meter) (*Metrics, error) {
	deletions, err := meter.Int64Counter(
		"rebel_deletions_total",
		metric.WithDescription("Resource deletions by kind and outcome"),
		metric.WithUnit("{deletion}"),
	)
	if err != nil {
		return nil, err
	}

	stackPolls, err := meter.Int64Counter(
		"rebel_stack_polls_total",
		metric.WithDescription("Stack status polls by operation and status"),
		metric.WithUnit("{poll}"),
	)
	if err != nil {
		return nil, err
	}

	operationDuration, err := meter.Float64Histogram(
		"rebel_operation_duration_seconds",
		metric.WithDescription("Duration of teardown and stack operations"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	return &Metrics{
		deletions:         deletions,
		stackPolls:        stackPolls,
		operationDuration: operationDuration,
	}, nil
}

// RecordDeletion records one deletion attempt.
func (m *Metrics) RecordDeletion(ctx context.Context, kind, outcome string) {
	if m == nil {
		return
	}
	m.deletions.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("resource.kind", kind),
			attribute.String("outcome", outcome),
		),
	)
}

// RecordStackPoll records one status poll.
func (m *Metrics) RecordStackPoll(ctx context.Context, operation, status string) {
	if m == nil {
		return
	}
	m.stackPolls.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("operation", operation),
			attribute.String("stack.status", status),
		),
	)
}

// RecordOperation records how long an operation took.
func (m *Metrics) RecordOperation(ctx context.Context, operation string, d time.Duration, err error) {
	if m == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	m.operationDuration.Record(ctx, d.Seconds(),
		metric.WithAttributes(
			attribute.String("operation", operation),
			attribute.String("status", status),
		),
	)
}
