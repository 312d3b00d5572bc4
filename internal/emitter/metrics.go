package emitter

import (
	"context"
	"fmt"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// MetricsEmitter records progress as OTEL metrics.
type MetricsEmitter struct {
	meter metric.Meter

	transitions metric.Int64Counter
	inProgress  metric.Int64ObservableGauge

	// State for observable gauge
	mu      sync.RWMutex
	current int64
}

// NewMetricsEmitter creates a metrics emitter on the given meter.
func NewMetricsEmitter(meter metric.Meter) (*MetricsEmitter, error) {
	e := &MetricsEmitter{meter: meter}

	var err error
	e.transitions, err = e.meter.Int64Counter(
		"rebel_stack_resource_transitions_total",
		metric.WithDescription("Stack resource status transitions"),
	)
	if err != nil {
		return nil, fmt.Errorf("create transitions counter: %w", err)
	}

	e.inProgress, err = e.meter.Int64ObservableGauge(
		"rebel_stack_resources_in_progress",
		metric.WithDescription("Stack resources currently in progress"),
		metric.WithInt64Callback(e.observeInProgress),
	)
	if err != nil {
		return nil, fmt.Errorf("create in_progress gauge: %w", err)
	}

	return e, nil
}

// Event counts one transition by resource type and new status.
func (e *MetricsEmitter) Event(ctx context.Context, ev Event) error {
	e.transitions.Add(ctx, 1, metric.WithAttributes(
		attribute.String("type", ev.Change.Resource.Type),
		attribute.String("status", ev.Change.Resource.Status),
	))
	return nil
}

// Status updates the in-progress gauge.
func (e *MetricsEmitter) Status(_ context.Context, inProgress []string) error {
	e.mu.Lock()
	e.current = int64(len(inProgress))
	e.mu.Unlock()
	return nil
}

func (e *MetricsEmitter) observeInProgress(_ context.Context, o metric.Int64Observer) error {
	e.mu.RLock()
	defer e.mu.RUnlock()
	o.Observe(e.current)
	return nil
}

// Close is a no-op for the metrics emitter.
func (e *MetricsEmitter) Close() error {
	return nil
}
