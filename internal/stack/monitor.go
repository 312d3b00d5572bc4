package stack

import (
	"context"
	"fmt"
	"maps"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/guidowb/rebel/internal/emitter"
	"github.com/guidowb/rebel/internal/provision"
	"github.com/guidowb/rebel/internal/telemetry"
	"github.com/guidowb/rebel/pkg/resource"
)

// DefaultPollInterval is the pause between two status polls.
const DefaultPollInterval = 5 * time.Second

// Operation is a stack lifecycle operation.
type Operation string

// Lifecycle operations.
const (
	OpCreate Operation = "create"
	OpDelete Operation = "delete"
)

// SuccessStatus returns the terminal status of a successful operation.
func (o Operation) SuccessStatus() string {
	switch o {
	case OpCreate:
		return "CREATE_COMPLETE"
	case OpDelete:
		return "DELETE_COMPLETE"
	default:
		return ""
	}
}

// SleepFunc pauses between polls. It returns early with the context's
// error when ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Monitor creates and deletes stacks and follows them to a terminal status.
type Monitor struct {
	api        provision.StackAPI
	emitter    emitter.Emitter
	log        zerolog.Logger
	metrics    *telemetry.Metrics
	tracer     trace.Tracer
	interval   time.Duration
	sleep      SleepFunc
	now        func() time.Time
	provenance map[string]string
}

// Option configures a Monitor.
type Option func(*Monitor)

// WithEmitter sets the progress sink.
func WithEmitter(e emitter.Emitter) Option {
	return func(m *Monitor) { m.emitter = e }
}

// WithLogger sets the monitor's logger.
func WithLogger(l zerolog.Logger) Option {
	return func(m *Monitor) { m.log = l }
}

// WithMetrics records polls and operation durations.
func WithMetrics(mt *telemetry.Metrics) Option {
	return func(m *Monitor) { m.metrics = mt }
}

// WithTracer sets the tracer stack operation spans are started on.
func WithTracer(t trace.Tracer) Option {
	return func(m *Monitor) { m.tracer = t }
}

// WithPollInterval sets the pause between polls.
func WithPollInterval(d time.Duration) Option {
	return func(m *Monitor) {
		if d > 0 {
			m.interval = d
		}
	}
}

// WithSleep replaces the pause between polls.
func WithSleep(fn SleepFunc) Option {
	return func(m *Monitor) { m.sleep = fn }
}

// WithClock replaces the clock used for elapsed times.
func WithClock(now func() time.Time) Option {
	return func(m *Monitor) { m.now = now }
}

// WithProvenance sets the tags every created stack carries.
func WithProvenance(tags map[string]string) Option {
	return func(m *Monitor) { m.provenance = tags }
}

// NewMonitor creates a monitor over the given stack API.
func NewMonitor(api provision.StackAPI, opts ...Option) *Monitor {
	m := &Monitor{
		api:      api,
		emitter:  emitter.Nop{},
		log:      log.Logger,
		tracer:   otel.Tracer("rebel/stack"),
		interval: DefaultPollInterval,
		sleep:    sleepContext,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// CreateAndAwait creates a stack carrying the provenance tags. With sync
// it waits for the stack to settle; verbose reports resource progress
// while waiting.
func (m *Monitor) CreateAndAwait(ctx context.Context, spec provision.StackSpec, sync, verbose bool) (st *resource.Stack, err error) {
	ctx, span := m.tracer.Start(ctx, "stack.create", trace.WithAttributes(attribute.String("stack.name", spec.Name)))
	start := m.now()
	defer func() { m.finish(ctx, span, "stack.create", start, err) }()

	tags := make(map[string]string, len(spec.Tags)+len(m.provenance))
	maps.Copy(tags, spec.Tags)
	maps.Copy(tags, m.provenance)
	spec.Tags = tags

	id, err := m.api.CreateStack(ctx, spec)
	if err != nil {
		return nil, err
	}
	m.log.Info().Str("stack", spec.Name).Str("id", id).Msg("stack creation requested")

	if !sync {
		return m.api.DescribeStack(ctx, id)
	}
	return m.Await(ctx, OpCreate, id, start, nil, verbose)
}

// DeleteAndAwait deletes a stack. With sync it waits until the stack is
// gone; verbose reports resource progress while waiting, starting from
// the resources as they were before the delete.
func (m *Monitor) DeleteAndAwait(ctx context.Context, st resource.Stack, sync, verbose bool) (err error) {
	ctx, span := m.tracer.Start(ctx, "stack.delete", trace.WithAttributes(attribute.String("stack.name", st.Name)))
	start := m.now()
	defer func() { m.finish(ctx, span, "stack.delete", start, err) }()

	var baseline resource.Snapshot
	if sync && verbose {
		resources, err := m.CollectResources(ctx, st.ID)
		if err != nil {
			m.log.Warn().Err(err).Str("stack", st.Name).Msg("could not list resources before delete")
		} else {
			baseline = resource.NewSnapshot(resources)
		}
	}

	if err := m.api.DeleteStack(ctx, st.ID); err != nil {
		return err
	}
	m.log.Info().Str("stack", st.Name).Str("id", st.ID).Msg("stack deletion requested")

	if !sync {
		return nil
	}

	// Poll by id: a deleted stack is only reachable by its id.
	_, err = m.Await(ctx, OpDelete, st.ID, start, baseline, verbose)
	return err
}

func (m *Monitor) finish(ctx context.Context, span trace.Span, name string, start time.Time, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
	m.metrics.RecordOperation(ctx, name, m.now().Sub(start), err)
}

// Await polls the stack until its status no longer ends in _IN_PROGRESS.
// A terminal status other than the operation's success status is
// returned as a TerminalStatusError. For deletes, a stack that can no
// longer be found counts as deleted.
func (m *Monitor) Await(ctx context.Context, o Operation, id string, start time.Time, baseline resource.Snapshot, verbose bool) (*resource.Stack, error) {
	tracker := emitter.NewTracker(baseline)
	defer func() {
		if err := m.emitter.Status(ctx, nil); err != nil {
			m.log.Debug().Err(err).Msg("clear status line")
		}
	}()

	for {
		st, err := m.api.DescribeStack(ctx, id)
		if err != nil {
			if o == OpDelete && provision.IsNotFound(err) {
				m.metrics.RecordStackPoll(ctx, string(o), o.SuccessStatus())
				return &resource.Stack{ID: id, Status: o.SuccessStatus()}, nil
			}
			return nil, err
		}
		m.metrics.RecordStackPoll(ctx, string(o), st.Status)

		if verbose {
			m.report(ctx, tracker, id, start)
		}

		if !resource.IsInProgress(st.Status) {
			logger := m.log.With().Ctx(ctx).Str("stack", st.Name).Str("status", st.Status).Logger()
			if st.Status != o.SuccessStatus() {
				logger.Error().Str("reason", st.StatusReason).Msgf("stack %s failed", o)
				return st, &TerminalStatusError{Stack: st.Name, Operation: o, Status: st.Status, Reason: st.StatusReason}
			}
			logger.Info().Dur("elapsed", m.now().Sub(start)).Msgf("stack %s complete", o)
			return st, nil
		}

		m.log.Debug().Str("stack", st.Name).Str("status", st.Status).Msg("waiting")
		if err := m.sleep(ctx, m.interval); err != nil {
			return nil, err
		}
	}
}

// report emits the transitions since the previous poll. A failed listing
// only skips this poll's report.
func (m *Monitor) report(ctx context.Context, tracker *emitter.Tracker, id string, start time.Time) {
	resources, err := m.CollectResources(ctx, id)
	if err != nil {
		m.log.Warn().Err(err).Str("stack", id).Msg("could not list stack resources")
		return
	}

	progress := tracker.Step(resources)
	elapsed := m.now().Sub(start)
	for _, change := range progress.Events {
		if err := m.emitter.Event(ctx, emitter.Event{Elapsed: elapsed, Change: change}); err != nil {
			m.log.Debug().Err(err).Msg("emit event")
		}
	}
	if err := m.emitter.Status(ctx, progress.InProgress); err != nil {
		m.log.Debug().Err(err).Msg("emit status")
	}
}

// CollectResources lists the resources of a stack, descending into nested
// stacks. Nested resources carry the logical ids of their enclosing
// stacks in Path.
func (m *Monitor) CollectResources(ctx context.Context, stackID string) ([]resource.StackResource, error) {
	return m.collect(ctx, stackID, nil)
}

func (m *Monitor) collect(ctx context.Context, stackID string, path []string) ([]resource.StackResource, error) {
	resources, err := m.api.ListStackResources(ctx, stackID)
	if err != nil {
		return nil, fmt.Errorf("list resources of %s: %w", stackID, err)
	}

	var out []resource.StackResource
	for _, r := range resources {
		r.Path = path
		out = append(out, r)

		if !r.IsNestedStack() || r.PhysicalID == "" {
			continue
		}

		nestedPath := append(append([]string(nil), path...), r.LogicalID)
		nested, err := m.collect(ctx, r.PhysicalID, nestedPath)
		if provision.IsNotFound(err) {
			m.log.Debug().Str("stack", r.PhysicalID).Msg("nested stack gone")
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, nested...)
	}
	return out, nil
}
