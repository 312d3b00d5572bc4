// Package cleanup tears down a root resource and everything that depends
// on it, leaves first.
package cleanup

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/guidowb/rebel/internal/provision"
	"github.com/guidowb/rebel/internal/registry"
	"github.com/guidowb/rebel/internal/telemetry"
	"github.com/guidowb/rebel/internal/tree"
	"github.com/guidowb/rebel/pkg/resource"
)

// API is what the engine needs from the provisioning backend.
type API interface {
	provision.Lister
	provision.Deleter
}

// Deletion is one resource removed (or, in a dry run, to be removed).
type Deletion struct {
	Kind     string
	ID       string
	Requests []provision.Request
	// Note qualifies a planned deletion, e.g. "after subnets".
	Note string
}

// Skipped is one resource left in place.
type Skipped struct {
	Kind   string
	ID     string
	Reason string
}

// Report describes one teardown.
type Report struct {
	Root string
	// Absent is set when the root did not exist and nothing was done.
	Absent    bool
	DryRun    bool
	Deletions []Deletion
	Skipped   []Skipped
	Failures  *PartialDependencyError
}

func (r *Report) planned(kind registry.Kind, id string) bool {
	for _, d := range r.Deletions {
		if d.Kind == string(kind) && d.ID == id {
			return true
		}
	}
	return false
}

// Partial returns the dependents that could not be deleted, or nil.
func (r *Report) Partial() error {
	if r.Failures.HasErrors() {
		return r.Failures
	}
	return nil
}

// Engine runs teardowns.
type Engine struct {
	api      API
	registry *registry.Registry
	builder  *tree.Builder
	pipeline Pipeline
	log      zerolog.Logger
	metrics  *telemetry.Metrics
	tracer   trace.Tracer
	dryRun   bool
}

// Option configures an Engine.
type Option func(*Engine)

// WithPipeline replaces the AWS teardown order.
func WithPipeline(p Pipeline) Option {
	return func(e *Engine) { e.pipeline = p }
}

// WithLogger sets the engine's logger.
func WithLogger(l zerolog.Logger) Option {
	return func(e *Engine) { e.log = l }
}

// WithMetrics records deletions.
func WithMetrics(m *telemetry.Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// WithTracer sets the tracer teardown spans are started on.
func WithTracer(t trace.Tracer) Option {
	return func(e *Engine) { e.tracer = t }
}

// WithDryRun makes every teardown a plan.
func WithDryRun(dryRun bool) Option {
	return func(e *Engine) { e.dryRun = dryRun }
}

// NewEngine creates an engine over the given backend and schema.
func NewEngine(api API, reg *registry.Registry, opts ...Option) *Engine {
	e := &Engine{
		api:      api,
		registry: reg,
		pipeline: AWSPipeline(),
		log:      log.Logger,
		tracer:   otel.Tracer("rebel/cleanup"),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.builder = tree.NewBuilder(api, reg, tree.WithLogger(e.log), tree.WithTracer(e.tracer))
	return e
}

// TeardownRoot deletes the root with the given id after removing its
// dependents in pipeline order. A root that does not exist is a no-op.
//
// Discovery failures abort. Dependent delete failures are collected in
// the report and the root delete is attempted anyway; only a failed root
// delete is returned as an error.
func (e *Engine) TeardownRoot(ctx context.Context, id string) (*Report, error) {
	return e.teardown(ctx, id, e.dryRun)
}

// Plan returns the deletions TeardownRoot would issue, without issuing any.
func (e *Engine) Plan(ctx context.Context, id string) (*Report, error) {
	return e.teardown(ctx, id, true)
}

func (e *Engine) teardown(ctx context.Context, id string, dryRun bool) (report *Report, err error) {
	ctx, span := e.tracer.Start(ctx, "cleanup.teardown", trace.WithAttributes(
		attribute.String("resource.kind", string(e.pipeline.Root)),
		attribute.String("resource.id", id),
		attribute.Bool("dry_run", dryRun),
	))
	start := time.Now()
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
		if !dryRun {
			e.metrics.RecordOperation(ctx, "teardown", time.Since(start), err)
		}
	}()

	rootType, err := e.typeOf(e.pipeline.Root)
	if err != nil {
		return nil, err
	}

	report = &Report{Root: id, DryRun: dryRun, Failures: &PartialDependencyError{Root: id}}
	logger := e.log.With().Ctx(ctx).Str("root", id).Str("kind", string(rootType.Kind)).Logger()

	roots, err := e.builder.ListItems(ctx, rootType, nil, id)
	if err != nil {
		return nil, err
	}
	if len(roots) == 0 {
		logger.Info().Msg("root not found, nothing to do")
		e.metrics.RecordDeletion(ctx, string(rootType.Kind), telemetry.OutcomeAbsent)
		report.Absent = true
		return report, nil
	}

	logger.Info().Bool("dry_run", dryRun).Msg("tearing down")

	for _, step := range e.pipeline.Steps {
		typ, err := e.typeOf(step.Kind)
		if err != nil {
			return nil, err
		}

		nodes, err := e.dependents(ctx, typ, step, id)
		if err != nil {
			return nil, err
		}

		for _, n := range nodes {
			e.remove(ctx, report, typ, n, id, step, dryRun)
		}
	}

	if err := e.deleteOne(ctx, report, rootType, id, "", "", dryRun); err != nil {
		if report.Failures.HasErrors() {
			logger.Warn().Err(report.Failures).Msg("dependents left behind")
		}
		return report, fmt.Errorf("delete %s %s: %w", rootType.Kind, id, err)
	}

	if report.Failures.HasErrors() {
		logger.Warn().Err(report.Failures).Msg("root deleted, some dependents could not be")
	}
	logger.Info().Int("deleted", len(report.Deletions)).Int("skipped", len(report.Skipped)).Msg("teardown complete")

	return report, nil
}

// TeardownAll tears down every root of the pipeline's kind except those
// SkipRoot excludes. A failed root does not stop the others.
func (e *Engine) TeardownAll(ctx context.Context) ([]*Report, error) {
	rootType, err := e.typeOf(e.pipeline.Root)
	if err != nil {
		return nil, err
	}

	roots, err := e.builder.ListItems(ctx, rootType, nil, "")
	if err != nil {
		return nil, err
	}

	var (
		reports []*Report
		errs    []error
	)
	for _, root := range roots {
		if e.pipeline.SkipRoot != nil {
			if reason := e.pipeline.SkipRoot(root.Item); reason != "" {
				e.log.Info().Str("root", root.ID).Str("reason", reason).Msg("skipping root")
				continue
			}
		}

		report, err := e.TeardownRoot(ctx, root.ID)
		if report != nil {
			reports = append(reports, report)
		}
		if err != nil {
			e.log.Error().Err(err).Str("root", root.ID).Msg("teardown failed")
			errs = append(errs, err)
		}
	}

	return reports, errors.Join(errs...)
}

// TeardownTree deletes already built trees children first. Each node is
// deleted with its tree parent as {parent}. Failures are collected and
// the walk continues.
func (e *Engine) TeardownTree(ctx context.Context, forest []resource.Node) (*Report, error) {
	report := &Report{DryRun: e.dryRun, Failures: &PartialDependencyError{}}
	for _, root := range forest {
		if err := e.teardownNode(ctx, report, root, ""); err != nil {
			return report, err
		}
	}
	if report.Failures.HasErrors() {
		return report, report.Failures
	}
	return report, nil
}

func (e *Engine) teardownNode(ctx context.Context, report *Report, n resource.Node, parent string) error {
	for _, child := range n.Children {
		if err := e.teardownNode(ctx, report, child, n.ID); err != nil {
			return err
		}
	}

	typ, err := e.typeOf(registry.Kind(n.Kind))
	if err != nil {
		return err
	}
	e.remove(ctx, report, typ, n, parent, e.pipeline.stepFor(n.Kind), e.dryRun)
	return nil
}

func (e *Engine) typeOf(kind registry.Kind) (*registry.ResourceType, error) {
	typ, ok := e.registry.Get(kind)
	if !ok {
		return nil, &registry.UnknownTypeError{Name: string(kind), Known: e.registry.Names()}
	}
	return typ, nil
}

func (e *Engine) dependents(ctx context.Context, typ *registry.ResourceType, step Step, rootID string) ([]resource.Node, error) {
	filters := provision.BindFilters(step.Filters, provision.Vars{Parent: rootID})
	nodes, err := e.builder.ListItems(ctx, typ, filters, "")
	if err != nil {
		return nil, err
	}
	if step.ParentRef != "" {
		nodes = tree.KeepChildrenOf(nodes, step.ParentRef, rootID)
	}
	return nodes, nil
}

// remove deletes one dependent, recording skips and failures in report.
func (e *Engine) remove(ctx context.Context, report *Report, typ *registry.ResourceType, n resource.Node, parent string, step Step, dryRun bool) {
	item, note := n.Item, ""
	if dryRun && step.Plan != nil {
		item, note = step.Plan(item, report.planned)
	}

	if step.Skip != nil {
		if reason := step.Skip(item); reason != "" {
			e.log.Info().Str("kind", n.Kind).Str("id", n.ID).Str("reason", reason).Msg("skipping")
			report.Skipped = append(report.Skipped, Skipped{Kind: n.Kind, ID: n.ID, Reason: reason})
			e.metrics.RecordDeletion(ctx, n.Kind, telemetry.OutcomeSkipped)
			return
		}
	}

	if err := e.deleteOne(ctx, report, typ, n.ID, parent, note, dryRun); err != nil {
		e.log.Warn().Ctx(ctx).Err(err).Str("kind", n.Kind).Str("id", n.ID).Msg("could not delete, continuing")
		report.Failures.Add(n.Kind, n.ID, err)
	}
}

// deleteOne issues the delete calls of one item and, for types that need
// it, waits until the item is gone. An item that is already gone counts
// as deleted.
func (e *Engine) deleteOne(ctx context.Context, report *Report, typ *registry.ResourceType, id, parent, note string, dryRun bool) error {
	kind := string(typ.Kind)
	reqs := typ.DeleteRequests(id, parent)

	if dryRun {
		for _, req := range reqs {
			e.log.Info().Str("request", req.String()).Msg("would delete")
		}
		report.Deletions = append(report.Deletions, Deletion{Kind: kind, ID: id, Requests: reqs, Note: note})
		e.metrics.RecordDeletion(ctx, kind, telemetry.OutcomePlanned)
		return nil
	}

	e.log.Info().Ctx(ctx).Str("kind", kind).Str("id", id).Msg("deleting")

	gone := 0
	for _, req := range reqs {
		err := e.api.DeleteItem(ctx, req)
		if provision.IsNotFound(err) {
			e.log.Debug().Str("request", req.String()).Msg("already gone")
			gone++
			continue
		}
		if err != nil {
			e.metrics.RecordDeletion(ctx, kind, telemetry.OutcomeFailed)
			return err
		}
	}

	if typ.AwaitDeletion && len(reqs) > 0 && gone < len(reqs) {
		last := reqs[len(reqs)-1]
		e.log.Info().Str("kind", kind).Str("id", id).Msg("waiting for deletion")
		err := e.api.AwaitDeleted(ctx, last)
		if provision.IsNotFound(err) {
			e.log.Debug().Str("request", last.String()).Msg("gone while waiting")
			err = nil
		}
		if err != nil {
			e.metrics.RecordDeletion(ctx, kind, telemetry.OutcomeFailed)
			return fmt.Errorf("await %s %s: %w", kind, id, err)
		}
	}

	report.Deletions = append(report.Deletions, Deletion{Kind: kind, ID: id, Requests: reqs})
	e.metrics.RecordDeletion(ctx, kind, telemetry.OutcomeDeleted)
	return nil
}
