// Package tree materializes live resource trees from the registry schema.
package tree

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/guidowb/rebel/internal/provision"
	"github.com/guidowb/rebel/internal/registry"
	"github.com/guidowb/rebel/pkg/resource"
)

// Builder lists resources and expands them into trees.
type Builder struct {
	api      provision.Lister
	registry *registry.Registry
	log      zerolog.Logger
	tracer   trace.Tracer
}

// Option configures a Builder.
type Option func(*Builder)

// WithLogger sets the builder's logger.
func WithLogger(l zerolog.Logger) Option {
	return func(b *Builder) { b.log = l }
}

// WithTracer sets the tracer build spans are started on.
func WithTracer(t trace.Tracer) Option {
	return func(b *Builder) { b.tracer = t }
}

// NewBuilder creates a builder over the given lister and schema.
func NewBuilder(api provision.Lister, reg *registry.Registry, opts ...Option) *Builder {
	b := &Builder{
		api:      api,
		registry: reg,
		log:      log.Logger,
		tracer:   otel.Tracer("rebel/tree"),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// List resolves a kind by name and lists its items.
func (b *Builder) List(ctx context.Context, name string) ([]resource.Node, error) {
	typ, err := b.registry.Resolve(name)
	if err != nil {
		return nil, err
	}
	return b.ListItems(ctx, typ, nil, "")
}

// Build resolves a kind by name and builds its tree, optionally restricted
// to the item with the given id.
func (b *Builder) Build(ctx context.Context, name, id string) ([]resource.Node, error) {
	typ, err := b.registry.Resolve(name)
	if err != nil {
		return nil, err
	}

	ctx, span := b.tracer.Start(ctx, "tree.build", trace.WithAttributes(
		attribute.String("resource.kind", name),
		attribute.String("resource.id", id),
	))
	defer span.End()

	return b.BuildTree(ctx, typ, id, nil)
}

// ListItems runs the list call for typ with filters appended, flattens the
// response along the type's path and optionally keeps only the item with
// the given id. A missing container yields no items.
func (b *Builder) ListItems(ctx context.Context, typ *registry.ResourceType, filters []provision.Filter, id string) ([]resource.Node, error) {
	req := typ.List.Request.WithFilters(filters...)

	raw, err := b.api.ListItems(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", typ.Kind, err)
	}

	items := flatten(raw, typ.List.Path)
	nodes := make([]resource.Node, 0, len(items))
	for _, item := range items {
		itemID := item.String(typ.IDField)
		if id != "" && itemID != id {
			continue
		}
		nodes = append(nodes, resource.Node{Kind: string(typ.Kind), ID: itemID, Item: item})
	}

	b.log.Debug().
		Str("kind", string(typ.Kind)).
		Str("request", req.String()).
		Int("count", len(nodes)).
		Msg("listed items")

	return nodes, nil
}

// BuildTree lists items of typ and attaches every child subtree declared
// by the schema, depth-first, children in declaration order. Any failed
// list call aborts the whole build.
func (b *Builder) BuildTree(ctx context.Context, typ *registry.ResourceType, id string, filters []provision.Filter) ([]resource.Node, error) {
	nodes, err := b.ListItems(ctx, typ, filters, id)
	if err != nil {
		return nil, err
	}

	for i := range nodes {
		parent := &nodes[i]
		for _, spec := range typ.Children {
			children, err := b.buildChildren(ctx, spec, parent.ID)
			if err != nil {
				return nil, err
			}
			parent.Children = append(parent.Children, children...)
		}
	}

	return nodes, nil
}

func (b *Builder) buildChildren(ctx context.Context, spec registry.ChildSpec, parentID string) ([]resource.Node, error) {
	childType, ok := b.registry.Get(spec.Kind)
	if !ok {
		return nil, &registry.UnknownTypeError{Name: string(spec.Kind), Known: b.registry.Names()}
	}

	filters := provision.BindFilters(spec.Filters, provision.Vars{Parent: parentID})
	nodes, err := b.ListItems(ctx, childType, filters, "")
	if err != nil {
		return nil, err
	}

	if spec.ParentRef != "" {
		nodes = KeepChildrenOf(nodes, spec.ParentRef, parentID)
	}

	for i := range nodes {
		node := &nodes[i]
		for _, grandchild := range childType.Children {
			sub, err := b.buildChildren(ctx, grandchild, node.ID)
			if err != nil {
				return nil, err
			}
			node.Children = append(node.Children, sub...)
		}
	}

	return nodes, nil
}

// KeepChildrenOf returns the nodes whose raw item field ref equals parentID.
func KeepChildrenOf(nodes []resource.Node, ref, parentID string) []resource.Node {
	kept := nodes[:0:0]
	for _, n := range nodes {
		if n.Item.String(ref) == parentID {
			kept = append(kept, n)
		}
	}
	return kept
}

// flatten pulls items out of nested containers: for path [a, b] it
// collects container.a[*].b[*].
func flatten(container any, path []string) []resource.Item {
	if len(path) == 0 {
		return nil
	}

	var obj resource.Item
	switch c := container.(type) {
	case map[string]any:
		obj = c
	case resource.Item:
		obj = c
	default:
		return nil
	}

	items := obj.List(path[0])
	if len(path) == 1 {
		return items
	}

	var flattened []resource.Item
	for _, item := range items {
		flattened = append(flattened, flatten(item, path[1:])...)
	}
	return flattened
}

// Print writes one "kind id" line per node, children indented by three
// spaces per level.
func Print(w io.Writer, forest []resource.Node) error {
	for _, root := range forest {
		var err error
		root.Walk(func(depth int, n resource.Node) {
			if err != nil {
				return
			}
			_, err = fmt.Fprintf(w, "%s%s %s\n", strings.Repeat(" ", depth*3), n.Kind, n.ID)
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// IDs returns the ids of the given nodes.
func IDs(nodes []resource.Node) []string {
	ids := make([]string, 0, len(nodes))
	for _, n := range nodes {
		ids = append(ids, n.ID)
	}
	return ids
}
