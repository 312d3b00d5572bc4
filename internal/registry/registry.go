// Package registry holds the resource type schema: for every resource kind,
// how to identify, list and delete items and which kinds hang below it.
package registry

import (
	"fmt"
	"sort"
	"strings"

	"github.com/guidowb/rebel/internal/provision"
)

// Kind names a resource type. Kinds are the only string keys of the schema;
// everything below the registry works with *ResourceType handles.
type Kind string

// ListSpec describes how to enumerate items of a kind.
type ListSpec struct {
	// Request is the list call. Its filters are always applied, child
	// filters are appended.
	Request provision.Request
	// Path names the nested containers to flatten, outermost first, e.g.
	// ["Reservations", "Instances"].
	Path []string
}

// ChildSpec links a parent kind to a child kind.
type ChildSpec struct {
	Kind Kind
	// Filters are templates; {parent} is replaced with the parent id.
	Filters []provision.Filter
	// ParentRef names a field (dotted path) of the raw child item that
	// must equal the parent id. Set it for kinds whose list call cannot
	// filter by parent on the server side.
	ParentRef string
}

// ResourceType is one schema entry.
type ResourceType struct {
	Kind    Kind
	IDField string
	List    ListSpec
	// Delete holds the calls that remove one item, issued in order.
	// {id} is the item id, {parent} the id of the item it hangs below.
	Delete []provision.Request
	// AwaitDeletion makes the teardown block until the provider reports
	// the item gone before moving on.
	AwaitDeletion bool
	Children      []ChildSpec
}

// DeleteRequests binds the delete templates for one item.
func (t *ResourceType) DeleteRequests(id, parent string) []provision.Request {
	reqs := make([]provision.Request, 0, len(t.Delete))
	for _, tmpl := range t.Delete {
		reqs = append(reqs, tmpl.Bind(provision.Vars{ID: id, Parent: parent}))
	}
	return reqs
}

// UnknownTypeError is returned when a kind is not in the registry.
type UnknownTypeError struct {
	Name  string
	Known []string
}

func (e *UnknownTypeError) Error() string {
	return fmt.Sprintf("unknown resource type %q (known types: %s)", e.Name, strings.Join(e.Known, ", "))
}

// Registry is a closed set of resource types.
type Registry struct {
	types map[Kind]*ResourceType
}

// New validates and indexes the given types. Every child kind must be
// registered and no kind may be reachable from itself.
func New(types ...ResourceType) (*Registry, error) {
	r := &Registry{types: make(map[Kind]*ResourceType, len(types))}
	for i := range types {
		t := types[i]
		if t.Kind == "" {
			return nil, fmt.Errorf("resource type %d: empty kind", i)
		}
		if t.IDField == "" {
			return nil, fmt.Errorf("resource type %s: empty id field", t.Kind)
		}
		if _, dup := r.types[t.Kind]; dup {
			return nil, fmt.Errorf("resource type %s: registered twice", t.Kind)
		}
		r.types[t.Kind] = &t
	}

	for _, t := range r.types {
		for _, child := range t.Children {
			if _, ok := r.types[child.Kind]; !ok {
				return nil, fmt.Errorf("resource type %s: child %s is not registered", t.Kind, child.Kind)
			}
		}
	}

	for kind := range r.types {
		if r.reaches(kind, kind, map[Kind]bool{}) {
			return nil, fmt.Errorf("resource type %s: is its own descendant", kind)
		}
	}

	return r, nil
}

func (r *Registry) reaches(from, target Kind, seen map[Kind]bool) bool {
	for _, child := range r.types[from].Children {
		if child.Kind == target {
			return true
		}
		if seen[child.Kind] {
			continue
		}
		seen[child.Kind] = true
		if r.reaches(child.Kind, target, seen) {
			return true
		}
	}
	return false
}

// Resolve looks up a kind by its user-facing name.
func (r *Registry) Resolve(name string) (*ResourceType, error) {
	t, ok := r.types[Kind(name)]
	if !ok {
		return nil, &UnknownTypeError{Name: name, Known: r.Names()}
	}
	return t, nil
}

// Get returns the type registered for kind.
func (r *Registry) Get(kind Kind) (*ResourceType, bool) {
	t, ok := r.types[kind]
	return t, ok
}

// MustGet returns the type registered for kind and panics when it is
// missing. Only for kinds the caller's own schema guarantees.
func (r *Registry) MustGet(kind Kind) *ResourceType {
	t, ok := r.types[kind]
	if !ok {
		panic(fmt.Sprintf("registry: kind %s not registered", kind))
	}
	return t
}

// Names returns the registered kind names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.types))
	for kind := range r.types {
		names = append(names, string(kind))
	}
	sort.Strings(names)
	return names
}
