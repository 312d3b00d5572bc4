// Package provisiontest provides an in-memory provisioning backend for tests.
package provisiontest

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/guidowb/rebel/internal/provision"
)

// Collection holds the live items returned by one list operation.
type Collection struct {
	// Path is the container path of the response, e.g. ["Vpcs"] or
	// ["Reservations", "Instances"]. Each item of a two-level path is
	// wrapped in its own outer container.
	Path    []string
	IDField string
	// Filters maps a server-side filter name to the dotted item field it
	// matches. Arrays along the field path match when any element matches.
	Filters map[string]string
	Items   []map[string]any
}

// DeleteRule describes what a delete operation does to the fake state.
type DeleteRule struct {
	List  provision.Operation // collection the item lives in
	Param string              // request param carrying the item id
	// Keep leaves the item in place, e.g. for detach calls.
	Keep bool
}

// Cloud is an in-memory provisioning backend implementing
// provision.Lister and provision.Deleter. It records every call.
type Cloud struct {
	mu          sync.Mutex
	collections map[provision.Operation]*Collection
	deletes     map[provision.Operation]DeleteRule
	listErrs    map[provision.Operation]error
	deleteErrs  map[string]error
	awaitErrs   map[string]error

	calls []provision.Request
}

// NewCloud returns an empty cloud.
func NewCloud() *Cloud {
	return &Cloud{
		collections: make(map[provision.Operation]*Collection),
		deletes:     make(map[provision.Operation]DeleteRule),
		listErrs:    make(map[provision.Operation]error),
		deleteErrs:  make(map[string]error),
		awaitErrs:   make(map[string]error),
	}
}

// AddCollection registers the collection served by a list operation.
func (c *Cloud) AddCollection(op provision.Operation, coll Collection) *Cloud {
	c.mu.Lock()
	defer c.mu.Unlock()
	cp := coll
	c.collections[op] = &cp
	return c
}

// AddDelete registers a delete operation.
func (c *Cloud) AddDelete(op provision.Operation, rule DeleteRule) *Cloud {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.deletes[op] = rule
	return c
}

// Put adds an item to the collection of a list operation.
func (c *Cloud) Put(op provision.Operation, item map[string]any) *Cloud {
	c.mu.Lock()
	defer c.mu.Unlock()
	coll, ok := c.collections[op]
	if !ok {
		panic(fmt.Sprintf("provisiontest: no collection for %s", op))
	}
	coll.Items = append(coll.Items, item)
	return c
}

// FailList makes every call of a list operation fail.
func (c *Cloud) FailList(op provision.Operation, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listErrs[op] = err
}

// FailDelete makes the delete call rendering as req fail, e.g.
// "ec2:DeleteSubnet SubnetId=subnet-1". A *provision.TransportError is
// returned as is; other errors are wrapped in one.
func (c *Cloud) FailDelete(req string, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.deleteErrs[req] = err
}

// FailAwait makes AwaitDeleted fail for the delete call rendering as req.
func (c *Cloud) FailAwait(req string, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.awaitErrs[req] = err
}

// Calls returns the rendered requests seen so far.
func (c *Cloud) Calls() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, 0, len(c.calls))
	for _, r := range c.calls {
		out = append(out, r.String())
	}
	return out
}

// CallsOf returns the rendered requests for the given operations.
func (c *Cloud) CallsOf(ops ...provision.Operation) []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []string
	for _, r := range c.calls {
		for _, op := range ops {
			if r.Operation == op {
				out = append(out, r.String())
				break
			}
		}
	}
	return out
}

// DeleteCalls returns the rendered requests of all registered delete
// operations, in call order.
func (c *Cloud) DeleteCalls() []string {
	c.mu.Lock()
	ops := make([]provision.Operation, 0, len(c.deletes))
	for op := range c.deletes {
		ops = append(ops, op)
	}
	c.mu.Unlock()
	return c.CallsOf(ops...)
}

// Reset forgets the recorded calls.
func (c *Cloud) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = nil
}

// ListItems implements provision.Lister.
func (c *Cloud) ListItems(_ context.Context, req provision.Request) (any, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, req)

	if err := c.listErrs[req.Operation]; err != nil {
		return nil, provision.NewTransportError(req, 500, err)
	}

	coll, ok := c.collections[req.Operation]
	if !ok {
		return nil, provision.NewTransportError(req, 400, errors.New("unsupported operation"))
	}

	var matched []any
	for _, item := range coll.Items {
		ok, err := coll.matches(item, req.Filters)
		if err != nil {
			return nil, provision.NewTransportError(req, 400, err)
		}
		if ok {
			matched = append(matched, item)
		}
	}

	return wrap(coll.Path, matched), nil
}

// DeleteItem implements provision.Deleter.
func (c *Cloud) DeleteItem(_ context.Context, req provision.Request) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, req)

	if err := c.deleteErrs[req.String()]; err != nil {
		return asTransportError(req, err)
	}

	rule, ok := c.deletes[req.Operation]
	if !ok {
		return provision.NewTransportError(req, 400, errors.New("unsupported operation"))
	}

	id, _ := req.Param(rule.Param)
	coll := c.collections[rule.List]
	for i, item := range coll.Items {
		if fmt.Sprint(item[coll.IDField]) != id {
			continue
		}
		if !rule.Keep {
			coll.Items = append(coll.Items[:i:i], coll.Items[i+1:]...)
		}
		return nil
	}
	return provision.NewNotFoundError(req, 400, fmt.Errorf("%s %s does not exist", coll.IDField, id))
}

// AwaitDeleted implements provision.Deleter. Deletes take effect
// immediately, so it only records the call unless FailAwait says otherwise.
func (c *Cloud) AwaitDeleted(_ context.Context, req provision.Request) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, provision.Request{Operation: "await:" + req.Operation, Params: req.Params})
	if err := c.awaitErrs[req.String()]; err != nil {
		return asTransportError(req, err)
	}
	return nil
}

func asTransportError(req provision.Request, err error) error {
	var te *provision.TransportError
	if errors.As(err, &te) {
		return err
	}
	return provision.NewTransportError(req, 400, err)
}

func (coll *Collection) matches(item map[string]any, filters []provision.Filter) (bool, error) {
	for _, f := range filters {
		field, ok := coll.Filters[f.Name]
		if !ok {
			return false, fmt.Errorf("unsupported filter %q", f.Name)
		}
		if !matchField(item, strings.Split(field, "."), f.Values) {
			return false, nil
		}
	}
	return true, nil
}

func matchField(v any, path []string, values []string) bool {
	switch val := v.(type) {
	case []any:
		for _, elem := range val {
			if matchField(elem, path, values) {
				return true
			}
		}
		return false
	case []map[string]any:
		for _, elem := range val {
			if matchField(elem, path, values) {
				return true
			}
		}
		return false
	case map[string]any:
		if len(path) == 0 {
			return false
		}
		next, ok := val[path[0]]
		if !ok {
			return false
		}
		return matchField(next, path[1:], values)
	default:
		if len(path) > 0 {
			return false
		}
		s := fmt.Sprint(val)
		for _, want := range values {
			if s == want {
				return true
			}
		}
		return false
	}
}

func wrap(path []string, items []any) any {
	if items == nil {
		items = []any{}
	}
	switch len(path) {
	case 0:
		return items
	case 1:
		return map[string]any{path[0]: items}
	default:
		outer := make([]any, 0, len(items))
		for _, item := range items {
			outer = append(outer, wrap(path[1:], []any{item}))
		}
		return map[string]any{path[0]: outer}
	}
}
