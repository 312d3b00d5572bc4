// Package resource defines the resource model shared by the tree builder,
// the teardown engine and the stack monitor.
package resource

import (
	"fmt"
	"strings"
)

// Item is a raw provider item as returned by a list call: the decoded JSON
// object for one resource, with provider field names as keys.
type Item map[string]any

// Lookup walks a dotted path (e.g. "DBSubnetGroup.VpcId") through nested
// objects. Missing keys and non-object intermediates report ok=false.
func (i Item) Lookup(path string) (any, bool) {
	var current any = map[string]any(i)
	for _, field := range strings.Split(path, ".") {
		obj, ok := asObject(current)
		if !ok {
			return nil, false
		}
		current, ok = obj[field]
		if !ok {
			return nil, false
		}
	}
	return current, true
}

// String returns the value at path formatted as a string, or "" when the
// path does not resolve to a scalar.
func (i Item) String(path string) string {
	v, ok := i.Lookup(path)
	if !ok || v == nil {
		return ""
	}
	switch val := v.(type) {
	case string:
		return val
	case map[string]any, []any, Item:
		return ""
	default:
		return fmt.Sprint(val)
	}
}

// Bool returns the boolean at path, false when absent or not a bool.
func (i Item) Bool(path string) bool {
	v, ok := i.Lookup(path)
	if !ok {
		return false
	}
	b, _ := v.(bool)
	return b
}

// List returns the array at path as items. Non-object elements are skipped.
func (i Item) List(path string) []Item {
	v, ok := i.Lookup(path)
	if !ok {
		return nil
	}
	return Items(v)
}

// Items converts a decoded JSON array into items, skipping non-objects.
func Items(v any) []Item {
	arr, ok := v.([]any)
	if !ok {
		return nil
	}
	items := make([]Item, 0, len(arr))
	for _, elem := range arr {
		if obj, ok := asObject(elem); ok {
			items = append(items, Item(obj))
		}
	}
	return items
}

func asObject(v any) (map[string]any, bool) {
	switch obj := v.(type) {
	case map[string]any:
		return obj, true
	case Item:
		return obj, true
	default:
		return nil, false
	}
}

// Node is one live resource in a resource tree. A node owns its children;
// there are no back references.
type Node struct {
	Kind     string `json:"kind"`
	ID       string `json:"id"`
	Item     Item   `json:"item"`
	Children []Node `json:"children,omitempty"`
}

// Walk visits n and its descendants depth-first, parents before children.
func (n Node) Walk(fn func(depth int, n Node)) {
	n.walk(0, fn)
}

func (n Node) walk(depth int, fn func(int, Node)) {
	fn(depth, n)
	for _, child := range n.Children {
		child.walk(depth+1, fn)
	}
}
