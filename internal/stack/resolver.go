// Package stack drives stack lifecycle operations: resolving stacks by
// name, creating and deleting them, and following them to a terminal
// status.
package stack

import (
	"context"
	"sort"
	"strings"

	"github.com/guidowb/rebel/internal/filter"
	"github.com/guidowb/rebel/pkg/resource"
)

// Lister lists stacks.
type Lister interface {
	ListStacks(ctx context.Context) ([]resource.Stack, error)
}

// Resolver finds stacks by name pattern among the stacks the filter admits.
type Resolver struct {
	api    Lister
	filter *filter.Filter
}

// NewResolver creates a resolver. A nil filter admits every stack.
func NewResolver(api Lister, f *filter.Filter) *Resolver {
	if f == nil {
		f = filter.New(nil, nil)
	}
	return &Resolver{api: api, filter: f}
}

// List returns the visible stacks sorted by name.
func (r *Resolver) List(ctx context.Context) ([]resource.Stack, error) {
	stacks, err := r.api.ListStacks(ctx)
	if err != nil {
		return nil, err
	}
	visible := append([]resource.Stack(nil), r.filter.Stacks(stacks)...)
	sort.Slice(visible, func(i, j int) bool { return visible[i].Name < visible[j].Name })
	return visible, nil
}

// Resolve returns the single visible stack matching pattern. A stack
// named exactly pattern wins; otherwise pattern must be a substring of
// exactly one stack name.
func (r *Resolver) Resolve(ctx context.Context, pattern string) (*resource.Stack, error) {
	stacks, err := r.List(ctx)
	if err != nil {
		return nil, err
	}
	return Match(stacks, pattern)
}

// Match applies the resolution rules of Resolve to stacks.
func Match(stacks []resource.Stack, pattern string) (*resource.Stack, error) {
	var matches []resource.Stack
	for i := range stacks {
		if stacks[i].Name == pattern {
			s := stacks[i]
			return &s, nil
		}
		if strings.Contains(stacks[i].Name, pattern) {
			matches = append(matches, stacks[i])
		}
	}

	switch len(matches) {
	case 0:
		return nil, &NotFoundError{Pattern: pattern, Available: names(stacks)}
	case 1:
		return &matches[0], nil
	default:
		return nil, &AmbiguousError{Pattern: pattern, Matches: names(matches)}
	}
}

func names(stacks []resource.Stack) []string {
	out := make([]string, 0, len(stacks))
	for _, s := range stacks {
		out = append(out, s.Name)
	}
	return out
}
