// Package filter decides which stacks rebel considers its own.
package filter

import (
	"github.com/guidowb/rebel/pkg/resource"
)

// Filter selects stacks by tag.
type Filter struct {
	includeTags map[string]string
	excludeTags map[string]string
}

// New creates a Filter. A stack must carry every include tag and none of
// the exclude tags.
func New(includeTags, excludeTags map[string]string) *Filter {
	return &Filter{
		includeTags: includeTags,
		excludeTags: excludeTags,
	}
}

// Matches returns true if tags pass the filter.
func (f *Filter) Matches(tags map[string]string) bool {
	// ALL include tags must match
	for k, v := range f.includeTags {
		if tags == nil || tags[k] != v {
			return false
		}
	}

	// ANY exclude tag excludes
	for k, v := range f.excludeTags {
		if tags != nil && tags[k] == v {
			return false
		}
	}

	return true
}

// Stacks returns only the stacks that pass the filter.
func (f *Filter) Stacks(stacks []resource.Stack) []resource.Stack {
	if f.IsEmpty() {
		return stacks
	}

	filtered := make([]resource.Stack, 0, len(stacks))
	for _, s := range stacks {
		if f.Matches(s.Tags) {
			filtered = append(filtered, s)
		}
	}
	return filtered
}

// IsEmpty returns true if no tags are configured.
func (f *Filter) IsEmpty() bool {
	return len(f.includeTags) == 0 && len(f.excludeTags) == 0
}
