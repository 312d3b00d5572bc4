package emitter

import (
	"sort"

	"github.com/guidowb/rebel/pkg/resource"
)

// Progress is what one poll contributes to the display.
type Progress struct {
	// Events are the settled transitions since the previous poll, oldest
	// update first.
	Events []resource.StatusChange
	// InProgress holds the sorted keys of resources still in progress.
	InProgress []string
}

// Tracker diffs successive stack resource listings. It holds the previous
// listing only; every Step replaces it wholesale.
type Tracker struct {
	previous resource.Snapshot
}

// NewTracker creates a tracker. baseline may be nil, in which case every
// resource of the first listing counts as changed.
func NewTracker(baseline resource.Snapshot) *Tracker {
	if baseline == nil {
		baseline = resource.Snapshot{}
	}
	return &Tracker{previous: baseline}
}

// Step compares current against the previous listing and makes current
// the new baseline. A resource whose status is unchanged produces
// nothing. A changed resource produces one event once it has settled,
// and is listed as in progress while it has not.
func (t *Tracker) Step(current []resource.StackResource) Progress {
	var p Progress
	next := resource.NewSnapshot(current)

	for key, entry := range next {
		r := entry.Resource
		if resource.IsInProgress(r.Status) {
			p.InProgress = append(p.InProgress, key)
			continue
		}

		prev, seen := t.previous[key]
		if seen && prev.Resource.Status == r.Status {
			continue
		}

		change := resource.StatusChange{Key: key, Resource: r}
		if seen {
			change.Previous = prev.Resource.Status
		}
		p.Events = append(p.Events, change)
	}

	sort.Strings(p.InProgress)
	sort.Slice(p.Events, func(i, j int) bool {
		a, b := p.Events[i], p.Events[j]
		if !a.Resource.LastUpdated.Equal(b.Resource.LastUpdated) {
			return a.Resource.LastUpdated.Before(b.Resource.LastUpdated)
		}
		return a.Key < b.Key
	})

	t.previous = next
	return p
}
