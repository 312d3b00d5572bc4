package resource

import "strings"

// SnapshotEntry is the per-resource state kept between two polls.
type SnapshotEntry struct {
	Resource StackResource
}

// Snapshot maps resource keys to their state at one poll. It is only ever
// held transiently by a monitor while a lifecycle operation runs.
type Snapshot map[string]SnapshotEntry

// NewSnapshot indexes resources by ResourceKey.
func NewSnapshot(resources []StackResource) Snapshot {
	s := make(Snapshot, len(resources))
	for _, r := range resources {
		s[ResourceKey(r)] = SnapshotEntry{Resource: r}
	}
	return s
}

// ResourceKey returns a stable key for a stack resource across polls:
// the logical ids of enclosing nested stacks joined with the resource's
// own logical id.
func ResourceKey(r StackResource) string {
	if len(r.Path) == 0 {
		return r.LogicalID
	}
	return strings.Join(r.Path, "/") + "/" + r.LogicalID
}

// StatusChange is one status transition seen between two snapshots.
type StatusChange struct {
	Key      string
	Previous string // "" when the resource was not in the previous snapshot
	Resource StackResource
}
