package provision

import (
	"context"

	"github.com/guidowb/rebel/pkg/resource"
)

// Lister enumerates items of any resource kind. The result is the decoded
// JSON response: nested objects and arrays keyed by provider field names.
type Lister interface {
	ListItems(ctx context.Context, req Request) (any, error)
}

// Deleter removes items.
type Deleter interface {
	DeleteItem(ctx context.Context, req Request) error
	// AwaitDeleted blocks until the item addressed by a delete request is
	// fully removed on the provider side.
	AwaitDeleted(ctx context.Context, req Request) error
}

// StackAPI manages stacks.
type StackAPI interface {
	ListStacks(ctx context.Context) ([]resource.Stack, error)
	// DescribeStack accepts a stack name or id. A stack id keeps resolving
	// after the stack has been deleted.
	DescribeStack(ctx context.Context, id string) (*resource.Stack, error)
	CreateStack(ctx context.Context, spec StackSpec) (string, error)
	DeleteStack(ctx context.Context, id string) error
	// ListStackResources lists one stack's own resources. Nested stacks
	// appear as single resources; callers expand them.
	ListStackResources(ctx context.Context, stackID string) ([]resource.StackResource, error)
}

// API is the complete provisioning API consumed by rebel.
type API interface {
	Lister
	Deleter
	StackAPI
}

// StackSpec describes a stack to create.
type StackSpec struct {
	Name            string
	TemplateBody    string
	TemplateURL     string
	Parameters      map[string]string
	Tags            map[string]string
	Capabilities    []string
	TimeoutMinutes  int32
	DisableRollback bool
}
