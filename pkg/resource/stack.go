package resource

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// NestedStackType is the resource type of a stack embedded in another stack.
const NestedStackType = "AWS::CloudFormation::Stack"

// InProgressSuffix marks a non-terminal lifecycle status.
const InProgressSuffix = "_IN_PROGRESS"

// IsInProgress reports whether status is a non-terminal lifecycle status.
func IsInProgress(status string) bool {
	return strings.HasSuffix(status, InProgressSuffix)
}

// Stack is a provisioned stack as seen by the provisioning API.
type Stack struct {
	ID           string            `json:"id"`
	Name         string            `json:"name"`
	Status       string            `json:"status"`
	StatusReason string            `json:"status_reason,omitempty"`
	Tags         map[string]string `json:"tags"`
	Outputs      map[string]string `json:"outputs"`
	CreatedAt    time.Time         `json:"created_at"`
}

// Output returns the stack output named key.
func (s Stack) Output(key string) (string, error) {
	v, ok := s.Outputs[key]
	if !ok {
		return "", fmt.Errorf("stack %s has no output %q", s.Name, key)
	}
	return v, nil
}

// OutputKeys returns the output names in sorted order.
func (s Stack) OutputKeys() []string {
	keys := make([]string, 0, len(s.Outputs))
	for k := range s.Outputs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// StackResource is one resource summary inside a stack.
type StackResource struct {
	LogicalID    string    `json:"logical_id"`
	PhysicalID   string    `json:"physical_id"`
	Type         string    `json:"type"`
	Status       string    `json:"status"`
	StatusReason string    `json:"status_reason,omitempty"`
	LastUpdated  time.Time `json:"last_updated"`
	// Path holds the logical ids of the enclosing nested stacks, outermost
	// first. Empty for resources of the top-level stack.
	Path []string `json:"path,omitempty"`
}

// IsNestedStack reports whether the resource is itself a stack.
func (r StackResource) IsNestedStack() bool {
	return r.Type == NestedStackType
}
