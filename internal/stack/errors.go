package stack

import (
	"fmt"
	"strings"
)

// NotFoundError is returned when no visible stack matches a pattern.
type NotFoundError struct {
	Pattern   string
	Available []string
}

func (e *NotFoundError) Error() string {
	if len(e.Available) == 0 {
		return fmt.Sprintf("no stack matches %q (no stacks available)", e.Pattern)
	}
	return fmt.Sprintf("no stack matches %q (available: %s)", e.Pattern, strings.Join(e.Available, ", "))
}

// AmbiguousError is returned when a pattern matches more than one stack.
type AmbiguousError struct {
	Pattern string
	Matches []string
}

func (e *AmbiguousError) Error() string {
	return fmt.Sprintf("stack pattern %q is ambiguous (matches: %s)", e.Pattern, strings.Join(e.Matches, ", "))
}

// TerminalStatusError is returned when an operation settles in a status
// other than its success status. It is not retried.
type TerminalStatusError struct {
	Stack     string
	Operation Operation
	Status    string
	Reason    string
}

func (e *TerminalStatusError) Error() string {
	msg := fmt.Sprintf("stack %s: %s ended in %s", e.Stack, e.Operation, e.Status)
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	return msg
}
