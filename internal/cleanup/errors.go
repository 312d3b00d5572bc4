package cleanup

import (
	"errors"
	"fmt"
	"strings"
)

// DependencyFailure is one dependent that could not be deleted.
type DependencyFailure struct {
	Kind string
	ID   string
	Err  error
}

func (f DependencyFailure) Error() string {
	return fmt.Sprintf("%s %s: %v", f.Kind, f.ID, f.Err)
}

// PartialDependencyError accumulates dependents that could not be deleted
// during a teardown. The teardown continues past each of them.
type PartialDependencyError struct {
	Root     string
	Failures []DependencyFailure
}

// Add records a failed deletion. Nil errors are ignored.
func (e *PartialDependencyError) Add(kind, id string, err error) {
	if err != nil {
		e.Failures = append(e.Failures, DependencyFailure{Kind: kind, ID: id, Err: err})
	}
}

// HasErrors reports whether any failure was recorded.
func (e *PartialDependencyError) HasErrors() bool {
	return e != nil && len(e.Failures) > 0
}

func (e *PartialDependencyError) Error() string {
	msgs := make([]string, 0, len(e.Failures))
	for _, f := range e.Failures {
		msgs = append(msgs, f.Error())
	}
	if e.Root == "" {
		return fmt.Sprintf("%d resources could not be deleted: %s", len(e.Failures), strings.Join(msgs, "; "))
	}
	return fmt.Sprintf("%d dependents of %s could not be deleted: %s", len(e.Failures), e.Root, strings.Join(msgs, "; "))
}

func (e *PartialDependencyError) Unwrap() error {
	errs := make([]error, 0, len(e.Failures))
	for _, f := range e.Failures {
		errs = append(errs, f.Err)
	}
	return errors.Join(errs...)
}
