// Package emitter defines the progress sinks of stack lifecycle operations.
package emitter

import (
	"context"
	"errors"
	"time"

	"github.com/guidowb/rebel/pkg/resource"
)

// Event is one resource status transition seen while an operation runs.
type Event struct {
	// Elapsed is the time since the operation began.
	Elapsed time.Duration
	Change  resource.StatusChange
}

// Emitter receives lifecycle progress.
type Emitter interface {
	// Event reports one status transition.
	Event(ctx context.Context, ev Event) error

	// Status replaces the set of resources currently in progress. An empty
	// set clears the status line.
	Status(ctx context.Context, inProgress []string) error

	// Close cleans up resources.
	Close() error
}

// MultiEmitter fans out to multiple emitters.
type MultiEmitter struct {
	emitters []Emitter
}

// NewMultiEmitter creates an emitter that sends to multiple sinks.
func NewMultiEmitter(emitters ...Emitter) *MultiEmitter {
	return &MultiEmitter{emitters: emitters}
}

// Event sends to all emitters, even after a failure.
func (m *MultiEmitter) Event(ctx context.Context, ev Event) error {
	var errs []error
	for _, e := range m.emitters {
		if err := e.Event(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Status sends to all emitters, even after a failure.
func (m *MultiEmitter) Status(ctx context.Context, inProgress []string) error {
	var errs []error
	for _, e := range m.emitters {
		if err := e.Status(ctx, inProgress); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Close closes all emitters, even after a failure.
func (m *MultiEmitter) Close() error {
	var errs []error
	for _, e := range m.emitters {
		if err := e.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Nop discards all progress.
type Nop struct{}

func (Nop) Event(context.Context, Event) error      { return nil }
func (Nop) Status(context.Context, []string) error { return nil }
func (Nop) Close() error                           { return nil }
