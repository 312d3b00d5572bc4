package provision

import (
	"errors"
	"fmt"
)

// ErrNotFound is matched by errors for items or stacks that do not exist.
var ErrNotFound = errors.New("not found")

// TransportError reports that a provisioning call itself failed.
type TransportError struct {
	Request    string
	StatusCode int // 0 when the call never got a response
	Err        error
	notFound   bool
}

// NewTransportError wraps err for the failing request.
func NewTransportError(req Request, statusCode int, err error) *TransportError {
	return &TransportError{Request: req.String(), StatusCode: statusCode, Err: err}
}

// NewNotFoundError wraps err as a transport error that also matches ErrNotFound.
func NewNotFoundError(req Request, statusCode int, err error) *TransportError {
	e := NewTransportError(req, statusCode, err)
	e.notFound = true
	return e
}

func (e *TransportError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s: failed with status %d: %v", e.Request, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s: failed: %v", e.Request, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// Is lets errors.Is(err, ErrNotFound) match not-found transport errors.
func (e *TransportError) Is(target error) bool {
	return target == ErrNotFound && e.notFound
}

// IsNotFound reports whether err says the addressed item does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
