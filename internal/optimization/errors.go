package optimization

import (
	"errors"
	"fmt"
)

var (
	// ErrNoFeasibleMove is matched by errors returned when no registered move
	// can be applied to the current solution.
	ErrNoFeasibleMove = errors.New("no feasible move")
	// ErrInvalidParameter is matched by configuration and contract errors
	// detected before a run starts.
	ErrInvalidParameter = errors.New("invalid parameter")
	// ErrUnknownAlgorithm is matched when the configured algorithm name is not
	// supported.
	ErrUnknownAlgorithm = errors.New("unknown algorithm")
)

// Error is a search error tagged with the component that raised it, such as
// "params", "sa" or "utility". It matches its cause with errors.Is.
type Error struct {
	Component string
	Message   string
	Err       error
}

// Error renders "component: message: cause", omitting empty parts.
func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	s := e.Message
	if e.Component != "" {
		s = e.Component + ": " + s
	}
	if e.Err != nil {
		s += ": " + e.Err.Error()
	}
	return s
}

// Unwrap returns the underlying error, if any.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// WithComponent sets the component.
func (e *Error) WithComponent(component string) *Error {
	e.Component = component
	return e
}

// WrapError wraps err with a message. If err is nil, WrapError returns nil.
func WrapError(err error, message string) *Error {
	if err == nil {
		return nil
	}
	return &Error{Message: message, Err: err}
}

// WrapErrorf wraps err with a formatted message. If err is nil, WrapErrorf
// returns nil.
func WrapErrorf(err error, format string, args ...interface{}) *Error {
	if err == nil {
		return nil
	}
	return &Error{Message: fmt.Sprintf(format, args...), Err: err}
}

// InvalidParameterf builds an ErrInvalidParameter error for component.
func InvalidParameterf(component, format string, args ...interface{}) *Error {
	return &Error{
		Component: component,
		Message:   fmt.Sprintf(format, args...),
		Err:       ErrInvalidParameter,
	}
}

// NoFeasibleMoveError is returned by a run when, at some iteration, none of
// the registered moves applies to the current solution.
type NoFeasibleMoveError struct {
	Iteration  int64
	Registered int
}

func (e *NoFeasibleMoveError) Error() string {
	return fmt.Sprintf("no feasible move among %d registered moves at iteration %d", e.Registered, e.Iteration)
}

// Is makes errors.Is(err, ErrNoFeasibleMove) hold.
func (e *NoFeasibleMoveError) Is(target error) bool {
	return target == ErrNoFeasibleMove
}
