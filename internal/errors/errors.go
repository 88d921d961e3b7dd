// Package errors provides the stack-carrying application error used by the CLI
// and the HTTP service, with its mapping to HTTP status codes.
package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"runtime"
	"strings"
)

// Error is an application error with context, the call stack where it was
// first created and the HTTP status it maps to.
type Error struct {
	// Err is the wrapped cause, if any.
	Err error
	// Message describes what failed.
	Message string
	// Operation names what was being done, such as "load" or "solve".
	Operation string
	// Component names the package or subsystem.
	Component string
	// Status is the HTTP status the error maps to, 0 when unset.
	Status int

	pcs []uintptr
}

// Error implements the error interface.
func (e *Error) Error() string {
	var b strings.Builder
	sep := func(s string) {
		if b.Len() > 0 {
			b.WriteString(s)
		}
	}

	b.WriteString(e.Message)
	if e.Operation != "" {
		sep(": ")
		b.WriteString("operation=" + e.Operation)
	}
	if e.Component != "" {
		sep(", ")
		b.WriteString("component=" + e.Component)
	}
	if e.Err != nil {
		sep(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

// WithMessage replaces the message.
func (e *Error) WithMessage(msg string) *Error {
	e.Message = msg
	return e
}

// WithOperation sets the operation.
func (e *Error) WithOperation(op string) *Error {
	e.Operation = op
	return e
}

// WithComponent sets the component.
func (e *Error) WithComponent(component string) *Error {
	e.Component = component
	return e
}

// WithStatus sets the HTTP status the error maps to.
func (e *Error) WithStatus(status int) *Error {
	e.Status = status
	return e
}

// StackTrace formats the stack recorded when the error chain was created,
// one "function\n\tfile:line" entry per frame.
func (e *Error) StackTrace() []string {
	if len(e.pcs) == 0 {
		return nil
	}
	frames := runtime.CallersFrames(e.pcs)
	stack := make([]string, 0, len(e.pcs))
	for {
		frame, more := frames.Next()
		if !strings.Contains(frame.File, "runtime/") {
			stack = append(stack, fmt.Sprintf("%s\n\t%s:%d", frame.Function, frame.File, frame.Line))
		}
		if !more {
			break
		}
	}
	return stack
}

// New creates a new error with a message.
func New(msg string) *Error {
	return &Error{Message: msg, pcs: callers()}
}

// Errorf creates a new error with a formatted message.
func Errorf(format string, args ...interface{}) *Error {
	return &Error{Message: fmt.Sprintf(format, args...), pcs: callers()}
}

// NotFoundf creates an error mapping to 404.
func NotFoundf(format string, args ...interface{}) *Error {
	return &Error{Message: fmt.Sprintf(format, args...), Status: http.StatusNotFound, pcs: callers()}
}

// Conflictf creates an error mapping to 409.
func Conflictf(format string, args ...interface{}) *Error {
	return &Error{Message: fmt.Sprintf(format, args...), Status: http.StatusConflict, pcs: callers()}
}

// Wrap wraps err with a message, or returns nil when err is nil. The stack
// and status of an *Error already in the chain are kept.
func Wrap(err error, msg string) *Error {
	if err == nil {
		return nil
	}
	return wrap(err, msg)
}

// Wrapf wraps err with a formatted message, or returns nil when err is nil.
func Wrapf(err error, format string, args ...interface{}) *Error {
	if err == nil {
		return nil
	}
	return wrap(err, fmt.Sprintf(format, args...))
}

// BadRequest wraps err with a message and status 400, or returns nil when
// err is nil.
func BadRequest(err error, msg string) *Error {
	if err == nil {
		return nil
	}
	return wrap(err, msg).WithStatus(http.StatusBadRequest)
}

func wrap(err error, msg string) *Error {
	e := &Error{Err: err, Message: msg}
	var inner *Error
	if stderrors.As(err, &inner) {
		e.pcs = inner.pcs
		e.Status = inner.Status
	} else {
		e.pcs = callers()
	}
	return e
}

// callers records the stack above the exported constructor.
func callers() []uintptr {
	const depth = 32
	var pcs [depth]uintptr
	n := runtime.Callers(3, pcs[:])
	// Trim the constructors of this package.
	for n > 0 {
		fn := runtime.FuncForPC(pcs[0] - 1)
		if fn == nil || !strings.Contains(fn.Name(), "/internal/errors.") || strings.Contains(fn.Name(), ".Test") {
			break
		}
		copy(pcs[:], pcs[1:n])
		n--
	}
	return append([]uintptr(nil), pcs[:n]...)
}

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool {
	return stderrors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
func As(err error, target interface{}) bool {
	return stderrors.As(err, target)
}

// Unwrap returns the result of calling the Unwrap method on err, if any.
func Unwrap(err error) error {
	return stderrors.Unwrap(err)
}

// StatusCode returns the HTTP status of the outermost *Error in err's chain
// that has one, or 500.
func StatusCode(err error) int {
	for err != nil {
		if e, ok := err.(*Error); ok && e.Status != 0 {
			return e.Status
		}
		err = stderrors.Unwrap(err)
	}
	return http.StatusInternalServerError
}
