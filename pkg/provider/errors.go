// Package provider defines the interface a resource provider implements and
// the request and response types its operations exchange. The server package
// hosts an implementation of this interface behind the RPC protocol.
package provider

import (
	"errors"
	"fmt"
	"runtime/debug"
	"strings"
)

// ErrNotImplemented is returned by provider operations that the provider
// does not support. The server maps it to an unimplemented RPC failure
// rather than an internal error.
var ErrNotImplemented = errors.New("not implemented")

// InputPropertyError describes a single invalid input property.
type InputPropertyError struct {
	// PropertyPath locates the offending property, using dotted path
	// notation for nested values.
	PropertyPath string

	// Reason is the human-readable explanation of what is wrong.
	Reason string
}

// InputPropertiesError reports one or more invalid input properties. The
// server maps it to an invalid-argument RPC failure carrying each property
// error as a structured detail.
type InputPropertiesError struct {
	// Message is the overall error message.
	Message string

	// Errors are the per-property failures.
	Errors []InputPropertyError
}

// Error implements the error interface.
func (e *InputPropertiesError) Error() string {
	if len(e.Errors) == 0 {
		return e.Message
	}
	parts := make([]string, len(e.Errors))
	for i, pe := range e.Errors {
		parts[i] = fmt.Sprintf("%s: %s", pe.PropertyPath, pe.Reason)
	}
	return fmt.Sprintf("%s: %s", e.Message, strings.Join(parts, "; "))
}

// NewInputPropertiesError creates an error reporting invalid input
// properties.
func NewInputPropertiesError(message string, errs ...InputPropertyError) *InputPropertiesError {
	return &InputPropertiesError{Message: message, Errors: errs}
}

// NewInputPropertyError creates an error reporting a single invalid input
// property.
func NewInputPropertyError(propertyPath, reason string) *InputPropertiesError {
	return &InputPropertiesError{
		Message: "invalid inputs",
		Errors:  []InputPropertyError{{PropertyPath: propertyPath, Reason: reason}},
	}
}

// ComponentError wraps a failure inside a component's construct or call
// logic, carrying the stack trace captured where the failure surfaced. The
// server includes the trace in the RPC failure message so component authors
// see where their program failed.
type ComponentError struct {
	// Err is the underlying failure.
	Err error

	// StackTrace is the rendered goroutine stack captured at wrap time.
	StackTrace string
}

// Error implements the error interface.
func (e *ComponentError) Error() string {
	return e.Err.Error()
}

// Unwrap returns the underlying error for error chain inspection.
func (e *ComponentError) Unwrap() error {
	return e.Err
}

// NewComponentError wraps err with the goroutine stack captured at the call
// site.
func NewComponentError(err error) *ComponentError {
	return &ComponentError{Err: err, StackTrace: string(debug.Stack())}
}

// IsInputPropertiesError reports whether err is (or wraps) an invalid input
// properties error, returning it if so.
func IsInputPropertiesError(err error) (*InputPropertiesError, bool) {
	var e *InputPropertiesError
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// IsNotImplemented reports whether err is (or wraps) ErrNotImplemented.
func IsNotImplemented(err error) bool {
	return errors.Is(err, ErrNotImplemented)
}
