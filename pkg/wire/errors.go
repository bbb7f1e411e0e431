package wire

import (
	"errors"
	"fmt"
)

// ErrorCode classifies a protocol-level failure.
type ErrorCode string

const (
	// CodeInvalidArgument indicates a request carried an invalid property
	// bag. The error's Details attribute the failure to property paths.
	CodeInvalidArgument ErrorCode = "INVALID_ARGUMENT"

	// CodeNotImplemented indicates the provider does not implement the
	// requested RPC.
	CodeNotImplemented ErrorCode = "NOT_IMPLEMENTED"

	// CodeInternal indicates an unexpected failure inside the provider.
	CodeInternal ErrorCode = "INTERNAL"

	// CodeCancelled indicates the operation was abandoned.
	CodeCancelled ErrorCode = "CANCELLED"

	// CodeUnavailable indicates the provider cannot serve the request.
	CodeUnavailable ErrorCode = "UNAVAILABLE"
)

// PropertyError attributes a failure to a specific property path.
type PropertyError struct {
	// PropertyPath locates the failing property within the request bag.
	PropertyPath string `json:"propertyPath"`

	// Reason is a human-readable explanation.
	Reason string `json:"reason"`
}

// Error is the structured failure carried on a response envelope. Details
// are typed trailing data, not part of the message string, so the engine can
// attribute failures to specific properties.
type Error struct {
	// Code classifies the failure.
	Code ErrorCode `json:"code"`

	// Message is the human-readable failure description.
	Message string `json:"message"`

	// Details carries structured per-property failures, if any.
	Details []PropertyError `json:"details,omitempty"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if len(e.Details) > 0 {
		return fmt.Sprintf("[%s] %s (%d property errors)", e.Code, e.Message, len(e.Details))
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Is implements error equality for errors.Is by code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// NewError creates a wire error with the given code and message.
func NewError(code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message}
}

// NewInvalidArgumentError creates an invalid-argument error carrying
// structured property details.
func NewInvalidArgumentError(message string, details []PropertyError) *Error {
	return &Error{
		Code:    CodeInvalidArgument,
		Message: message,
		Details: details,
	}
}

// AsError extracts a wire error from an error chain, if present.
func AsError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}
