package provider

import (
	"errors"
	"strings"
	"testing"
)

func TestInputPropertiesErrorMessage(t *testing.T) {
	err := NewInputPropertiesError("invalid inputs",
		InputPropertyError{PropertyPath: "key", Reason: "required"},
		InputPropertyError{PropertyPath: "value", Reason: "too long"},
	)
	want := "invalid inputs: key: required; value: too long"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}

	single := NewInputPropertyError("key", "required")
	if got, ok := IsInputPropertiesError(single); !ok || len(got.Errors) != 1 {
		t.Errorf("IsInputPropertiesError = %v, %v", got, ok)
	}
}

func TestNewComponentErrorCapturesStack(t *testing.T) {
	cause := errors.New("pair registration failed")
	err := NewComponentError(cause)

	if err.Error() != cause.Error() {
		t.Errorf("Error() = %q, want %q", err.Error(), cause.Error())
	}
	if !errors.Is(err, cause) {
		t.Error("wrapped cause not reachable through errors.Is")
	}
	if err.StackTrace == "" {
		t.Error("no stack captured at wrap time")
	}
	if !strings.Contains(err.StackTrace, "TestNewComponentErrorCapturesStack") {
		t.Errorf("stack does not include the wrap site:\n%s", err.StackTrace)
	}
}

func TestIsNotImplemented(t *testing.T) {
	if !IsNotImplemented(ErrNotImplemented) {
		t.Error("ErrNotImplemented not recognized")
	}
	wrapped := NewComponentError(ErrNotImplemented)
	if !IsNotImplemented(wrapped) {
		t.Error("wrapped ErrNotImplemented not recognized")
	}
	if IsNotImplemented(errors.New("other")) {
		t.Error("unrelated error recognized as not implemented")
	}
}
