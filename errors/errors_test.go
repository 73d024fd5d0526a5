package errors

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestErrorClass_String(t *testing.T) {
	tests := []struct {
		class    ErrorClass
		expected string
	}{
		{ErrorTransient, "transient"},
		{ErrorInvalid, "invalid"},
		{ErrorFatal, "fatal"},
		{ErrorClass(999), "unknown"},
	}

	for _, test := range tests {
		t.Run(test.expected, func(t *testing.T) {
			result := test.class.String()
			if result != test.expected {
				t.Errorf("expected %s, got %s", test.expected, result)
			}
		})
	}
}

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{"nil error", nil, false},
		{"buffer full", ErrBufferFull, true},
		{"context deadline exceeded", context.DeadlineExceeded, true},
		{"context canceled", context.Canceled, true},
		{"queue full in message", fmt.Errorf("worker pool queue full"), true},
		{"type mismatch", ErrTypeMismatch, false},
		{"block failure", ErrBlockFailure, false},
		{"classified transient", &ClassifiedError{Class: ErrorTransient, Err: fmt.Errorf("test")}, true},
		{"classified fatal", &ClassifiedError{Class: ErrorFatal, Err: fmt.Errorf("test")}, false},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			result := IsTransient(test.err)
			if result != test.expected {
				t.Errorf("expected %v, got %v for error: %v", test.expected, result, test.err)
			}
		})
	}
}

func TestIsFatal(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{"nil error", nil, false},
		{"block failure", ErrBlockFailure, true},
		{"deadlock", ErrDeadlock, true},
		{"wrapped block failure", fmt.Errorf("run: %w", ErrBlockFailure), true},
		{"config invalid", ErrConfigInvalid, false},
		{"panic in message", fmt.Errorf("panic in processing step"), true},
		{"classified fatal", &ClassifiedError{Class: ErrorFatal, Err: fmt.Errorf("test")}, true},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			result := IsFatal(test.err)
			if result != test.expected {
				t.Errorf("expected %v, got %v for error: %v", test.expected, result, test.err)
			}
		})
	}
}

func TestIsInvalid(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{"nil error", nil, false},
		{"type mismatch", ErrTypeMismatch, true},
		{"port not found", ErrPortNotFound, true},
		{"already connected", ErrAlreadyConnected, true},
		{"arity mismatch", ErrArityMismatch, true},
		{"config invalid", ErrConfigInvalid, true},
		{"invalid transition", ErrInvalidTransition, true},
		{"deadlock", ErrDeadlock, false},
		{"classified invalid", &ClassifiedError{Class: ErrorInvalid, Err: fmt.Errorf("test")}, true},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			result := IsInvalid(test.err)
			if result != test.expected {
				t.Errorf("expected %v, got %v for error: %v", test.expected, result, test.err)
			}
		})
	}
}

func TestTaxonomy(t *testing.T) {
	for _, err := range []error{ErrTypeMismatch, ErrPortNotFound, ErrAlreadyConnected, ErrArityMismatch, ErrImplicitFanOut} {
		if !IsConnectionError(err) {
			t.Errorf("expected %v to be a connection error", err)
		}
		if IsRuntimeError(err) {
			t.Errorf("expected %v not to be a runtime error", err)
		}
	}
	for _, err := range []error{ErrBlockFailure, ErrDeadlock, ErrConfigInvalid} {
		if !IsRuntimeError(err) {
			t.Errorf("expected %v to be a runtime error", err)
		}
		if IsConnectionError(err) {
			t.Errorf("expected %v not to be a connection error", err)
		}
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected ErrorClass
	}{
		{"nil error", nil, ErrorTransient},
		{"buffer full", ErrBufferFull, ErrorTransient},
		{"deadlock", ErrDeadlock, ErrorFatal},
		{"port not found", ErrPortNotFound, ErrorInvalid},
		{"unknown error", fmt.Errorf("something odd"), ErrorFatal},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			result := Classify(test.err)
			if result != test.expected {
				t.Errorf("expected %v, got %v for error: %v", test.expected, result, test.err)
			}
		})
	}
}

func TestWrap(t *testing.T) {
	if Wrap(nil, "Graph", "Connect", "bind") != nil {
		t.Fatal("expected nil for nil error")
	}

	err := Wrap(ErrPortNotFound, "Graph", "Connect", "resolve port")
	if !strings.Contains(err.Error(), "Graph.Connect: resolve port failed") {
		t.Errorf("unexpected message: %s", err)
	}
	if !errors.Is(err, ErrPortNotFound) {
		t.Error("expected wrapped error to match sentinel")
	}
}

func TestWrapClassified(t *testing.T) {
	tests := []struct {
		name  string
		wrap  func(error, string, string, string) error
		class ErrorClass
	}{
		{"transient", WrapTransient, ErrorTransient},
		{"invalid", WrapInvalid, ErrorInvalid},
		{"fatal", WrapFatal, ErrorFatal},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if test.wrap(nil, "c", "m", "a") != nil {
				t.Fatal("expected nil for nil error")
			}

			err := test.wrap(ErrDeadlock, "Scheduler", "Run", "round")
			var ce *ClassifiedError
			if !As(err, &ce) {
				t.Fatalf("expected ClassifiedError, got %T", err)
			}
			if ce.Class != test.class {
				t.Errorf("expected class %v, got %v", test.class, ce.Class)
			}
			if ce.Component != "Scheduler" || ce.Operation != "Run" {
				t.Errorf("unexpected context %s.%s", ce.Component, ce.Operation)
			}
			if !Is(err, ErrDeadlock) {
				t.Error("expected classification to preserve the cause")
			}
			if Classify(err) != test.class {
				t.Errorf("expected Classify to return %v", test.class)
			}
		})
	}
}
