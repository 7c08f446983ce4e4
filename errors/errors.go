// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.
package errors

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
)

type (
	// Error represents a structured pedometer error.
	Error struct {
		Message string
		Kind    Kind

		NestedError error

		// Register names the coprocessor register involved, if any.
		Register string

		// Expected and Actual byte counts for SizeMismatch.
		Expected int
		Actual   int

		PropertyName  string
		PropertyValue any

		// Details carries extra diagnostic attributes (e.g. the accumulator
		// state when a reset is detected).
		Details []slog.Attr
	}

	// Kind defines the type of error being thrown.
	Kind int
)

// The following are the defined error kinds.
const (
	UnknownError Kind = iota
	TransportError
	SizeMismatch
	UnexpectedReset
	InvalidInput
	StateInvalid
	ConfigurationInvalid
	Timeout
	Cancellation
	MqttError
)

var kindNames = [...]string{
	UnknownError:         "unknown_error",
	TransportError:       "transport_error",
	SizeMismatch:         "size_mismatch",
	UnexpectedReset:      "unexpected_reset",
	InvalidInput:         "invalid_input",
	StateInvalid:         "state_invalid",
	ConfigurationInvalid: "configuration_invalid",
	Timeout:              "timeout",
	Cancellation:         "cancellation",
	MqttError:            "mqtt_error",
}

// String returns the snake_case name of the kind.
func (k Kind) String() string {
	if k >= 0 && int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// ParseKind returns the kind with the given snake_case name, or UnknownError
// if there is none.
func ParseKind(name string) Kind {
	for k, n := range kindNames {
		if n == name {
			return Kind(k)
		}
	}
	return UnknownError
}

// Error returns the error as a string.
func (e *Error) Error() string {
	return e.Message
}

// Unwrap returns the nested error.
func (e *Error) Unwrap() error {
	return e.NestedError
}

// IsKind reports whether err is (or wraps) an *Error of the given kind.
func IsKind(err error, kind Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == kind
}

// KindOf returns the kind of err, or UnknownError if it is not an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return UnknownError
}

// Normalize well-known errors into pedometer errors.
func Normalize(err error, msg string) error {
	if e, ok := err.(*Error); ok {
		return e
	}

	switch {
	case err == nil:
		return nil

	case os.IsTimeout(err), errors.Is(err, context.DeadlineExceeded):
		return &Error{
			Message:     fmt.Sprintf("%s timed out", msg),
			Kind:        Timeout,
			NestedError: err,
		}

	case errors.Is(err, context.Canceled):
		return &Error{
			Message:     fmt.Sprintf("%s cancelled", msg),
			Kind:        Cancellation,
			NestedError: err,
		}

	default:
		return &Error{
			Message:     fmt.Sprintf("%s error: %s", msg, err.Error()),
			Kind:        UnknownError,
			NestedError: err,
		}
	}
}

// Context extracts the timeout or cancellation error from a context.
func Context(ctx context.Context, msg string) error {
	// A cause is either an error we've provided (already a pedometer error) or
	// one the caller provided on a parent context; either is returned as-is.
	if err := context.Cause(ctx); err != nil && err != ctx.Err() {
		return err
	}
	return Normalize(ctx.Err(), msg)
}
