// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.
package errors

import "log/slog"

// Attrs returns additional error attributes for slog.
func (e *Error) Attrs() []slog.Attr {
	a := make([]slog.Attr, 0, 8)

	a = append(a, slog.String("kind", e.Kind.String()))

	if e.NestedError != nil {
		a = append(a, slog.Any("nested_error", e.NestedError))
	}

	if e.Register != "" {
		a = append(a, slog.String("register", e.Register))
	}

	switch e.Kind {
	case SizeMismatch:
		a = append(a,
			slog.Int("expected_size", e.Expected),
			slog.Int("actual_size", e.Actual),
		)
	case InvalidInput, ConfigurationInvalid, UnexpectedReset:
		a = append(a,
			slog.String("property_name", e.PropertyName),
			slog.Any("property_value", e.PropertyValue),
		)
	case StateInvalid:
		a = append(a, slog.String("property_name", e.PropertyName))
		if e.PropertyValue != nil {
			a = append(a, slog.Any("property_value", e.PropertyValue))
		}
	}

	return append(a, e.Details...)
}
