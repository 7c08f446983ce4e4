// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.
package control

import (
	stderr "errors"
	"strconv"

	"github.com/Azure/iot-operations-sdks/go/pedometer/errors"
)

// Response user properties.
const (
	StatusProperty  = "status"
	MessageProperty = "message"
	KindProperty    = "kind"
	NameProperty    = "property_name"
)

// Status codes carried in the status user property.
const (
	StatusOK          = 200
	StatusBadRequest  = 400
	StatusTimeout     = 408
	StatusInternal    = 500
	StatusUnavailable = 503
)

func statusOf(err error) int {
	if err == nil {
		return StatusOK
	}
	switch errors.KindOf(err) {
	case errors.InvalidInput:
		return StatusBadRequest
	case errors.Timeout, errors.Cancellation:
		return StatusTimeout
	case errors.StateInvalid:
		return StatusUnavailable
	default:
		return StatusInternal
	}
}

func toUserProps(err error) map[string]string {
	props := map[string]string{
		StatusProperty: strconv.Itoa(statusOf(err)),
	}
	if err == nil {
		return props
	}

	props[MessageProperty] = err.Error()
	props[KindProperty] = errors.KindOf(err).String()

	var e *errors.Error
	if stderr.As(err, &e) && e.PropertyName != "" {
		props[NameProperty] = e.PropertyName
	}
	return props
}

// Rebuilds the remote error from the response properties. Details beyond the
// kind, message and property name do not cross the wire.
func fromUserProps(props map[string]string) error {
	status, ok := props[StatusProperty]
	if !ok {
		return &errors.Error{
			Message:      "response missing status",
			Kind:         errors.MqttError,
			PropertyName: StatusProperty,
		}
	}
	code, err := strconv.Atoi(status)
	if err != nil {
		return &errors.Error{
			Message:       "response status is not an integer",
			Kind:          errors.MqttError,
			NestedError:   err,
			PropertyName:  StatusProperty,
			PropertyValue: status,
		}
	}
	if code == StatusOK {
		return nil
	}

	msg := props[MessageProperty]
	if msg == "" {
		msg = "request failed with status " + status
	}
	return &errors.Error{
		Message:       msg,
		Kind:          errors.ParseKind(props[KindProperty]),
		PropertyName:  props[NameProperty],
		PropertyValue: code,
	}
}
