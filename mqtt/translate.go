// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.
package mqtt

import (
	"context"
	"fmt"

	"github.com/Azure/iot-operations-sdks/go/pedometer/errors"
	"github.com/eclipse/paho.golang/paho"
)

// Translation from paho responses to pedometer errors.
type errMap[T any] struct {
	String string
	Reason func(*T) (byte, string)
}

var (
	connackErr = errMap[paho.Connack]{
		String: "MQTT connect",
		Reason: func(a *paho.Connack) (byte, string) {
			if a.Properties == nil {
				return a.ReasonCode, ""
			}
			return a.ReasonCode, a.Properties.ReasonString
		},
	}
	pubErr = errMap[paho.PublishResponse]{
		String: "MQTT publish",
		Reason: func(r *paho.PublishResponse) (byte, string) {
			// Paho may return an empty PublishResponse.
			if r.Properties == nil {
				return r.ReasonCode, ""
			}
			return r.ReasonCode, r.Properties.ReasonString
		},
	}
	subErr = errMap[paho.Suback]{
		String: "MQTT subscribe",
		Reason: func(a *paho.Suback) (byte, string) {
			return firstReason(a.Reasons), reasonString(a.Properties)
		},
	}
	unsubErr = errMap[paho.Unsuback]{
		String: "MQTT unsubscribe",
		Reason: func(a *paho.Unsuback) (byte, string) {
			return firstReason(a.Reasons), reasonString(a.Properties)
		},
	}
)

// Translate a paho response to a pedometer error. A returned error indicates
// a failure in the client library, whereas a response with a failure code
// indicates that the server rejected the request.
func (e *errMap[T]) Translate(ctx context.Context, res *T, err error) error {
	// An error from the incoming context overrides any returned error.
	if ctxErr := errors.Context(ctx, e.String); ctxErr != nil {
		return ctxErr
	}

	// Paho returns an error for failed MQTT results as well as the result, so
	// check the reason code first.
	if res != nil {
		if code, reason := e.Reason(res); code >= 0x80 {
			return &errors.Error{
				Message: fmt.Sprintf(
					"%s error: %s. reason code: 0x%x",
					e.String,
					reason,
					code,
				),
				Kind:          errors.MqttError,
				PropertyName:  "reason_code",
				PropertyValue: code,
			}
		}
	} else if err == nil {
		return &errors.Error{
			Message: "the MQTT client returned a nil response without an error",
			Kind:    errors.MqttError,
		}
	}

	if err == nil {
		return nil
	}
	e2 := errors.Normalize(err, e.String)
	if ee, ok := e2.(*errors.Error); ok && ee.Kind == errors.UnknownError {
		ee.Kind = errors.MqttError
	}
	return e2
}

func firstReason(reasons []byte) byte {
	if len(reasons) == 0 {
		return 0
	}
	return reasons[0]
}

func reasonString(p any) string {
	switch p := p.(type) {
	case *paho.SubackProperties:
		if p != nil {
			return p.ReasonString
		}
	case *paho.UnsubackProperties:
		if p != nil {
			return p.ReasonString
		}
	}
	return ""
}
