// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.
package hub

import (
	"context"
	"log/slog"

	"github.com/Azure/iot-operations-sdks/go/pedometer/errors"
	"github.com/Azure/iot-operations-sdks/go/pedometer/internal/container"
	"github.com/Azure/iot-operations-sdks/go/pedometer/internal/log"
	"github.com/Azure/iot-operations-sdks/go/pedometer/internal/topic"
	"github.com/Azure/iot-operations-sdks/go/pedometer/mqtt"
)

type (
	// Subscriber is the MQTT subscribe primitive used by the panic listener.
	Subscriber interface {
		Subscribe(
			ctx context.Context,
			filter string,
			handler mqtt.MessageHandler,
			opts ...mqtt.SubscribeOption,
		) (func(context.Context) error, error)
	}

	// PanicListener is a PanicNotifier fed by panic announcements the host
	// publishes over MQTT.
	PanicListener struct {
		client   Subscriber
		topic    string
		handlers container.List[func(context.Context)]
		log      log.Logger
	}
)

// PanicTopicPattern is where the host announces coprocessor panics. The
// payload, if any, is a human-readable reason.
const PanicTopicPattern = "pedometer/{deviceId}/panic"

// NewPanicListener creates a listener for the given device's panic topic.
func NewPanicListener(
	client Subscriber,
	deviceID string,
	logger *slog.Logger,
) (*PanicListener, error) {
	if client == nil {
		return nil, &errors.Error{
			Message:      "client must not be nil",
			Kind:         errors.ConfigurationInvalid,
			PropertyName: "client",
		}
	}

	tp, err := topic.NewPattern("panicTopic", PanicTopicPattern,
		map[string]string{"deviceId": deviceID})
	if err != nil {
		return nil, err
	}
	name, err := tp.Topic(nil)
	if err != nil {
		return nil, err
	}

	return &PanicListener{
		client: client,
		topic:  name,
		log:    log.Wrap(logger).With("topic", name),
	}, nil
}

// Start subscribes to the panic topic. The returned function unsubscribes.
func (l *PanicListener) Start(
	ctx context.Context,
) (func(context.Context) error, error) {
	return l.client.Subscribe(ctx, l.topic, l.onMessage, mqtt.WithQoS(1))
}

// OnPanic implements PanicNotifier.
func (l *PanicListener) OnPanic(
	handler func(context.Context),
) (func(), error) {
	if handler == nil {
		return nil, &errors.Error{
			Message:      "panic handler must not be nil",
			Kind:         errors.InvalidInput,
			PropertyName: "handler",
		}
	}
	return l.handlers.Append(handler), nil
}

func (l *PanicListener) onMessage(ctx context.Context, msg *mqtt.Message) {
	l.log.Warn(ctx, "coprocessor panic announced",
		slog.String("reason", string(msg.Payload)),
		slog.Int("handlers", l.handlers.Len()),
	)
	for h := range l.handlers.Snapshot() {
		h(ctx)
	}
}
