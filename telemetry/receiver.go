// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.
package telemetry

import (
	"context"
	"log/slog"

	"github.com/Azure/iot-operations-sdks/go/pedometer/errors"
	"github.com/Azure/iot-operations-sdks/go/pedometer/internal/log"
	"github.com/Azure/iot-operations-sdks/go/pedometer/internal/topic"
	"github.com/Azure/iot-operations-sdks/go/pedometer/mqtt"
)

type (
	// Subscriber is the MQTT subscribe primitive used by the receiver.
	Subscriber interface {
		Subscribe(
			ctx context.Context,
			filter string,
			handler mqtt.MessageHandler,
			opts ...mqtt.SubscribeOption,
		) (func(context.Context) error, error)
	}

	// SampleHandler handles a received sample.
	SampleHandler = func(context.Context, *Sample) error

	// Receiver subscribes to published samples. Unresolved topic tokens act
	// as wildcards, so by default it receives from every device.
	Receiver struct {
		client  Subscriber
		handler SampleHandler
		filter  *topic.Filter
		options ReceiverOptions
		log     log.Logger
	}
)

// NewReceiver creates a receiver that calls handler for every sample.
func NewReceiver(
	client Subscriber,
	handler SampleHandler,
	opt ...ReceiverOption,
) (*Receiver, error) {
	opts := ReceiverOptions{TopicPattern: DefaultTopicPattern}
	opts.Apply(opt)

	if client == nil || handler == nil {
		return nil, &errors.Error{
			Message:      "client and handler must not be nil",
			Kind:         errors.ConfigurationInvalid,
			PropertyName: "client",
		}
	}

	tp, err := topic.NewPattern("topicPattern", opts.TopicPattern, opts.TopicTokens)
	if err != nil {
		return nil, err
	}
	filter, err := tp.Filter()
	if err != nil {
		return nil, err
	}

	return &Receiver{
		client:  client,
		handler: handler,
		filter:  filter,
		options: opts,
		log:     log.Wrap(opts.Logger).With("filter", filter.Filter()),
	}, nil
}

// Start subscribes to the sample topic. The returned function unsubscribes.
func (r *Receiver) Start(ctx context.Context) (func(context.Context) error, error) {
	return r.client.Subscribe(
		ctx,
		r.filter.Filter(),
		r.onMessage,
		mqtt.WithQoS(r.options.QoS),
	)
}

func (r *Receiver) onMessage(ctx context.Context, msg *mqtt.Message) {
	tokens, ok := r.filter.Tokens(msg.Topic)
	if !ok {
		r.log.Warn(ctx, "sample on unexpected topic",
			slog.String("topic", msg.Topic))
		return
	}

	sample, err := DecodeRecord(msg.Payload)
	if err != nil {
		r.log.Err(ctx, err, slog.String("topic", msg.Topic))
		return
	}
	sample.DeviceID = tokens["deviceId"]

	if err := r.handler(ctx, sample); err != nil {
		r.log.Err(ctx, errors.Normalize(err, "sample handler"),
			slog.String("id", sample.ID.String()))
	}
}
