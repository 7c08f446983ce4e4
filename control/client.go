// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.
package control

import (
	"context"
	"log/slog"
	"math"

	"github.com/Azure/iot-operations-sdks/go/pedometer/errors"
	"github.com/Azure/iot-operations-sdks/go/pedometer/internal/container"
	"github.com/Azure/iot-operations-sdks/go/pedometer/internal/log"
	"github.com/Azure/iot-operations-sdks/go/pedometer/internal/topic"
	"github.com/Azure/iot-operations-sdks/go/pedometer/internal/wallclock"
	"github.com/Azure/iot-operations-sdks/go/pedometer/mqtt"
	"github.com/google/uuid"
)

type (
	// InvokerClient is an MQTT client with a stable client ID, used to derive
	// a response topic that no other client shares.
	InvokerClient interface {
		MqttClient
		ID() string
	}

	// Client invokes attribute requests on remote pedometers.
	Client struct {
		client  InvokerClient
		pattern *topic.Pattern
		prefix  string
		options ClientOptions
		log     log.Logger

		pending *container.SyncMap[uuid.UUID, chan *mqtt.Message]
	}
)

// NewClient creates a client. Start must be called before any request.
func NewClient(client InvokerClient, opt ...ClientOption) (*Client, error) {
	opts := ClientOptions{
		TopicPattern: DefaultTopicPattern,
		Timeout:      DefaultTimeout,
	}
	opts.Apply(opt)

	if client == nil {
		return nil, &errors.Error{
			Message:      "client must not be nil",
			Kind:         errors.ConfigurationInvalid,
			PropertyName: "client",
		}
	}
	if opts.Timeout <= 0 {
		return nil, &errors.Error{
			Message:       "timeout must be positive",
			Kind:          errors.ConfigurationInvalid,
			PropertyName:  "Timeout",
			PropertyValue: opts.Timeout,
		}
	}

	tp, err := topic.NewPattern("topicPattern", opts.TopicPattern, opts.TopicTokens)
	if err != nil {
		return nil, err
	}

	prefix := opts.ResponseTopicPrefix
	if prefix == "" {
		prefix = "clients/" + client.ID()
	}
	if !topic.Valid(prefix) {
		return nil, &errors.Error{
			Message:       "invalid response topic prefix",
			Kind:          errors.ConfigurationInvalid,
			PropertyName:  "ResponseTopicPrefix",
			PropertyValue: prefix,
		}
	}

	return &Client{
		client:  client,
		pattern: tp,
		prefix:  prefix,
		options: opts,
		log:     log.Wrap(opts.Logger).With("response_prefix", prefix),
		pending: container.NewSyncMap[uuid.UUID, chan *mqtt.Message](),
	}, nil
}

// Start subscribes to the response topics. The returned function
// unsubscribes.
func (c *Client) Start(ctx context.Context) (func(context.Context) error, error) {
	return c.client.Subscribe(
		ctx,
		c.prefix+"/#",
		c.onResponse,
		mqtt.WithQoS(1),
	)
}

// Show renders an attribute of the given device.
func (c *Client) Show(ctx context.Context, deviceID, name string) (string, error) {
	res, err := c.invoke(ctx, deviceID, name, OpShow, nil)
	if err != nil {
		return "", err
	}
	return string(res.Payload), nil
}

// Store writes an attribute of the given device.
func (c *Client) Store(ctx context.Context, deviceID, name, value string) error {
	_, err := c.invoke(ctx, deviceID, name, OpStore, []byte(value))
	return err
}

func (c *Client) invoke(
	ctx context.Context,
	deviceID, name, op string,
	payload []byte,
) (*mqtt.Message, error) {
	req, err := c.pattern.Topic(map[string]string{
		"deviceId": deviceID,
		"name":     name,
		"op":       op,
	})
	if err != nil {
		return nil, err
	}

	id, err := uuid.NewV7()
	if err != nil {
		return nil, errors.Normalize(err, "correlation ID")
	}

	res := make(chan *mqtt.Message, 1)
	c.pending.Store(id, res)
	defer c.pending.Delete(id)

	ctx, cancel := wallclock.Instance.WithTimeoutCause(
		ctx,
		c.options.Timeout,
		&errors.Error{
			Message:       "attribute request timed out",
			Kind:          errors.Timeout,
			PropertyName:  "Timeout",
			PropertyValue: c.options.Timeout,
		},
	)
	defer cancel()

	expiry := uint32(min(math.Ceil(c.options.Timeout.Seconds()), math.MaxUint32))
	err = c.client.Publish(
		ctx,
		req,
		payload,
		mqtt.WithQoS(1),
		mqtt.WithContentType(ContentType),
		mqtt.WithResponseTopic(c.prefix+"/"+req),
		mqtt.WithCorrelationData(id[:]),
		mqtt.WithMessageExpiry(expiry),
	)
	if err != nil {
		return nil, err
	}
	c.log.Debug(ctx, "request sent",
		slog.String("topic", req),
		slog.String("correlation_id", id.String()),
	)

	select {
	case msg := <-res:
		if err := fromUserProps(msg.UserProperties); err != nil {
			return nil, err
		}
		return msg, nil
	case <-ctx.Done():
		return nil, errors.Context(ctx, "attribute request")
	}
}

func (c *Client) onResponse(ctx context.Context, msg *mqtt.Message) {
	id, err := uuid.FromBytes(msg.CorrelationData)
	if err != nil {
		c.log.Warn(ctx, "response without a valid correlation ID",
			slog.String("topic", msg.Topic))
		return
	}

	res, ok := c.pending.LoadAndDelete(id)
	if !ok {
		c.log.Warn(ctx, "response for unknown or expired request",
			slog.String("correlation_id", id.String()))
		return
	}
	res <- msg
}
