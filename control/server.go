// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.

// Package control exposes the pedometer attribute surface over MQTT as
// request/response commands. Requests are published to
// pedometer/{deviceId}/attr/{name}/{show|store} with an MQTT v5 response
// topic and a UUID correlation ID; responses carry the attribute text as the
// payload and the outcome in a status user property.
package control

import (
	"context"
	"log/slog"

	"github.com/Azure/iot-operations-sdks/go/pedometer/errors"
	"github.com/Azure/iot-operations-sdks/go/pedometer/internal/log"
	"github.com/Azure/iot-operations-sdks/go/pedometer/internal/topic"
	"github.com/Azure/iot-operations-sdks/go/pedometer/internal/wallclock"
	"github.com/Azure/iot-operations-sdks/go/pedometer/mqtt"
	"github.com/google/uuid"
)

type (
	// MqttClient is the MQTT surface used by servers and clients.
	MqttClient interface {
		Publish(
			ctx context.Context,
			topic string,
			payload []byte,
			opts ...mqtt.PublishOption,
		) error
		Subscribe(
			ctx context.Context,
			filter string,
			handler mqtt.MessageHandler,
			opts ...mqtt.SubscribeOption,
		) (func(context.Context) error, error)
	}

	// Surface is the text attribute surface served to remote callers.
	Surface interface {
		Show(ctx context.Context, name string) (string, error)
		Store(ctx context.Context, name, value string) error
	}

	// Server executes attribute requests against a surface.
	Server struct {
		client  MqttClient
		surface Surface
		filter  *topic.Filter
		options ServerOptions
		log     log.Logger
	}
)

// Request operations.
const (
	OpShow  = "show"
	OpStore = "store"
)

// ContentType is the content type of request and response payloads.
const ContentType = "text/plain; charset=utf-8"

// NewServer creates a server. Unresolved tokens other than {name} and {op}
// match any value, so a server without a deviceId token answers for every
// device.
func NewServer(
	client MqttClient,
	surface Surface,
	opt ...ServerOption,
) (*Server, error) {
	opts := ServerOptions{
		TopicPattern: DefaultTopicPattern,
		Timeout:      DefaultTimeout,
	}
	opts.Apply(opt)

	if client == nil || surface == nil {
		return nil, &errors.Error{
			Message:      "client and surface must not be nil",
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
	filter, err := tp.Filter()
	if err != nil {
		return nil, err
	}

	return &Server{
		client:  client,
		surface: surface,
		filter:  filter,
		options: opts,
		log:     log.Wrap(opts.Logger).With("filter", filter.Filter()),
	}, nil
}

// Start subscribes to the request topic. The returned function unsubscribes.
func (s *Server) Start(ctx context.Context) (func(context.Context) error, error) {
	stop, err := s.client.Subscribe(
		ctx,
		s.filter.Filter(),
		s.onRequest,
		mqtt.WithQoS(1),
	)
	if err != nil {
		return nil, err
	}
	s.log.Info(ctx, "control server started")
	return stop, nil
}

func (s *Server) onRequest(ctx context.Context, msg *mqtt.Message) {
	if msg.ResponseTopic == "" || !mqtt.IsValidTopic(msg.ResponseTopic) {
		s.log.Warn(ctx, "request without a valid response topic dropped",
			slog.String("topic", msg.Topic),
			slog.String("response_topic", msg.ResponseTopic),
		)
		return
	}

	res, err := s.handle(ctx, msg)
	if err != nil {
		s.log.Warn(ctx, "request failed",
			slog.String("topic", msg.Topic),
			slog.String("error", err.Error()),
		)
	}

	if err := s.respond(ctx, msg, res, err); err != nil {
		s.log.Err(ctx, err, slog.String("response_topic", msg.ResponseTopic))
	}
}

func (s *Server) handle(ctx context.Context, msg *mqtt.Message) (string, error) {
	if _, err := uuid.FromBytes(msg.CorrelationData); err != nil {
		return "", &errors.Error{
			Message:      "correlation data is not a UUID",
			Kind:         errors.InvalidInput,
			NestedError:  err,
			PropertyName: "correlation_data",
		}
	}

	tokens, ok := s.filter.Tokens(msg.Topic)
	if !ok {
		return "", &errors.Error{
			Message:       "request on unexpected topic",
			Kind:          errors.InvalidInput,
			PropertyName:  "topic",
			PropertyValue: msg.Topic,
		}
	}

	ctx, cancel := wallclock.Instance.WithTimeoutCause(
		ctx,
		s.options.Timeout,
		&errors.Error{
			Message:       "request timed out",
			Kind:          errors.Timeout,
			PropertyName:  "Timeout",
			PropertyValue: s.options.Timeout,
		},
	)
	defer cancel()

	name := tokens["name"]
	switch op := tokens["op"]; op {
	case OpShow:
		return s.surface.Show(ctx, name)
	case OpStore:
		return "", s.surface.Store(ctx, name, string(msg.Payload))
	default:
		return "", &errors.Error{
			Message:       "unknown operation",
			Kind:          errors.InvalidInput,
			PropertyName:  "op",
			PropertyValue: op,
		}
	}
}

func (s *Server) respond(
	ctx context.Context,
	req *mqtt.Message,
	res string,
	resErr error,
) error {
	opts := []mqtt.PublishOption{
		mqtt.WithQoS(req.QoS),
		mqtt.WithContentType(ContentType),
		mqtt.WithCorrelationData(req.CorrelationData),
		mqtt.WithUserProperties(toUserProps(resErr)),
	}
	if req.MessageExpiry > 0 {
		opts = append(opts, mqtt.WithMessageExpiry(req.MessageExpiry))
	}

	if err := s.client.Publish(ctx, req.ResponseTopic, []byte(res), opts...); err != nil {
		return err
	}
	s.log.Debug(ctx, "response sent",
		slog.String("response_topic", req.ResponseTopic),
		slog.Any("correlation_data", req.CorrelationData),
	)
	return nil
}
