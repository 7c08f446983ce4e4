// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.
package telemetry

import (
	"context"
	"log/slog"
	"sync"

	"github.com/Azure/iot-operations-sdks/go/pedometer/counters"
	"github.com/Azure/iot-operations-sdks/go/pedometer/errors"
	"github.com/Azure/iot-operations-sdks/go/pedometer/internal/log"
	"github.com/Azure/iot-operations-sdks/go/pedometer/internal/topic"
	"github.com/Azure/iot-operations-sdks/go/pedometer/internal/wallclock"
	"github.com/Azure/iot-operations-sdks/go/pedometer/mqtt"
)

type (
	// Publisher is the MQTT publish primitive used by the sender.
	Publisher interface {
		Publish(
			ctx context.Context,
			topic string,
			payload []byte,
			opts ...mqtt.PublishOption,
		) error
	}

	// Sender publishes samples to MQTT. Push only enqueues; a background
	// goroutine publishes in order, so a slow broker never stalls sampling.
	Sender struct {
		client  Publisher
		topic   string
		options SenderOptions
		log     log.Logger

		mu     sync.Mutex
		closed bool
		queue  chan *Record
		done   chan struct{}
	}
)

// NewSender creates a sender and starts its publish loop.
func NewSender(client Publisher, opt ...SenderOption) (*Sender, error) {
	opts := SenderOptions{
		TopicPattern: DefaultTopicPattern,
		QueueSize:    DefaultQueueSize,
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
	if opts.QoS > 1 {
		return nil, &errors.Error{
			Message:       "unsupported QoS",
			Kind:          errors.ConfigurationInvalid,
			PropertyName:  "QoS",
			PropertyValue: opts.QoS,
		}
	}

	tp, err := topic.NewPattern("topicPattern", opts.TopicPattern, opts.TopicTokens)
	if err != nil {
		return nil, err
	}
	name, err := tp.Topic(nil)
	if err != nil {
		return nil, err
	}

	s := &Sender{
		client:  client,
		topic:   name,
		options: opts,
		log:     log.Wrap(opts.Logger).With("topic", name),
		queue:   make(chan *Record, max(opts.QueueSize, 1)),
		done:    make(chan struct{}),
	}
	go s.run()
	return s, nil
}

// Topic returns the resolved topic samples are published on.
func (s *Sender) Topic() string {
	return s.topic
}

// Push implements Pusher. Samples are dropped when the queue is full or the
// sender is closed.
func (s *Sender) Push(ctx context.Context, sample counters.Set) {
	rec, err := NewRecord(sample)
	if err != nil {
		s.log.Err(ctx, err)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	select {
	case s.queue <- rec:
	default:
		s.log.Warn(ctx, "sample queue full; dropping sample",
			slog.String("id", rec.ID.String()))
	}
}

// Close stops accepting samples and waits for queued ones to be published.
func (s *Sender) Close() {
	s.mu.Lock()
	if !s.closed {
		s.closed = true
		close(s.queue)
	}
	s.mu.Unlock()
	<-s.done
}

func (s *Sender) run() {
	defer close(s.done)
	for rec := range s.queue {
		s.send(rec)
	}
}

func (s *Sender) send(rec *Record) {
	ctx, cancel := wallclock.Instance.WithTimeoutCause(
		context.Background(),
		s.options.Timeout,
		&errors.Error{
			Message:       "sample publish timed out",
			Kind:          errors.Timeout,
			PropertyName:  "Timeout",
			PropertyValue: s.options.Timeout,
		},
	)
	defer cancel()

	payload, err := rec.Encode()
	if err != nil {
		s.log.Err(ctx, err)
		return
	}

	err = s.client.Publish(
		ctx,
		s.topic,
		payload,
		mqtt.WithQoS(s.options.QoS),
		mqtt.WithContentType(ContentType),
	)
	if err != nil {
		s.log.Err(ctx, err, slog.String("id", rec.ID.String()))
		return
	}
	s.log.Debug(ctx, "sample published", slog.String("id", rec.ID.String()))
}
