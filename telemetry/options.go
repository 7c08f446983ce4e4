// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.
package telemetry

import (
	"log/slog"
	"time"

	"github.com/Azure/iot-operations-sdks/go/pedometer/internal/options"
)

type (
	// SenderOptions are the resolved sender options.
	SenderOptions struct {
		TopicPattern string
		TopicTokens  map[string]string
		QoS          byte
		QueueSize    int
		Timeout      time.Duration
		Logger       *slog.Logger
	}

	// SenderOption represents a single sender option.
	SenderOption interface{ sender(*SenderOptions) }

	// ReceiverOptions are the resolved receiver options.
	ReceiverOptions struct {
		TopicPattern string
		TopicTokens  map[string]string
		QoS          byte
		Logger       *slog.Logger
	}

	// ReceiverOption represents a single receiver option.
	ReceiverOption interface{ receiver(*ReceiverOptions) }

	// Option applies to both senders and receivers.
	Option interface {
		SenderOption
		ReceiverOption
	}

	// WithTopicPattern overrides the sample topic pattern.
	WithTopicPattern string

	// WithTopicTokens supplies values for topic pattern tokens.
	WithTopicTokens map[string]string

	// WithQoS sets the MQTT QoS for samples.
	WithQoS byte

	// WithQueueSize sets how many samples a sender buffers before dropping.
	WithQueueSize int

	// WithTimeout bounds each sample publish.
	WithTimeout time.Duration

	withLogger struct{ *slog.Logger }
)

// Defaults.
const (
	DefaultTopicPattern = "pedometer/{deviceId}/samples"
	DefaultQueueSize    = 64
	DefaultTimeout      = 10 * time.Second
)

// WithLogger enables logging with the provided slog logger.
func WithLogger(logger *slog.Logger) Option {
	return withLogger{logger}
}

func (o withLogger) sender(opt *SenderOptions)     { opt.Logger = o.Logger }
func (o withLogger) receiver(opt *ReceiverOptions) { opt.Logger = o.Logger }

func (o WithTopicPattern) sender(opt *SenderOptions) {
	opt.TopicPattern = string(o)
}

func (o WithTopicPattern) receiver(opt *ReceiverOptions) {
	opt.TopicPattern = string(o)
}

func (o WithTopicTokens) apply(tokens map[string]string) map[string]string {
	if tokens == nil {
		tokens = make(map[string]string, len(o))
	}
	for k, v := range o {
		tokens[k] = v
	}
	return tokens
}

func (o WithTopicTokens) sender(opt *SenderOptions) {
	opt.TopicTokens = o.apply(opt.TopicTokens)
}

func (o WithTopicTokens) receiver(opt *ReceiverOptions) {
	opt.TopicTokens = o.apply(opt.TopicTokens)
}

func (o WithQoS) sender(opt *SenderOptions)     { opt.QoS = byte(o) }
func (o WithQoS) receiver(opt *ReceiverOptions) { opt.QoS = byte(o) }

func (o WithQueueSize) sender(opt *SenderOptions) {
	opt.QueueSize = int(o)
}

func (o WithTimeout) sender(opt *SenderOptions) {
	opt.Timeout = time.Duration(o)
}

// Apply resolves the provided list of options.
func (o *SenderOptions) Apply(opts []SenderOption, rest ...SenderOption) {
	for opt := range options.Apply[SenderOption](opts, rest...) {
		opt.sender(o)
	}
}

func (o *SenderOptions) sender(opt *SenderOptions) {
	if o != nil {
		*opt = *o
	}
}

// Apply resolves the provided list of options.
func (o *ReceiverOptions) Apply(
	opts []ReceiverOption,
	rest ...ReceiverOption,
) {
	for opt := range options.Apply[ReceiverOption](opts, rest...) {
		opt.receiver(o)
	}
}

func (o *ReceiverOptions) receiver(opt *ReceiverOptions) {
	if o != nil {
		*opt = *o
	}
}
