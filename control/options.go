// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.
package control

import (
	"log/slog"
	"maps"
	"time"

	"github.com/Azure/iot-operations-sdks/go/pedometer/internal/options"
)

type (
	// ServerOptions are the resolved server options.
	ServerOptions struct {
		TopicPattern string
		TopicTokens  map[string]string
		Timeout      time.Duration
		Logger       *slog.Logger
	}

	// ServerOption represents a single server option.
	ServerOption interface{ server(*ServerOptions) }

	// ClientOptions are the resolved client options.
	ClientOptions struct {
		TopicPattern        string
		TopicTokens         map[string]string
		ResponseTopicPrefix string
		Timeout             time.Duration
		Logger              *slog.Logger
	}

	// ClientOption represents a single client option.
	ClientOption interface{ client(*ClientOptions) }

	// Option applies to both servers and clients.
	Option interface {
		ServerOption
		ClientOption
	}

	// WithTopicPattern overrides the request topic pattern. It must contain
	// the {name} and {op} tokens.
	WithTopicPattern string

	// WithTopicTokens supplies values for request topic tokens.
	WithTopicTokens map[string]string

	// WithTimeout bounds request handling on the server and the wait for a
	// response on the client.
	WithTimeout time.Duration

	// WithResponseTopicPrefix overrides the prefix the client prepends to the
	// request topic to form its response topic.
	WithResponseTopicPrefix string

	withLogger struct{ *slog.Logger }
)

// Defaults.
const (
	DefaultTopicPattern = "pedometer/{deviceId}/attr/{name}/{op}"
	DefaultTimeout      = 10 * time.Second
)

// WithLogger enables logging with the provided slog logger.
func WithLogger(logger *slog.Logger) Option {
	return withLogger{logger}
}

func (o withLogger) server(opt *ServerOptions) { opt.Logger = o.Logger }
func (o withLogger) client(opt *ClientOptions) { opt.Logger = o.Logger }

func (o WithTopicPattern) server(opt *ServerOptions) {
	opt.TopicPattern = string(o)
}

func (o WithTopicPattern) client(opt *ClientOptions) {
	opt.TopicPattern = string(o)
}

func (o WithTopicTokens) merge(tokens map[string]string) map[string]string {
	if tokens == nil {
		tokens = make(map[string]string, len(o))
	}
	maps.Copy(tokens, o)
	return tokens
}

func (o WithTopicTokens) server(opt *ServerOptions) {
	opt.TopicTokens = o.merge(opt.TopicTokens)
}

func (o WithTopicTokens) client(opt *ClientOptions) {
	opt.TopicTokens = o.merge(opt.TopicTokens)
}

func (o WithTimeout) server(opt *ServerOptions) {
	opt.Timeout = time.Duration(o)
}

func (o WithTimeout) client(opt *ClientOptions) {
	opt.Timeout = time.Duration(o)
}

func (o WithResponseTopicPrefix) client(opt *ClientOptions) {
	opt.ResponseTopicPrefix = string(o)
}

// Apply resolves the provided list of options.
func (o *ServerOptions) Apply(opts []ServerOption, rest ...ServerOption) {
	for opt := range options.Apply[ServerOption](opts, rest...) {
		opt.server(o)
	}
}

func (o *ServerOptions) server(opt *ServerOptions) {
	if o != nil {
		*opt = *o
	}
}

// Apply resolves the provided list of options.
func (o *ClientOptions) Apply(opts []ClientOption, rest ...ClientOption) {
	for opt := range options.Apply[ClientOption](opts, rest...) {
		opt.client(o)
	}
}

func (o *ClientOptions) client(opt *ClientOptions) {
	if o != nil {
		*opt = *o
	}
}
