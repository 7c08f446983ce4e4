// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.
package pedometer

import (
	"log/slog"
	"time"

	"github.com/Azure/iot-operations-sdks/go/pedometer/internal/options"
)

type (
	// Options are the resolved device options.
	Options struct {
		DeviceID    string
		FastestRate time.Duration
		Rate        time.Duration
		Profile     *Profile
		Feature     *bool
		Logger      *slog.Logger
	}

	// Option represents a single device option.
	Option interface{ device(*Options) }

	// WithDeviceID names the device in logs and MQTT topics.
	WithDeviceID string

	// WithFastestRate sets the shortest sample interval the coprocessor
	// supports. Requested rates at or below it are raised to it.
	WithFastestRate time.Duration

	// WithRate arms polling at the given interval when the device is created.
	// Negative intervals leave polling disabled.
	WithRate time.Duration

	withProfile struct{ Profile }
	withFeature bool
	withLogger  struct{ *slog.Logger }
)

// WithProfile writes the given user profile to the coprocessor when the
// device is created.
func WithProfile(p Profile) Option {
	return withProfile{p}
}

// WithFeature sets the measurement feature state when the device is created.
func WithFeature(enabled bool) Option {
	return withFeature(enabled)
}

// WithLogger enables logging with the provided slog logger.
func WithLogger(logger *slog.Logger) Option {
	return withLogger{logger}
}

func (o WithDeviceID) device(opt *Options) {
	opt.DeviceID = string(o)
}

func (o WithFastestRate) device(opt *Options) {
	opt.FastestRate = time.Duration(o)
}

func (o WithRate) device(opt *Options) {
	opt.Rate = time.Duration(o)
}

func (o withProfile) device(opt *Options) {
	p := o.Profile
	opt.Profile = &p
}

func (o withFeature) device(opt *Options) {
	b := bool(o)
	opt.Feature = &b
}

func (o withLogger) device(opt *Options) {
	opt.Logger = o.Logger
}

// Apply resolves the provided list of options.
func (o *Options) Apply(opts []Option, rest ...Option) {
	for opt := range options.Apply[Option](opts, rest...) {
		opt.device(o)
	}
}

func (o *Options) device(opt *Options) {
	if o != nil {
		*opt = *o
	}
}
