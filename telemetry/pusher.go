// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.

// Package telemetry delivers published pedometer samples to consumers, both
// in-process and over MQTT.
package telemetry

import (
	"context"

	"github.com/Azure/iot-operations-sdks/go/pedometer/counters"
)

type (
	// Pusher accepts published samples. Push must not block on slow
	// consumers and has no failure path; delivery is best-effort.
	Pusher interface {
		Push(ctx context.Context, sample counters.Set)
	}

	// PusherFunc adapts a function to a Pusher.
	PusherFunc func(ctx context.Context, sample counters.Set)

	// Multi pushes each sample to every pusher in order.
	Multi []Pusher
)

// Push implements Pusher.
func (f PusherFunc) Push(ctx context.Context, sample counters.Set) {
	f(ctx, sample)
}

// Push implements Pusher.
func (m Multi) Push(ctx context.Context, sample counters.Set) {
	for _, p := range m {
		if p != nil {
			p.Push(ctx, sample)
		}
	}
}
