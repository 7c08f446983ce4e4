// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.

// Package pedometer samples the step-counting coprocessor on a schedule,
// turns its resettable counters into monotonic totals and restores device
// state after coprocessor panics.
//
// All device state is guarded by a single mutex. Scheduled ticks, control
// operations and checkpoints each hold it for their whole duration, so they
// never interleave.
package pedometer

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/Azure/iot-operations-sdks/go/pedometer/counters"
	"github.com/Azure/iot-operations-sdks/go/pedometer/errors"
	"github.com/Azure/iot-operations-sdks/go/pedometer/hub"
	"github.com/Azure/iot-operations-sdks/go/pedometer/internal/log"
	"github.com/Azure/iot-operations-sdks/go/pedometer/internal/wallclock"
	"github.com/Azure/iot-operations-sdks/go/pedometer/telemetry"
)

// Device is one attached pedometer.
type Device struct {
	id      string
	port    hub.RegisterPort
	pusher  telemetry.Pusher
	fastest Rate
	log     log.Logger

	mu      sync.Mutex
	closed  bool
	acc     counters.Accumulator
	last    counters.Set
	rate    Rate
	profile Profile
	feature bool
	stats   *stats

	// Pending tick, if any. gen increments on every cancel or re-arm so a
	// tick that fired before being cancelled can tell it is stale.
	timer wallclock.Timer
	gen   uint64

	unregister func()
}

// New attaches a device. The panic notifier may be nil, in which case
// checkpoints only happen through explicit calls to Checkpoint.
func New(
	ctx context.Context,
	port hub.RegisterPort,
	pusher telemetry.Pusher,
	notifier hub.PanicNotifier,
	opt ...Option,
) (*Device, error) {
	opts := Options{
		FastestRate: DefaultFastestRate.Interval(),
		Rate:        -1,
	}
	opts.Apply(opt)

	if port == nil || pusher == nil {
		return nil, &errors.Error{
			Message:      "register port and pusher must not be nil",
			Kind:         errors.ConfigurationInvalid,
			PropertyName: "port",
		}
	}

	fastest, err := RateOf(opts.FastestRate)
	if err != nil {
		return nil, err
	}
	if !fastest.Enabled() {
		return nil, &errors.Error{
			Message:       "fastest rate must be positive",
			Kind:          errors.ConfigurationInvalid,
			PropertyName:  "FastestRate",
			PropertyValue: opts.FastestRate,
		}
	}
	rate, err := RateOf(opts.Rate)
	if err != nil {
		return nil, err
	}

	logger := log.Wrap(opts.Logger)
	if opts.DeviceID != "" {
		logger = logger.With("device_id", opts.DeviceID)
	}

	d := &Device{
		id:      opts.DeviceID,
		port:    port,
		pusher:  pusher,
		fastest: fastest,
		log:     logger,
		rate:    RateDisabled,
		profile: DefaultProfile,
		feature: true,
		stats:   newStats(),
	}

	if err := d.attach(ctx, opts); err != nil {
		return nil, err
	}

	if notifier != nil {
		unregister, err := notifier.OnPanic(d.onPanic)
		if err != nil {
			// The device still works; it just cannot hide coprocessor resets.
			d.log.Err(ctx, errors.Normalize(err, "panic handler registration"))
		} else {
			d.unregister = unregister
		}
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	d.setRate(rate)
	return d, nil
}

func (d *Device) attach(ctx context.Context, opts Options) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if opts.Profile != nil {
		d.profile = *opts.Profile
		if err := d.writeProfile(ctx, d.profile); err != nil {
			return err
		}
	}
	if opts.Feature != nil && !*opts.Feature {
		if err := d.writeFeature(ctx, false); err != nil {
			return err
		}
		d.feature = false
	}
	return nil
}

// ID returns the device ID.
func (d *Device) ID() string {
	return d.id
}

// Close cancels polling and unregisters the panic handler. It waits for an
// in-flight tick or control operation to finish. Other operations fail with
// StateInvalid afterwards.
func (d *Device) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return
	}
	d.closed = true

	if d.unregister != nil {
		d.unregister()
		d.unregister = nil
	}
	d.cancel()
	d.log.Info(context.Background(), "pedometer closed")
}

func (d *Device) onPanic(ctx context.Context) {
	// Checkpoint logs its own failures.
	_ = d.Checkpoint(ctx)
}

// Callers hold d.mu.
func (d *Device) check() error {
	if d.closed {
		return &errors.Error{
			Message:      "pedometer is closed",
			Kind:         errors.StateInvalid,
			PropertyName: "closed",
		}
	}
	return nil
}

// Changes the polling rate, re-arming only if the effective rate changed.
// Callers hold d.mu.
func (d *Device) setRate(requested Rate) Rate {
	eff := clamp(requested, d.fastest)
	if eff == d.rate {
		return eff
	}
	d.rate = eff
	d.rearm()
	d.log.Info(context.Background(), "sample rate changed",
		slog.String("rate", eff.String()))
	return eff
}

// Cancels the pending tick. Callers hold d.mu.
func (d *Device) cancel() {
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.gen++
}

// Cancels the pending tick and, if polling is enabled, arms a new one a full
// interval from now. Callers hold d.mu.
func (d *Device) rearm() {
	d.cancel()
	if !d.rate.Enabled() {
		return
	}
	gen := d.gen
	d.timer = wallclock.Instance.AfterFunc(d.rate.Interval(), func() {
		d.tick(gen)
	})
}

func (d *Device) tick(gen uint64) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed || gen != d.gen {
		return
	}
	d.timer = nil

	// Failures are logged and counted by sample; the next tick proceeds
	// regardless.
	_, _ = d.sample(context.Background())

	if d.rate.Enabled() {
		d.rearm()
	}
}

// Reads one register, checking its size. Callers hold d.mu.
func (d *Device) read(ctx context.Context, reg hub.Register) (uint32, error) {
	data, size, err := d.port.ReadRegister(ctx, reg)
	if err != nil {
		return 0, transportErr(ctx, "register read", reg, err)
	}
	if size != reg.Size() || len(data) != size {
		return 0, &errors.Error{
			Message:  "register read returned the wrong number of bytes",
			Kind:     errors.SizeMismatch,
			Register: reg.String(),
			Expected: reg.Size(),
			Actual:   len(data),
		}
	}
	return reg.Decode(data), nil
}

// Callers hold d.mu.
func (d *Device) write(ctx context.Context, reg hub.Register, data []byte) error {
	if err := d.port.WriteRegister(ctx, reg, data, nil); err != nil {
		return transportErr(ctx, "register write", reg, err)
	}
	return nil
}

// Writes the measurement enable registers, pedometer first. Callers hold
// d.mu.
func (d *Device) writeFeature(ctx context.Context, enable bool) error {
	var v uint32
	if enable {
		v = 1
	}
	for _, reg := range []hub.Register{hub.PedometerEnable, hub.MetsEnable} {
		if err := d.write(ctx, reg, reg.Encode(v)); err != nil {
			return err
		}
	}
	return nil
}

func transportErr(
	ctx context.Context,
	msg string,
	reg hub.Register,
	err error,
) error {
	if ctxErr := errors.Context(ctx, msg); ctxErr != nil {
		return ctxErr
	}
	return &errors.Error{
		Message:     msg + " failed: " + err.Error(),
		Kind:        errors.TransportError,
		NestedError: err,
		Register:    reg.String(),
	}
}

func since(start time.Time) time.Duration {
	return wallclock.Instance.Now().Sub(start)
}
