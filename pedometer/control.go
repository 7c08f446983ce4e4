// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.
package pedometer

import (
	"context"
	"log/slog"

	"github.com/Azure/iot-operations-sdks/go/pedometer/counters"
	"github.com/Azure/iot-operations-sdks/go/pedometer/errors"
)

// Rate returns the effective sample rate.
func (d *Device) Rate() Rate {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.rate
}

// FastestRate returns the shortest supported sample interval.
func (d *Device) FastestRate() Rate {
	return d.fastest
}

// SetRate changes the sample rate and returns the effective rate. The request
// must be in [-1, 32767]; -1 disables polling. Enabling requests (including
// ones that leave the rate unchanged) also take one sample immediately, whose
// error is returned after the rate has been applied.
func (d *Device) SetRate(ctx context.Context, requested int) (Rate, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.check(); err != nil {
		return d.rate, err
	}
	if requested < int(RateDisabled) || requested > int(RateMax) {
		return d.rate, &errors.Error{
			Message:       "sample rate out of range",
			Kind:          errors.InvalidInput,
			PropertyName:  "rate",
			PropertyValue: requested,
		}
	}

	eff := d.setRate(Rate(requested))
	if requested >= 0 {
		if _, err := d.sample(ctx); err != nil {
			return eff, err
		}
	}
	return eff, nil
}

// Last returns the most recently published sample.
func (d *Device) Last() counters.Set {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.last
}

// Profile returns the cached user profile.
func (d *Device) Profile() Profile {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.profile
}

// ReadProfile reads the user profile back from the coprocessor.
func (d *Device) ReadProfile(ctx context.Context) (Profile, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.check(); err != nil {
		return Profile{}, err
	}
	p, err := d.readProfile(ctx)
	if err != nil {
		d.log.Err(ctx, err)
	}
	return p, err
}

// SetProfile writes the user profile to the coprocessor. The profile is
// cached even if the write fails, so the next checkpoint applies it.
func (d *Device) SetProfile(ctx context.Context, p Profile) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.check(); err != nil {
		return err
	}

	d.profile = p
	if err := d.writeProfile(ctx, p); err != nil {
		d.log.Err(ctx, err)
		return err
	}
	d.log.Info(ctx, "profile updated", slog.Any("profile", p))
	return nil
}

// FeatureEnabled reports whether coprocessor measurement is enabled.
func (d *Device) FeatureEnabled() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.feature
}

// SetFeature enables or disables coprocessor measurement. Requests that match
// the current state do nothing. The state only changes once both enable
// registers have been written.
func (d *Device) SetFeature(ctx context.Context, enable bool) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.check(); err != nil {
		return err
	}
	if enable == d.feature {
		return nil
	}

	if err := d.writeFeature(ctx, enable); err != nil {
		d.log.Err(ctx, err)
		return err
	}
	d.feature = enable
	d.log.Info(ctx, "feature state changed", slog.Bool("enabled", enable))
	return nil
}
