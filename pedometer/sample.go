// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.
package pedometer

import (
	"context"

	"github.com/Azure/iot-operations-sdks/go/pedometer/counters"
	"github.com/Azure/iot-operations-sdks/go/pedometer/hub"
	"github.com/Azure/iot-operations-sdks/go/pedometer/internal/wallclock"
)

// Sample performs one sampling cycle immediately and publishes the result.
func (d *Device) Sample(ctx context.Context) (counters.Set, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.check(); err != nil {
		return counters.Set{}, err
	}
	return d.sample(ctx)
}

// Reads every counter, folds the raw values into the published totals and
// pushes the sample. Any failure leaves all state unchanged and publishes
// nothing. Callers hold d.mu.
func (d *Device) sample(ctx context.Context) (counters.Set, error) {
	start := wallclock.Instance.Now()

	raw, err := d.readCounters(ctx)
	if err == nil {
		var pub counters.Set
		if pub, err = d.acc.Absorb(raw); err == nil {
			pub.Timestamp = wallclock.Instance.Now()
			d.last = pub
			d.pusher.Push(ctx, pub)
			d.stats.success(since(start))
			d.log.Debug(ctx, "sample published")
			return pub, nil
		}
	}

	d.stats.failure(err)
	d.log.Err(ctx, err)
	return counters.Set{}, err
}

// Callers hold d.mu.
func (d *Device) readCounters(ctx context.Context) (counters.Set, error) {
	var raw counters.Set
	fields := []struct {
		reg hub.Register
		set func(uint32)
	}{
		{hub.PedometerActivity, func(v uint32) { raw.Activity = uint8(v) }},
		{hub.PedometerTotalDistance, func(v uint32) { raw.Distance = v }},
		{hub.PedometerTotalSteps, func(v uint32) { raw.Steps = v }},
		{hub.PedometerCurrentSpeed, func(v uint32) { raw.Speed = uint16(v) }},
		{hub.MetsHealthyMinutes, func(v uint32) { raw.HealthyMinutes = v }},
		{hub.MetsCalories, func(v uint32) { raw.Calories = v }},
		{hub.MetsCaloriesNoRMR, func(v uint32) { raw.CaloriesNoRMR = v }},
	}

	for _, f := range fields {
		v, err := d.read(ctx, f.reg)
		if err != nil {
			return counters.Set{}, err
		}
		f.set(v)
	}
	return raw, nil
}
