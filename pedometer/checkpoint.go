// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.
package pedometer

import (
	"context"
	"log/slog"
)

// Checkpoint prepares for a coprocessor reset. It is called for every panic
// notification and may be called directly.
//
// The cached profile is re-written (best-effort), a disabled feature is
// re-asserted, and the published totals are folded into a new base so the
// counters restarting from zero do not show as a decrease. Polling then
// restarts a full interval from now.
//
// If re-asserting the disabled feature fails, the error is returned and
// polling is left as it was. The totals are folded regardless, since the
// coprocessor resets either way.
func (d *Device) Checkpoint(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.check(); err != nil {
		return err
	}

	if err := d.writeProfile(ctx, d.profile); err != nil {
		d.log.Err(ctx, err, slog.String("step", "profile restore"))
	}

	var err error
	if !d.feature {
		if err = d.writeFeature(ctx, false); err != nil {
			d.log.Err(ctx, err, slog.String("step", "feature restore"))
		}
	}

	d.acc.ResetEpoch()
	d.stats.checkpoint()

	if err != nil {
		return err
	}
	d.rearm()
	d.log.Info(ctx, "checkpoint complete",
		slog.Any("published", d.acc.Published()))
	return nil
}
