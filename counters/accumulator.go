// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.
package counters

import (
	"fmt"
	"log/slog"

	"github.com/Azure/iot-operations-sdks/go/pedometer/errors"
)

// Accumulator tracks the base offset and last raw reading of every monotonic
// field. Published totals are base+raw and never decrease within an epoch.
//
// Accumulator is not safe for concurrent use; the owning device serializes
// access.
type Accumulator struct {
	base      Set
	last      Set
	published Set
}

// ResetEpoch folds the published totals into the base and zeroes the last raw
// reading, in anticipation of the coprocessor resetting its counters.
func (a *Accumulator) ResetEpoch() {
	for _, f := range Fields {
		a.base.Put(f, a.published.Get(f))
		a.last.Put(f, 0)
	}
}

// Absorb validates a raw reading against the current epoch and returns the
// published totals. If any monotonic field went backwards the reading is
// rejected as a whole and the accumulator is left untouched.
func (a *Accumulator) Absorb(raw Set) (Set, error) {
	for _, f := range Fields {
		if raw.Get(f) < a.last.Get(f) {
			return Set{}, &errors.Error{
				Message: fmt.Sprintf(
					"%s decreased from %d to %d outside a checkpoint",
					f,
					a.last.Get(f),
					raw.Get(f),
				),
				Kind:          errors.UnexpectedReset,
				PropertyName:  f.String(),
				PropertyValue: raw.Get(f),
				Details: []slog.Attr{
					slog.Any("current", raw),
					slog.Any("last", a.last),
					slog.Any("base", a.base),
					slog.Any("published", a.published),
				},
			}
		}
	}

	pub := raw
	for _, f := range Fields {
		pub.Put(f, a.base.Get(f)+raw.Get(f))
	}

	a.last = raw
	a.published = pub
	return pub, nil
}

// Published returns the last published totals.
func (a *Accumulator) Published() Set {
	return a.published
}

// Base returns the totals accumulated before the current epoch.
func (a *Accumulator) Base() Set {
	return a.base
}

// Last returns the last raw reading of the current epoch.
func (a *Accumulator) Last() Set {
	return a.last
}
