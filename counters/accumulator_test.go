// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.
package counters

import (
	"testing"

	"github.com/Azure/iot-operations-sdks/go/pedometer/errors"
	"github.com/stretchr/testify/require"
)

func steps(n uint32) Set {
	return Set{Steps: n, Distance: n * 7, Calories: n / 20}
}

func TestAbsorbAddsBase(t *testing.T) {
	var a Accumulator

	pub, err := a.Absorb(steps(100))
	require.NoError(t, err)
	require.Equal(t, uint32(100), pub.Steps)

	pub, err = a.Absorb(steps(150))
	require.NoError(t, err)
	require.Equal(t, uint32(150), pub.Steps)

	a.ResetEpoch()
	require.Equal(t, uint32(150), a.Published().Steps)
	require.Equal(t, uint32(150), a.Base().Steps)
	require.Equal(t, uint32(0), a.Last().Steps)

	pub, err = a.Absorb(steps(10))
	require.NoError(t, err)
	require.Equal(t, uint32(160), pub.Steps)
	require.Equal(t, uint32(1120), pub.Distance)
}

func TestAbsorbRejectsDecrease(t *testing.T) {
	var a Accumulator

	_, err := a.Absorb(steps(150))
	require.NoError(t, err)

	_, err = a.Absorb(steps(140))
	require.True(t, errors.IsKind(err, errors.UnexpectedReset))
	require.Equal(t, uint32(150), a.Published().Steps)
	require.Equal(t, uint32(150), a.Last().Steps)

	// State is untouched, so a valid increase continues from 150.
	pub, err := a.Absorb(steps(151))
	require.NoError(t, err)
	require.Equal(t, uint32(151), pub.Steps)
}

func TestAbsorbRejectsAnySingleField(t *testing.T) {
	for _, f := range Fields {
		t.Run(f.String(), func(t *testing.T) {
			var a Accumulator

			first := Set{}
			for _, g := range Fields {
				first.Put(g, 50)
			}
			_, err := a.Absorb(first)
			require.NoError(t, err)

			next := Set{}
			for _, g := range Fields {
				next.Put(g, 60)
			}
			next.Put(f, 49)

			_, err = a.Absorb(next)
			require.Error(t, err)

			var e *errors.Error
			require.ErrorAs(t, err, &e)
			require.Equal(t, f.String(), e.PropertyName)

			// No field was partially updated.
			for _, g := range Fields {
				require.Equal(t, uint32(50), a.Published().Get(g))
				require.Equal(t, uint32(50), a.Last().Get(g))
			}
		})
	}
}

func TestCheckpointConservesPublished(t *testing.T) {
	var a Accumulator

	_, err := a.Absorb(Set{
		Distance:       1000,
		Steps:          1400,
		HealthyMinutes: 12,
		Calories:       80,
		CaloriesNoRMR:  40,
	})
	require.NoError(t, err)
	before := a.Published()

	a.ResetEpoch()
	require.Equal(t, before, a.Published())

	pub, err := a.Absorb(Set{})
	require.NoError(t, err)
	for _, f := range Fields {
		require.Equal(t, before.Get(f), pub.Get(f))
	}
}

func TestPublishedIsMonotonic(t *testing.T) {
	var a Accumulator
	var prev Set

	raws := []uint32{0, 3, 3, 10, 11, 250, 251}
	for _, r := range raws {
		pub, err := a.Absorb(steps(r))
		require.NoError(t, err)
		for _, f := range Fields {
			require.GreaterOrEqual(t, pub.Get(f), prev.Get(f))
		}
		prev = pub
	}
}

func TestAbsorbPassesInstantaneousFields(t *testing.T) {
	var a Accumulator

	pub, err := a.Absorb(Set{Activity: 2, Speed: 140, Steps: 5})
	require.NoError(t, err)
	require.Equal(t, uint8(2), pub.Activity)
	require.Equal(t, uint16(140), pub.Speed)

	// Instantaneous fields may go down freely.
	pub, err = a.Absorb(Set{Activity: 0, Speed: 0, Steps: 5})
	require.NoError(t, err)
	require.Equal(t, uint8(0), pub.Activity)
	require.Equal(t, uint16(0), pub.Speed)
}
