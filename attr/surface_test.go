// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.
package attr_test

import (
	"context"
	"testing"

	"github.com/Azure/iot-operations-sdks/go/pedometer/attr"
	"github.com/Azure/iot-operations-sdks/go/pedometer/counters"
	"github.com/Azure/iot-operations-sdks/go/pedometer/errors"
	"github.com/Azure/iot-operations-sdks/go/pedometer/hub"
	"github.com/Azure/iot-operations-sdks/go/pedometer/pedometer"
	"github.com/Azure/iot-operations-sdks/go/pedometer/telemetry"
	"github.com/stretchr/testify/require"
)

func setup(t *testing.T) (*attr.Surface, *pedometer.Device, *hub.Sim) {
	ctx := context.Background()
	sim := hub.NewSim()
	push := telemetry.PusherFunc(func(context.Context, counters.Set) {})

	dev, err := pedometer.New(ctx, sim, push, sim)
	require.NoError(t, err)
	t.Cleanup(dev.Close)

	return attr.New(dev, nil), dev, sim
}

func TestNames(t *testing.T) {
	require.Equal(t, []string{
		attr.FeatureEnable,
		attr.IIOData,
		attr.SetRate,
		attr.Statistics,
		attr.UserData,
	}, attr.Names())

	require.True(t, attr.Writable(attr.SetRate))
	require.True(t, attr.Writable(attr.UserData))
	require.True(t, attr.Writable(attr.FeatureEnable))
	require.False(t, attr.Writable(attr.IIOData))
	require.False(t, attr.Writable(attr.Statistics))
	require.False(t, attr.Writable("bogus"))
}

func TestSetRate(t *testing.T) {
	ctx := context.Background()
	s, dev, _ := setup(t)

	out, err := s.Show(ctx, attr.SetRate)
	require.NoError(t, err)
	require.Equal(t, "Current rate: -1\n", out)

	require.NoError(t, s.Store(ctx, attr.SetRate, "500\n"))
	out, err = s.Show(ctx, attr.SetRate)
	require.NoError(t, err)
	require.Equal(t, "Current rate: 1000\n", out)

	require.NoError(t, s.Store(ctx, attr.SetRate, "-1"))
	require.Equal(t, pedometer.RateDisabled, dev.Rate())

	for _, bad := range []string{"", "fast", "-2", "32768", "1.5", "10\n\n"} {
		err := s.Store(ctx, attr.SetRate, bad)
		require.True(t, errors.IsKind(err, errors.InvalidInput), "%q", bad)
	}
	require.Equal(t, pedometer.RateDisabled, dev.Rate())
}

func TestIIOData(t *testing.T) {
	ctx := context.Background()
	s, dev, sim := setup(t)

	sim.Walk(250)
	_, err := dev.Sample(ctx)
	require.NoError(t, err)

	out, err := s.Show(ctx, attr.IIOData)
	require.NoError(t, err)
	require.Equal(t, "ped_activity: 1\n"+
		"total_distance: 19000\n"+
		"total_steps: 250\n"+
		"current_speed: 134\n"+
		"healthy_minutes: 1\n"+
		"calories: 100\n"+
		"calories_normr: 80\n", out)

	err = s.Store(ctx, attr.IIOData, "1")
	require.True(t, errors.IsKind(err, errors.InvalidInput))
}

func TestUserData(t *testing.T) {
	ctx := context.Background()
	s, dev, sim := setup(t)

	out, err := s.Show(ctx, attr.UserData)
	require.NoError(t, err)
	require.Equal(t, "Gender (M/F): F\n"+
		"Age    (yrs): 0\n"+
		"Height  (cm): 0\n"+
		"Weight  (kg): 0\n", out)

	// Female, 22, 168cm, 49kg.
	require.NoError(t, s.Store(ctx, attr.UserData, "0x00,0x16,0xA7,0x31\n"))
	require.Equal(t, pedometer.Profile{
		Gender: pedometer.Female,
		Age:    22,
		Height: 167,
		Weight: 49,
	}, dev.Profile())

	out, err = s.Show(ctx, attr.UserData)
	require.NoError(t, err)
	require.Equal(t, "Gender (M/F): F\n"+
		"Age    (yrs): 22\n"+
		"Height  (cm): 167\n"+
		"Weight  (kg): 49\n", out)

	sim.Inject(hub.UserWeight, hub.Fault{})
	out, err = s.Show(ctx, attr.UserData)
	require.NoError(t, err)
	require.Equal(t, "Read failed (check logs)\n", out)
}

func TestUserDataRejectsMalformed(t *testing.T) {
	ctx := context.Background()
	s, _, sim := setup(t)

	for _, bad := range []string{
		"0x00,0x16,0xA7,0x31",
		"0x00,0x16,0xA7,0x31\n\n",
		"0x00;0x16,0xA7,0x31\n",
		"0x00,0x16,0xA7,0x31 ",
		"0x00,0xGG,0xA7,0x31\n",
		"0x00,0x16,0xA7,-x31\n",
	} {
		err := s.Store(ctx, attr.UserData, bad)
		require.True(t, errors.IsKind(err, errors.InvalidInput), "%q", bad)
	}
	require.Zero(t, sim.Writes(hub.UserAge))
}

func TestParseUserData(t *testing.T) {
	p, err := attr.ParseUserData("0x01,0x23,0xB2,0xFF\n")
	require.NoError(t, err)
	require.Equal(t, pedometer.Profile{
		Gender: pedometer.Male,
		Age:    0x23,
		Height: 0xB2,
		Weight: 0xFF,
	}, p)
	require.Equal(t, "0x01,0x23,0xB2,0xFF\n", attr.FormatUserData(p))

	// Prefixless and upper-case forms parse as hex too.
	p, err = attr.ParseUserData("0001,0X23,00b2,00ff\n")
	require.NoError(t, err)
	require.Equal(t, uint8(0xB2), p.Height)

	// Only one byte of weight fits the line.
	require.Equal(t, "0x01,0x23,0xB2,0x2C\n", attr.FormatUserData(
		pedometer.Profile{Gender: 1, Age: 0x23, Height: 0xB2, Weight: 300},
	))
}

func TestFeatureEnable(t *testing.T) {
	ctx := context.Background()
	s, dev, sim := setup(t)

	out, err := s.Show(ctx, attr.FeatureEnable)
	require.NoError(t, err)
	require.Equal(t, "Enabled\n", out)

	require.NoError(t, s.Store(ctx, attr.FeatureEnable, "0\n"))
	require.NoError(t, s.Store(ctx, attr.FeatureEnable, "0"))
	require.False(t, dev.FeatureEnabled())
	require.Equal(t, 1, sim.Writes(hub.PedometerEnable))

	out, err = s.Show(ctx, attr.FeatureEnable)
	require.NoError(t, err)
	require.Equal(t, "Disabled\n", out)

	require.NoError(t, s.Store(ctx, attr.FeatureEnable, "7"))
	require.True(t, dev.FeatureEnabled())

	err = s.Store(ctx, attr.FeatureEnable, "on")
	require.True(t, errors.IsKind(err, errors.InvalidInput))
}

func TestStats(t *testing.T) {
	ctx := context.Background()
	s, dev, sim := setup(t)

	_, err := dev.Sample(ctx)
	require.NoError(t, err)
	sim.Inject(hub.PedometerTotalSteps, hub.Fault{})
	_, err = dev.Sample(ctx)
	require.Error(t, err)

	out, err := s.Show(ctx, attr.Statistics)
	require.NoError(t, err)
	require.Contains(t, out, "samples: 1\n")
	require.Contains(t, out, "checkpoints: 0\n")
	require.Contains(t, out, "failures.transport_error: 1\n")
	require.Contains(t, out, "latency_p50: ")
}

func TestUnknownAttribute(t *testing.T) {
	ctx := context.Background()
	s, _, _ := setup(t)

	_, err := s.Show(ctx, "bogus")
	require.True(t, errors.IsKind(err, errors.InvalidInput))
	require.True(t, errors.IsKind(s.Store(ctx, "bogus", "1"), errors.InvalidInput))
}
