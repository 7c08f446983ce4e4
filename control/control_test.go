// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.
package control_test

import (
	"context"
	"testing"
	"time"

	"github.com/Azure/iot-operations-sdks/go/pedometer/attr"
	"github.com/Azure/iot-operations-sdks/go/pedometer/control"
	"github.com/Azure/iot-operations-sdks/go/pedometer/errors"
	"github.com/Azure/iot-operations-sdks/go/pedometer/hub"
	"github.com/Azure/iot-operations-sdks/go/pedometer/internal/broker"
	"github.com/Azure/iot-operations-sdks/go/pedometer/mqtt"
	"github.com/Azure/iot-operations-sdks/go/pedometer/pedometer"
	"github.com/Azure/iot-operations-sdks/go/pedometer/telemetry"
	"github.com/stretchr/testify/require"
)

const deviceID = "wrist"

type fixture struct {
	sim    *hub.Sim
	dev    *pedometer.Device
	mqtt   *mqtt.Client
	client *control.Client
}

func connect(ctx context.Context, t *testing.T, b broker.Broker) *mqtt.Client {
	client := mqtt.NewClient(mqtt.TCPConnection(b.Host, b.Port))
	require.NoError(t, client.Connect(ctx))
	t.Cleanup(func() { _ = client.Disconnect() })
	return client
}

func setup(ctx context.Context, t *testing.T) *fixture {
	b := broker.Start(t)
	f := &fixture{sim: hub.NewSim()}

	dev, err := pedometer.New(ctx, f.sim, telemetry.Multi{}, f.sim,
		pedometer.WithDeviceID(deviceID))
	require.NoError(t, err)
	t.Cleanup(dev.Close)
	f.dev = dev

	server, err := control.NewServer(
		connect(ctx, t, b),
		attr.New(dev, nil),
		control.WithTopicTokens{"deviceId": deviceID},
	)
	require.NoError(t, err)
	_, err = server.Start(ctx)
	require.NoError(t, err)

	f.mqtt = connect(ctx, t, b)
	f.client, err = control.NewClient(f.mqtt, control.WithTimeout(5*time.Second))
	require.NoError(t, err)
	_, err = f.client.Start(ctx)
	require.NoError(t, err)

	return f
}

func TestShowAndStore(t *testing.T) {
	ctx := context.Background()
	f := setup(ctx, t)

	out, err := f.client.Show(ctx, deviceID, attr.SetRate)
	require.NoError(t, err)
	require.Equal(t, "Current rate: -1\n", out)

	require.NoError(t, f.client.Store(ctx, deviceID, attr.SetRate, "4000\n"))
	require.Equal(t, pedometer.Rate(4000), f.dev.Rate())

	require.NoError(t, f.client.Store(ctx, deviceID, attr.UserData,
		"0x01,0x28,0xB4,0x50\n"))
	out, err = f.client.Show(ctx, deviceID, attr.UserData)
	require.NoError(t, err)
	require.Equal(t, "Gender (M/F): M\n"+
		"Age    (yrs): 40\n"+
		"Height  (cm): 180\n"+
		"Weight  (kg): 80\n", out)

	require.NoError(t, f.client.Store(ctx, deviceID, attr.FeatureEnable, "0"))
	out, err = f.client.Show(ctx, deviceID, attr.FeatureEnable)
	require.NoError(t, err)
	require.Equal(t, "Disabled\n", out)
}

func TestRemoteErrors(t *testing.T) {
	ctx := context.Background()
	f := setup(ctx, t)

	err := f.client.Store(ctx, deviceID, attr.SetRate, "40000")
	require.True(t, errors.IsKind(err, errors.InvalidInput))

	var e *errors.Error
	require.ErrorAs(t, err, &e)
	require.Equal(t, attr.SetRate, e.PropertyName)
	require.Equal(t, control.StatusBadRequest, e.PropertyValue)

	err = f.client.Store(ctx, deviceID, attr.IIOData, "1")
	require.True(t, errors.IsKind(err, errors.InvalidInput))

	_, err = f.client.Show(ctx, deviceID, "bogus")
	require.True(t, errors.IsKind(err, errors.InvalidInput))

	f.sim.Inject(hub.PedometerEnable, hub.Fault{})
	err = f.client.Store(ctx, deviceID, attr.FeatureEnable, "0")
	require.True(t, errors.IsKind(err, errors.TransportError))

	f.dev.Close()
	_, err = f.client.Show(ctx, deviceID, attr.SetRate)
	require.NoError(t, err)
	err = f.client.Store(ctx, deviceID, attr.SetRate, "1000")
	require.True(t, errors.IsKind(err, errors.StateInvalid))
}

func TestInvalidCorrelationData(t *testing.T) {
	ctx := context.Background()
	f := setup(ctx, t)

	received := make(chan *mqtt.Message, 1)
	_, err := f.mqtt.Subscribe(ctx, "raw/reply",
		func(_ context.Context, msg *mqtt.Message) { received <- msg },
		mqtt.WithQoS(1))
	require.NoError(t, err)

	require.NoError(t, f.mqtt.Publish(ctx,
		"pedometer/wrist/attr/setrate/show",
		nil,
		mqtt.WithQoS(1),
		mqtt.WithResponseTopic("raw/reply"),
		mqtt.WithCorrelationData([]byte("not-a-uuid")),
	))

	select {
	case msg := <-received:
		require.Equal(t, []byte("not-a-uuid"), msg.CorrelationData)
		require.Equal(t, "400", msg.UserProperties[control.StatusProperty])
		require.Equal(t, "correlation_data",
			msg.UserProperties[control.NameProperty])
		require.Empty(t, msg.Payload)
	case <-time.After(5 * time.Second):
		require.Fail(t, "response not received")
	}
}

func TestUnknownOperation(t *testing.T) {
	ctx := context.Background()
	f := setup(ctx, t)

	client, err := control.NewClient(f.mqtt,
		control.WithTopicPattern("pedometer/{deviceId}/attr/{name}/delete"),
		control.WithResponseTopicPrefix("other/replies"),
	)
	require.NoError(t, err)
	_, err = client.Start(ctx)
	require.NoError(t, err)

	// The pattern has no {op} token, so the request goes to .../delete.
	_, err = client.Show(ctx, deviceID, attr.SetRate)
	require.True(t, errors.IsKind(err, errors.InvalidInput))
}

func TestNoServerTimesOut(t *testing.T) {
	ctx := context.Background()
	f := setup(ctx, t)

	client, err := control.NewClient(f.mqtt,
		control.WithTimeout(200*time.Millisecond),
		control.WithResponseTopicPrefix("timeout/replies"),
	)
	require.NoError(t, err)
	_, err = client.Start(ctx)
	require.NoError(t, err)

	_, err = client.Show(ctx, "ankle", attr.SetRate)
	require.True(t, errors.IsKind(err, errors.Timeout))
}

func TestConfigurationErrors(t *testing.T) {
	surface := attr.New(nil, nil)

	_, err := control.NewServer(nil, surface)
	require.True(t, errors.IsKind(err, errors.ConfigurationInvalid))

	client := mqtt.NewClient(mqtt.TCPConnection("localhost", 1))
	_, err = control.NewServer(client, surface, control.WithTimeout(0))
	require.True(t, errors.IsKind(err, errors.ConfigurationInvalid))

	_, err = control.NewServer(client, surface,
		control.WithTopicPattern("pedometer/#"))
	require.True(t, errors.IsKind(err, errors.ConfigurationInvalid))

	_, err = control.NewClient(client,
		control.WithResponseTopicPrefix("bad/+/prefix"))
	require.True(t, errors.IsKind(err, errors.ConfigurationInvalid))
}
