// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.
package mqtt_test

import (
	"context"
	"testing"
	"time"

	"github.com/Azure/iot-operations-sdks/go/pedometer/errors"
	"github.com/Azure/iot-operations-sdks/go/pedometer/internal/broker"
	"github.com/Azure/iot-operations-sdks/go/pedometer/mqtt"
	"github.com/stretchr/testify/require"
)

const topicName = "pedometer/test/samples"

func connect(
	ctx context.Context,
	t *testing.T,
	provider mqtt.ConnectionProvider,
) *mqtt.Client {
	client := mqtt.NewClient(provider, mqtt.WithKeepAlive(10*time.Second))
	require.NoError(t, client.Connect(ctx))
	t.Cleanup(func() { _ = client.Disconnect() })
	return client
}

func TestPublishSubscribe(t *testing.T) {
	ctx := context.Background()
	b := broker.Start(t)

	providers := map[string]mqtt.ConnectionProvider{
		"tcp":       mqtt.TCPConnection(b.Host, b.Port),
		"websocket": mqtt.WebSocketConnection(b.WebSocketURL(), nil),
	}

	for name, provider := range providers {
		t.Run(name, func(t *testing.T) {
			client := connect(ctx, t, provider)

			received := make(chan *mqtt.Message, 1)
			_, err := client.Subscribe(
				ctx,
				"pedometer/+/samples",
				func(_ context.Context, msg *mqtt.Message) {
					received <- msg
				},
				mqtt.WithQoS(1),
			)
			require.NoError(t, err)

			require.NoError(t, client.Publish(
				ctx,
				topicName,
				[]byte("hello"),
				mqtt.WithQoS(1),
				mqtt.WithContentType("text/plain"),
				mqtt.WithCorrelationData([]byte{1, 2, 3}),
				mqtt.WithResponseTopic("pedometer/test/reply"),
				mqtt.WithUserProperties{"status": "200"},
			))

			select {
			case msg := <-received:
				require.Equal(t, topicName, msg.Topic)
				require.Equal(t, []byte("hello"), msg.Payload)
				require.Equal(t, "text/plain", msg.ContentType)
				require.Equal(t, []byte{1, 2, 3}, msg.CorrelationData)
				require.Equal(t, "pedometer/test/reply", msg.ResponseTopic)
				require.Equal(t, "200", msg.UserProperties["status"])
			case <-time.After(5 * time.Second):
				require.Fail(t, "message not received")
			}
		})
	}
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	ctx := context.Background()
	b := broker.Start(t)
	client := connect(ctx, t, mqtt.TCPConnection(b.Host, b.Port))

	received := make(chan struct{}, 4)
	unsubscribe, err := client.Subscribe(
		ctx,
		topicName,
		func(context.Context, *mqtt.Message) { received <- struct{}{} },
		mqtt.WithQoS(1),
	)
	require.NoError(t, err)
	require.NoError(t, unsubscribe(ctx))

	require.NoError(t, client.Publish(ctx, topicName, nil, mqtt.WithQoS(1)))

	select {
	case <-received:
		require.Fail(t, "message delivered after unsubscribe")
	case <-time.After(200 * time.Millisecond):
	}
}

func TestNotConnected(t *testing.T) {
	client := mqtt.NewClient(mqtt.TCPConnection("127.0.0.1", 1))

	err := client.Publish(context.Background(), topicName, nil)
	require.True(t, errors.IsKind(err, errors.StateInvalid))

	_, err = client.Subscribe(
		context.Background(),
		topicName,
		func(context.Context, *mqtt.Message) {},
	)
	require.True(t, errors.IsKind(err, errors.StateInvalid))
}

func TestPublishValidation(t *testing.T) {
	ctx := context.Background()
	b := broker.Start(t)
	client := connect(ctx, t, mqtt.TCPConnection(b.Host, b.Port))

	err := client.Publish(ctx, topicName, nil, mqtt.WithQoS(2))
	require.True(t, errors.IsKind(err, errors.InvalidInput))

	err = client.Publish(ctx, "pedometer/+/samples", nil)
	require.True(t, errors.IsKind(err, errors.InvalidInput))

	_, err = client.Subscribe(
		ctx,
		"pedometer/#/samples",
		func(context.Context, *mqtt.Message) {},
	)
	require.True(t, errors.IsKind(err, errors.InvalidInput))
}

func TestRandomClientID(t *testing.T) {
	id := mqtt.RandomClientID()
	require.Len(t, id, 23)
	require.Regexp(t, "^[0-9a-zA-Z]+$", id)

	client := mqtt.NewClient(nil, mqtt.WithClientID("wrist"))
	require.Equal(t, "wrist", client.ID())
}
