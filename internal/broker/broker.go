// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.

// Package broker runs an in-process MQTT broker for tests.
package broker

import (
	"fmt"
	"net"
	"testing"

	mochi "github.com/mochi-mqtt/server/v2"
	"github.com/mochi-mqtt/server/v2/hooks/auth"
	"github.com/mochi-mqtt/server/v2/listeners"
	"github.com/stretchr/testify/require"
)

// Broker describes a running test broker.
type Broker struct {
	Host   string
	Port   int
	WSPort int
}

// WebSocketURL returns the ws:// URL of the broker's WebSocket listener.
func (b Broker) WebSocketURL() string {
	return fmt.Sprintf("ws://%s:%d/", b.Host, b.WSPort)
}

// Start serves an allow-all broker with TCP and WebSocket listeners until the
// test ends.
func Start(t testing.TB) Broker {
	t.Helper()

	b := Broker{Host: "127.0.0.1", Port: freePort(t), WSPort: freePort(t)}

	server := mochi.New(nil)
	require.NoError(t, server.AddHook(new(auth.AllowHook), nil))

	require.NoError(t, server.AddListener(listeners.NewTCP(listeners.Config{
		ID:      "tcp",
		Type:    "tcp",
		Address: net.JoinHostPort(b.Host, fmt.Sprint(b.Port)),
	})))
	require.NoError(t, server.AddListener(listeners.NewWebsocket(
		listeners.Config{
			ID:      "ws",
			Type:    "ws",
			Address: net.JoinHostPort(b.Host, fmt.Sprint(b.WSPort)),
		},
	)))

	require.NoError(t, server.Serve())
	t.Cleanup(func() { _ = server.Close() })
	return b
}

func freePort(t testing.TB) int {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port
}
