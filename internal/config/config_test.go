// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.
package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Azure/iot-operations-sdks/go/pedometer/errors"
	"github.com/Azure/iot-operations-sdks/go/pedometer/internal/config"
	"github.com/Azure/iot-operations-sdks/go/pedometer/pedometer"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	cfg, err := config.Load("", nil)
	require.NoError(t, err)
	require.Equal(t, config.Default(), *cfg)
	require.Equal(t, time.Duration(-1), cfg.SampleRate)
	require.Len(t, cfg.DeviceOptions(), 3)
}

func TestConnectionString(t *testing.T) {
	cfg, err := config.Load(
		"HostName=broker.local;TcpPort=8883;UseTls=True;ClientId=hub;"+
			"Username=ped;Password=secret;KeepAlive=PT2M;DeviceId=wrist;"+
			"FastestRate=PT0.5S;SampleRate=PT5S;WalkInterval=PT0.25S;QoS=0;"+
			"Profile=0x01,0x23,0xB2,0x5B;",
		nil,
	)
	require.NoError(t, err)

	require.Equal(t, "broker.local", cfg.HostName)
	require.Equal(t, 8883, cfg.TCPPort)
	require.True(t, cfg.UseTLS)
	require.Equal(t, "hub", cfg.ClientID)
	require.Equal(t, "ped", cfg.Username)
	require.Equal(t, []byte("secret"), cfg.Password)
	require.Equal(t, 2*time.Minute, cfg.KeepAlive)
	require.Equal(t, "wrist", cfg.DeviceID)
	require.Equal(t, 500*time.Millisecond, cfg.FastestRate)
	require.Equal(t, 5*time.Second, cfg.SampleRate)
	require.Equal(t, 250*time.Millisecond, cfg.WalkInterval)
	require.Equal(t, byte(0), cfg.QoS)
	require.Equal(t, &pedometer.Profile{
		Gender: pedometer.Male,
		Age:    35,
		Height: 178,
		Weight: 91,
	}, cfg.Profile)

	require.Len(t, cfg.ClientOptions(), 4)
	require.Len(t, cfg.DeviceOptions(), 4)

	var opts pedometer.Options
	opts.Apply(cfg.DeviceOptions())
	require.Equal(t, "wrist", opts.DeviceID)
	require.Equal(t, 5*time.Second, opts.Rate)
	require.Equal(t, cfg.Profile, opts.Profile)
}

func TestEnvironmentOverridesConnectionString(t *testing.T) {
	cfg, err := config.Load("HostName=a;TcpPort=1884;SampleRate=PT5S", []string{
		"PEDOMETER_HOST_NAME=b",
		"PEDOMETER_SAMPLE_RATE=disabled",
		"PEDOMETER_DEVICE_ID=ankle",
		"MQTT_TCP_PORT=9999",
		"PATH=/usr/bin",
	})
	require.NoError(t, err)
	require.Equal(t, "b", cfg.HostName)
	require.Equal(t, 1884, cfg.TCPPort)
	require.Equal(t, time.Duration(-1), cfg.SampleRate)
	require.Equal(t, "ankle", cfg.DeviceID)
}

func TestInvalidSettings(t *testing.T) {
	for name, connStr := range map[string]string{
		"TcpPort":     "TcpPort=http",
		"ZeroPort":    "TcpPort=0",
		"UseTls":      "UseTls=maybe",
		"QoS":         "QoS=2",
		"KeepAlive":   "KeepAlive=60",
		"FastestRate": "FastestRate=PT0S",
		"Profile":     "Profile=0x01,0x23",
		"DeviceId":    "DeviceId=",
		"HostName":    "HostName=",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := config.Load(connStr, nil)
			require.True(t, errors.IsKind(err, errors.ConfigurationInvalid))
		})
	}
}

func TestProvider(t *testing.T) {
	cfg := config.Default()
	provider, err := cfg.Provider()
	require.NoError(t, err)
	require.NotNil(t, provider)

	cfg.WebSocketURL = "wss://broker.local/mqtt"
	provider, err = cfg.Provider()
	require.NoError(t, err)
	require.NotNil(t, provider)

	cfg.UseTLS = true
	cfg.CAFile = filepath.Join(t.TempDir(), "missing.pem")
	_, err = cfg.Provider()
	require.True(t, errors.IsKind(err, errors.ConfigurationInvalid))

	require.NoError(t, os.WriteFile(cfg.CAFile, []byte("not a cert"), 0o600))
	_, err = cfg.Provider()
	require.True(t, errors.IsKind(err, errors.ConfigurationInvalid))
}
