// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.

// Package config resolves the daemon configuration from a connection string
// and PEDOMETER_* environment variables.
package config

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/Azure/iot-operations-sdks/go/pedometer/attr"
	"github.com/Azure/iot-operations-sdks/go/pedometer/errors"
	"github.com/Azure/iot-operations-sdks/go/pedometer/mqtt"
	"github.com/Azure/iot-operations-sdks/go/pedometer/pedometer"
	"github.com/sosodev/duration"
)

// Config is the resolved daemon configuration.
type Config struct {
	HostName     string
	TCPPort      int
	UseTLS       bool
	CAFile       string
	WebSocketURL string
	ClientID     string
	Username     string
	Password     []byte
	KeepAlive    time.Duration

	DeviceID     string
	FastestRate  time.Duration
	SampleRate   time.Duration
	WalkInterval time.Duration
	QoS          byte
	Profile      *pedometer.Profile
}

const envPrefix = "PEDOMETER_"

// Default returns the configuration used for unset settings. Polling starts
// disabled.
func Default() Config {
	return Config{
		HostName:     "localhost",
		TCPPort:      1883,
		KeepAlive:    60 * time.Second,
		DeviceID:     "pedometer",
		FastestRate:  pedometer.DefaultFastestRate.Interval(),
		SampleRate:   -1,
		WalkInterval: time.Second,
		QoS:          1,
	}
}

// Load applies the connection string and then the environment over the
// defaults. Either may be empty.
//
// Connection string example:
// HostName=localhost;TcpPort=1883;UseTls=false;ClientId=hub;KeepAlive=PT60S.
//
// Environment variable example:
// PEDOMETER_HOST_NAME=localhost
// PEDOMETER_SAMPLE_RATE=PT5S.
func Load(connStr string, environ []string) (*Config, error) {
	cfg := Default()
	if err := cfg.apply(fromConnectionString(connStr)); err != nil {
		return nil, err
	}
	if err := cfg.apply(fromEnv(environ)); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Keys are lower-cased with underscores removed, so "TcpPort" and
// "PEDOMETER_TCP_PORT" both become "tcpport".
func fromConnectionString(connStr string) map[string]string {
	settings := map[string]string{}
	for _, param := range strings.Split(strings.TrimSuffix(connStr, ";"), ";") {
		k, v, ok := strings.Cut(param, "=")
		if ok {
			settings[normalize(k)] = strings.TrimSpace(v)
		}
	}
	return settings
}

func fromEnv(environ []string) map[string]string {
	settings := map[string]string{}
	for _, env := range environ {
		k, v, ok := strings.Cut(env, "=")
		if ok && strings.HasPrefix(k, envPrefix) {
			settings[normalize(strings.TrimPrefix(k, envPrefix))] =
				strings.TrimSpace(v)
		}
	}
	return settings
}

func normalize(key string) string {
	return strings.ToLower(strings.ReplaceAll(strings.TrimSpace(key), "_", ""))
}

func (c *Config) apply(settings map[string]string) error {
	assign(settings, "hostname", &c.HostName)
	assign(settings, "cafile", &c.CAFile)
	assign(settings, "websocketurl", &c.WebSocketURL)
	assign(settings, "clientid", &c.ClientID)
	assign(settings, "username", &c.Username)
	assign(settings, "deviceid", &c.DeviceID)
	if v, ok := settings["password"]; ok {
		c.Password = []byte(v)
	}

	if v, ok := settings["tcpport"]; ok {
		port, err := strconv.ParseUint(v, 10, 16)
		if err != nil || port == 0 {
			return invalid("TcpPort", v, err)
		}
		c.TCPPort = int(port)
	}

	if v, ok := settings["usetls"]; ok {
		useTLS, err := strconv.ParseBool(v)
		if err != nil {
			return invalid("UseTls", v, err)
		}
		c.UseTLS = useTLS
	}

	if v, ok := settings["qos"]; ok {
		qos, err := strconv.ParseUint(v, 10, 8)
		if err != nil || qos > 1 {
			return invalid("QoS", v, err)
		}
		c.QoS = byte(qos)
	}

	durations := []struct {
		key  string
		name string
		dst  *time.Duration
	}{
		{"keepalive", "KeepAlive", &c.KeepAlive},
		{"fastestrate", "FastestRate", &c.FastestRate},
		{"samplerate", "SampleRate", &c.SampleRate},
		{"walkinterval", "WalkInterval", &c.WalkInterval},
	}
	for _, d := range durations {
		v, ok := settings[d.key]
		if !ok {
			continue
		}
		if d.key == "samplerate" && strings.EqualFold(v, "disabled") {
			*d.dst = -1
			continue
		}
		parsed, err := duration.Parse(v)
		if err != nil {
			return invalid(d.name, v, err)
		}
		*d.dst = parsed.ToTimeDuration()
	}

	if v, ok := settings["profile"]; ok {
		p, err := attr.ParseUserData(v + "\n")
		if err != nil {
			return invalid("Profile", v, err)
		}
		c.Profile = &p
	}

	return c.validate()
}

func (c *Config) validate() error {
	switch {
	case c.HostName == "" && c.WebSocketURL == "":
		return invalid("HostName", c.HostName, nil)
	case c.DeviceID == "":
		return invalid("DeviceId", c.DeviceID, nil)
	case c.FastestRate <= 0:
		return invalid("FastestRate", c.FastestRate, nil)
	case c.WalkInterval < 0:
		return invalid("WalkInterval", c.WalkInterval, nil)
	}
	return nil
}

// Provider returns the MQTT connection provider for the configuration. A
// WebSocket URL takes precedence over the TCP settings.
func (c *Config) Provider() (mqtt.ConnectionProvider, error) {
	var tlsConfig *tls.Config
	if c.UseTLS || strings.HasPrefix(c.WebSocketURL, "wss://") {
		tlsConfig = &tls.Config{MinVersion: tls.VersionTLS12}
		if c.CAFile != "" {
			pem, err := os.ReadFile(c.CAFile)
			if err != nil {
				return nil, invalid("CaFile", c.CAFile, err)
			}
			pool := x509.NewCertPool()
			if !pool.AppendCertsFromPEM(pem) {
				return nil, invalid("CaFile", c.CAFile, nil)
			}
			tlsConfig.RootCAs = pool
		}
	}

	switch {
	case c.WebSocketURL != "":
		return mqtt.WebSocketConnection(c.WebSocketURL, tlsConfig), nil
	case c.UseTLS:
		return mqtt.TLSConnection(c.HostName, c.TCPPort, tlsConfig), nil
	default:
		return mqtt.TCPConnection(c.HostName, c.TCPPort), nil
	}
}

// ClientOptions returns the MQTT client options for the configuration.
func (c *Config) ClientOptions() []mqtt.ClientOption {
	opts := []mqtt.ClientOption{
		mqtt.WithClientID(c.ClientID),
		mqtt.WithKeepAlive(c.KeepAlive),
	}
	if c.Username != "" {
		opts = append(opts, mqtt.WithUsername(c.Username))
	}
	if c.Password != nil {
		opts = append(opts, mqtt.WithPassword(c.Password))
	}
	return opts
}

// DeviceOptions returns the pedometer options for the configuration.
func (c *Config) DeviceOptions() []pedometer.Option {
	opts := []pedometer.Option{
		pedometer.WithDeviceID(c.DeviceID),
		pedometer.WithFastestRate(c.FastestRate),
		pedometer.WithRate(c.SampleRate),
	}
	if c.Profile != nil {
		opts = append(opts, pedometer.WithProfile(*c.Profile))
	}
	return opts
}

func invalid(name string, value any, err error) error {
	return &errors.Error{
		Message:       fmt.Sprintf("invalid %s", name),
		Kind:          errors.ConfigurationInvalid,
		NestedError:   err,
		PropertyName:  name,
		PropertyValue: value,
	}
}

func assign(settings map[string]string, key string, dst *string) {
	if v, ok := settings[key]; ok {
		*dst = v
	}
}
