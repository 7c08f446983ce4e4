// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.

// Command pedometerctl reads and writes pedometer attributes over MQTT and
// watches published samples.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/Azure/iot-operations-sdks/go/pedometer/attr"
	"github.com/Azure/iot-operations-sdks/go/pedometer/control"
	"github.com/Azure/iot-operations-sdks/go/pedometer/internal/config"
	"github.com/Azure/iot-operations-sdks/go/pedometer/mqtt"
	"github.com/Azure/iot-operations-sdks/go/pedometer/telemetry"
	"github.com/lmittmann/tint"
	"golang.org/x/term"
)

func main() {
	c := flag.String("c", os.Getenv("PEDOMETER_CONNECTION_STRING"),
		"MQTT connection string (HostName=...;TcpPort=...)")
	d := flag.String("d", "", "device ID (default: from configuration)")
	show := flag.String("show", "", "attribute to show ("+
		strings.Join(attr.Names(), ", ")+")")
	store := flag.String("store", "", "attribute assignment, e.g. setrate=1000")
	w := flag.Bool("w", false, "watch published samples until interrupted")
	flag.Parse()

	slog.SetDefault(slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		NoColor: !term.IsTerminal(int(os.Stderr.Fd())),
	})))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	cfg := must(config.Load(*c, os.Environ()))
	deviceID := *d
	if deviceID == "" {
		deviceID = cfg.DeviceID
	}

	// Never reuse the daemon's client ID.
	client := mqtt.NewClient(must(cfg.Provider()),
		append(cfg.ClientOptions(), mqtt.WithClientID(""))...)
	check(client.Connect(ctx))
	defer func() { _ = client.Disconnect() }()

	if *show != "" || *store != "" {
		invoker := must(control.NewClient(client))
		must(invoker.Start(ctx))

		if *store != "" {
			name, value, ok := strings.Cut(*store, "=")
			if !ok {
				check(fmt.Errorf("-store must be name=value, got %q", *store))
			}
			// The legacy surface expects newline-terminated writes.
			if name == attr.UserData {
				value += "\n"
			}
			check(invoker.Store(ctx, deviceID, name, value))
		}
		if *show != "" {
			fmt.Print(must(invoker.Show(ctx, deviceID, *show)))
		}
	}

	if *w {
		receiver := must(telemetry.NewReceiver(client, print,
			telemetry.WithTopicTokens{"deviceId": deviceID},
			telemetry.WithQoS(1),
		))
		must(receiver.Start(ctx))
		<-ctx.Done()
	}
}

func print(_ context.Context, s *telemetry.Sample) error {
	fmt.Printf("%s %s steps=%d distance=%dcm calories=%d healthy=%dmin\n",
		s.Timestamp.Format(time.TimeOnly),
		s.DeviceID,
		s.Steps,
		s.Distance,
		s.Calories,
		s.HealthyMinutes,
	)
	return nil
}

func check(e error) {
	if e != nil {
		panic(e)
	}
}

func must[T any](t T, e error) T {
	check(e)
	return t
}
