// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.

// Command pedometerd runs a pedometer against a simulated sensor hub,
// publishing samples and serving the attribute surface over MQTT.
package main

import (
	"context"
	"flag"
	"log/slog"
	"math/rand/v2"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Azure/iot-operations-sdks/go/pedometer/attr"
	"github.com/Azure/iot-operations-sdks/go/pedometer/control"
	"github.com/Azure/iot-operations-sdks/go/pedometer/counters"
	"github.com/Azure/iot-operations-sdks/go/pedometer/hub"
	"github.com/Azure/iot-operations-sdks/go/pedometer/internal/config"
	"github.com/Azure/iot-operations-sdks/go/pedometer/mqtt"
	"github.com/Azure/iot-operations-sdks/go/pedometer/pedometer"
	"github.com/Azure/iot-operations-sdks/go/pedometer/telemetry"
	"github.com/lmittmann/tint"
	"golang.org/x/term"
)

func main() {
	connStr := flag.String("c", os.Getenv("PEDOMETER_CONNECTION_STRING"),
		"MQTT connection string (HostName=...;TcpPort=...)")
	verbose := flag.Bool("v", false, "log every sample")
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(tint.NewHandler(os.Stdout, &tint.Options{
		Level:      level,
		TimeFormat: time.TimeOnly,
		NoColor:    !term.IsTerminal(int(os.Stdout.Fd())),
	}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(
		context.Background(),
		os.Interrupt,
		syscall.SIGTERM,
	)
	defer stop()

	cfg := must(config.Load(*connStr, os.Environ()))

	client := mqtt.NewClient(
		must(cfg.Provider()),
		append(cfg.ClientOptions(), mqtt.WithLogger(logger))...,
	)
	check(client.Connect(ctx))
	defer func() { _ = client.Disconnect() }()

	// Announced panics reboot the simulated hub before the device
	// checkpoints, the same order a real coprocessor would see.
	sim := hub.NewSim()
	panics := must(hub.NewPanicListener(client, cfg.DeviceID, logger))
	must(panics.OnPanic(sim.Panic))
	must(panics.Start(ctx))

	fanout := telemetry.NewFanout()
	sender := must(telemetry.NewSender(
		client,
		telemetry.WithTopicTokens{"deviceId": cfg.DeviceID},
		telemetry.WithQoS(cfg.QoS),
		telemetry.WithLogger(logger),
	))
	defer sender.Close()

	dev := must(pedometer.New(
		ctx,
		sim,
		telemetry.Multi{fanout, sender},
		panics,
		append(cfg.DeviceOptions(), pedometer.WithLogger(logger))...,
	))
	// Deferred last so it runs first: no tick may push into a closed sender.
	defer dev.Close()

	server := must(control.NewServer(
		client,
		attr.New(dev, logger),
		control.WithTopicTokens{"deviceId": cfg.DeviceID},
		control.WithLogger(logger),
	))
	must(server.Start(ctx))

	samples, unsubscribe := fanout.Subscribe(telemetry.DefaultBuffer)
	defer unsubscribe()
	go watch(samples)

	if cfg.WalkInterval > 0 {
		go walk(ctx, sim, cfg.WalkInterval)
	}

	slog.Info("pedometer running",
		slog.String("device_id", cfg.DeviceID),
		slog.String("client_id", client.ID()),
		slog.String("rate", dev.Rate().String()),
	)

	select {
	case <-ctx.Done():
		slog.Info("shutting down")
	case <-client.Lost():
		slog.Error("MQTT connection lost")
	}
}

// Simulates a wearer taking a few steps every interval.
func walk(ctx context.Context, sim *hub.Sim, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			// #nosec G404
			sim.Walk(uint32(rand.IntN(4)))
		}
	}
}

func watch(samples <-chan counters.Set) {
	for s := range samples {
		slog.Debug("sample", slog.Any("sample", s))
	}
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
