// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.

// Package attr renders the pedometer control surface as named text
// attributes, preserving the fixed encodings of the legacy attribute files.
package attr

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"strings"

	"github.com/Azure/iot-operations-sdks/go/pedometer/counters"
	"github.com/Azure/iot-operations-sdks/go/pedometer/errors"
	"github.com/Azure/iot-operations-sdks/go/pedometer/internal/log"
	"github.com/Azure/iot-operations-sdks/go/pedometer/pedometer"
)

type (
	// Device is the structured control API the surface is layered on.
	Device interface {
		Rate() pedometer.Rate
		SetRate(ctx context.Context, requested int) (pedometer.Rate, error)
		Last() counters.Set
		ReadProfile(ctx context.Context) (pedometer.Profile, error)
		SetProfile(ctx context.Context, p pedometer.Profile) error
		FeatureEnabled() bool
		SetFeature(ctx context.Context, enable bool) error
		Stats() pedometer.Stats
	}

	// Surface maps attribute names to show and store operations.
	Surface struct {
		dev Device
		log log.Logger
	}

	attribute struct {
		show  func(*Surface, context.Context) (string, error)
		store func(*Surface, context.Context, string) error
	}
)

// Attribute names.
const (
	SetRate       = "setrate"
	IIOData       = "iiodata"
	UserData      = "userdata"
	FeatureEnable = "feature_enable"
	Statistics    = "stats"
)

// UserDataSize is the exact length of a userdata store, newline included.
const UserDataSize = 20

var attributes = map[string]attribute{
	SetRate:       {show: (*Surface).showRate, store: (*Surface).storeRate},
	IIOData:       {show: (*Surface).showData},
	UserData:      {show: (*Surface).showUser, store: (*Surface).storeUser},
	FeatureEnable: {show: (*Surface).showFeature, store: (*Surface).storeFeature},
	Statistics:    {show: (*Surface).showStats},
}

// New creates a text surface over the device.
func New(dev Device, logger *slog.Logger) *Surface {
	return &Surface{dev: dev, log: log.Wrap(logger)}
}

// Names lists the attributes in sorted order.
func Names() []string {
	names := make([]string, 0, len(attributes))
	for name := range attributes {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Writable reports whether the attribute accepts stores.
func Writable(name string) bool {
	return attributes[name].store != nil
}

// Show renders an attribute.
func (s *Surface) Show(ctx context.Context, name string) (string, error) {
	a, ok := attributes[name]
	if !ok {
		return "", unknown(name)
	}
	return a.show(s, ctx)
}

// Store parses and applies an attribute value. Malformed values are rejected
// with InvalidInput before any device I/O.
func (s *Surface) Store(ctx context.Context, name, value string) error {
	a, ok := attributes[name]
	if !ok {
		return unknown(name)
	}
	if a.store == nil {
		return &errors.Error{
			Message:      "attribute is read-only",
			Kind:         errors.InvalidInput,
			PropertyName: name,
		}
	}
	return a.store(s, ctx, value)
}

func (s *Surface) showRate(context.Context) (string, error) {
	return fmt.Sprintf("Current rate: %d\n", int(s.dev.Rate())), nil
}

func (s *Surface) storeRate(ctx context.Context, value string) error {
	rate, err := parseInt(SetRate, value)
	if err != nil {
		return err
	}
	_, err = s.dev.SetRate(ctx, rate)
	return err
}

func (s *Surface) showData(context.Context) (string, error) {
	d := s.dev.Last()

	var b strings.Builder
	fmt.Fprintf(&b, "ped_activity: %d\n", d.Activity)
	fmt.Fprintf(&b, "total_distance: %d\n", d.Distance)
	fmt.Fprintf(&b, "total_steps: %d\n", d.Steps)
	fmt.Fprintf(&b, "current_speed: %d\n", d.Speed)
	fmt.Fprintf(&b, "healthy_minutes: %d\n", d.HealthyMinutes)
	fmt.Fprintf(&b, "calories: %d\n", d.Calories)
	fmt.Fprintf(&b, "calories_normr: %d\n", d.CaloriesNoRMR)
	return b.String(), nil
}

// A failed read is rendered rather than returned, matching the legacy file.
func (s *Surface) showUser(ctx context.Context) (string, error) {
	p, err := s.dev.ReadProfile(ctx)
	if err != nil {
		s.log.Err(ctx, err, slog.String("attribute", UserData))
		return "Read failed (check logs)\n", nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Gender (M/F): %s\n", p.Gender)
	fmt.Fprintf(&b, "Age    (yrs): %d\n", p.Age)
	fmt.Fprintf(&b, "Height  (cm): %d\n", p.Height)
	fmt.Fprintf(&b, "Weight  (kg): %d\n", p.Weight)
	return b.String(), nil
}

func (s *Surface) storeUser(ctx context.Context, value string) error {
	p, err := ParseUserData(value)
	if err != nil {
		return err
	}
	return s.dev.SetProfile(ctx, p)
}

func (s *Surface) showFeature(context.Context) (string, error) {
	if s.dev.FeatureEnabled() {
		return "Enabled\n", nil
	}
	return "Disabled\n", nil
}

func (s *Surface) storeFeature(ctx context.Context, value string) error {
	v, err := parseInt(FeatureEnable, value)
	if err != nil {
		return err
	}
	return s.dev.SetFeature(ctx, v != 0)
}

func (s *Surface) showStats(context.Context) (string, error) {
	st := s.dev.Stats()

	var b strings.Builder
	fmt.Fprintf(&b, "samples: %d\n", st.Samples)
	fmt.Fprintf(&b, "checkpoints: %d\n", st.Checkpoints)

	kinds := make([]errors.Kind, 0, len(st.Failures))
	for k := range st.Failures {
		kinds = append(kinds, k)
	}
	slices.Sort(kinds)
	for _, k := range kinds {
		fmt.Fprintf(&b, "failures.%s: %d\n", k, st.Failures[k])
	}

	fmt.Fprintf(&b, "latency_p50: %s\n", st.LatencyP50)
	fmt.Fprintf(&b, "latency_p99: %s\n", st.LatencyP99)
	fmt.Fprintf(&b, "latency_max: %s\n", st.LatencyMax)
	return b.String(), nil
}

// ParseUserData decodes the fixed-width profile line "0xHH,0xHH,0xHH,0xHH\n"
// (gender, age, height, weight). Weight is a single byte in this encoding.
func ParseUserData(value string) (pedometer.Profile, error) {
	invalid := func(msg string) error {
		return &errors.Error{
			Message:       msg,
			Kind:          errors.InvalidInput,
			PropertyName:  UserData,
			PropertyValue: value,
		}
	}

	if len(value) != UserDataSize {
		return pedometer.Profile{}, invalid(
			`userdata must be exactly "0xHH,0xHH,0xHH,0xHH\n"`,
		)
	}

	var b [4]byte
	for i := range b {
		chunk := value[i*5 : i*5+4]
		sep := value[i*5+4]
		if (i < 3 && sep != ',') || (i == 3 && sep != '\n') {
			return pedometer.Profile{}, invalid("malformed userdata separator")
		}

		digits := strings.TrimPrefix(strings.TrimPrefix(chunk, "0x"), "0X")
		v, err := strconv.ParseUint(digits, 16, 32)
		if err != nil {
			return pedometer.Profile{}, invalid(
				fmt.Sprintf("userdata field %d is not hexadecimal", i),
			)
		}
		if v > 0xFF {
			return pedometer.Profile{}, invalid(
				fmt.Sprintf("userdata field %d exceeds one byte", i),
			)
		}
		b[i] = byte(v)
	}

	return pedometer.Profile{
		Gender: pedometer.Gender(b[0]),
		Age:    b[1],
		Height: b[2],
		Weight: uint16(b[3]),
	}, nil
}

// FormatUserData is the inverse of ParseUserData. Weights above one byte are
// truncated.
func FormatUserData(p pedometer.Profile) string {
	return fmt.Sprintf("0x%02X,0x%02X,0x%02X,0x%02X\n",
		byte(p.Gender), p.Age, p.Height, byte(p.Weight))
}

// Decimal integer with at most one trailing newline, as written by echo.
func parseInt(name, value string) (int, error) {
	v, err := strconv.Atoi(strings.TrimSuffix(value, "\n"))
	if err != nil {
		return 0, &errors.Error{
			Message:       "value is not a decimal integer",
			Kind:          errors.InvalidInput,
			NestedError:   err,
			PropertyName:  name,
			PropertyValue: value,
		}
	}
	return v, nil
}

func unknown(name string) error {
	return &errors.Error{
		Message:       "unknown attribute",
		Kind:          errors.InvalidInput,
		PropertyName:  "name",
		PropertyValue: name,
	}
}
