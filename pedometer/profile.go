// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.
package pedometer

import (
	"context"
	"log/slog"

	"github.com/Azure/iot-operations-sdks/go/pedometer/hub"
)

type (
	// Gender of the user. Any non-zero value is treated as male by the
	// coprocessor.
	Gender uint8

	// Profile holds the biometric parameters the coprocessor uses to derive
	// distance and calories.
	Profile struct {
		Age    uint8  // years
		Gender Gender
		Height uint8  // cm
		Weight uint16 // kg
	}
)

// Genders.
const (
	Female Gender = 0
	Male   Gender = 1
)

// DefaultProfile is used until a profile is set.
var DefaultProfile = Profile{Age: 35, Gender: Male, Height: 178, Weight: 91}

func (g Gender) String() string {
	if g == Female {
		return "F"
	}
	return "M"
}

// LogValue renders the profile as a slog group.
func (p Profile) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("age", int(p.Age)),
		slog.String("gender", p.Gender.String()),
		slog.Int("height", int(p.Height)),
		slog.Int("weight", int(p.Weight)),
	)
}

func (p Profile) registers() []struct {
	reg hub.Register
	val uint32
} {
	return []struct {
		reg hub.Register
		val uint32
	}{
		{hub.UserAge, uint32(p.Age)},
		{hub.UserGender, uint32(p.Gender)},
		{hub.UserHeight, uint32(p.Height)},
		{hub.UserWeight, uint32(p.Weight)},
	}
}

// Writes the profile one register at a time, stopping at the first failure.
// Callers hold d.mu.
func (d *Device) writeProfile(ctx context.Context, p Profile) error {
	for _, r := range p.registers() {
		if err := d.write(ctx, r.reg, r.reg.Encode(r.val)); err != nil {
			return err
		}
	}
	return nil
}

// Callers hold d.mu.
func (d *Device) readProfile(ctx context.Context) (Profile, error) {
	var vals [4]uint32
	for i, r := range (Profile{}).registers() {
		v, err := d.read(ctx, r.reg)
		if err != nil {
			return Profile{}, err
		}
		vals[i] = v
	}
	return Profile{
		Age:    uint8(vals[0]),
		Gender: Gender(vals[1]),
		Height: uint8(vals[2]),
		Weight: uint16(vals[3]),
	}, nil
}
