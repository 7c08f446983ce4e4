// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.

// Package hub defines the sensor-hub coprocessor collaborators used by the
// pedometer: register access and panic notification.
package hub

import (
	"context"
	"encoding/binary"
	"fmt"
)

type (
	// Register identifies a coprocessor register.
	Register int

	// RegisterPort provides fixed-size register access to the coprocessor.
	RegisterPort interface {
		// ReadRegister returns the register contents together with the
		// register's declared size. Callers must check that the two agree.
		ReadRegister(ctx context.Context, reg Register) ([]byte, int, error)

		// WriteRegister writes data to the register. A nil mask writes every
		// bit.
		WriteRegister(
			ctx context.Context,
			reg Register,
			data []byte,
			mask []byte,
		) error
	}

	// PanicNotifier delivers coprocessor panic notifications. The returned
	// function unregisters the handler; no notification is delivered to the
	// handler once it returns.
	PanicNotifier interface {
		OnPanic(handler func(context.Context)) (func(), error)
	}
)

// Coprocessor registers used by the pedometer.
const (
	PedometerActivity Register = iota
	PedometerTotalDistance
	PedometerTotalSteps
	PedometerCurrentSpeed
	MetsHealthyMinutes
	MetsCalories
	MetsCaloriesNoRMR
	PedometerEnable
	MetsEnable
	UserAge
	UserGender
	UserHeight
	UserWeight
)

var registers = [...]struct {
	name string
	size int
}{
	PedometerActivity:      {"pedometer_activity", 1},
	PedometerTotalDistance: {"pedometer_total_distance", 4},
	PedometerTotalSteps:    {"pedometer_total_steps", 4},
	PedometerCurrentSpeed:  {"pedometer_current_speed", 2},
	MetsHealthyMinutes:     {"mets_healthy_minutes", 4},
	MetsCalories:           {"mets_calories", 4},
	MetsCaloriesNoRMR:      {"mets_calories_no_rmr", 4},
	PedometerEnable:        {"pedometer_enable", 1},
	MetsEnable:             {"mets_enable", 1},
	UserAge:                {"user_age", 1},
	UserGender:             {"user_gender", 1},
	UserHeight:             {"user_height", 1},
	UserWeight:             {"user_weight", 2},
}

// Registers lists every known register.
func Registers() []Register {
	regs := make([]Register, len(registers))
	for i := range registers {
		regs[i] = Register(i)
	}
	return regs
}

// Size returns the documented width of the register in bytes.
func (r Register) Size() int {
	if !r.valid() {
		return 0
	}
	return registers[r].size
}

func (r Register) String() string {
	if !r.valid() {
		return fmt.Sprintf("register(%d)", int(r))
	}
	return registers[r].name
}

// Decode interprets little-endian register contents. Data of a length other
// than 1, 2 or 4 bytes decodes to zero.
func (r Register) Decode(data []byte) uint32 {
	switch len(data) {
	case 1:
		return uint32(data[0])
	case 2:
		return uint32(binary.LittleEndian.Uint16(data))
	case 4:
		return binary.LittleEndian.Uint32(data)
	}
	return 0
}

// Encode renders v as little-endian register contents, truncated to the
// register's width.
func (r Register) Encode(v uint32) []byte {
	data := make([]byte, r.Size())
	put(data, v)
	return data
}

func put(b []byte, v uint32) {
	switch len(b) {
	case 1:
		b[0] = byte(v)
	case 2:
		binary.LittleEndian.PutUint16(b, uint16(v))
	case 4:
		binary.LittleEndian.PutUint32(b, v)
	}
}

func (r Register) valid() bool {
	return r >= 0 && int(r) < len(registers)
}
