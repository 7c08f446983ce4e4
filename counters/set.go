// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.

// Package counters holds the pedometer counter record and the accumulator that
// turns resettable coprocessor counters into monotonic totals.
package counters

import (
	"fmt"
	"log/slog"
	"time"
)

type (
	// Set is one pedometer sample. Distance, Steps, HealthyMinutes, Calories
	// and CaloriesNoRMR are monotonic; Activity and Speed are instantaneous.
	Set struct {
		Activity       uint8
		Distance       uint32
		Steps          uint32
		Speed          uint16
		HealthyMinutes uint32
		Calories       uint32
		CaloriesNoRMR  uint32
		Timestamp      time.Time
	}

	// Field identifies a monotonic counter within a Set.
	Field int
)

// The monotonic fields of a Set.
const (
	Distance Field = iota
	Steps
	HealthyMinutes
	Calories
	CaloriesNoRMR
)

// Fields lists every monotonic field in register order.
var Fields = [...]Field{Distance, Steps, HealthyMinutes, Calories, CaloriesNoRMR}

var fieldNames = [...]string{
	Distance:       "total_distance",
	Steps:          "total_steps",
	HealthyMinutes: "healthy_minutes",
	Calories:       "calories",
	CaloriesNoRMR:  "calories_normr",
}

func (f Field) String() string {
	if f >= 0 && int(f) < len(fieldNames) {
		return fieldNames[f]
	}
	return fmt.Sprintf("field(%d)", int(f))
}

// Get returns the value of a monotonic field.
func (s Set) Get(f Field) uint32 {
	return *s.ptr(f)
}

// Put stores the value of a monotonic field.
func (s *Set) Put(f Field, v uint32) {
	*s.ptr(f) = v
}

func (s *Set) ptr(f Field) *uint32 {
	switch f {
	case Distance:
		return &s.Distance
	case Steps:
		return &s.Steps
	case HealthyMinutes:
		return &s.HealthyMinutes
	case Calories:
		return &s.Calories
	case CaloriesNoRMR:
		return &s.CaloriesNoRMR
	default:
		panic(fmt.Sprintf("counters: invalid field %d", int(f)))
	}
}

// LogValue renders the monotonic fields as a slog group.
func (s Set) LogValue() slog.Value {
	attrs := make([]slog.Attr, 0, len(Fields))
	for _, f := range Fields {
		attrs = append(attrs, slog.Uint64(f.String(), uint64(s.Get(f))))
	}
	return slog.GroupValue(attrs...)
}
