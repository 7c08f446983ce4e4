// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.
package telemetry

import (
	"encoding/json"
	"time"

	"github.com/Azure/iot-operations-sdks/go/pedometer/counters"
	"github.com/Azure/iot-operations-sdks/go/pedometer/errors"
	"github.com/google/uuid"
	"github.com/relvacode/iso8601"
)

type (
	// Record is the wire form of a published sample.
	Record struct {
		ID             uuid.UUID `json:"id"`
		Timestamp      string    `json:"timestamp"`
		Activity       uint8     `json:"ped_activity"`
		TotalDistance  uint32    `json:"total_distance"`
		TotalSteps     uint32    `json:"total_steps"`
		CurrentSpeed   uint16    `json:"current_speed"`
		HealthyMinutes uint32    `json:"healthy_minutes"`
		Calories       uint32    `json:"calories"`
		CaloriesNoRMR  uint32    `json:"calories_normr"`
	}

	// Sample is a received sample.
	Sample struct {
		ID       uuid.UUID
		DeviceID string
		counters.Set
	}
)

// ContentType of encoded records.
const ContentType = "application/json"

// NewRecord builds the wire form of a sample with a fresh time-ordered ID.
func NewRecord(s counters.Set) (*Record, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return nil, errors.Normalize(err, "sample id")
	}
	return &Record{
		ID:             id,
		Timestamp:      s.Timestamp.UTC().Format(time.RFC3339Nano),
		Activity:       s.Activity,
		TotalDistance:  s.Distance,
		TotalSteps:     s.Steps,
		CurrentSpeed:   s.Speed,
		HealthyMinutes: s.HealthyMinutes,
		Calories:       s.Calories,
		CaloriesNoRMR:  s.CaloriesNoRMR,
	}, nil
}

// Encode serializes the record.
func (r *Record) Encode() ([]byte, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return nil, &errors.Error{
			Message:     "cannot serialize sample",
			Kind:        errors.InvalidInput,
			NestedError: err,
		}
	}
	return data, nil
}

// DecodeRecord parses an encoded record. Timestamps are accepted in any
// ISO 8601 form.
func DecodeRecord(data []byte) (*Sample, error) {
	var r Record
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, &errors.Error{
			Message:     "cannot deserialize sample",
			Kind:        errors.InvalidInput,
			NestedError: err,
		}
	}

	ts, err := iso8601.ParseString(r.Timestamp)
	if err != nil {
		return nil, &errors.Error{
			Message:       "invalid sample timestamp",
			Kind:          errors.InvalidInput,
			NestedError:   err,
			PropertyName:  "timestamp",
			PropertyValue: r.Timestamp,
		}
	}

	return &Sample{
		ID: r.ID,
		Set: counters.Set{
			Activity:       r.Activity,
			Distance:       r.TotalDistance,
			Steps:          r.TotalSteps,
			Speed:          r.CurrentSpeed,
			HealthyMinutes: r.HealthyMinutes,
			Calories:       r.Calories,
			CaloriesNoRMR:  r.CaloriesNoRMR,
			Timestamp:      ts,
		},
	}, nil
}
