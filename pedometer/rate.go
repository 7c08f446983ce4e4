// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.
package pedometer

import (
	"fmt"
	"math"
	"time"

	"github.com/Azure/iot-operations-sdks/go/pedometer/errors"
)

// Rate is a sample interval in milliseconds. Negative rates disable polling.
type Rate int16

// Sample rate limits.
const (
	RateDisabled Rate = -1
	RateMax      Rate = math.MaxInt16

	DefaultFastestRate Rate = 1000
)

// RateOf converts a duration to a rate. Negative durations disable polling.
func RateOf(d time.Duration) (Rate, error) {
	if d < 0 {
		return RateDisabled, nil
	}
	ms := d.Milliseconds()
	if ms > int64(RateMax) {
		return 0, &errors.Error{
			Message:       "sample rate out of range",
			Kind:          errors.ConfigurationInvalid,
			PropertyName:  "rate",
			PropertyValue: d,
		}
	}
	return Rate(ms), nil
}

// Enabled reports whether the rate arms polling.
func (r Rate) Enabled() bool {
	return r > 0
}

// Interval returns the rate as a duration.
func (r Rate) Interval() time.Duration {
	return time.Duration(r) * time.Millisecond
}

func (r Rate) String() string {
	if r < 0 {
		return "disabled"
	}
	return fmt.Sprintf("%dms", int(r))
}

// Clamp requested into the effective rate: negative disables, and anything
// up to fastest is raised to fastest.
func clamp(requested, fastest Rate) Rate {
	switch {
	case requested < 0:
		return RateDisabled
	case requested <= fastest:
		return fastest
	default:
		return requested
	}
}
