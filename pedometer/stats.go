// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.
package pedometer

import (
	"time"

	"github.com/Azure/iot-operations-sdks/go/pedometer/errors"
	"github.com/HdrHistogram/hdrhistogram-go"
)

// Stats summarizes sampling cycles since the device was attached.
type Stats struct {
	Samples     int64
	Failures    map[errors.Kind]int64
	Checkpoints int64

	// Latency of successful cycles, at microsecond resolution.
	LatencyP50 time.Duration
	LatencyP99 time.Duration
	LatencyMax time.Duration
}

// Cycles longer than a minute are recorded as a minute.
const maxLatency = int64(time.Minute / time.Microsecond)

type stats struct {
	latency     *hdrhistogram.Histogram
	failures    map[errors.Kind]int64
	checkpoints int64
}

func newStats() *stats {
	return &stats{
		latency:  hdrhistogram.New(1, maxLatency, 3),
		failures: map[errors.Kind]int64{},
	}
}

func (s *stats) success(d time.Duration) {
	us := min(max(d.Microseconds(), 1), maxLatency)
	_ = s.latency.RecordValue(us)
}

func (s *stats) failure(err error) {
	s.failures[errors.KindOf(err)]++
}

func (s *stats) checkpoint() {
	s.checkpoints++
}

func (s *stats) snapshot() Stats {
	failures := make(map[errors.Kind]int64, len(s.failures))
	for k, v := range s.failures {
		failures[k] = v
	}
	us := func(v int64) time.Duration {
		return time.Duration(v) * time.Microsecond
	}
	st := Stats{
		Samples:     s.latency.TotalCount(),
		Failures:    failures,
		Checkpoints: s.checkpoints,
	}
	if st.Samples > 0 {
		st.LatencyP50 = us(s.latency.ValueAtQuantile(50))
		st.LatencyP99 = us(s.latency.ValueAtQuantile(99))
		st.LatencyMax = us(s.latency.Max())
	}
	return st
}

// Stats returns a snapshot of the cycle statistics.
func (d *Device) Stats() Stats {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.stats.snapshot()
}
