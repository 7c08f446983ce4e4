// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.
package pedometer_test

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/Azure/iot-operations-sdks/go/pedometer/internal/wallclock"
)

type (
	// Wall clock whose time only moves when the test advances it. Timers
	// fire synchronously from Advance, in due order.
	manualClock struct {
		mu     sync.Mutex
		now    time.Time
		timers []*manualTimer
	}

	manualTimer struct {
		clock *manualClock
		due   time.Time
		f     func()
		done  bool
	}
)

func useManualClock(t *testing.T) *manualClock {
	c := &manualClock{now: time.Date(2026, 10, 18, 8, 0, 0, 0, time.UTC)}
	prev := wallclock.Instance
	wallclock.Instance = c
	t.Cleanup(func() { wallclock.Instance = prev })
	return c
}

func (c *manualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *manualClock) AfterFunc(d time.Duration, f func()) wallclock.Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &manualTimer{clock: c, due: c.now.Add(d), f: f}
	c.timers = append(c.timers, t)
	return t
}

func (c *manualClock) After(d time.Duration) <-chan time.Time {
	ch := make(chan time.Time, 1)
	c.AfterFunc(d, func() { ch <- c.Now() })
	return ch
}

func (c *manualClock) WithTimeoutCause(
	parent context.Context,
	timeout time.Duration,
	cause error,
) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancelCause(parent)
	t := c.AfterFunc(timeout, func() { cancel(cause) })
	return ctx, func() {
		t.Stop()
		cancel(context.Canceled)
	}
}

// Advance moves time forward, firing every timer that comes due on the way.
func (c *manualClock) Advance(d time.Duration) {
	c.mu.Lock()
	target := c.now.Add(d)
	c.mu.Unlock()

	for {
		c.mu.Lock()
		next := c.nextDue(target)
		if next == nil {
			c.now = target
			c.mu.Unlock()
			return
		}
		next.done = true
		if next.due.After(c.now) {
			c.now = next.due
		}
		c.mu.Unlock()

		next.f()
	}
}

// Pending returns the time until each live timer fires, soonest first.
func (c *manualClock) Pending() []time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()

	var pending []time.Duration
	for _, t := range c.timers {
		if !t.done {
			pending = append(pending, t.due.Sub(c.now))
		}
	}
	sort.Slice(pending, func(i, j int) bool { return pending[i] < pending[j] })
	return pending
}

// Timers returns every timer ever created, including stopped ones.
func (c *manualClock) Timers() []*manualTimer {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]*manualTimer(nil), c.timers...)
}

func (c *manualClock) nextDue(target time.Time) *manualTimer {
	var next *manualTimer
	for _, t := range c.timers {
		if t.done || t.due.After(target) {
			continue
		}
		if next == nil || t.due.Before(next.due) {
			next = t
		}
	}
	return next
}

func (t *manualTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	live := !t.done
	t.done = true
	return live
}
