// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.
package telemetry

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/Azure/iot-operations-sdks/go/pedometer/counters"
)

type (
	// Fanout delivers samples to in-process subscribers over buffered
	// channels. A subscriber whose buffer is full misses the sample.
	Fanout struct {
		mu      sync.RWMutex
		next    int
		subs    map[int]chan counters.Set
		dropped atomic.Uint64
	}
)

// DefaultBuffer is the subscription buffer used when none is requested.
const DefaultBuffer = 16

// NewFanout creates an empty fan-out.
func NewFanout() *Fanout {
	return &Fanout{subs: map[int]chan counters.Set{}}
}

// Subscribe returns a channel receiving every subsequent sample, and a
// function that cancels the subscription and closes the channel.
func (f *Fanout) Subscribe(buffer int) (<-chan counters.Set, func()) {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	id := f.next
	f.next++
	ch := make(chan counters.Set, buffer)
	f.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			f.mu.Lock()
			defer f.mu.Unlock()
			delete(f.subs, id)
			close(ch)
		})
	}
}

// Push implements Pusher.
func (f *Fanout) Push(_ context.Context, sample counters.Set) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	for _, ch := range f.subs {
		select {
		case ch <- sample:
		default:
			f.dropped.Add(1)
		}
	}
}

// Dropped returns how many deliveries were skipped because a subscriber's
// buffer was full.
func (f *Fanout) Dropped() uint64 {
	return f.dropped.Load()
}
