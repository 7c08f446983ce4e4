// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.
package hub

import (
	"context"
	stderr "errors"
	"fmt"
	"sync"

	"github.com/Azure/iot-operations-sdks/go/pedometer/errors"
	"github.com/Azure/iot-operations-sdks/go/pedometer/internal/container"
)

type (
	// Sim is an in-memory coprocessor. It backs the daemon when no hardware
	// transport is attached and gives tests control over register contents,
	// faults and panics.
	Sim struct {
		mu       sync.Mutex
		regs     map[Register][]byte
		faults   map[Register]Fault
		reads    map[Register]int
		writes   map[Register]int
		handlers container.List[func(context.Context)]
	}

	// Fault is a one-shot failure injected into the next access of a
	// register.
	Fault struct {
		// Err is returned from the access if non-nil.
		Err error

		// Short truncates the data returned by the next read to this many
		// bytes when Err is nil.
		Short int
	}
)

// ErrBus is the transport error returned for injected faults that do not
// specify their own error.
var ErrBus = stderr.New("sensor hub bus fault")

// Distance (cm) and calories (cal) credited per simulated step.
const (
	strideCM        = 76
	calPerStep      = 40
	calNoRMRPerStep = 32
	stepsPerMinute  = 100
)

// NewSim creates a simulated coprocessor in its power-on state.
func NewSim() *Sim {
	s := &Sim{
		faults: map[Register]Fault{},
		reads:  map[Register]int{},
		writes: map[Register]int{},
	}
	s.powerOn()
	return s
}

// powerOn zeroes every register and enables measurement, which is what the
// coprocessor firmware does after a reboot.
func (s *Sim) powerOn() {
	s.regs = make(map[Register][]byte, len(registers))
	for _, r := range Registers() {
		s.regs[r] = make([]byte, r.Size())
	}
	s.regs[PedometerEnable][0] = 1
	s.regs[MetsEnable][0] = 1
}

// ReadRegister implements RegisterPort.
func (s *Sim) ReadRegister(
	ctx context.Context,
	reg Register,
) ([]byte, int, error) {
	if err := errors.Context(ctx, "register read"); err != nil {
		return nil, 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	val, ok := s.regs[reg]
	if !ok {
		return nil, 0, fmt.Errorf("unknown register %s", reg)
	}
	s.reads[reg]++

	data := append([]byte(nil), val...)
	if f, ok := s.takeFault(reg); ok {
		if f.Err != nil {
			return nil, reg.Size(), f.Err
		}
		data = data[:min(f.Short, len(data))]
	}
	return data, reg.Size(), nil
}

// WriteRegister implements RegisterPort.
func (s *Sim) WriteRegister(
	ctx context.Context,
	reg Register,
	data []byte,
	mask []byte,
) error {
	if err := errors.Context(ctx, "register write"); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	val, ok := s.regs[reg]
	if !ok {
		return fmt.Errorf("unknown register %s", reg)
	}
	s.writes[reg]++

	if f, ok := s.takeFault(reg); ok && f.Err != nil {
		return f.Err
	}
	if len(data) != len(val) {
		return fmt.Errorf(
			"write of %d bytes to %d-byte register %s",
			len(data),
			len(val),
			reg,
		)
	}

	for i := range val {
		m := byte(0xFF)
		if mask != nil && i < len(mask) {
			m = mask[i]
		}
		val[i] = val[i]&^m | data[i]&m
	}
	return nil
}

// OnPanic implements PanicNotifier.
func (s *Sim) OnPanic(handler func(context.Context)) (func(), error) {
	if handler == nil {
		return nil, &errors.Error{
			Message:      "panic handler must not be nil",
			Kind:         errors.InvalidInput,
			PropertyName: "handler",
		}
	}
	return s.handlers.Append(handler), nil
}

// Panic resets the coprocessor and then notifies every registered handler, so
// settings the handlers restore survive the reset.
func (s *Sim) Panic(ctx context.Context) {
	s.mu.Lock()
	s.powerOn()
	s.mu.Unlock()

	for h := range s.handlers.Snapshot() {
		h(ctx)
	}
}

// Walk credits the given number of steps if measurement is enabled.
func (s *Sim) Walk(steps uint32) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.regs[PedometerEnable][0] == 0 {
		return
	}

	s.add(PedometerTotalSteps, steps)
	s.add(PedometerTotalDistance, steps*strideCM)

	// Activity 1 is walking; speed is in cm/s.
	activity, speed := byte(0), uint16(0)
	if steps > 0 {
		activity, speed = 1, 134
	}
	s.regs[PedometerActivity][0] = activity
	put(s.regs[PedometerCurrentSpeed], uint32(speed))

	if s.regs[MetsEnable][0] == 0 {
		return
	}
	s.add(MetsCalories, steps*calPerStep/100)
	s.add(MetsCaloriesNoRMR, steps*calNoRMRPerStep/100)
	if s.get(PedometerTotalSteps)/stepsPerMinute > s.get(MetsHealthyMinutes) {
		s.add(MetsHealthyMinutes, 1)
	}
}

// Set overwrites a register with a little-endian value.
func (s *Sim) Set(reg Register, v uint32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	put(s.regs[reg], v)
}

// Get returns a register as a little-endian value.
func (s *Sim) Get(reg Register) uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.get(reg)
}

// Inject arms a one-shot fault on the next access of reg. A zero Fault
// injects ErrBus.
func (s *Sim) Inject(reg Register, f Fault) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if f.Err == nil && f.Short == 0 {
		f.Err = ErrBus
	}
	s.faults[reg] = f
}

// Reads returns how many times reg has been read.
func (s *Sim) Reads(reg Register) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reads[reg]
}

// Writes returns how many times reg has been written.
func (s *Sim) Writes(reg Register) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writes[reg]
}

func (s *Sim) takeFault(reg Register) (Fault, bool) {
	f, ok := s.faults[reg]
	if ok {
		delete(s.faults, reg)
	}
	return f, ok
}

func (s *Sim) add(reg Register, n uint32) {
	put(s.regs[reg], s.get(reg)+n)
}

func (s *Sim) get(reg Register) uint32 {
	return reg.Decode(s.regs[reg])
}
