// Package crank drives the emulated chip from the turning engine.
//
// The Scheduler converts wall-clock steps into a crank-angle sweep and a
// cycle budget. Crank-angle boundaries (the reset pulse, the start and
// end of coil dwell and the cylinder rollover) are applied to the chip
// at the machine cycle the crank reaches them, so the firmware sees the
// signals at the same instruction boundaries however the wall-clock time
// is split into calls.
package crank

import (
	"fmt"
	"math"

	"github.com/go-logr/logr"
	"github.com/rs/xid"

	"github.com/sarchlab/klrsim/emu"
	"github.com/sarchlab/klrsim/engine"
)

// MaxEvents is the number of crank events a Scheduler keeps.
const MaxEvents = 256

// Event is a crank-angle boundary that was crossed.
type Event struct {
	Signal Signal  `json:"signal" yaml:"signal"`
	Angle  float64 `json:"angle" yaml:"angle"`
	// Cycle is the chip cycle count when the signal was applied. It can
	// trail Scheduled by the overrun of the last instruction.
	Cycle     uint64 `json:"cycle" yaml:"cycle"`
	Scheduled uint64 `json:"scheduled" yaml:"scheduled"`
}

// EngineState is the engine state together with the crank position.
type EngineState struct {
	engine.State `yaml:",inline"`

	CrankAngle float64 `json:"crank_angle" yaml:"crank_angle"`
	Cycles     uint64  `json:"cycles" yaml:"cycles"`
	// ResidualTime is the simulated time, in seconds, not yet run
	// because it was shorter than one machine cycle.
	ResidualTime float64 `json:"residual_time" yaml:"residual_time"`
}

// SchedulerOption configures a Scheduler.
type SchedulerOption func(*Scheduler)

// WithLogger sets the logger. Crossed boundaries are logged at V(2).
func WithLogger(log logr.Logger) SchedulerOption {
	return func(s *Scheduler) {
		s.log = log
	}
}

// WithEventHandler registers a function called for every crossed
// boundary, after its action has been applied.
func WithEventHandler(fn func(Event)) SchedulerOption {
	return func(s *Scheduler) {
		s.onEvent = fn
	}
}

// Scheduler advances the engine, the crank and the chip together.
type Scheduler struct {
	emu     *emu.Emulator
	harness *Harness
	engine  engine.Provider
	config  *Config
	clock   float64
	log     logr.Logger
	session xid.ID
	onEvent func(Event)

	angle     float64
	lastFired int     // priority index of the last boundary fired at angle, or -1
	residual  float64 // fractional cycles
	position  uint64  // crank clock in cycles
	debt      uint64  // cycles the chip has run past position
	events    []Event
}

// NewScheduler creates a scheduler. The cycle rate is taken from the
// emulator's latency table. The harness must be the emulator's
// IOHandler. A nil config uses DefaultConfig.
func NewScheduler(
	e *emu.Emulator,
	h *Harness,
	provider engine.Provider,
	config *Config,
	opts ...SchedulerOption,
) (*Scheduler, error) {
	if e == nil || h == nil || provider == nil {
		return nil, fmt.Errorf("crank scheduler needs an emulator, a harness and an engine")
	}
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid crank config: %w", err)
	}
	if chip := e.Latency().Config(); *chip != *config.Timing {
		return nil, fmt.Errorf("crank timing %+v does not match the emulator's %+v",
			*config.Timing, *chip)
	}

	s := &Scheduler{
		emu:       e,
		harness:   h,
		engine:    provider,
		config:    config.Clone(),
		clock:     e.Latency().CyclesPerSecond(),
		log:       logr.Discard(),
		session:   xid.New(),
		angle:     config.StartAngle,
		lastFired: -1,
	}
	for _, opt := range opts {
		opt(s)
	}

	h.SetClock(e.Cycles)
	s.log = s.log.WithValues("session", s.session.String())

	return s, nil
}

// Session returns the id that tags this scheduler's log lines.
func (s *Scheduler) Session() xid.ID {
	return s.session
}

// Config returns a copy of the crank configuration.
func (s *Scheduler) Config() *Config {
	return s.config.Clone()
}

// Angle returns the crank angle in degrees.
func (s *Scheduler) Angle() float64 {
	return s.angle
}

// Position returns the number of whole cycles the crank clock has run.
func (s *Scheduler) Position() uint64 {
	return s.position
}

// Events returns a copy of the kept events, oldest first.
func (s *Scheduler) Events() []Event {
	return append([]Event(nil), s.events...)
}

// TakeEvents returns the kept events and forgets them.
func (s *Scheduler) TakeEvents() []Event {
	events := s.events
	s.events = nil
	return events
}

// State returns the engine state and crank position.
func (s *Scheduler) State() EngineState {
	return EngineState{
		State:        s.engine.State(),
		CrankAngle:   s.angle,
		Cycles:       s.emu.Cycles(),
		ResidualTime: s.residual / s.clock,
	}
}

// Reset resets the chip, drives both test inputs low and puts the crank
// back at its start angle. The engine is left as it is.
func (s *Scheduler) Reset() {
	s.emu.Reset()
	s.harness.SetT0(false)
	s.harness.SetT1(false)
	s.angle = s.config.StartAngle
	s.lastFired = -1
	s.residual = 0
	s.position = 0
	s.debt = 0
	s.events = nil
}

// Advance moves everything forward by dt seconds. The engine speed is
// read once at the start; the crank turns at that speed for the whole
// step and the engine model is advanced afterwards with the throttle.
func (s *Scheduler) Advance(dt, throttle float64) (EngineState, error) {
	if dt < 0 || math.IsNaN(dt) || math.IsInf(dt, 0) {
		return s.State(), fmt.Errorf("invalid time step %v", dt)
	}

	degPerCycle := math.Max(0, 6*s.engine.RPM()/s.clock)

	exact := dt*s.clock + s.residual
	budget := math.Floor(exact)
	s.residual = exact - budget
	cycles := uint64(budget)

	// Boundary cycles are measured from base, the angle at the start of
	// the step, so splitting a step does not move them.
	base := s.angle
	target := base + budget*degPerCycle
	var used uint64

	for {
		idx, b, ok := s.nextBoundary(target)
		if !ok {
			break
		}

		at := used
		if delta := b.angle - base; delta > 0 {
			at = min(max(uint64(math.Ceil(delta/degPerCycle)), used), cycles)
		}
		if err := s.run(at - used); err != nil {
			return s.State(), fmt.Errorf("crank at %.2f deg: %w", s.angle, err)
		}
		used = at

		s.angle = b.angle
		s.lastFired = idx
		s.fire(b)

		if b.signal == SignalRollover {
			s.angle -= WindowDegrees
			s.lastFired = -1
			base -= WindowDegrees
			target -= WindowDegrees
		}
	}

	if err := s.run(cycles - used); err != nil {
		return s.State(), fmt.Errorf("crank at %.2f deg: %w", s.angle, err)
	}
	if target != s.angle {
		s.angle = target
		s.lastFired = -1
	}

	s.engine.Advance(dt, throttle)

	return s.State(), nil
}

// nextBoundary returns the first boundary, in priority order, that lies
// in (angle, target]. A boundary at the current angle is still due if it
// comes after the last one fired there.
func (s *Scheduler) nextBoundary(target float64) (int, boundary, bool) {
	for i, b := range s.config.boundaries() {
		if b.angle > target {
			continue
		}
		if b.angle > s.angle || (b.angle == s.angle && i > s.lastFired) {
			return i, b, true
		}
	}
	return 0, boundary{}, false
}

// run moves the crank clock n cycles and runs the chip to catch up. The
// chip never splits an instruction, so it can finish past the clock;
// that overrun is paid back from the next run.
func (s *Scheduler) run(n uint64) error {
	s.position += n
	if s.debt >= n {
		s.debt -= n
		return nil
	}

	n -= s.debt
	ran, err := s.emu.RunCycles(n)
	if err != nil {
		s.debt = 0
		return err
	}
	s.debt = ran - n

	return nil
}

func (s *Scheduler) fire(b boundary) {
	switch b.action {
	case ActionInterrupt:
		s.emu.TriggerExternalInterrupt()
	case ActionT0High:
		s.harness.SetT0(true)
	case ActionT0Low:
		s.harness.SetT0(false)
	case ActionT1High:
		s.harness.SetT1(true)
	case ActionT1Low:
		s.harness.SetT1(false)
	}

	ev := Event{
		Signal:    b.signal,
		Angle:     b.angle,
		Cycle:     s.emu.Cycles(),
		Scheduled: s.position,
	}
	if len(s.events) == MaxEvents {
		s.events = append(s.events[:0], s.events[1:]...)
	}
	s.events = append(s.events, ev)

	s.log.V(2).Info("crank signal",
		"signal", b.signal.String(),
		"action", string(b.action),
		"angle", b.angle,
		"cycle", ev.Cycle)

	if s.onEvent != nil {
		s.onEvent(ev)
	}
}
