// Package engine models the engine the KLR controller is fitted to.
//
// The crank scheduler only needs the engine speed, so the model is hidden
// behind Provider. Car is a coarse turbocharged engine; FixedRPM holds the
// speed constant for repeatable runs.
package engine

import "math"

// Engine limits.
const (
	MinRPM      = 850.0
	MaxRPM      = 6500.0
	MaxTurboRPM = 200000.0
	StartRPM    = 2500.0
)

// StepPeriod is the integration step of Car in seconds.
const StepPeriod = 0.01

// State is the engine state shown to the user.
type State struct {
	Throttle         float64 `json:"throttle" yaml:"throttle"`
	RPM              float64 `json:"rpm" yaml:"rpm"`
	TurboRPM         float64 `json:"turbo_rpm" yaml:"turbo_rpm"`
	ManifoldPressure float64 `json:"manifold_pressure" yaml:"manifold_pressure"` // bar
	Power            float64 `json:"power" yaml:"power"`                         // BHP
}

// Provider supplies the engine speed to the crank scheduler.
type Provider interface {
	// RPM returns the current engine speed.
	RPM() float64
	// Advance moves the engine forward by dt seconds at the given
	// throttle position (0 to 1).
	Advance(dt, throttle float64)
	// State returns the current engine state.
	State() State
}

// ClampThrottle limits a throttle position to [0, 1].
func ClampThrottle(throttle float64) float64 {
	return math.Max(0, math.Min(1, throttle))
}

// Car is a turbocharged engine integrated in fixed steps. Time shorter
// than a step is carried to the next Advance.
type Car struct {
	state    State
	residual float64
}

// NewCar creates a car idling at StartRPM with the throttle closed.
func NewCar() *Car {
	return &Car{state: State{RPM: StartRPM}}
}

// RPM returns the current engine speed.
func (c *Car) RPM() float64 {
	return c.state.RPM
}

// State returns the current engine state.
func (c *Car) State() State {
	return c.state
}

// Residual returns the time carried over to the next Advance.
func (c *Car) Residual() float64 {
	return c.residual
}

// Advance integrates the engine over dt seconds.
func (c *Car) Advance(dt, throttle float64) {
	s := &c.state
	s.Throttle = ClampThrottle(throttle)

	period := dt + c.residual
	for ; period > StepPeriod; period -= StepPeriod {
		boost := s.TurboRPM * s.TurboRPM / (MaxTurboRPM * MaxTurboRPM)
		boost = math.Min(boost+1.0, 2.0)

		s.ManifoldPressure = boost * math.Sqrt(s.Throttle)
		s.Power = s.RPM / MaxRPM * s.ManifoldPressure * 110.0

		s.TurboRPM += s.Power * 25000.0 * StepPeriod
		s.TurboRPM *= 1.0 - StepPeriod*12.0

		s.RPM += s.Power * 50 * StepPeriod
		s.RPM *= 1.0 - StepPeriod*0.3
		s.RPM = math.Max(MinRPM, math.Min(MaxRPM, s.RPM))
	}

	c.residual = period
}

// FixedRPM is a provider whose speed never changes.
type FixedRPM struct {
	rpm      float64
	throttle float64
}

// NewFixedRPM creates a provider turning at rpm.
func NewFixedRPM(rpm float64) *FixedRPM {
	return &FixedRPM{rpm: rpm}
}

// RPM returns the fixed engine speed.
func (f *FixedRPM) RPM() float64 {
	return f.rpm
}

// Advance records the throttle; the speed stays fixed.
func (f *FixedRPM) Advance(_, throttle float64) {
	f.throttle = ClampThrottle(throttle)
}

// State returns the fixed state.
func (f *FixedRPM) State() State {
	return State{Throttle: f.throttle, RPM: f.rpm}
}
