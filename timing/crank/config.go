package crank

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.yaml.in/yaml/v3"

	"github.com/sarchlab/klrsim/timing/latency"
)

// WindowDegrees is the crank angle between two cylinder firings of the
// four-cylinder engine.
const WindowDegrees = 180.0

// Signal names a crank-angle boundary. The order of the constants is the
// priority in which boundaries are checked.
type Signal int

// Crank signals.
const (
	SignalReset Signal = iota
	SignalDwellStart
	SignalDwellEnd
	SignalRollover
)

var signalNames = [...]string{
	SignalReset:      "reset",
	SignalDwellStart: "dwell_start",
	SignalDwellEnd:   "dwell_end",
	SignalRollover:   "rollover",
}

func (s Signal) String() string {
	if s >= 0 && int(s) < len(signalNames) {
		return signalNames[s]
	}
	return fmt.Sprintf("Signal(%d)", int(s))
}

// SignalAction is what a boundary does to the chip.
type SignalAction string

// Signal actions.
const (
	ActionNone      SignalAction = "none"
	ActionInterrupt SignalAction = "interrupt"
	ActionT0High    SignalAction = "t0_high"
	ActionT0Low     SignalAction = "t0_low"
	ActionT1High    SignalAction = "t1_high"
	ActionT1Low     SignalAction = "t1_low"
)

func (a SignalAction) valid() bool {
	switch a {
	case ActionNone, ActionInterrupt, ActionT0High, ActionT0Low, ActionT1High, ActionT1Low:
		return true
	default:
		return false
	}
}

// Config holds the crank-angle boundaries, what each one does and the
// chip timing. Angles are in degrees after top dead centre.
type Config struct {
	Timing *latency.TimingConfig `json:"timing" yaml:"timing"`

	// StartAngle is the crank angle when the scheduler is created.
	StartAngle float64 `json:"start_angle" yaml:"start_angle"`

	ResetAngle      float64 `json:"reset_angle" yaml:"reset_angle"`
	DwellStartAngle float64 `json:"dwell_start_angle" yaml:"dwell_start_angle"`
	DwellEndAngle   float64 `json:"dwell_end_angle" yaml:"dwell_end_angle"`
	RolloverAngle   float64 `json:"rollover_angle" yaml:"rollover_angle"`

	ResetAction      SignalAction `json:"reset_action" yaml:"reset_action"`
	DwellStartAction SignalAction `json:"dwell_start_action" yaml:"dwell_start_action"`
	DwellEndAction   SignalAction `json:"dwell_end_action" yaml:"dwell_end_action"`
	RolloverAction   SignalAction `json:"rollover_action" yaml:"rollover_action"`
}

// DefaultConfig returns the board's crank configuration: the reset pulse
// raises /INT, the coil dwell is signalled on T1.
func DefaultConfig() *Config {
	return &Config{
		Timing:           latency.DefaultTimingConfig(),
		StartAngle:       -90,
		ResetAngle:       -80,
		DwellStartAngle:  -30,
		DwellEndAngle:    10,
		RolloverAngle:    90,
		ResetAction:      ActionInterrupt,
		DwellStartAction: ActionT1High,
		DwellEndAction:   ActionT1Low,
		RolloverAction:   ActionNone,
	}
}

// LoadConfig loads a Config from a JSON or YAML file on top of the
// defaults. The format is picked from the file extension.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read crank config file: %w", err)
	}

	config := DefaultConfig()
	if isYAML(path) {
		err = yaml.Unmarshal(data, config)
	} else {
		err = json.Unmarshal(data, config)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse crank config: %w", err)
	}
	if config.Timing == nil {
		config.Timing = latency.DefaultTimingConfig()
	}

	return config, nil
}

// SaveConfig writes a Config to a JSON or YAML file.
func (c *Config) SaveConfig(path string) error {
	var (
		data []byte
		err  error
	)
	if isYAML(path) {
		data, err = yaml.Marshal(c)
	} else {
		data, err = json.MarshalIndent(c, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("failed to serialize crank config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write crank config file: %w", err)
	}

	return nil
}

// Validate checks the timing and that every boundary lies inside one
// cylinder window ending at the rollover angle. The window start itself
// is excluded because the crank lands on it after a rollover. Boundary
// angles must not decrease in priority order, so the crank meets them in
// that order.
func (c *Config) Validate() error {
	if c.Timing == nil {
		return fmt.Errorf("timing must be set")
	}
	if err := c.Timing.Validate(); err != nil {
		return fmt.Errorf("invalid timing: %w", err)
	}

	low := c.RolloverAngle - WindowDegrees
	prev := low
	for _, b := range c.boundaries() {
		if !b.action.valid() {
			return fmt.Errorf("%s_action %q is not a known action", b.signal, b.action)
		}
		if b.signal == SignalRollover {
			continue
		}
		if b.angle <= low || b.angle >= c.RolloverAngle {
			return fmt.Errorf("%s_angle %.2f must be in (%.2f, %.2f)",
				b.signal, b.angle, low, c.RolloverAngle)
		}
		if b.angle < prev {
			return fmt.Errorf("%s_angle %.2f must not precede %.2f",
				b.signal, b.angle, prev)
		}
		prev = b.angle
	}
	if c.StartAngle < low || c.StartAngle >= c.RolloverAngle {
		return fmt.Errorf("start_angle %.2f must be in [%.2f, %.2f)",
			c.StartAngle, low, c.RolloverAngle)
	}

	return nil
}

// Clone returns a deep copy of the Config.
func (c *Config) Clone() *Config {
	clone := *c
	if c.Timing != nil {
		clone.Timing = c.Timing.Clone()
	}
	return &clone
}

type boundary struct {
	signal Signal
	angle  float64
	action SignalAction
}

// boundaries lists the boundaries in priority order.
func (c *Config) boundaries() [4]boundary {
	return [4]boundary{
		{SignalReset, c.ResetAngle, c.ResetAction},
		{SignalDwellStart, c.DwellStartAngle, c.DwellStartAction},
		{SignalDwellEnd, c.DwellEndAngle, c.DwellEndAction},
		{SignalRollover, c.RolloverAngle, c.RolloverAction},
	}
}

func isYAML(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	default:
		return false
	}
}

// MarshalText encodes the signal by name.
func (s Signal) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText decodes a signal name.
func (s *Signal) UnmarshalText(text []byte) error {
	for i, name := range signalNames {
		if name == string(text) {
			*s = Signal(i)
			return nil
		}
	}
	return fmt.Errorf("unknown crank signal %q", text)
}
