package latency

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.yaml.in/yaml/v3"
)

// TimingConfig holds the clock and cycle-cost parameters of the chip.
// Values are based on the 951 KLR board.
type TimingConfig struct {
	// ClockRateHz is the number of machine cycles per second.
	// The board's 11 MHz crystal divided by 15. Default: 733333.
	ClockRateHz uint64 `json:"clock_rate_hz" yaml:"clock_rate_hz"`

	// InterruptEntryCycles is the number of cycles consumed when an
	// interrupt is taken, on top of the interrupted instruction.
	// Default: 2 cycles.
	InterruptEntryCycles uint64 `json:"interrupt_entry_cycles" yaml:"interrupt_entry_cycles"`

	// IntPulseCycles is how long the /INT pin reads low for JNI after an
	// external interrupt edge. Default: 5 cycles.
	IntPulseCycles uint64 `json:"int_pulse_cycles" yaml:"int_pulse_cycles"`
}

// DefaultTimingConfig returns a TimingConfig with the board's values.
func DefaultTimingConfig() *TimingConfig {
	return &TimingConfig{
		ClockRateHz:          733333,
		InterruptEntryCycles: 2,
		IntPulseCycles:       5,
	}
}

// LoadConfig loads a TimingConfig from a JSON or YAML file. The format is
// picked from the file extension; anything other than .yaml/.yml is JSON.
func LoadConfig(path string) (*TimingConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read timing config file: %w", err)
	}

	config := DefaultTimingConfig()
	if isYAML(path) {
		err = yaml.Unmarshal(data, config)
	} else {
		err = json.Unmarshal(data, config)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse timing config: %w", err)
	}

	return config, nil
}

// SaveConfig writes a TimingConfig to a JSON or YAML file.
func (c *TimingConfig) SaveConfig(path string) error {
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
		return fmt.Errorf("failed to serialize timing config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write timing config file: %w", err)
	}

	return nil
}

// Validate checks that all timing values are usable.
func (c *TimingConfig) Validate() error {
	if c.ClockRateHz == 0 {
		return fmt.Errorf("clock_rate_hz must be > 0")
	}
	if c.InterruptEntryCycles == 0 {
		return fmt.Errorf("interrupt_entry_cycles must be > 0")
	}
	if c.IntPulseCycles == 0 {
		return fmt.Errorf("int_pulse_cycles must be > 0")
	}
	return nil
}

// Clone returns a deep copy of the TimingConfig.
func (c *TimingConfig) Clone() *TimingConfig {
	return &TimingConfig{
		ClockRateHz:          c.ClockRateHz,
		InterruptEntryCycles: c.InterruptEntryCycles,
		IntPulseCycles:       c.IntPulseCycles,
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
