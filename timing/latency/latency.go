// Package latency provides the cycle timing model of the MCS-48 core.
//
// Per-instruction cycle costs come from the opcode table in package insts.
// The clock rate and interrupt costs come from a TimingConfig.
package latency

import (
	"github.com/sarchlab/klrsim/insts"
)

// Table provides instruction cycle lookups and time conversions.
type Table struct {
	config *TimingConfig
}

// NewTable creates a new latency table with the board's default timing.
func NewTable() *Table {
	return &Table{
		config: DefaultTimingConfig(),
	}
}

// NewTableWithConfig creates a new latency table with custom timing configuration.
func NewTableWithConfig(config *TimingConfig) *Table {
	return &Table{
		config: config,
	}
}

// GetLatency returns the number of machine cycles the instruction takes.
func (t *Table) GetLatency(inst *insts.Instruction) uint64 {
	if inst == nil {
		return 1
	}
	return uint64(inst.Cycles)
}

// InterruptLatency returns the extra cycles spent entering an interrupt.
func (t *Table) InterruptLatency() uint64 {
	return t.config.InterruptEntryCycles
}

// IntPulseCycles returns how many cycles /INT reads asserted after an edge.
func (t *Table) IntPulseCycles() uint64 {
	return t.config.IntPulseCycles
}

// CyclesPerSecond returns the machine cycle rate as a float.
func (t *Table) CyclesPerSecond() float64 {
	return float64(t.config.ClockRateHz)
}

// Seconds converts a cycle count to simulated seconds.
func (t *Table) Seconds(cycles uint64) float64 {
	return float64(cycles) / float64(t.config.ClockRateHz)
}

// Config returns the current timing configuration.
func (t *Table) Config() *TimingConfig {
	return t.config
}
