package crank

import (
	"github.com/sarchlab/klrsim/loader"
	"github.com/sarchlab/klrsim/trace"
)

// Trace channel names written by the Harness.
const (
	ChannelP1 = "P1"
	ChannelP2 = "P2"
	ChannelT0 = "T0"
	ChannelT1 = "T1"
)

// Harness is the board around the chip. It drives the T0 and T1 test
// inputs, serves external data memory and records port writes. It
// implements emu.IOHandler.
type Harness struct {
	t0, t1   bool
	p1, p2   uint8
	external [loader.ExternalSize]byte

	clock    func() uint64
	recorder *trace.Recorder
}

// NewHarness creates a harness with both test inputs low and external
// memory cleared. A nil recorder disables tracing.
func NewHarness(recorder *trace.Recorder) *Harness {
	return &Harness{
		p1:       0xFF,
		p2:       0xFF,
		recorder: recorder,
		clock:    func() uint64 { return 0 },
	}
}

// SetClock sets the cycle source used to stamp trace points.
func (h *Harness) SetClock(clock func() uint64) {
	h.clock = clock
}

// Recorder returns the trace recorder, or nil.
func (h *Harness) Recorder() *trace.Recorder {
	return h.recorder
}

// LoadExternal replaces the external data memory.
func (h *Harness) LoadExternal(data [loader.ExternalSize]byte) {
	h.external = data
}

// LoadExternalFile reads external data memory from a file.
func (h *Harness) LoadExternalFile(path string) error {
	data, err := loader.LoadExternal(path)
	if err != nil {
		return err
	}
	h.external = data
	return nil
}

// External returns a copy of the external data memory.
func (h *Harness) External() [loader.ExternalSize]byte {
	return h.external
}

// SetT0 drives the T0 test input.
func (h *Harness) SetT0(level bool) {
	h.t0 = level
	h.record(ChannelT0, level2byte(level))
}

// SetT1 drives the T1 test input.
func (h *Harness) SetT1(level bool) {
	h.t1 = level
	h.record(ChannelT1, level2byte(level))
}

// P1 returns the last value written to port 1.
func (h *Harness) P1() uint8 { return h.p1 }

// P2 returns the last value written to port 2.
func (h *Harness) P2() uint8 { return h.p2 }

// ReadT0 returns the T0 level.
func (h *Harness) ReadT0() bool { return h.t0 }

// ReadT1 returns the T1 level.
func (h *Harness) ReadT1() bool { return h.t1 }

// WriteP1 latches and records a port 1 write.
func (h *Harness) WriteP1(value uint8) {
	h.p1 = value
	h.record(ChannelP1, value)
}

// WriteP2 latches and records a port 2 write.
func (h *Harness) WriteP2(value uint8) {
	h.p2 = value
	h.record(ChannelP2, value)
}

// ReadExternal reads external data memory.
func (h *Harness) ReadExternal(addr uint8) uint8 {
	return h.external[addr]
}

// record adds a trace point. A chip reset restarts the cycle count, so
// a point older than the channel's last one starts the channel over.
func (h *Harness) record(name string, value uint8) {
	if h.recorder == nil {
		return
	}

	cycle := h.clock()
	if err := h.recorder.Record(name, cycle, value); err != nil {
		ch := h.recorder.Channel(name)
		ch.Reset()
		_ = ch.Add(cycle, value)
	}
}

func level2byte(level bool) uint8 {
	if level {
		return 1
	}
	return 0
}
