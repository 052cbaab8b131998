package emu

// IOHandler is the board around the chip. Every call is synchronous and
// always succeeds.
type IOHandler interface {
	// ReadT0 returns the level of the T0 test input.
	ReadT0() bool
	// ReadT1 returns the level of the T1 test input.
	ReadT1() bool
	// WriteP1 is called with the new port 1 latch value.
	WriteP1(value uint8)
	// WriteP2 is called with the new port 2 latch value.
	WriteP2(value uint8)
	// ReadExternal reads external data memory for MOVX.
	ReadExternal(addr uint8) uint8
}

// NopIO is an IOHandler with both test inputs low, external memory
// reading as zero and port writes discarded.
type NopIO struct{}

// ReadT0 returns false.
func (NopIO) ReadT0() bool { return false }

// ReadT1 returns false.
func (NopIO) ReadT1() bool { return false }

// WriteP1 discards the value.
func (NopIO) WriteP1(uint8) {}

// WriteP2 discards the value.
func (NopIO) WriteP2(uint8) {}

// ReadExternal returns 0.
func (NopIO) ReadExternal(uint8) uint8 { return 0 }

// writePort latches and drives output port 1 or 2.
func (e *Emulator) writePort(port uint8, value uint8) {
	if port == 1 {
		e.regFile.P1 = value
		e.io.WriteP1(value)
		return
	}
	e.regFile.P2 = value
	e.io.WriteP2(value)
}

func (e *Emulator) readPort(port uint8) uint8 {
	if port == 1 {
		return e.regFile.P1
	}
	return e.regFile.P2
}
