package emu

// State is a read-only copy of the chip state for display and tests.
type State struct {
	A         uint8
	PC        uint16
	PSW       uint8
	F1        bool
	A11       uint16
	A11Shadow uint16
	P1        uint8
	P2        uint8

	// Registers holds R0-R7 of the selected bank.
	Registers [8]uint8
	RAM       [RAMSize]uint8

	Timer      TimerState
	Interrupts InterruptState

	Cycles       uint64
	Instructions uint64
}

// TimerState is a copy of the timer/counter unit.
type TimerState struct {
	Counter   uint8
	Prescaler uint8
	Mode      TimerMode
	Flag      bool
	Overflow  bool
}

// InterruptState is a copy of the interrupt controller.
type InterruptState struct {
	ExternalEnabled bool
	TimerEnabled    bool
	ExternalPending bool
	InProgress      IRQState
}

// Snapshot returns a copy of the current state.
func (e *Emulator) Snapshot() State {
	r := e.regFile

	return State{
		A:         r.A,
		PC:        r.PC,
		PSW:       r.PSW(),
		F1:        r.F1,
		A11:       r.A11,
		A11Shadow: r.A11Shadow,
		P1:        r.P1,
		P2:        r.P2,
		Registers: r.Bank(),
		RAM:       e.memory.RAM(),
		Timer: TimerState{
			Counter:   e.timer.Counter,
			Prescaler: e.timer.Prescaler,
			Mode:      e.timer.Mode,
			Flag:      e.timer.Flag,
			Overflow:  e.timer.Overflow,
		},
		Interrupts: InterruptState{
			ExternalEnabled: e.intr.ExternalEnabled,
			TimerEnabled:    e.intr.TimerEnabled,
			ExternalPending: e.intr.ExternalPending,
			InProgress:      e.intr.InProgress,
		},
		Cycles:       e.cycles,
		Instructions: e.instructionCount,
	}
}

// Bank returns 0 or 1 for the selected register bank.
func (s State) Bank() int {
	if s.PSW&PSWBank != 0 {
		return 1
	}
	return 0
}

// SP returns the stack pointer field of the PSW.
func (s State) SP() uint8 {
	return s.PSW & PSWSPMask
}
