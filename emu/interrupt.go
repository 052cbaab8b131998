package emu

// Interrupt vectors.
const (
	ExternalVector uint16 = 0x003
	TimerVector    uint16 = 0x007
)

// IRQState tells which interrupt, if any, is being serviced.
type IRQState uint8

// Interrupt controller states.
const (
	IRQNone IRQState = iota
	IRQExternal
	IRQTimer
)

func (s IRQState) String() string {
	switch s {
	case IRQNone:
		return "idle"
	case IRQExternal:
		return "external"
	case IRQTimer:
		return "timer"
	default:
		return "unknown"
	}
}

// Interrupts holds the interrupt controller state.
type Interrupts struct {
	ExternalEnabled bool
	TimerEnabled    bool

	// ExternalPending is the /INT request latch. It clears when the
	// interrupt is taken.
	ExternalPending bool

	InProgress IRQState

	// Pulse counts down the cycles /INT still reads low for JNI.
	Pulse uint64

	// poll records a JNI that found /INT inactive on the instruction just
	// executed, and the target it would have jumped to.
	poll jniPoll
}

type jniPoll struct {
	valid  bool
	target uint16
}

// Pending returns the interrupt that would be taken at the next
// instruction boundary. External requests win over timer requests.
func (i *Interrupts) Pending(timer *Timer) IRQState {
	if i.InProgress != IRQNone {
		return IRQNone
	}
	if i.ExternalPending && i.ExternalEnabled {
		return IRQExternal
	}
	if timer.Overflow && i.TimerEnabled {
		return IRQTimer
	}
	return IRQNone
}

// IntLow reports whether JNI sees /INT asserted.
func (i *Interrupts) IntLow() bool {
	return i.ExternalPending || i.Pulse > 0
}

// elapse shortens the /INT pulse by the given cycles.
func (i *Interrupts) elapse(cycles uint64) {
	if i.Pulse > cycles {
		i.Pulse -= cycles
	} else {
		i.Pulse = 0
	}
}
