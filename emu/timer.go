package emu

// PrescalerPeriod is the number of cycles per timer count in timer mode.
const PrescalerPeriod = 32

// TimerMode selects what drives the timer/counter register.
type TimerMode uint8

// Timer modes.
const (
	TimerStopped TimerMode = iota
	TimerRunning
	CounterRunning
)

func (m TimerMode) String() string {
	switch m {
	case TimerStopped:
		return "stopped"
	case TimerRunning:
		return "timer"
	case CounterRunning:
		return "counter"
	default:
		return "unknown"
	}
}

// Timer is the 8-bit timer/event counter with its 5-bit prescaler.
type Timer struct {
	Counter   uint8
	Prescaler uint8
	Mode      TimerMode

	// Flag is set by every overflow and cleared by JTF.
	Flag bool

	// Overflow is the sticky timer interrupt request. An overflow only
	// sets it when the timer interrupt is enabled at that moment.
	Overflow bool

	// T1History holds the last two T1 samples, newest in bit 0.
	T1History uint8
}

// Start enters timer mode and clears the prescaler.
func (t *Timer) Start() {
	t.Mode = TimerRunning
	t.Prescaler = 0
}

// StartCounter enters event counter mode. The T1 history is seeded with
// the current level so an edge that happened while stopped is not counted.
func (t *Timer) StartCounter(t1 bool) {
	t.Mode = CounterRunning
	t.T1History = 0
	if t1 {
		t.T1History = 0x03
	}
}

// Stop halts both modes.
func (t *Timer) Stop() {
	t.Mode = TimerStopped
}

// TestAndClearFlag returns the timer flag and clears it.
func (t *Timer) TestAndClearFlag() bool {
	f := t.Flag
	t.Flag = false
	return f
}

// Advance accounts for elapsed cycles. t1 is the level of the T1 input
// during those cycles and irqEnabled whether the timer interrupt is
// enabled. It returns the number of overflows.
func (t *Timer) Advance(cycles uint64, t1 bool, irqEnabled bool) int {
	overflows := 0

	switch t.Mode {
	case TimerRunning:
		total := uint64(t.Prescaler) + cycles
		for total >= PrescalerPeriod {
			total -= PrescalerPeriod
			if t.tick(irqEnabled) {
				overflows++
			}
		}
		t.Prescaler = uint8(total)

	case CounterRunning:
		var sample uint8
		if t1 {
			sample = 1
		}
		for i := uint64(0); i < cycles; i++ {
			t.T1History = (t.T1History<<1 | sample) & 0x03
			if t.T1History == 0x02 && t.tick(irqEnabled) {
				overflows++
			}
		}
	}

	return overflows
}

func (t *Timer) tick(irqEnabled bool) bool {
	t.Counter++
	if t.Counter != 0 {
		return false
	}

	t.Flag = true
	if irqEnabled {
		t.Overflow = true
	}
	return true
}
