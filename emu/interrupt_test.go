package emu_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/klrsim/emu"
)

var _ = Describe("Interrupts", func() {
	// Vectors at 0x003 and 0x007 return immediately; the main program
	// starts at 0x010.
	withVectors := func(code map[uint16][]byte) map[uint16][]byte {
		code[0x000] = []byte{0x04, 0x10} // JMP 0x010
		if _, ok := code[0x003]; !ok {
			code[0x003] = []byte{0x93} // RETR
		}
		code[0x007] = []byte{0x93} // RETR
		return code
	}

	Describe("external interrupt", func() {
		It("should vector to 0x003 and cost two cycles", func() {
			e := newLoaded(withVectors(map[uint16][]byte{
				0x010: {0x05}, // EN I
			}))
			steps(e, 2)
			cycles := e.Cycles()

			e.TriggerExternalInterrupt()
			result := e.Step()

			Expect(result.Interrupt).To(Equal(emu.IRQExternal))
			Expect(result.Cycles).To(Equal(uint64(2)))
			Expect(e.Cycles()).To(Equal(cycles + 2))
			Expect(e.RegFile().PC).To(Equal(emu.ExternalVector))
			Expect(e.Interrupts().InProgress).To(Equal(emu.IRQExternal))
			Expect(e.Interrupts().ExternalPending).To(BeFalse())
			Expect(e.RegFile().SP).To(Equal(uint8(1)))
			Expect(e.Memory().Read(emu.StackBase)).To(Equal(uint8(0x11)))
		})

		It("should stay latched while disabled", func() {
			e := newLoaded(withVectors(map[uint16][]byte{
				0x010: {0x00, 0x05}, // NOP; EN I
			}))
			steps(e, 1)

			e.TriggerExternalInterrupt()
			Expect(e.Step().Interrupt).To(Equal(emu.IRQNone))
			Expect(e.Step().Interrupt).To(Equal(emu.IRQNone))
			Expect(e.Step().Interrupt).To(Equal(emu.IRQExternal))
		})

		It("should not nest", func() {
			e := newLoaded(withVectors(map[uint16][]byte{
				0x003: {0x00, 0x00, 0x93}, // NOP; NOP; RETR
				0x010: {0x05},             // EN I
			}))
			steps(e, 2)
			e.TriggerExternalInterrupt()
			steps(e, 1)

			e.TriggerExternalInterrupt()
			Expect(e.Step().Interrupt).To(Equal(emu.IRQNone))
			Expect(e.Step().Interrupt).To(Equal(emu.IRQNone))
			Expect(e.Step().Interrupt).To(Equal(emu.IRQNone)) // RETR
			Expect(e.Step().Interrupt).To(Equal(emu.IRQExternal))
		})
	})

	Describe("program bank across an interrupt", func() {
		It("should wrap the program counter at 2 KB inside a handler", func() {
			e := newLoaded(withVectors(map[uint16][]byte{
				0x003: {0xE4, 0xFF}, // JMP 0x7FF
				0x010: {0x05},       // EN I
				0x7FF: {0x00},       // NOP
			}))
			steps(e, 2)
			e.TriggerExternalInterrupt()

			steps(e, 2)
			Expect(e.RegFile().PC).To(Equal(uint16(0x7FF)))

			steps(e, 1)
			Expect(e.RegFile().PC).To(Equal(uint16(0x000)))
			Expect(e.Interrupts().InProgress).To(Equal(emu.IRQExternal))
		})

		It("should run past 2 KB outside a handler", func() {
			e := newLoaded(map[uint16][]byte{
				0x000: {0xE4, 0xFF}, // JMP 0x7FF
				0x7FF: {0x00},       // NOP
			})

			steps(e, 2)

			Expect(e.RegFile().PC).To(Equal(uint16(0x800)))
		})

		It("should force the low bank and restore the high bank on RETR", func() {
			e := newLoaded(withVectors(map[uint16][]byte{
				0x010: {0xF5},       // SEL MB1
				0x011: {0x05},       // EN I
				0x012: {0x04, 0x20}, // JMP 0x820
			}))
			steps(e, 4)
			Expect(e.RegFile().PC).To(Equal(uint16(0x820)))

			e.TriggerExternalInterrupt()
			steps(e, 1)

			r := e.RegFile()
			Expect(r.A11).To(Equal(uint16(0)))
			Expect(r.A11Shadow).To(Equal(emu.BankBit))
			Expect(r.PC).To(Equal(emu.ExternalVector))
			Expect(e.Memory().Read(emu.StackBase)).To(Equal(uint8(0x20)))
			Expect(e.Memory().Read(emu.StackBase + 1)).To(Equal(uint8(0x08)))

			steps(e, 1) // RETR

			Expect(r.PC).To(Equal(uint16(0x820)))
			Expect(r.A11).To(Equal(emu.BankBit))
			Expect(e.Interrupts().InProgress).To(Equal(emu.IRQNone))
		})

		It("should restore the low bank", func() {
			e := newLoaded(withVectors(map[uint16][]byte{
				0x010: {0x05},       // EN I
				0x011: {0x04, 0x20}, // JMP 0x020
			}))
			steps(e, 3)

			e.TriggerExternalInterrupt()
			steps(e, 2)

			Expect(e.RegFile().PC).To(Equal(uint16(0x020)))
			Expect(e.RegFile().A11).To(Equal(uint16(0)))
		})

		It("should only update the saved bank when SEL MB1 runs in a handler", func() {
			e := newLoaded(withVectors(map[uint16][]byte{
				0x003: {0xF5, 0x93}, // SEL MB1; RETR
				0x010: {0x05},       // EN I
			}))
			steps(e, 2)
			e.TriggerExternalInterrupt()
			steps(e, 2)

			Expect(e.RegFile().A11).To(Equal(uint16(0)))
			Expect(e.RegFile().A11Shadow).To(Equal(emu.BankBit))

			steps(e, 1)
			Expect(e.RegFile().A11).To(Equal(emu.BankBit))
		})

		It("should restore the flags saved on entry", func() {
			e := newLoaded(withVectors(map[uint16][]byte{
				0x003: {0x97, 0xC5, 0x93}, // CLR C; SEL RB0; RETR
				0x010: {0x05},             // EN I
				0x011: {0xA7},             // CPL C
				0x012: {0xD5},             // SEL RB1
			}))
			steps(e, 4)

			e.TriggerExternalInterrupt()
			steps(e, 3)
			Expect(e.RegFile().C).To(BeFalse())
			Expect(e.RegFile().BS).To(BeFalse())

			steps(e, 1)
			Expect(e.RegFile().C).To(BeTrue())
			Expect(e.RegFile().BS).To(BeTrue())
		})
	})

	Describe("priority", func() {
		It("should take the external interrupt before the timer interrupt", func() {
			e := newLoaded(withVectors(map[uint16][]byte{
				0x010: {0x05, 0x25}, // EN I; EN TCNTI
			}))
			steps(e, 3)

			e.Timer().Overflow = true
			e.TriggerExternalInterrupt()

			Expect(e.Step().Interrupt).To(Equal(emu.IRQExternal))
			Expect(e.Timer().Overflow).To(BeTrue())

			steps(e, 1) // RETR
			result := e.Step()
			Expect(result.Interrupt).To(Equal(emu.IRQTimer))
			Expect(e.RegFile().PC).To(Equal(emu.TimerVector))
			Expect(e.Timer().Overflow).To(BeFalse())
		})
	})

	Describe("timer interrupt", func() {
		It("should fire on overflow when enabled", func() {
			e := newLoaded(withVectors(map[uint16][]byte{
				0x010: {0x25},       // EN TCNTI
				0x011: {0x23, 0xFF}, // MOV A,#0xFF
				0x013: {0x62},       // MOV T,A
				0x014: {0x55},       // STRT T
			}))

			taken := false
			for i := 0; i < 100 && !taken; i++ {
				result := e.Step()
				Expect(result.Err).NotTo(HaveOccurred())
				taken = result.Interrupt == emu.IRQTimer
			}

			Expect(taken).To(BeTrue())
			Expect(e.RegFile().PC).To(Equal(emu.TimerVector))
			Expect(e.Timer().Flag).To(BeTrue())
			Expect(e.Timer().Counter).To(Equal(uint8(0)))
		})

		It("should lose an overflow that happens while disabled", func() {
			code := map[uint16][]byte{
				0x010: {0x23, 0xFF}, // MOV A,#0xFF
				0x012: {0x62},       // MOV T,A
				0x013: {0x55},       // STRT T
				0x060: {0x25},       // EN TCNTI
				0x061: {0x16, 0x70}, // JTF 0x070
			}
			e := newLoaded(withVectors(code))

			// JMP, MOV, MOV, STRT, then NOPs 0x014-0x05F, then EN TCNTI.
			steps(e, 4+0x4C+1)

			Expect(e.RegFile().PC).To(Equal(uint16(0x061)))
			Expect(e.Timer().Flag).To(BeTrue())
			Expect(e.Timer().Overflow).To(BeFalse())
			Expect(e.Interrupts().TimerEnabled).To(BeTrue())

			result := e.Step()
			Expect(result.Interrupt).To(Equal(emu.IRQNone))
			Expect(e.RegFile().PC).To(Equal(uint16(0x070)))
			Expect(e.Timer().Flag).To(BeFalse())

			Expect(e.Step().Interrupt).To(Equal(emu.IRQNone))
		})

		It("should drop a pending request on DIS TCNTI", func() {
			e := newLoaded(withVectors(map[uint16][]byte{
				0x010: {0x35}, // DIS TCNTI
			}))
			steps(e, 1)
			e.Timer().Overflow = true

			steps(e, 1)

			Expect(e.Timer().Overflow).To(BeFalse())
		})
	})

	Describe("JNI", func() {
		It("should see /INT low during the pulse after an edge", func() {
			e := newLoaded(withVectors(map[uint16][]byte{
				0x010: {0x86, 0x40}, // JNI 0x040
			}))
			steps(e, 1)

			e.TriggerExternalInterrupt()
			steps(e, 1)

			Expect(e.RegFile().PC).To(Equal(uint16(0x040)))
		})

		It("should fall through when /INT is inactive", func() {
			e := newLoaded(withVectors(map[uint16][]byte{
				0x010: {0x86, 0x40}, // JNI 0x040
			}))

			steps(e, 2)

			Expect(e.RegFile().PC).To(Equal(uint16(0x012)))
		})

		It("should return to the JNI target when the interrupt follows a failed poll", func() {
			e := newLoaded(withVectors(map[uint16][]byte{
				0x010: {0x05},       // EN I
				0x011: {0x86, 0x40}, // JNI 0x040
			}))
			steps(e, 3)
			Expect(e.RegFile().PC).To(Equal(uint16(0x013)))

			e.TriggerExternalInterrupt()
			steps(e, 1)
			Expect(e.Memory().Read(emu.StackBase)).To(Equal(uint8(0x40)))

			steps(e, 1) // RETR
			Expect(e.RegFile().PC).To(Equal(uint16(0x040)))
		})

		It("should return normally when the previous instruction was not JNI", func() {
			e := newLoaded(withVectors(map[uint16][]byte{
				0x010: {0x05},       // EN I
				0x011: {0x86, 0x40}, // JNI 0x040
				0x013: {0x00},       // NOP
			}))
			steps(e, 4)

			e.TriggerExternalInterrupt()
			steps(e, 2)

			Expect(e.RegFile().PC).To(Equal(uint16(0x014)))
		})
	})
})
