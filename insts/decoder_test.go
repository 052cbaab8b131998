package insts_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/klrsim/insts"
)

var _ = Describe("Decoder", func() {
	var decoder *insts.Decoder

	BeforeEach(func() {
		decoder = insts.NewDecoder()
	})

	Describe("opcode coverage", func() {
		illegal := []uint8{
			0x01, 0x06, 0x0B, 0x22, 0x33, 0x38, 0x3B, 0x63, 0x66,
			0x73, 0x82, 0x87, 0x8B, 0x9B, 0xA2, 0xA6, 0xB7, 0xC0,
			0xC1, 0xC2, 0xC3, 0xD6, 0xE0, 0xE1, 0xE2, 0xF3,
		}

		It("should decode exactly the unassigned opcodes as illegal", func() {
			var got []uint8
			for op := 0; op < 256; op++ {
				if decoder.Decode(uint8(op)).Op == insts.OpIllegal {
					got = append(got, uint8(op))
				}
			}
			Expect(got).To(Equal(illegal))
		})

		It("should give every opcode a cost of one or two cycles", func() {
			for op := 0; op < 256; op++ {
				inst := decoder.Decode(uint8(op))
				Expect(inst.Opcode).To(Equal(uint8(op)))
				Expect(inst.Cycles).To(BeElementOf(uint8(1), uint8(2)))
				Expect(inst.Size).To(BeElementOf(uint8(1), uint8(2)))
			}
		})

		It("should charge two cycles for every two-byte instruction", func() {
			for op := 0; op < 256; op++ {
				inst := decoder.Decode(uint8(op))
				if inst.Size == 2 {
					Expect(inst.Cycles).To(Equal(uint8(2)), "opcode 0x%02X", op)
				}
			}
		})

		It("should mark peripheral opcodes as unsupported", func() {
			for _, op := range []uint8{0x02, 0x08, 0x09, 0x3C, 0x75, 0x88, 0x90, 0x91, 0x98, 0x9F} {
				Expect(decoder.Decode(op).Op).To(Equal(insts.OpUnsupported), "opcode 0x%02X", op)
			}
		})
	})

	DescribeTable("mnemonics",
		func(opcode uint8, text string, cycles uint8) {
			inst := decoder.Decode(opcode)
			Expect(inst.String()).To(Equal(text))
			Expect(inst.Cycles).To(Equal(cycles))
		},
		Entry("NOP", uint8(0x00), "NOP", uint8(1)),
		Entry("ADD A,#", uint8(0x03), "ADD A,#", uint8(2)),
		Entry("ADD A,R5", uint8(0x6D), "ADD A,R5", uint8(1)),
		Entry("ADDC A,@R1", uint8(0x71), "ADDC A,@R1", uint8(1)),
		Entry("MOV A,PSW", uint8(0xC7), "MOV A,PSW", uint8(1)),
		Entry("MOV PSW,A", uint8(0xD7), "MOV PSW,A", uint8(1)),
		Entry("DJNZ R7", uint8(0xEF), "DJNZ R7", uint8(2)),
		Entry("JB5", uint8(0xB2), "JB5", uint8(2)),
		Entry("JTF", uint8(0x16), "JTF", uint8(2)),
		Entry("JNI", uint8(0x86), "JNI", uint8(2)),
		Entry("SEL RB1", uint8(0xD5), "SEL RB1", uint8(1)),
		Entry("SEL MB0", uint8(0xE5), "SEL MB0", uint8(1)),
		Entry("STRT CNT", uint8(0x45), "STRT CNT", uint8(1)),
		Entry("STOP TCNT", uint8(0x65), "STOP TCNT", uint8(1)),
		Entry("EN TCNTI", uint8(0x25), "EN TCNTI", uint8(1)),
		Entry("MOVX A,@R0", uint8(0x80), "MOVX A,@R0", uint8(2)),
		Entry("MOVP3 A,@A", uint8(0xE3), "MOVP3 A,@A", uint8(2)),
		Entry("JMPP @A", uint8(0xB3), "JMPP @A", uint8(2)),
		Entry("OUTL P2,A", uint8(0x3A), "OUTL P2,A", uint8(2)),
		Entry("ANL P1,#", uint8(0x99), "ANL P1,#", uint8(2)),
		Entry("RETR", uint8(0x93), "RETR", uint8(2)),
		Entry("unsupported MOVX write", uint8(0x90), "MOVX @R0,A", uint8(2)),
		Entry("illegal", uint8(0xC0), "ILL", uint8(1)),
	)

	Describe("JMP and CALL pages", func() {
		It("should take the page from the top three opcode bits", func() {
			for p := uint16(0); p < 8; p++ {
				jmp := decoder.Decode(uint8(p<<5 | 0x04))
				call := decoder.Decode(uint8(p<<5 | 0x14))
				jb := decoder.Decode(uint8(p<<5 | 0x12))

				Expect(jmp.Op).To(Equal(insts.OpJMP))
				Expect(jmp.Page).To(Equal(p << 8))
				Expect(call.Op).To(Equal(insts.OpCALL))
				Expect(call.Page).To(Equal(p << 8))
				Expect(jb.Cond).To(Equal(insts.CondBit))
				Expect(jb.Bit).To(Equal(uint8(p)))
			}
		})
	})

	Describe("Disassemble", func() {
		var rom []byte

		BeforeEach(func() {
			rom = make([]byte, 4096)
		})

		It("should render immediate operands", func() {
			rom[0x10] = 0x23
			rom[0x11] = 0x5A

			text, n := decoder.Disassemble(rom, 0x10)

			Expect(text).To(Equal("MOV A,#0x5A"))
			Expect(n).To(Equal(2))
		})

		It("should resolve JMP targets with the page bits", func() {
			rom[0x000] = 0xA4 // JMP page 5
			rom[0x001] = 0x20

			text, n := decoder.Disassemble(rom, 0)

			Expect(text).To(Equal("JMP 0x520"))
			Expect(n).To(Equal(2))
		})

		It("should resolve conditional jumps within the operand's page", func() {
			rom[0x1FF] = 0xC6 // JZ, operand byte on page 2
			rom[0x200] = 0x40

			text, _ := decoder.Disassemble(rom, 0x1FF)

			Expect(text).To(Equal("JZ 0x240"))
		})

		It("should render DJNZ with its register", func() {
			rom[0x30] = 0xEA
			rom[0x31] = 0x30

			text, _ := decoder.Disassemble(rom, 0x30)

			Expect(text).To(Equal("DJNZ R2,0x030"))
		})

		It("should render single-byte instructions", func() {
			rom[0x40] = 0x47

			text, n := decoder.Disassemble(rom, 0x40)

			Expect(text).To(Equal("SWAP A"))
			Expect(n).To(Equal(1))
		})
	})
})
