package benchmarks

import (
	"fmt"

	"github.com/sarchlab/klrsim/emu"
)

// GetMicrobenchmarks returns the standard set of microbenchmarks.
// Each benchmark targets one part of the timing model.
func GetMicrobenchmarks() []Benchmark {
	return []Benchmark{
		arithmeticSequential(),
		djnzLoop(),
		callReturn(),
		tableLookup(),
		bcdAdd(),
		bankSwitch(),
		timerPoll(),
	}
}

// GetCoreBenchmarks returns a minimal set for quick validation: a loop,
// subroutine calls and the timer.
func GetCoreBenchmarks() []Benchmark {
	return []Benchmark{
		djnzLoop(),
		callReturn(),
		timerPoll(),
	}
}

// 1. Arithmetic Sequential - two-cycle immediate ALU operations
func arithmeticSequential() Benchmark {
	var code []byte
	for i := 0; i < 10; i++ {
		code = append(code, 0x03, 0x01) // ADD A,#1
	}

	return Benchmark{
		Name:           "arithmetic_sequential",
		Description:    "10 ADD A,#1 - immediate operands cost two cycles",
		Code:           map[uint16][]byte{0x000: code},
		Halt:           0x014,
		ExpectedCycles: 20,
		Check:          expectAcc(10),
	}
}

// 2. DJNZ Loop - register loop counter
func djnzLoop() Benchmark {
	return Benchmark{
		Name:        "djnz_loop",
		Description: "10 iterations of INC A / DJNZ R2 - loop overhead",
		Code: map[uint16][]byte{
			0x000: {
				0xBA, 0x0A, // MOV R2,#10
				0x17, // INC A
			},
			0x003: EncodeDJNZ(2, 0x002),
		},
		Halt:           0x005,
		ExpectedCycles: 2 + 10*(1+2),
		Check: func(s emu.State) error {
			if s.Registers[2] != 0 {
				return fmt.Errorf("R2 = %d, expected 0", s.Registers[2])
			}
			return expectAcc(10)(s)
		},
	}
}

// 3. Function Calls - CALL/RET across a page
func callReturn() Benchmark {
	var code []byte
	for i := 0; i < 4; i++ {
		code = append(code, EncodeCALL(0x100)...)
	}

	return Benchmark{
		Name:        "call_return",
		Description: "4 calls to INC A / RET on page 1 - stack push and pull",
		Code: map[uint16][]byte{
			0x000: code,
			0x100: {
				0x17, // INC A
				0x83, // RET
			},
		},
		Halt:           0x008,
		ExpectedCycles: 4 * (2 + 1 + 2),
		Check: func(s emu.State) error {
			if sp := s.PSW & emu.PSWSPMask; sp != 0 {
				return fmt.Errorf("stack pointer %d, expected 0", sp)
			}
			return expectAcc(4)(s)
		},
	}
}

// 4. Table Lookup - MOVP reads from the current program page
func tableLookup() Benchmark {
	return Benchmark{
		Name:        "table_lookup",
		Description: "two MOVP A,@A lookups summed - program memory reads",
		Code: map[uint16][]byte{
			0x000: {
				0x23, 0x20, // MOV A,#0x20
				0xA3,       // MOVP A,@A
				0xA8,       // MOV R0,A
				0x23, 0x21, // MOV A,#0x21
				0xA3, // MOVP A,@A
				0x68, // ADD A,R0
			},
			0x020: {0x12, 0x34},
		},
		Halt:           0x008,
		ExpectedCycles: 2 + 2 + 1 + 2 + 2 + 1,
		Check:          expectAcc(0x46),
	}
}

// 5. BCD Add - decimal adjust after ADD
func bcdAdd() Benchmark {
	return Benchmark{
		Name:        "bcd_add",
		Description: "38 + 45 in BCD with DA A",
		Code: map[uint16][]byte{
			0x000: {
				0x23, 0x38, // MOV A,#0x38
				0x03, 0x45, // ADD A,#0x45
				0x57, // DA A
			},
		},
		Halt:           0x005,
		ExpectedCycles: 2 + 2 + 1,
		Check:          expectAcc(0x83),
	}
}

// 6. Bank Switch - SEL RB0/RB1 isolation
func bankSwitch() Benchmark {
	return Benchmark{
		Name:        "bank_switch",
		Description: "R7 written in both register banks",
		Code: map[uint16][]byte{
			0x000: {
				0xD5,       // SEL RB1
				0xBF, 0x55, // MOV R7,#0x55
				0xC5,       // SEL RB0
				0xBF, 0xAA, // MOV R7,#0xAA
			},
		},
		Halt:           0x006,
		ExpectedCycles: 1 + 2 + 1 + 2,
		Check: func(s emu.State) error {
			if s.RAM[emu.Bank1Base+7] != 0x55 || s.RAM[7] != 0xAA {
				return fmt.Errorf("bank 1 R7 = %02X, bank 0 R7 = %02X",
					s.RAM[emu.Bank1Base+7], s.RAM[7])
			}
			return nil
		},
	}
}

// 7. Timer Poll - prescaler period and JTF polling
func timerPoll() Benchmark {
	return Benchmark{
		Name:        "timer_poll",
		Description: "timer loaded with 0xFE, JTF polled until overflow",
		Code: map[uint16][]byte{
			0x000: {
				0x23, 0xFE, // MOV A,#0xFE
				0x62,       // MOV T,A
				0x55,       // STRT T
				0x16, 0x08, // JTF 0x008
			},
			0x006: EncodeJMP(0x004),
		},
		Halt: 0x008,
		// STRT at cycle 3; two prescaler periods overflow at cycle 67 and
		// the JTF starting at cycle 68 is the first to see the flag.
		ExpectedCycles: 70,
		Check: func(s emu.State) error {
			if s.Timer.Counter != 0 || s.Timer.Flag {
				return fmt.Errorf("timer %02X flag %t, expected 00 and cleared",
					s.Timer.Counter, s.Timer.Flag)
			}
			return nil
		},
	}
}

func expectAcc(want uint8) func(emu.State) error {
	return func(s emu.State) error {
		if s.A != want {
			return fmt.Errorf("A = 0x%02X, expected 0x%02X", s.A, want)
		}
		return nil
	}
}

// Helper functions for building MCS-48 programs

// EncodeJMP encodes JMP addr. The page bits go in the opcode.
func EncodeJMP(addr uint16) []byte {
	return []byte{uint8(addr>>8&0x07)<<5 | 0x04, uint8(addr)}
}

// EncodeCALL encodes CALL addr.
func EncodeCALL(addr uint16) []byte {
	return []byte{uint8(addr>>8&0x07)<<5 | 0x14, uint8(addr)}
}

// EncodeDJNZ encodes DJNZ Rr,target. The target must be on the page of
// the operand byte.
func EncodeDJNZ(reg uint8, target uint16) []byte {
	return []byte{0xE8 | reg&0x07, uint8(target)}
}
