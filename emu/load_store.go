package emu

import "github.com/sarchlab/klrsim/insts"

// LoadStoreUnit resolves instruction operands and implements the data
// moves: MOV, XCH, XCHD, MOVX, MOVP and MOVP3.
type LoadStoreUnit struct {
	regFile *RegFile
	memory  *Memory
	timer   *Timer
	io      IOHandler
}

// NewLoadStoreUnit creates a new LoadStoreUnit connected to the given
// register file, memory, timer and board.
func NewLoadStoreUnit(regFile *RegFile, memory *Memory, timer *Timer, io IOHandler) *LoadStoreUnit {
	return &LoadStoreUnit{
		regFile: regFile,
		memory:  memory,
		timer:   timer,
		io:      io,
	}
}

// Load reads the operand op of inst. imm is the instruction's operand
// byte, if any.
func (lsu *LoadStoreUnit) Load(op insts.Operand, inst *insts.Instruction, imm uint8) uint8 {
	r := lsu.regFile

	switch op {
	case insts.OperandA:
		return r.A
	case insts.OperandReg:
		return r.ReadReg(inst.Reg)
	case insts.OperandIndirect:
		return lsu.memory.Read(r.IndirectAddr(inst.Reg))
	case insts.OperandExternal:
		return lsu.io.ReadExternal(r.ReadReg(inst.Reg))
	case insts.OperandImm:
		return imm
	case insts.OperandT:
		return lsu.timer.Counter
	case insts.OperandPSW:
		return r.PSW()
	default:
		return 0
	}
}

// Store writes value to the operand op of inst. Port operands are
// handled by the emulator.
func (lsu *LoadStoreUnit) Store(op insts.Operand, inst *insts.Instruction, value uint8) {
	r := lsu.regFile

	switch op {
	case insts.OperandA:
		r.A = value
	case insts.OperandReg:
		r.WriteReg(inst.Reg, value)
	case insts.OperandIndirect:
		lsu.memory.Write(r.IndirectAddr(inst.Reg), value)
	case insts.OperandT:
		lsu.timer.Counter = value
	case insts.OperandPSW:
		r.SetPSW(value)
	}
}

// MOV copies the source operand into the destination.
func (lsu *LoadStoreUnit) MOV(inst *insts.Instruction, imm uint8) {
	lsu.Store(inst.Dst, inst, lsu.Load(inst.Src, inst, imm))
}

// XCH exchanges A with a register or indirect byte.
func (lsu *LoadStoreUnit) XCH(inst *insts.Instruction) {
	v := lsu.Load(inst.Src, inst, 0)
	lsu.Store(inst.Src, inst, lsu.regFile.A)
	lsu.regFile.A = v
}

// XCHD exchanges the low nibbles of A and an indirect byte.
func (lsu *LoadStoreUnit) XCHD(inst *insts.Instruction) {
	addr := lsu.regFile.IndirectAddr(inst.Reg)
	m := lsu.memory.Read(addr)
	a := lsu.regFile.A

	lsu.regFile.A = a&0xF0 | m&0x0F
	lsu.memory.Write(addr, m&0xF0|a&0x0F)
}

// MOVX reads external data memory addressed by R0 or R1 into A.
func (lsu *LoadStoreUnit) MOVX(inst *insts.Instruction) {
	lsu.regFile.A = lsu.Load(insts.OperandExternal, inst, 0)
}

// MOVP loads A from the current program page at offset A. pc is the
// address following the opcode.
func (lsu *LoadStoreUnit) MOVP(pc uint16) {
	lsu.regFile.A = lsu.memory.ReadROM(pc&0xF00 | uint16(lsu.regFile.A))
}

// MOVP3 loads A from program page 3 at offset A.
func (lsu *LoadStoreUnit) MOVP3() {
	lsu.regFile.A = lsu.memory.ReadROM(0x300 | uint16(lsu.regFile.A))
}
