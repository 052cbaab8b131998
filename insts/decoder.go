// Package insts provides MCS-48 instruction definitions and decoding.
package insts

// Decoder maps opcode bytes to instruction descriptors.
type Decoder struct {
	table *[256]Instruction
}

// opcodeTable is built once; descriptors are shared and must not be
// modified by callers.
var opcodeTable = buildTable()

// NewDecoder creates a new MCS-48 instruction decoder.
func NewDecoder() *Decoder {
	return &Decoder{table: &opcodeTable}
}

// Decode returns the descriptor for the given opcode byte.
// Every opcode decodes; unassigned ones return an OpIllegal descriptor.
func (d *Decoder) Decode(opcode uint8) *Instruction {
	return &d.table[opcode]
}

// Table returns a copy of the full opcode table, indexed by opcode.
func (d *Decoder) Table() [256]Instruction {
	return *d.table
}

func buildTable() [256]Instruction {
	var t [256]Instruction
	for i := range t {
		t[i] = Instruction{Opcode: uint8(i), Op: OpIllegal, Cycles: 1, Size: 1}
	}

	one := func(opcode uint8, inst Instruction) {
		inst.Opcode = opcode
		inst.Cycles = 1
		inst.Size = 1
		t[opcode] = inst
	}
	two := func(opcode uint8, inst Instruction) {
		inst.Opcode = opcode
		inst.Cycles = 2
		inst.Size = 1
		t[opcode] = inst
	}
	twoImm := func(opcode uint8, inst Instruction) {
		inst.Opcode = opcode
		inst.Cycles = 2
		inst.Size = 2
		t[opcode] = inst
	}

	// Rr families, low three bits select the register.
	for r := uint8(0); r < 8; r++ {
		one(0x18|r, Instruction{Op: OpINC, Dst: OperandReg, Reg: r})
		one(0x28|r, Instruction{Op: OpXCH, Dst: OperandA, Src: OperandReg, Reg: r})
		one(0x48|r, Instruction{Op: OpORL, Dst: OperandA, Src: OperandReg, Reg: r})
		one(0x58|r, Instruction{Op: OpANL, Dst: OperandA, Src: OperandReg, Reg: r})
		one(0x68|r, Instruction{Op: OpADD, Dst: OperandA, Src: OperandReg, Reg: r})
		one(0x78|r, Instruction{Op: OpADDC, Dst: OperandA, Src: OperandReg, Reg: r})
		one(0xA8|r, Instruction{Op: OpMOV, Dst: OperandReg, Src: OperandA, Reg: r})
		twoImm(0xB8|r, Instruction{Op: OpMOV, Dst: OperandReg, Src: OperandImm, Reg: r})
		one(0xC8|r, Instruction{Op: OpDEC, Dst: OperandReg, Reg: r})
		one(0xD8|r, Instruction{Op: OpXRL, Dst: OperandA, Src: OperandReg, Reg: r})
		twoImm(0xE8|r, Instruction{Op: OpDJNZ, Dst: OperandReg, Reg: r})
		one(0xF8|r, Instruction{Op: OpMOV, Dst: OperandA, Src: OperandReg, Reg: r})
	}

	// @Ri families, low bit selects R0 or R1.
	for r := uint8(0); r < 2; r++ {
		one(0x10|r, Instruction{Op: OpINC, Dst: OperandIndirect, Reg: r})
		one(0x20|r, Instruction{Op: OpXCH, Dst: OperandA, Src: OperandIndirect, Reg: r})
		one(0x30|r, Instruction{Op: OpXCHD, Dst: OperandA, Src: OperandIndirect, Reg: r})
		one(0x40|r, Instruction{Op: OpORL, Dst: OperandA, Src: OperandIndirect, Reg: r})
		one(0x50|r, Instruction{Op: OpANL, Dst: OperandA, Src: OperandIndirect, Reg: r})
		one(0x60|r, Instruction{Op: OpADD, Dst: OperandA, Src: OperandIndirect, Reg: r})
		one(0x70|r, Instruction{Op: OpADDC, Dst: OperandA, Src: OperandIndirect, Reg: r})
		two(0x80|r, Instruction{Op: OpMOVX, Dst: OperandA, Src: OperandExternal, Reg: r})
		two(0x90|r, Instruction{Op: OpUnsupported, Dst: OperandExternal, Src: OperandA, Reg: r})
		one(0xA0|r, Instruction{Op: OpMOV, Dst: OperandIndirect, Src: OperandA, Reg: r})
		twoImm(0xB0|r, Instruction{Op: OpMOV, Dst: OperandIndirect, Src: OperandImm, Reg: r})
		one(0xD0|r, Instruction{Op: OpXRL, Dst: OperandA, Src: OperandIndirect, Reg: r})
		one(0xF0|r, Instruction{Op: OpMOV, Dst: OperandA, Src: OperandIndirect, Reg: r})
	}

	// Top three bits carry the page (JMP/CALL) or the tested bit (JBb).
	for p := uint8(0); p < 8; p++ {
		twoImm(p<<5|0x04, Instruction{Op: OpJMP, Page: uint16(p) << 8})
		twoImm(p<<5|0x14, Instruction{Op: OpCALL, Page: uint16(p) << 8})
		twoImm(p<<5|0x12, Instruction{Op: OpJcc, Cond: CondBit, Bit: p})
	}

	jcc := map[uint8]Cond{
		0x16: CondTF,
		0x26: CondNT0,
		0x36: CondT0,
		0x46: CondNT1,
		0x56: CondT1,
		0x76: CondF1,
		0x86: CondNI,
		0x96: CondNZ,
		0xB6: CondF0,
		0xC6: CondZ,
		0xE6: CondNC,
		0xF6: CondC,
	}
	for opcode, cond := range jcc {
		twoImm(opcode, Instruction{Op: OpJcc, Cond: cond})
	}

	// Accumulator, immediate and flag operations.
	one(0x00, Instruction{Op: OpNOP})
	twoImm(0x03, Instruction{Op: OpADD, Dst: OperandA, Src: OperandImm})
	twoImm(0x13, Instruction{Op: OpADDC, Dst: OperandA, Src: OperandImm})
	twoImm(0x23, Instruction{Op: OpMOV, Dst: OperandA, Src: OperandImm})
	twoImm(0x43, Instruction{Op: OpORL, Dst: OperandA, Src: OperandImm})
	twoImm(0x53, Instruction{Op: OpANL, Dst: OperandA, Src: OperandImm})
	twoImm(0xD3, Instruction{Op: OpXRL, Dst: OperandA, Src: OperandImm})
	one(0x07, Instruction{Op: OpDEC, Dst: OperandA})
	one(0x17, Instruction{Op: OpINC, Dst: OperandA})
	one(0x27, Instruction{Op: OpCLR, Dst: OperandA})
	one(0x37, Instruction{Op: OpCPL, Dst: OperandA})
	one(0x47, Instruction{Op: OpSWAP, Dst: OperandA})
	one(0x57, Instruction{Op: OpDA, Dst: OperandA})
	one(0x67, Instruction{Op: OpRRC, Dst: OperandA})
	one(0x77, Instruction{Op: OpRR, Dst: OperandA})
	one(0xE7, Instruction{Op: OpRL, Dst: OperandA})
	one(0xF7, Instruction{Op: OpRLC, Dst: OperandA})
	one(0x97, Instruction{Op: OpCLR, Dst: OperandC})
	one(0xA7, Instruction{Op: OpCPL, Dst: OperandC})
	one(0x85, Instruction{Op: OpCLR, Dst: OperandF0})
	one(0x95, Instruction{Op: OpCPL, Dst: OperandF0})
	one(0xA5, Instruction{Op: OpCLR, Dst: OperandF1})
	one(0xB5, Instruction{Op: OpCPL, Dst: OperandF1})
	one(0x42, Instruction{Op: OpMOV, Dst: OperandA, Src: OperandT})
	one(0x62, Instruction{Op: OpMOV, Dst: OperandT, Src: OperandA})
	one(0xC7, Instruction{Op: OpMOV, Dst: OperandA, Src: OperandPSW})
	one(0xD7, Instruction{Op: OpMOV, Dst: OperandPSW, Src: OperandA})

	// Program memory and control flow.
	two(0x83, Instruction{Op: OpRET})
	two(0x93, Instruction{Op: OpRETR})
	two(0xA3, Instruction{Op: OpMOVP, Dst: OperandA, Src: OperandAtA})
	two(0xE3, Instruction{Op: OpMOVP3, Dst: OperandA, Src: OperandAtA})
	two(0xB3, Instruction{Op: OpJMPP, Dst: OperandAtA})

	// Interrupt, timer and bank control.
	one(0x05, Instruction{Op: OpEN, Dst: OperandI})
	one(0x15, Instruction{Op: OpDIS, Dst: OperandI})
	one(0x25, Instruction{Op: OpEN, Dst: OperandTCNTI})
	one(0x35, Instruction{Op: OpDIS, Dst: OperandTCNTI})
	one(0x45, Instruction{Op: OpSTRT, Dst: OperandCNT})
	one(0x55, Instruction{Op: OpSTRT, Dst: OperandT})
	one(0x65, Instruction{Op: OpSTOP})
	one(0xC5, Instruction{Op: OpSEL, Dst: OperandRB, Bit: 0})
	one(0xD5, Instruction{Op: OpSEL, Dst: OperandRB, Bit: 1})
	one(0xE5, Instruction{Op: OpSEL, Dst: OperandMB, Bit: 0})
	one(0xF5, Instruction{Op: OpSEL, Dst: OperandMB, Bit: 1})

	// Ports.
	two(0x39, Instruction{Op: OpOUTL, Dst: OperandPort, Src: OperandA, Port: 1})
	two(0x3A, Instruction{Op: OpOUTL, Dst: OperandPort, Src: OperandA, Port: 2})
	twoImm(0x89, Instruction{Op: OpORL, Dst: OperandPort, Src: OperandImm, Port: 1})
	twoImm(0x8A, Instruction{Op: OpORL, Dst: OperandPort, Src: OperandImm, Port: 2})
	twoImm(0x99, Instruction{Op: OpANL, Dst: OperandPort, Src: OperandImm, Port: 1})
	twoImm(0x9A, Instruction{Op: OpANL, Dst: OperandPort, Src: OperandImm, Port: 2})

	// Defined by the chip, not modelled here.
	for _, opcode := range []uint8{
		0x02, 0x08, 0x09, 0x0A, 0x0C, 0x0D, 0x0E, 0x0F,
		0x3C, 0x3D, 0x3E, 0x3F, 0x8C, 0x8D, 0x8E, 0x8F,
		0x9C, 0x9D, 0x9E, 0x9F,
	} {
		two(opcode, Instruction{Op: OpUnsupported})
	}
	one(0x75, Instruction{Op: OpUnsupported})
	twoImm(0x88, Instruction{Op: OpUnsupported})
	twoImm(0x98, Instruction{Op: OpUnsupported})

	return t
}
