package emu

// PSW bit positions.
const (
	PSWCarry    uint8 = 0x80
	PSWAuxCarry uint8 = 0x40
	PSWF0       uint8 = 0x20
	PSWBank     uint8 = 0x10
	// PSWOne always reads as 1.
	PSWOne    uint8 = 0x08
	PSWSPMask uint8 = 0x07
)

// BankBit is the program address bit selected by SEL MB1.
const BankBit uint16 = 0x800

// RegFile represents the MCS-48 register and flag state.
//
// The eight working registers live in the data store. Which eight bytes
// they occupy follows from BS alone, so the bank select flag and the
// register base can never disagree.
type RegFile struct {
	// A is the accumulator.
	A uint8

	// PC is the 12-bit program counter.
	PC uint16

	// PSW fields.
	C  bool
	AC bool
	F0 bool
	BS bool
	SP uint8

	// F1 is the second user flag. It is not part of the PSW.
	F1 bool

	// A11 is ORed into JMP and CALL targets. A11Shadow holds the value
	// restored by RETR.
	A11       uint16
	A11Shadow uint16

	// P1 and P2 are the output port latches.
	P1 uint8
	P2 uint8

	memory *Memory
}

// NewRegFile creates a register file whose working registers live in memory.
func NewRegFile(memory *Memory) *RegFile {
	return &RegFile{memory: memory}
}

// PSW returns the packed status word. Bit 3 always reads as 1.
func (r *RegFile) PSW() uint8 {
	psw := PSWOne | r.SP&PSWSPMask
	if r.C {
		psw |= PSWCarry
	}
	if r.AC {
		psw |= PSWAuxCarry
	}
	if r.F0 {
		psw |= PSWF0
	}
	if r.BS {
		psw |= PSWBank
	}
	return psw
}

// SetPSW unpacks a status word into the flags, bank select and SP.
func (r *RegFile) SetPSW(psw uint8) {
	r.SetFlags(psw)
	r.SP = psw & PSWSPMask
}

// SetFlags unpacks the upper nibble of a status word, leaving SP alone.
func (r *RegFile) SetFlags(psw uint8) {
	r.C = psw&PSWCarry != 0
	r.AC = psw&PSWAuxCarry != 0
	r.F0 = psw&PSWF0 != 0
	r.BS = psw&PSWBank != 0
}

// RegBase returns the data store address of R0 in the selected bank.
func (r *RegFile) RegBase() uint8 {
	if r.BS {
		return Bank1Base
	}
	return 0
}

// ReadReg reads working register Rn (n in 0-7) of the selected bank.
func (r *RegFile) ReadReg(n uint8) uint8 {
	return r.memory.Read(r.RegBase() + n&7)
}

// WriteReg writes working register Rn (n in 0-7) of the selected bank.
func (r *RegFile) WriteReg(n uint8, value uint8) {
	r.memory.Write(r.RegBase()+n&7, value)
}

// IndirectAddr returns the data store address held in R0 or R1.
func (r *RegFile) IndirectAddr(n uint8) uint8 {
	return r.ReadReg(n&1) & (RAMSize - 1)
}

// Bank returns the eight working registers of the selected bank.
func (r *RegFile) Bank() [8]uint8 {
	var regs [8]uint8
	for i := range regs {
		regs[i] = r.ReadReg(uint8(i))
	}
	return regs
}

// reset puts every field at its power-up value.
func (r *RegFile) reset() {
	memory := r.memory
	*r = RegFile{memory: memory}
}
