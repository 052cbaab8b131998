package emu

// ALU implements MCS-48 arithmetic and logic operations on the accumulator.
type ALU struct {
	regFile *RegFile
}

// NewALU creates a new ALU connected to the given register file.
func NewALU(regFile *RegFile) *ALU {
	return &ALU{regFile: regFile}
}

// ADD performs A = A + v. C and AC are recomputed from the 8-bit and
// low-nibble sums.
func (a *ALU) ADD(v uint8) {
	a.add(v, 0)
}

// ADDC performs A = A + v + C.
func (a *ALU) ADDC(v uint8) {
	var carry uint16
	if a.regFile.C {
		carry = 1
	}
	a.add(v, carry)
}

func (a *ALU) add(v uint8, carry uint16) {
	acc := a.regFile.A

	a.regFile.AC = uint16(acc&0x0F)+uint16(v&0x0F)+carry > 0x0F

	sum := uint16(acc) + uint16(v) + carry
	a.regFile.C = sum > 0xFF
	a.regFile.A = uint8(sum)
}

// ANL performs A = A & v.
func (a *ALU) ANL(v uint8) {
	a.regFile.A &= v
}

// ORL performs A = A | v.
func (a *ALU) ORL(v uint8) {
	a.regFile.A |= v
}

// XRL performs A = A ^ v.
func (a *ALU) XRL(v uint8) {
	a.regFile.A ^= v
}

// DA performs the decimal adjust of A after a BCD addition.
func (a *ALU) DA() {
	r := a.regFile

	if r.A&0x0F > 0x09 || r.AC {
		if r.A > 0xF9 {
			r.C = true
		}
		r.A += 6
	}

	hi := r.A >> 4
	if hi > 9 || r.C {
		hi += 6
		r.C = true
	}
	r.A = r.A&0x0F | hi<<4
}

// SWAP exchanges the nibbles of A.
func (a *ALU) SWAP() {
	a.regFile.A = a.regFile.A<<4 | a.regFile.A>>4
}

// RL rotates A left.
func (a *ALU) RL() {
	a.regFile.A = a.regFile.A<<1 | a.regFile.A>>7
}

// RLC rotates A left through carry.
func (a *ALU) RLC() {
	r := a.regFile
	carryIn := r.C
	r.C = r.A&0x80 != 0
	r.A <<= 1
	if carryIn {
		r.A |= 0x01
	}
}

// RR rotates A right.
func (a *ALU) RR() {
	a.regFile.A = a.regFile.A>>1 | a.regFile.A<<7
}

// RRC rotates A right through carry.
func (a *ALU) RRC() {
	r := a.regFile
	carryIn := r.C
	r.C = r.A&0x01 != 0
	r.A >>= 1
	if carryIn {
		r.A |= 0x80
	}
}
