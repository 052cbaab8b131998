package insts

import "fmt"

// Disassemble returns the assembly text of the instruction at addr in
// rom together with its length in bytes. Addresses wrap at the size of
// rom, which must be non-empty.
func (d *Decoder) Disassemble(rom []byte, addr uint16) (string, int) {
	size := uint16(len(rom))
	inst := d.Decode(rom[addr%size])
	if !inst.HasOperandByte() {
		return inst.String(), 1
	}

	next := (addr + 1) % size
	operand := rom[next]

	switch inst.Op {
	case OpJMP, OpCALL:
		target := addr&0x800 | inst.Page | uint16(operand)
		return fmt.Sprintf("%s 0x%03X", inst, target), 2
	case OpJcc, OpDJNZ:
		target := next&0xF00 | uint16(operand)
		if inst.Op == OpDJNZ {
			return fmt.Sprintf("%s,0x%03X", inst, target), 2
		}
		return fmt.Sprintf("%s 0x%03X", inst, target), 2
	default:
		return fmt.Sprintf("%s0x%02X", inst, operand), 2
	}
}
