package emu

// BranchUnit implements MCS-48 jumps, calls and returns.
//
// The return stack occupies data store [8,23], two bytes per level. The
// low byte holds PC bits 7-0; the high byte holds PC bits 11-8 in its
// low nibble and the PSW flags in its high nibble. SP wraps modulo 8.
type BranchUnit struct {
	regFile *RegFile
	memory  *Memory
}

// NewBranchUnit creates a new BranchUnit connected to the given register
// file and memory.
func NewBranchUnit(regFile *RegFile, memory *Memory) *BranchUnit {
	return &BranchUnit{regFile: regFile, memory: memory}
}

// Push saves a return address and the PSW flags on the stack.
func (b *BranchUnit) Push(ret uint16) {
	r := b.regFile
	addr := StackBase + 2*(r.SP&PSWSPMask)

	b.memory.Write(addr, uint8(ret))
	b.memory.Write(addr+1, uint8(ret>>8)&0x0F|r.PSW()&0xF0)

	r.SP = (r.SP + 1) & PSWSPMask
}

// Pull pops a stack level and returns the saved address and flag nibble.
func (b *BranchUnit) Pull() (ret uint16, flags uint8) {
	r := b.regFile
	r.SP = (r.SP - 1) & PSWSPMask
	addr := StackBase + 2*r.SP

	lo := b.memory.Read(addr)
	hi := b.memory.Read(addr + 1)

	return uint16(hi&0x0F)<<8 | uint16(lo), hi & 0xF0
}

// Jump sets the PC.
func (b *BranchUnit) Jump(target uint16) {
	b.regFile.PC = target & (ROMSize - 1)
}

// Call pushes ret and jumps to target.
func (b *BranchUnit) Call(target, ret uint16) {
	b.Push(ret)
	b.Jump(target)
}

// Ret restores the PC from the stack. The saved flags are ignored.
func (b *BranchUnit) Ret() {
	ret, _ := b.Pull()
	b.regFile.PC = ret
}

// Retr restores the PC and the PSW flags from the stack.
func (b *BranchUnit) Retr() {
	ret, flags := b.Pull()
	b.regFile.PC = ret
	b.regFile.SetFlags(flags)
}

// PageTarget returns the in-page target of a conditional jump whose
// operand byte sits at operandAddr.
func PageTarget(operandAddr uint16, operand uint8) uint16 {
	return operandAddr&0xF00 | uint16(operand)
}
