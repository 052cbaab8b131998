package emu

// Memory sizes of the chip.
const (
	ROMSize = 4096
	RAMSize = 128
)

// Data store layout.
const (
	// Bank1Base is the RAM address of R0 in register bank 1.
	Bank1Base = 24
	// StackBase is the RAM address of the first stack level.
	StackBase = 8
)

// Memory holds the program store and the internal data store.
type Memory struct {
	rom [ROMSize]byte
	ram [RAMSize]byte
}

// NewMemory creates a zeroed memory.
func NewMemory() *Memory {
	return &Memory{}
}

// LoadROM copies a program image into the program store. Images shorter
// than ROMSize leave the remaining bytes zero.
func (m *Memory) LoadROM(data []byte) {
	m.rom = [ROMSize]byte{}
	copy(m.rom[:], data)
}

// ROM returns the program store. The slice aliases the store.
func (m *Memory) ROM() []byte {
	return m.rom[:]
}

// ReadROM reads a program byte. Addresses wrap at 12 bits.
func (m *Memory) ReadROM(addr uint16) uint8 {
	return m.rom[addr&(ROMSize-1)]
}

// Read reads a data store byte. Addresses wrap at 7 bits.
func (m *Memory) Read(addr uint8) uint8 {
	return m.ram[addr&(RAMSize-1)]
}

// Write writes a data store byte. Addresses wrap at 7 bits.
func (m *Memory) Write(addr uint8, value uint8) {
	m.ram[addr&(RAMSize-1)] = value
}

// RAM returns a copy of the data store.
func (m *Memory) RAM() [RAMSize]byte {
	return m.ram
}

// ClearRAM zeroes the data store.
func (m *Memory) ClearRAM() {
	m.ram = [RAMSize]byte{}
}
