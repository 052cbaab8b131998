package cache

// ProgramBacking serves cache fills from a program store image.
// Addresses wrap at the image size.
type ProgramBacking struct {
	rom []byte
}

// NewProgramBacking creates a backing store over rom. The slice is not
// copied, so later writes to it are visible after the cache is reset.
func NewProgramBacking(rom []byte) *ProgramBacking {
	return &ProgramBacking{rom: rom}
}

// Read fetches size bytes starting at addr.
func (p *ProgramBacking) Read(addr uint64, size int) []byte {
	data := make([]byte, size)
	n := uint64(len(p.rom))
	for i := 0; i < size; i++ {
		data[i] = p.rom[(addr+uint64(i))%n]
	}
	return data
}
