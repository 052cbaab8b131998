// Package cache provides a predecode cache of program-store instructions
// using Akita cache components.
//
// The program store never changes while a ROM runs, so a line of decoded
// descriptors stays valid until the ROM is reloaded. Lines are tagged and
// replaced through an Akita directory with LRU victim selection.
package cache

import (
	akitacache "github.com/sarchlab/akita/v4/mem/cache"

	"github.com/sarchlab/klrsim/insts"
)

// Config holds predecode cache configuration parameters.
type Config struct {
	// Size is the number of program bytes the cache covers.
	Size int
	// Associativity (number of ways)
	Associativity int
	// BlockSize is the number of program bytes per line.
	BlockSize int
}

// DefaultConfig returns a cache covering a quarter of the 4 KB program
// store in 16-byte lines.
func DefaultConfig() Config {
	return Config{
		Size:          1024,
		Associativity: 4,
		BlockSize:     16,
	}
}

// Statistics holds cache performance statistics.
type Statistics struct {
	Lookups   uint64
	Hits      uint64
	Misses    uint64
	Evictions uint64
}

// HitRate returns the fraction of lookups that hit, or 0 before any lookup.
func (s Statistics) HitRate() float64 {
	if s.Lookups == 0 {
		return 0
	}
	return float64(s.Hits) / float64(s.Lookups)
}

// BackingStore is the program store lines are filled from.
type BackingStore interface {
	// Read fetches size bytes starting at addr.
	Read(addr uint64, size int) []byte
}

// AccessResult contains the result of a cache lookup.
type AccessResult struct {
	// Hit indicates whether the line was already decoded.
	Hit bool
	// Inst is the descriptor of the opcode at the looked-up address.
	Inst *insts.Instruction
	// Evicted is true if filling the line replaced another valid line.
	Evicted bool
	// EvictedAddr is the line address of the evicted line.
	EvictedAddr uint64
}

// DecodeCache holds decoded instruction descriptors per program address.
type DecodeCache struct {
	config    Config
	directory *akitacache.DirectoryImpl
	decoder   *insts.Decoder
	backing   BackingStore

	// Decoded lines, indexed by (setID * associativity + wayID)
	lines [][]*insts.Instruction

	stats Statistics
}

// New creates a new predecode cache with the given configuration.
func New(config Config, decoder *insts.Decoder, backing BackingStore) *DecodeCache {
	numSets := config.Size / (config.Associativity * config.BlockSize)
	totalBlocks := numSets * config.Associativity

	lines := make([][]*insts.Instruction, totalBlocks)
	for i := range lines {
		lines[i] = make([]*insts.Instruction, config.BlockSize)
	}

	return &DecodeCache{
		config: config,
		directory: akitacache.NewDirectory(
			numSets,
			config.Associativity,
			config.BlockSize,
			akitacache.NewLRUVictimFinder(),
		),
		decoder: decoder,
		backing: backing,
		lines:   lines,
	}
}

// Config returns the cache configuration.
func (c *DecodeCache) Config() Config {
	return c.config
}

// Stats returns cache statistics.
func (c *DecodeCache) Stats() Statistics {
	return c.stats
}

// ResetStats clears cache statistics.
func (c *DecodeCache) ResetStats() {
	c.stats = Statistics{}
}

func (c *DecodeCache) blockIndex(block *akitacache.Block) int {
	return block.SetID*c.config.Associativity + block.WayID
}

func (c *DecodeCache) lineAddr(addr uint64) uint64 {
	return (addr / uint64(c.config.BlockSize)) * uint64(c.config.BlockSize)
}

// Lookup returns the descriptor of the opcode stored at addr.
func (c *DecodeCache) Lookup(addr uint16) AccessResult {
	c.stats.Lookups++

	a := uint64(addr)
	lineAddr := c.lineAddr(a)
	offset := a - lineAddr

	block := c.directory.Lookup(0, lineAddr)
	if block != nil && block.IsValid {
		c.stats.Hits++
		c.directory.Visit(block)

		return AccessResult{
			Hit:  true,
			Inst: c.lines[c.blockIndex(block)][offset],
		}
	}

	c.stats.Misses++
	return c.fill(lineAddr, offset)
}

// fill decodes a full line from the backing store into a victim block.
func (c *DecodeCache) fill(lineAddr, offset uint64) AccessResult {
	result := AccessResult{}

	victim := c.directory.FindVictim(lineAddr)
	if victim == nil {
		// Only possible with a zero-sized directory.
		raw := c.backing.Read(lineAddr+offset, 1)
		result.Inst = c.decoder.Decode(raw[0])
		return result
	}

	if victim.IsValid {
		c.stats.Evictions++
		result.Evicted = true
		result.EvictedAddr = victim.Tag
	}

	line := c.lines[c.blockIndex(victim)]
	raw := c.backing.Read(lineAddr, c.config.BlockSize)
	for i, b := range raw {
		line[i] = c.decoder.Decode(b)
	}

	victim.Tag = lineAddr
	victim.IsValid = true
	victim.IsDirty = false
	c.directory.Visit(victim)

	result.Inst = line[offset]
	return result
}

// Invalidate drops the line holding addr.
func (c *DecodeCache) Invalidate(addr uint16) {
	block := c.directory.Lookup(0, c.lineAddr(uint64(addr)))
	if block != nil && block.IsValid {
		block.IsValid = false
	}
}

// ValidLines returns the number of lines currently holding decoded data.
func (c *DecodeCache) ValidLines() int {
	n := 0
	for _, set := range c.directory.GetSets() {
		for _, block := range set.Blocks {
			if block.IsValid {
				n++
			}
		}
	}
	return n
}

// Reset invalidates all lines and clears statistics. Call it whenever the
// program store is reloaded.
func (c *DecodeCache) Reset() {
	c.directory.Reset()
	c.stats = Statistics{}
}
