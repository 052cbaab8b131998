package cache_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/klrsim/insts"
	"github.com/sarchlab/klrsim/timing/cache"
)

var _ = Describe("DecodeCache", func() {
	var (
		c   *cache.DecodeCache
		rom []byte
	)

	BeforeEach(func() {
		rom = make([]byte, 4096)
		// 256 bytes, 4-way, 16B lines = 4 sets
		config := cache.Config{
			Size:          256,
			Associativity: 4,
			BlockSize:     16,
		}
		c = cache.New(config, insts.NewDecoder(), cache.NewProgramBacking(rom))
	})

	Describe("Lookup", func() {
		It("should miss on a cold cache and decode the opcode", func() {
			rom[0x10] = 0x68 // ADD A,R0

			result := c.Lookup(0x10)
			Expect(result.Hit).To(BeFalse())
			Expect(result.Inst.Op).To(Equal(insts.OpADD))
			Expect(result.Inst.Opcode).To(Equal(uint8(0x68)))

			stats := c.Stats()
			Expect(stats.Lookups).To(Equal(uint64(1)))
			Expect(stats.Misses).To(Equal(uint64(1)))
		})

		It("should hit on other addresses in the same line", func() {
			rom[0x20] = 0x00
			rom[0x2F] = 0x27 // CLR A

			c.Lookup(0x20)
			result := c.Lookup(0x2F)

			Expect(result.Hit).To(BeTrue())
			Expect(result.Inst.Op).To(Equal(insts.OpCLR))
			Expect(c.Stats().HitRate()).To(BeNumerically("~", 0.5))
		})

		It("should return the same descriptor as the decoder", func() {
			decoder := insts.NewDecoder()
			for i := range rom {
				rom[i] = byte(i * 7)
			}

			for addr := uint16(0); addr < 4096; addr += 13 {
				Expect(c.Lookup(addr).Inst).To(BeIdenticalTo(decoder.Decode(rom[addr])))
			}
		})
	})

	Describe("Eviction", func() {
		It("should evict the least recently used line when a set is full", func() {
			// 4 sets of 16B lines, so set 0 holds 0x000, 0x040, 0x080, ...
			c.Lookup(0x000)
			c.Lookup(0x040)
			c.Lookup(0x080)
			c.Lookup(0x0C0)

			c.Lookup(0x040)
			c.Lookup(0x080)
			c.Lookup(0x0C0)

			result := c.Lookup(0x100)
			Expect(result.Hit).To(BeFalse())
			Expect(result.Evicted).To(BeTrue())
			Expect(result.EvictedAddr).To(Equal(uint64(0x000)))
			Expect(c.Stats().Evictions).To(Equal(uint64(1)))

			Expect(c.Lookup(0x040).Hit).To(BeTrue())
		})
	})

	Describe("Reset", func() {
		It("should drop decoded lines so a reloaded image is seen", func() {
			rom[0x00] = 0x00
			Expect(c.Lookup(0x00).Inst.Op).To(Equal(insts.OpNOP))

			rom[0x00] = 0x17 // INC A
			Expect(c.Lookup(0x00).Inst.Op).To(Equal(insts.OpNOP))

			c.Reset()
			Expect(c.ValidLines()).To(Equal(0))
			Expect(c.Lookup(0x00).Inst.Op).To(Equal(insts.OpINC))
		})
	})

	Describe("Invalidate", func() {
		It("should force the next lookup in that line to miss", func() {
			c.Lookup(0x30)
			c.Invalidate(0x31)

			Expect(c.Lookup(0x30).Hit).To(BeFalse())
		})
	})

	Describe("DefaultConfig", func() {
		It("should describe a 4-way cache of 16-byte lines", func() {
			config := cache.DefaultConfig()
			Expect(config.Size).To(Equal(1024))
			Expect(config.Associativity).To(Equal(4))
			Expect(config.BlockSize).To(Equal(16))
		})
	})
})
