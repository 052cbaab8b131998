package main

import (
	"fmt"
	"io"
	"os"

	"github.com/sarchlab/klrsim/insts"
	"github.com/sarchlab/klrsim/loader"
)

type disasmCmd struct {
	ROM   string `arg:"" type:"existingfile" help:"4096-byte program image."`
	Start uint16 `name:"start" default:"0" help:"First address."`
	Count int    `name:"count" short:"n" default:"64" help:"Number of instructions (0 for the whole image)."`
}

func (c *disasmCmd) Run(g *Globals) error {
	img, err := loader.Load(c.ROM)
	if err != nil {
		return err
	}

	disassemble(os.Stdout, img.Data[:], c.Start, c.Count)
	return nil
}

// disassemble writes count instructions starting at start, one per line
// with address and raw bytes. A count of 0 runs to the end of the image.
func disassemble(w io.Writer, rom []byte, start uint16, count int) {
	decoder := insts.NewDecoder()

	addr := int(start) % len(rom)
	for n := 0; count == 0 || n < count; n++ {
		if count == 0 && addr >= len(rom) {
			return
		}

		text, size := decoder.Disassemble(rom, uint16(addr))
		raw := fmt.Sprintf("%02X", rom[addr%len(rom)])
		if size == 2 {
			raw += fmt.Sprintf(" %02X", rom[(addr+1)%len(rom)])
		}
		fmt.Fprintf(w, "%03X  %-5s  %s\n", addr%len(rom), raw, text)

		addr += size
	}
}
