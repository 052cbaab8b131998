// Package loader provides ROM image loading for the MCS-48 program store.
package loader

import (
	"errors"
	"fmt"
	"io"
	"os"
)

// ROMSize is the size of the program store in bytes.
const ROMSize = 4096

// ExternalSize is the size of the external data memory addressed by MOVX.
const ExternalSize = 256

var (
	// ErrShortROM is returned when an image has fewer than ROMSize bytes.
	ErrShortROM = errors.New("ROM image is shorter than 4096 bytes")
	// ErrOversizeROM is returned when an image has more than ROMSize bytes.
	ErrOversizeROM = errors.New("ROM image is longer than 4096 bytes")
)

// Image is a program store image ready for loading into the emulator.
// Byte i is the opcode or operand at program address i.
type Image struct {
	// Path is the file the image was read from, empty for in-memory images.
	Path string
	// Data holds the program store contents.
	Data [ROMSize]byte
}

// Load reads a flat binary ROM image of exactly ROMSize bytes.
func Load(path string) (*Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open ROM file: %w", err)
	}
	defer func() { _ = f.Close() }()

	img, err := Read(f)
	if err != nil {
		return nil, fmt.Errorf("failed to load ROM %s: %w", path, err)
	}
	img.Path = path

	return img, nil
}

// Read reads a ROM image of exactly ROMSize bytes from r.
func Read(r io.Reader) (*Image, error) {
	img := &Image{}

	n, err := io.ReadFull(r, img.Data[:])
	if err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: got %d bytes", ErrShortROM, n)
		}
		return nil, fmt.Errorf("failed to read ROM data: %w", err)
	}

	var extra [1]byte
	if m, _ := r.Read(extra[:]); m > 0 {
		return nil, ErrOversizeROM
	}

	return img, nil
}

// FromBytes builds an image from a byte slice of exactly ROMSize bytes.
func FromBytes(data []byte) (*Image, error) {
	switch {
	case len(data) < ROMSize:
		return nil, fmt.Errorf("%w: got %d bytes", ErrShortROM, len(data))
	case len(data) > ROMSize:
		return nil, ErrOversizeROM
	}

	img := &Image{}
	copy(img.Data[:], data)
	return img, nil
}

// LoadExternal reads an external memory image. Files shorter than
// ExternalSize are zero-filled; longer files are rejected.
func LoadExternal(path string) ([ExternalSize]byte, error) {
	var mem [ExternalSize]byte

	data, err := os.ReadFile(path)
	if err != nil {
		return mem, fmt.Errorf("failed to read external memory file: %w", err)
	}
	if len(data) > ExternalSize {
		return mem, fmt.Errorf("external memory image %s has %d bytes, limit is %d",
			path, len(data), ExternalSize)
	}

	copy(mem[:], data)
	return mem, nil
}
