package emu

import (
	"errors"
	"fmt"
)

var (
	// ErrUnsupported is wrapped by UnsupportedError.
	ErrUnsupported = errors.New("unsupported instruction")
	// ErrNoROM is returned when stepping before a program is loaded.
	ErrNoROM = errors.New("no ROM loaded")
)

// UnsupportedError reports an opcode the chip defines but this emulator
// does not model, such as bus writes and expander port access.
type UnsupportedError struct {
	Opcode   uint8
	Addr     uint16
	Mnemonic string
}

func (e *UnsupportedError) Error() string {
	return fmt.Sprintf("unsupported instruction %s (0x%02X) at 0x%03X",
		e.Mnemonic, e.Opcode, e.Addr)
}

// Unwrap returns ErrUnsupported.
func (e *UnsupportedError) Unwrap() error {
	return ErrUnsupported
}

// IllegalOpcode describes an unassigned opcode that was executed. It is
// a diagnostic, not an error: execution continues at the next address.
type IllegalOpcode struct {
	Opcode uint8
	Addr   uint16
}

func (i IllegalOpcode) String() string {
	return fmt.Sprintf("illegal opcode 0x%02X at 0x%03X", i.Opcode, i.Addr)
}
