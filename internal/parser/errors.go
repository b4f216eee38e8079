package parser

import (
	"errors"
	"fmt"
)

var (
	ErrTooShort  = errors.New("packet too small")
	ErrBadMagic  = errors.New("invalid magic")
	ErrRelayLine = errors.New("invalid relay line")
)

// ShortPacketError is returned for buffers shorter than PacketSize.
type ShortPacketError struct {
	Length int
}

func (e *ShortPacketError) Error() string {
	return fmt.Sprintf("packet too small: %d bytes (expected >= %d)", e.Length, PacketSize)
}

func (e *ShortPacketError) Unwrap() error { return ErrTooShort }

// BadMagicError carries the magic value found in a rejected frame.
type BadMagicError struct {
	Actual uint32
}

func (e *BadMagicError) Error() string {
	return fmt.Sprintf("invalid magic: 0x%08X (expected 0x%08X)", e.Actual, Magic)
}

func (e *BadMagicError) Unwrap() error { return ErrBadMagic }
