// Package radio defines the capability the receive loop needs from a LoRa transceiver,
// and the drivers that provide it: an LR1121 on SPI/GPIO and a host simulator.
package radio

import (
	"FS26Rx/internal/model"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
)

var (
	ErrBusyTimeout = errors.New("radio busy timeout")
	ErrClosed      = errors.New("radio closed")
)

// IRQ is the transceiver interrupt status bitmask, LR11xx bit positions.
type IRQ uint32

const (
	IRQTxDone           IRQ = 1 << 2
	IRQRxDone           IRQ = 1 << 3
	IRQPreambleDetected IRQ = 1 << 4
	IRQHeaderValid      IRQ = 1 << 5
	IRQHeaderError      IRQ = 1 << 6
	IRQCRCError         IRQ = 1 << 7
	IRQCADDone          IRQ = 1 << 8
	IRQCADDetected      IRQ = 1 << 9
	IRQTimeout          IRQ = 1 << 10

	IRQAll IRQ = 0xFFFFFFFF
)

// IRQTerminal is the set of bits that end a receive cycle.
const IRQTerminal = IRQRxDone | IRQCRCError | IRQTimeout

var irqNames = []struct {
	bit  IRQ
	name string
}{
	{IRQTxDone, "TX_DONE"},
	{IRQRxDone, "RX_DONE"},
	{IRQPreambleDetected, "PREAMBLE_DETECTED"},
	{IRQHeaderValid, "HEADER_VALID"},
	{IRQHeaderError, "HEADER_ERROR"},
	{IRQCRCError, "CRC_ERROR"},
	{IRQCADDone, "CAD_DONE"},
	{IRQCADDetected, "CAD_DETECTED"},
	{IRQTimeout, "TIMEOUT"},
}

// Has reports whether any bit of mask is set.
func (s IRQ) Has(mask IRQ) bool { return s&mask != 0 }

// Terminal reports whether s contains a packet-done, CRC-error or timeout bit.
func (s IRQ) Terminal() bool { return s.Has(IRQTerminal) }

// Hex formats the raw status as 0x%08X.
func (s IRQ) Hex() string { return fmt.Sprintf("0x%08X", uint32(s)) }

func (s IRQ) String() string {
	if s == 0 {
		return "none"
	}
	var parts []string
	rest := s
	for _, n := range irqNames {
		if s&n.bit != 0 {
			parts = append(parts, n.name)
			rest &^= n.bit
		}
	}
	if rest != 0 {
		parts = append(parts, fmt.Sprintf("0x%08X", uint32(rest)))
	}
	return strings.Join(parts, "|")
}

// PacketStatus is the link quality of the last received packet.
type PacketStatus struct {
	RSSI int8 // dBm
	SNR  int8 // dB
}

// BufferStatus locates the last received payload in the radio buffer.
type BufferStatus struct {
	Length uint8
	Offset uint8
}

// Radio is the transceiver capability consumed by the receive cycle.
// Any error is a transport failure; there is no recoverable error path.
type Radio interface {
	SetIdle() error
	ClearIRQ(mask IRQ) error
	StartRx() error
	IRQStatus() (IRQ, error)
	PacketStatus() (PacketStatus, error)
	BufferStatus() (BufferStatus, error)
	ReadBuffer(offset, length uint8) ([]byte, error)
	Close() error
}

// Interrupter is implemented by radios that deliver an interrupt line.
// The handler runs in the interrupt context and must only set a flag.
type Interrupter interface {
	OnInterrupt(fn func())
}

// Open builds the driver selected by cfg.Driver.
func Open(cfg model.RadioConfig, logger zerolog.Logger) (Radio, error) {
	switch cfg.Driver {
	case model.DriverLR1121:
		r, err := OpenLR1121(cfg, logger)
		if err != nil {
			return nil, err
		}
		return r, nil
	case model.DriverSim:
		s, err := NewSim(cfg.Sim, logger)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown radio driver %q", cfg.Driver)
	}
}
