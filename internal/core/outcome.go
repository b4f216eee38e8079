package core

import (
	"FS26Rx/internal/radio"
	"time"
)

// OutcomeKind tags the result of one receive cycle.
type OutcomeKind int

const (
	OutcomePacket OutcomeKind = iota
	OutcomeCRCError
	OutcomeTimeout
	OutcomeUnknownIRQ
	OutcomeOversized
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomePacket:
		return "packet"
	case OutcomeCRCError:
		return "crc_error"
	case OutcomeTimeout:
		return "timeout"
	case OutcomeUnknownIRQ:
		return "unknown_irq"
	case OutcomeOversized:
		return "oversized"
	default:
		return "invalid"
	}
}

// Outcome is the result of ArmAndReceive. Payload is only set for OutcomePacket.
type Outcome struct {
	Kind    OutcomeKind
	Payload []byte
	Length  int // length reported by the radio
	RSSI    int8
	SNR     int8
	Status  radio.IRQ // raw IRQ status read at the end of the cycle
	// Watchdog is set on a Timeout raised by the software watchdog rather than the radio.
	Watchdog bool
}

// Policy bounds one receive cycle.
type Policy struct {
	MaxPayload   int           // largest payload the caller accepts
	PollInterval time.Duration // direct IRQ status poll period
	Watchdog     time.Duration // 0 waits for the radio to report
}

// DefaultPolicy matches the receiver defaults: 255 byte buffer, 1 ms poll, no watchdog.
func DefaultPolicy() Policy {
	return Policy{MaxPayload: 255, PollInterval: time.Millisecond}
}
