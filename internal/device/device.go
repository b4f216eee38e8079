// Package device defines the line-oriented serial devices used around the receiver:
// the relay link to a host, the host side of that link, and NMEA GPS receivers.
package device

import (
	"errors"
	"time"
)

var (
	ErrReadTimeout = errors.New("read timeout")
	ErrClosed      = errors.New("device closed")
)

// Device reads and writes newline-delimited text lines.
type Device interface {
	// ReadLine reads a single line without its terminator.
	// If timeout > 0, it returns ErrReadTimeout when no line arrives in time.
	ReadLine(timeout time.Duration) (string, error)

	// WriteLine writes s followed by '\n' to the device.
	WriteLine(s string) error

	// Close closes the device and releases underlying resources.
	Close() error
}
