// Package model defines shared message structures for FS26Rx.
package model

import (
	"time"

	"github.com/google/uuid"
)

// TelemetryPacket is the decoded form of the 24-byte packet sent by the FS26 transmitter.
type TelemetryPacket struct {
	Magic      uint32  `json:"magic"`
	Latitude   float32 `json:"lat"`
	Longitude  float32 `json:"lon"`
	SpeedKph   float32 `json:"speed_kph"`
	Altitude   float32 `json:"altitude"`
	TxCount    uint16  `json:"tx_count"`
	Satellites uint8   `json:"satellites"`
	FixValid   uint8   `json:"fix_valid"`
}

// HasFix reports whether the transmitter had a valid GPS fix.
func (p TelemetryPacket) HasFix() bool { return p.FixValid != 0 }

// Report is a decoded packet together with the link quality it arrived with.
// It is what the receive loop hands to its sinks.
type Report struct {
	ID         uuid.UUID       `json:"id"`
	SessionID  uuid.UUID       `json:"session_id"`
	Packet     TelemetryPacket `json:"packet"`
	RSSI       int8            `json:"rssi"`
	SNR        int8            `json:"snr"`
	RxCount    uint32          `json:"rx_count"`
	ReceivedAt time.Time       `json:"received_at"`
}

// Stats is a snapshot of the receive session counters.
type Stats struct {
	SessionID uuid.UUID `json:"session_id"`
	StartedAt time.Time `json:"started_at"`
	State     string    `json:"state"`
	Received  uint32    `json:"received"`
	Errors    uint32    `json:"errors"`
	Timeouts  uint64    `json:"timeouts"`
	Unknown   uint64    `json:"unknown_irq"`
	Oversized uint64    `json:"oversized"`
	Rejected  uint64    `json:"rejected"`
	Decoded   uint64    `json:"decoded"`
}

// Fix is a GPS position as reported by an NMEA receiver.
type Fix struct {
	Lat        float64 `json:"lat"`
	Lon        float64 `json:"lon"`
	Altitude   float64 `json:"altitude"`
	SpeedKph   float64 `json:"speed_kph"`
	Satellites int     `json:"satellites"`
	Valid      bool    `json:"valid"`
}
