// Package parser converts the FS26 wire formats to structured types and vice-versa.
//
// Telemetry packet (radio payload, little-endian, 24 bytes, no padding):
//
//	0 MAGIC u32 | 4 LAT f32 | 8 LON f32 | 12 SPEED f32 | 16 ALT f32 | 20 TX u16 | 22 SATS u8 | 23 FIX u8
//
// Relay line (receiver -> host serial):
//
//	FS26,TX,LAT,LON,SPEED,ALT,SATS,FIX,RSSI,SNR,RX
package parser

import (
	"FS26Rx/internal/model"
	"encoding/binary"
	"math"
)

// Magic identifies an FS26 telemetry frame ("FS26" in ASCII).
const Magic uint32 = 0x46533236

// PacketSize is the length of the fixed telemetry layout.
const PacketSize = 24

const (
	offMagic      = 0
	offLatitude   = 4
	offLongitude  = 8
	offSpeed      = 12
	offAltitude   = 16
	offTxCount    = 20
	offSatellites = 22
	offFixValid   = 23
)

// DecodePacket decodes the first PacketSize bytes of raw.
// Longer buffers are accepted and the trailing bytes ignored; values are not range checked.
func DecodePacket(raw []byte) (model.TelemetryPacket, error) {
	if len(raw) < PacketSize {
		return model.TelemetryPacket{}, &ShortPacketError{Length: len(raw)}
	}
	le := binary.LittleEndian
	p := model.TelemetryPacket{
		Magic:      le.Uint32(raw[offMagic:]),
		Latitude:   math.Float32frombits(le.Uint32(raw[offLatitude:])),
		Longitude:  math.Float32frombits(le.Uint32(raw[offLongitude:])),
		SpeedKph:   math.Float32frombits(le.Uint32(raw[offSpeed:])),
		Altitude:   math.Float32frombits(le.Uint32(raw[offAltitude:])),
		TxCount:    le.Uint16(raw[offTxCount:]),
		Satellites: raw[offSatellites],
		FixValid:   raw[offFixValid],
	}
	if p.Magic != Magic {
		return model.TelemetryPacket{}, &BadMagicError{Actual: p.Magic}
	}
	return p, nil
}

// EncodePacket serializes p into the 24-byte layout. The magic field is written as given.
func EncodePacket(p model.TelemetryPacket) []byte {
	buf := make([]byte, PacketSize)
	le := binary.LittleEndian
	le.PutUint32(buf[offMagic:], p.Magic)
	le.PutUint32(buf[offLatitude:], math.Float32bits(p.Latitude))
	le.PutUint32(buf[offLongitude:], math.Float32bits(p.Longitude))
	le.PutUint32(buf[offSpeed:], math.Float32bits(p.SpeedKph))
	le.PutUint32(buf[offAltitude:], math.Float32bits(p.Altitude))
	le.PutUint16(buf[offTxCount:], p.TxCount)
	buf[offSatellites] = p.Satellites
	buf[offFixValid] = p.FixValid
	return buf
}
