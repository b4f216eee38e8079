package parser

import (
	"FS26Rx/internal/model"
	"fmt"
	"strconv"
	"strings"
)

const (
	relayTag    = "FS26"
	relayFields = 11
)

// EncodeReportCSV converts a Report into the relay line sent to the host.
// Format: FS26,TX,LAT,LON,SPEED,ALT,SATS,FIX,RSSI,SNR,RX
func EncodeReportCSV(r model.Report) string {
	p := r.Packet
	return fmt.Sprintf("%s,%d,%.6f,%.6f,%.1f,%.1f,%d,%d,%d,%d,%d",
		relayTag, p.TxCount, p.Latitude, p.Longitude, p.SpeedKph, p.Altitude,
		p.Satellites, p.FixValid, r.RSSI, r.SNR, r.RxCount)
}

// DecodeReportCSV parses a relay line back into a Report.
// The magic of the returned packet is set to Magic; ID and timestamps are left zero.
func DecodeReportCSV(line string) (model.Report, error) {
	fields := strings.Split(strings.TrimSpace(line), ",")
	if len(fields) != relayFields {
		return model.Report{}, fmt.Errorf("%w: expected %d fields, got %d", ErrRelayLine, relayFields, len(fields))
	}
	if fields[0] != relayTag {
		return model.Report{}, fmt.Errorf("%w: unexpected tag %q", ErrRelayLine, fields[0])
	}

	var err error
	field := func(i int, name string, bits int, signed bool) int64 {
		if err != nil {
			return 0
		}
		var v int64
		if signed {
			v, err = strconv.ParseInt(fields[i], 10, bits)
		} else {
			var u uint64
			u, err = strconv.ParseUint(fields[i], 10, bits)
			v = int64(u)
		}
		if err != nil {
			err = fmt.Errorf("%w: invalid %s", ErrRelayLine, name)
		}
		return v
	}
	float := func(i int, name string) float32 {
		if err != nil {
			return 0
		}
		var v float64
		v, err = strconv.ParseFloat(fields[i], 32)
		if err != nil {
			err = fmt.Errorf("%w: invalid %s", ErrRelayLine, name)
		}
		return float32(v)
	}

	r := model.Report{
		Packet: model.TelemetryPacket{
			Magic:      Magic,
			TxCount:    uint16(field(1, "tx_count", 16, false)),
			Latitude:   float(2, "lat"),
			Longitude:  float(3, "lon"),
			SpeedKph:   float(4, "speed"),
			Altitude:   float(5, "altitude"),
			Satellites: uint8(field(6, "satellites", 8, false)),
			FixValid:   uint8(field(7, "fix", 8, false)),
		},
		RSSI:    int8(field(8, "rssi", 8, true)),
		SNR:     int8(field(9, "snr", 8, true)),
		RxCount: uint32(field(10, "rx_count", 32, false)),
	}
	if err != nil {
		return model.Report{}, err
	}
	return r, nil
}
