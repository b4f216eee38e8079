package gps

import (
	"FS26Rx/internal/model"
	"FS26Rx/internal/util"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrUnsupported is returned for sentences other than GGA and RMC.
var ErrUnsupported = errors.New("unsupported NMEA sentence")

// Sentence is the subset of a GGA or RMC sentence that feeds a Fix.
type Sentence struct {
	Type       string // "GGA" or "RMC"
	Lat, Lon   float64
	HasPos     bool
	Altitude   float64 // GGA
	Satellites int     // GGA
	Quality    int     // GGA fix quality, 0 = invalid
	SpeedKph   float64 // RMC
	Active     bool    // RMC status A
}

// ParseSentence parses a GGA or RMC sentence from any talker (GP, GN, GL...).
// The checksum, when present, is verified.
func ParseSentence(line string) (Sentence, error) {
	line = strings.TrimSpace(line)
	if len(line) < 7 || line[0] != '$' {
		return Sentence{}, fmt.Errorf("not an NMEA sentence: %q", line)
	}
	body := line[1:]
	if i := strings.IndexByte(body, '*'); i >= 0 {
		if err := verifyChecksum(body[:i], body[i+1:]); err != nil {
			return Sentence{}, err
		}
		body = body[:i]
	}
	parts := strings.Split(body, ",")
	if len(parts[0]) != 5 {
		return Sentence{}, fmt.Errorf("invalid NMEA address %q", parts[0])
	}
	typ := parts[0][2:]

	var s Sentence
	switch typ {
	case "GGA":
		// GGA,time,lat,N,lon,E,quality,numSV,hdop,alt,M,...
		if len(parts) < 10 {
			return Sentence{}, fmt.Errorf("short GGA sentence: %d fields", len(parts))
		}
		s.Type = typ
		s.Lat, s.Lon, s.HasPos = position(parts[2], parts[3], parts[4], parts[5])
		s.Quality, _ = strconv.Atoi(parts[6])
		s.Satellites, _ = strconv.Atoi(parts[7])
		s.Altitude, _ = strconv.ParseFloat(parts[9], 64)
	case "RMC":
		// RMC,time,status,lat,N,lon,E,sog_knots,cog,date,...
		if len(parts) < 8 {
			return Sentence{}, fmt.Errorf("short RMC sentence: %d fields", len(parts))
		}
		s.Type = typ
		s.Active = parts[2] == "A"
		s.Lat, s.Lon, s.HasPos = position(parts[3], parts[4], parts[5], parts[6])
		if knots, err := strconv.ParseFloat(parts[7], 64); err == nil {
			s.SpeedKph = knots * util.KnotsToKph
		}
	default:
		return Sentence{}, fmt.Errorf("%w: %s", ErrUnsupported, parts[0])
	}
	return s, nil
}

// Apply merges s into f.
func (s Sentence) Apply(f model.Fix) model.Fix {
	if s.HasPos {
		f.Lat, f.Lon = s.Lat, s.Lon
	}
	switch s.Type {
	case "GGA":
		f.Altitude = s.Altitude
		f.Satellites = s.Satellites
		f.Valid = s.Quality > 0 && s.HasPos
	case "RMC":
		f.SpeedKph = s.SpeedKph
		if !s.Active {
			f.Valid = false
		}
	}
	return f
}

func position(lat, ns, lon, ew string) (float64, float64, bool) {
	if lat == "" || lon == "" {
		return 0, 0, false
	}
	la, err1 := util.ParseNMEACoord(lat, ns)
	lo, err2 := util.ParseNMEACoord(lon, ew)
	if err1 != nil || err2 != nil {
		return 0, 0, false
	}
	return la, lo, true
}

func verifyChecksum(body, sum string) error {
	want, err := strconv.ParseUint(strings.TrimSpace(sum), 16, 8)
	if err != nil {
		return fmt.Errorf("invalid NMEA checksum %q", sum)
	}
	var got byte
	for i := 0; i < len(body); i++ {
		got ^= body[i]
	}
	if got != byte(want) {
		return fmt.Errorf("NMEA checksum mismatch: got %02X, want %02X", got, want)
	}
	return nil
}
