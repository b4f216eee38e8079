// Package util provides NMEA coordinate conversion utilities for GPS data.
// It supports parsing from ddmm.mmmm format and conversion to decimal degrees.
package util

import (
	"fmt"
	"strconv"
)

// KnotsToKph converts a speed over ground in knots to km/h.
const KnotsToKph = 1.852

// ParseNMEACoord converts NMEA ddmm.mmmm format to decimal degrees.
// For example, 2101.7102,N -> 21.0285033
func ParseNMEACoord(value string, dir string) (float64, error) {
	if len(value) < 4 {
		return 0, fmt.Errorf("invalid NMEA coord %q", value)
	}
	var degPart, minPart string
	switch dir {
	case "N", "S":
		degPart = value[:2]
		minPart = value[2:]
	case "E", "W":
		degPart = value[:3]
		minPart = value[3:]
	default:
		return 0, fmt.Errorf("invalid NMEA hemisphere %q", dir)
	}
	deg, err := strconv.ParseFloat(degPart, 64)
	if err != nil {
		return 0, err
	}
	min, err := strconv.ParseFloat(minPart, 64)
	if err != nil {
		return 0, err
	}
	if min >= 60 {
		return 0, fmt.Errorf("invalid NMEA minutes %q", minPart)
	}
	dec := deg + min/60.0
	if dir == "S" || dir == "W" {
		dec = -dec
	}
	return dec, nil
}
