package core

import (
	"FS26Rx/internal/model"
	"fmt"
	"io"
	"strings"
	"sync"
)

const consoleRule = "========================================"

// ConsoleSink renders each report as a text box, the receiver's operator display.
type ConsoleSink struct {
	mu sync.Mutex
	w  io.Writer
}

// NewConsoleSink writes boxes to w.
func NewConsoleSink(w io.Writer) *ConsoleSink {
	return &ConsoleSink{w: w}
}

// Publish writes the box for r. Write errors are ignored; stdout has nowhere to report them.
func (c *ConsoleSink) Publish(r model.Report) {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, _ = io.WriteString(c.w, FormatReport(r))
}

// FormatReport renders r as the console box.
func FormatReport(r model.Report) string {
	p := r.Packet
	fix := "No Fix"
	if p.HasFix() {
		fix = "Valid"
	}
	var b strings.Builder
	b.WriteString("\n" + consoleRule + "\n")
	b.WriteString("   FS26 GPS TELEMETRY RECEIVED\n")
	b.WriteString(consoleRule + "\n")
	fmt.Fprintf(&b, "Position:   %.6f, %.6f\n", p.Latitude, p.Longitude)
	fmt.Fprintf(&b, "Speed:      %.1f kph\n", p.SpeedKph)
	fmt.Fprintf(&b, "Altitude:   %.1f m\n", p.Altitude)
	fmt.Fprintf(&b, "Satellites: %d\n", p.Satellites)
	fmt.Fprintf(&b, "GPS Fix:    %s\n", fix)
	fmt.Fprintf(&b, "TX Count:   %d\n", p.TxCount)
	b.WriteString("----------------------------------------\n")
	fmt.Fprintf(&b, "RSSI: %d dBm | SNR: %d dB | RX Count: %d\n", r.RSSI, r.SNR, r.RxCount)
	b.WriteString(consoleRule + "\n")
	return b.String()
}
