package main

import (
	"FS26Rx/internal/core"
	"FS26Rx/internal/model"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

const (
	staleAfter = 5 * time.Second
	rateWindow = 10 * time.Second
)

type reportMsg model.Report

type badLineMsg struct {
	line string
	err  error
}

type readErrMsg struct{ err error }

type tickMsg time.Time

// dashboard is the bubbletea model of the monitor.
type dashboard struct {
	port    string
	hist    *core.History
	bad     int
	lastBad string
	lastAt  time.Time
	now     time.Time
	err     error
}

func newDashboard(port string, historySize int) *dashboard {
	return &dashboard{port: port, hist: core.NewHistory(historySize), now: time.Now()}
}

func tick() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (d *dashboard) Init() tea.Cmd { return tick() }

func (d *dashboard) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return d, tea.Quit
		}
	case reportMsg:
		r := model.Report(msg)
		if r.ReceivedAt.IsZero() {
			r.ReceivedAt = time.Now()
		}
		d.hist.Add(r)
		d.lastAt = r.ReceivedAt
	case badLineMsg:
		d.bad++
		d.lastBad = msg.line
	case readErrMsg:
		d.err = msg.err
		return d, tea.Quit
	case tickMsg:
		d.now = time.Time(msg)
		return d, tick()
	}
	return d, nil
}

// linkStats summarises the signal over the stored reports.
type linkStats struct {
	n                int
	minRSSI, maxRSSI int8
	avgRSSI          float64
	avgSNR           float64
	lost             int
}

func computeLinkStats(rs []model.Report) linkStats {
	var s linkStats
	if len(rs) == 0 {
		return s
	}
	s.n = len(rs)
	s.minRSSI, s.maxRSSI = rs[0].RSSI, rs[0].RSSI
	var rssiSum, snrSum int
	for i, r := range rs {
		if r.RSSI < s.minRSSI {
			s.minRSSI = r.RSSI
		}
		if r.RSSI > s.maxRSSI {
			s.maxRSSI = r.RSSI
		}
		rssiSum += int(r.RSSI)
		snrSum += int(r.SNR)
		if i > 0 {
			// uint16 arithmetic handles transmitter counter wrap.
			if gap := int(r.Packet.TxCount-rs[i-1].Packet.TxCount) - 1; gap > 0 {
				s.lost += gap
			}
		}
	}
	s.avgRSSI = float64(rssiSum) / float64(s.n)
	s.avgSNR = float64(snrSum) / float64(s.n)
	return s
}

// linkQuality grades an RSSI reading.
func linkQuality(rssi int8) string {
	switch {
	case rssi >= -70:
		return "excellent"
	case rssi >= -85:
		return "good"
	case rssi >= -100:
		return "fair"
	default:
		return "poor"
	}
}

// packetRate is packets per second over the last rateWindow before now.
func packetRate(rs []model.Report, now time.Time) float64 {
	n := 0
	for i := len(rs) - 1; i >= 0; i-- {
		if now.Sub(rs[i].ReceivedAt) > rateWindow {
			break
		}
		n++
	}
	return float64(n) / rateWindow.Seconds()
}

func (d *dashboard) status() string {
	switch {
	case d.lastAt.IsZero():
		return fmt.Sprintf("● %s (waiting for data)", d.port)
	case d.now.Sub(d.lastAt) >= staleAfter:
		return fmt.Sprintf("● %s (no data for %s)", d.port, d.now.Sub(d.lastAt).Round(time.Second))
	default:
		return fmt.Sprintf("● %s RX:%d", d.port, d.hist.Len())
	}
}

func (d *dashboard) View() string {
	var b strings.Builder
	b.WriteString("FS26 TELEMETRY MONITOR\n")
	b.WriteString(d.status() + "\n\n")

	latest, ok := d.hist.Latest()
	if !ok {
		b.WriteString("no telemetry yet\n")
	} else {
		p := latest.Packet
		fix := "No Fix"
		if p.HasFix() {
			fix = "Valid"
		}
		fmt.Fprintf(&b, "Position:   %.6f, %.6f\n", p.Latitude, p.Longitude)
		fmt.Fprintf(&b, "Speed:      %.1f kph\n", p.SpeedKph)
		fmt.Fprintf(&b, "Altitude:   %.1f m\n", p.Altitude)
		fmt.Fprintf(&b, "Satellites: %d   GPS Fix: %s\n", p.Satellites, fix)
		fmt.Fprintf(&b, "TX Count:   %d   RX Count: %d\n\n", p.TxCount, latest.RxCount)

		rs := d.hist.Last(0)
		st := computeLinkStats(rs)
		fmt.Fprintf(&b, "Link:       %s (RSSI %d dBm, SNR %d dB)\n", linkQuality(latest.RSSI), latest.RSSI, latest.SNR)
		fmt.Fprintf(&b, "RSSI:       min %d / avg %.1f / max %d dBm over %d\n", st.minRSSI, st.avgRSSI, st.maxRSSI, st.n)
		fmt.Fprintf(&b, "SNR avg:    %.1f dB\n", st.avgSNR)
		fmt.Fprintf(&b, "Rate:       %.1f pkt/s   Lost: %d\n", packetRate(rs, d.now), st.lost)
	}
	if d.bad > 0 {
		fmt.Fprintf(&b, "\nBad lines:  %d (last %q)\n", d.bad, d.lastBad)
	}
	if d.err != nil {
		fmt.Fprintf(&b, "\nerror: %v\n", d.err)
	}
	b.WriteString("\nq to quit\n")
	return b.String()
}
