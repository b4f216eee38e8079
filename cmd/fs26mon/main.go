// Package main is the host-side monitor of the FS26 receiver. It reads the relay CSV
// lines from a serial port and renders a live terminal dashboard.
package main

import (
	"FS26Rx/internal/device"
	"FS26Rx/internal/model"
	"FS26Rx/internal/parser"
	"FS26Rx/internal/util"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"
)

func main() {
	dev := flag.String("dev", "/dev/ttyACM0", "serial device carrying relay lines")
	baud := flag.Int("baud", 115200, "serial baud")
	history := flag.Int("history", 500, "number of reports kept for statistics")
	list := flag.Bool("list", false, "list serial ports and exit")
	level := flag.String("log", "disabled", "log level written to stderr")
	flag.Parse()

	util.SetupLogger(model.LogConfig{Level: *level, Format: "console"})
	logger := util.Component("monitor")

	if *list {
		ports, err := device.ListPorts()
		if err != nil {
			fmt.Fprintf(os.Stderr, "list ports: %v\n", err)
			os.Exit(1)
		}
		for _, p := range ports {
			fmt.Println(p)
		}
		return
	}

	d, err := device.NewSerialDevice(*dev, *baud)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open %s: %v\n", *dev, err)
		os.Exit(1)
	}
	defer d.Close()
	logger.Info().Str("dev", *dev).Int("baud", *baud).Msg("monitor started")

	p := tea.NewProgram(newDashboard(*dev, *history), tea.WithAltScreen())
	go readRelay(d, p.Send, logger)

	m, err := p.Run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "monitor: %v\n", err)
		os.Exit(1)
	}
	if dm, ok := m.(*dashboard); ok && dm.err != nil {
		fmt.Fprintf(os.Stderr, "monitor: %v\n", dm.err)
		os.Exit(1)
	}
}

// readRelay turns relay lines into dashboard messages until the device fails.
func readRelay(d device.Device, send func(tea.Msg), logger zerolog.Logger) {
	for {
		line, err := d.ReadLine(time.Second)
		if errors.Is(err, device.ErrReadTimeout) {
			continue
		}
		if err != nil {
			logger.Error().Err(err).Msg("relay read")
			send(readErrMsg{err: err})
			return
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		send(lineMsg(line, time.Now()))
	}
}

// lineMsg decodes one relay line. Lines that are not relay reports, such as console
// output mixed on the same port, become badLineMsg.
func lineMsg(line string, at time.Time) tea.Msg {
	r, err := parser.DecodeReportCSV(line)
	if err != nil {
		return badLineMsg{line: line, err: err}
	}
	r.ReceivedAt = at
	return reportMsg(r)
}
