// Package gps reads NMEA sentences from a serial GPS receiver and keeps the latest fix.
package gps

import (
	"FS26Rx/internal/device"
	"FS26Rx/internal/model"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Tracker follows a GPS receiver and exposes its most recent fix.
type Tracker struct {
	dev device.Device
	log zerolog.Logger

	mu  sync.RWMutex
	fix model.Fix

	stop chan struct{}
	wg   sync.WaitGroup
}

// NewTracker opens the serial GPS at dev and starts reading it.
func NewTracker(dev string, baud int, logger zerolog.Logger) (*Tracker, error) {
	d, err := device.NewSerialDevice(dev, baud)
	if err != nil {
		return nil, err
	}
	return StartTracker(d, logger), nil
}

// StartTracker starts reading NMEA lines from an already open device.
func StartTracker(d device.Device, logger zerolog.Logger) *Tracker {
	t := &Tracker{dev: d, log: logger, stop: make(chan struct{})}
	t.wg.Add(1)
	go t.loop()
	return t
}

// Position returns the latest fix. It satisfies radio.PositionSource.
func (t *Tracker) Position() model.Fix {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.fix
}

func (t *Tracker) loop() {
	defer t.wg.Done()
	for {
		select {
		case <-t.stop:
			return
		default:
		}
		line, err := t.dev.ReadLine(time.Second)
		if errors.Is(err, device.ErrReadTimeout) {
			continue
		}
		if err != nil {
			t.log.Warn().Err(err).Msg("gps read stopped")
			return
		}
		s, err := ParseSentence(line)
		if err != nil {
			if !errors.Is(err, ErrUnsupported) {
				t.log.Debug().Err(err).Str("line", line).Msg("gps sentence skipped")
			}
			continue
		}
		t.mu.Lock()
		t.fix = s.Apply(t.fix)
		t.mu.Unlock()
	}
}

// Stop ends the reader loop and closes the device.
func (t *Tracker) Stop() {
	select {
	case <-t.stop:
		return
	default:
		close(t.stop)
	}
	_ = t.dev.Close()
	t.wg.Wait()
}
