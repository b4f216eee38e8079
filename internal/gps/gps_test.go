package gps

import (
	"FS26Rx/internal/device"
	"FS26Rx/internal/model"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

const (
	sampleGGA = "$GPGGA,123519,4807.038,N,01131.000,E,1,08,0.9,545.4,M,46.9,M,,*47"
	sampleRMC = "$GPRMC,123519,A,4807.038,N,01131.000,E,022.4,084.4,230394,003.1,W*6A"
	noFixGGA  = "$GNGGA,120000,3725.320,N,12205.040,W,0,00,,,M,,M,,*50"
)

func TestParseSentenceGGA(t *testing.T) {
	s, err := ParseSentence(sampleGGA)
	if err != nil {
		t.Fatalf("ParseSentence error = %v", err)
	}
	if s.Type != "GGA" || !s.HasPos {
		t.Fatalf("sentence = %+v", s)
	}
	if math.Abs(s.Lat-48.1173) > 1e-6 || math.Abs(s.Lon-11.516667) > 1e-6 {
		t.Errorf("position = %v,%v", s.Lat, s.Lon)
	}
	if s.Satellites != 8 || s.Quality != 1 || s.Altitude != 545.4 {
		t.Errorf("sats %d quality %d alt %v", s.Satellites, s.Quality, s.Altitude)
	}
}

func TestParseSentenceRMC(t *testing.T) {
	s, err := ParseSentence(sampleRMC)
	if err != nil {
		t.Fatalf("ParseSentence error = %v", err)
	}
	if !s.Active {
		t.Error("Active = false, want true")
	}
	if math.Abs(s.SpeedKph-41.4848) > 1e-6 {
		t.Errorf("SpeedKph = %v, want 41.4848", s.SpeedKph)
	}
}

func TestParseSentenceRejects(t *testing.T) {
	tests := []struct {
		name string
		line string
		want error
	}{
		{"not nmea", "hello world", nil},
		{"bad checksum", "$GPGGA,123519,4807.038,N,01131.000,E,1,08,0.9,545.4,M,46.9,M,,*48", nil},
		{"unsupported", "$GPGSV,3,1,11,03,03,111,00*4A", ErrUnsupported},
		{"short address", "$GPG,1,2,3,4", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseSentence(tt.line)
			if err == nil {
				t.Fatal("error = nil, want error")
			}
			if tt.want != nil && !errors.Is(err, tt.want) {
				t.Errorf("error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestApplyMergesSentences(t *testing.T) {
	var f model.Fix
	for _, line := range []string{sampleGGA, sampleRMC} {
		s, err := ParseSentence(line)
		if err != nil {
			t.Fatal(err)
		}
		f = s.Apply(f)
	}
	if !f.Valid || f.Satellites != 8 || f.Altitude != 545.4 || f.SpeedKph == 0 {
		t.Errorf("fix = %+v", f)
	}

	s, err := ParseSentence(noFixGGA)
	if err != nil {
		t.Fatal(err)
	}
	f = s.Apply(f)
	if f.Valid {
		t.Error("Valid = true after quality 0 GGA")
	}
	if math.Abs(f.Lat-37.422) > 1e-6 {
		t.Errorf("Lat = %v, want 37.422", f.Lat)
	}
}

// scriptDevice replays lines and then blocks until closed.
type scriptDevice struct {
	mu     sync.Mutex
	lines  []string
	closed chan struct{}
}

func (d *scriptDevice) ReadLine(timeout time.Duration) (string, error) {
	d.mu.Lock()
	if len(d.lines) > 0 {
		l := d.lines[0]
		d.lines = d.lines[1:]
		d.mu.Unlock()
		return l, nil
	}
	d.mu.Unlock()
	select {
	case <-d.closed:
		return "", device.ErrClosed
	case <-time.After(timeout):
		return "", device.ErrReadTimeout
	}
}

func (d *scriptDevice) WriteLine(string) error { return nil }

func (d *scriptDevice) Close() error {
	select {
	case <-d.closed:
	default:
		close(d.closed)
	}
	return nil
}

func TestTrackerFollowsDevice(t *testing.T) {
	dev := &scriptDevice{lines: []string{"garbage", sampleGGA, sampleRMC}, closed: make(chan struct{})}
	tr := StartTracker(dev, zerolog.Nop())
	defer tr.Stop()

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if f := tr.Position(); f.Valid && f.SpeedKph > 0 {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("tracker fix = %+v, want valid fix with speed", tr.Position())
}
