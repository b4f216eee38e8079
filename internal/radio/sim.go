package radio

import (
	"FS26Rx/internal/gps"
	"FS26Rx/internal/model"
	"FS26Rx/internal/parser"
	"fmt"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// PositionSource supplies the fix the simulated transmitter reports.
type PositionSource interface {
	Position() model.Fix
}

// Sim is a host radio that behaves like an FS26 transmitter in range of a listening LR1121.
// After StartRx it raises one terminal IRQ per Interval and calls the interrupt handler.
type Sim struct {
	cfg model.SimConfig
	log zerolog.Logger
	pos PositionSource
	gps *gps.Tracker

	mu      sync.Mutex
	rng     *rand.Rand
	irq     IRQ
	buf     []byte
	status  PacketStatus
	txCount uint16
	timer   *time.Timer
	arm     uint64 // bumped by StartRx and SetIdle; a fire from an older arm is dropped
	handler func()
	closed  bool
}

// NewSim builds a simulator. Positions come from the NMEA receiver at cfg.GPSDevice when set,
// otherwise from a random walk around the home point.
func NewSim(cfg model.SimConfig, logger zerolog.Logger) (*Sim, error) {
	s := &Sim{
		cfg: cfg,
		log: logger,
		rng: rand.New(rand.NewSource(cfg.Seed)),
	}
	if cfg.GPSDevice != "" {
		t, err := gps.NewTracker(cfg.GPSDevice, cfg.GPSBaud, logger)
		if err != nil {
			return nil, fmt.Errorf("sim gps source: %w", err)
		}
		s.gps = t
		s.pos = t
	} else {
		s.pos = newRandomWalk(cfg.HomeLat, cfg.HomeLon, cfg.Seed)
	}
	s.log.Info().Dur("interval", cfg.Interval).Bool("gps", s.gps != nil).Msg("simulated radio ready")
	return s, nil
}

// WithPositionSource replaces the position source.
func (s *Sim) WithPositionSource(p PositionSource) *Sim {
	s.mu.Lock()
	s.pos = p
	s.mu.Unlock()
	return s
}

func (s *Sim) OnInterrupt(fn func()) {
	s.mu.Lock()
	s.handler = fn
	s.mu.Unlock()
}

func (s *Sim) SetIdle() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	s.arm++
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	return nil
}

func (s *Sim) ClearIRQ(mask IRQ) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	s.irq &^= mask
	return nil
}

func (s *Sim) StartRx() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if s.timer != nil {
		s.timer.Stop()
	}
	s.arm++
	arm := s.arm
	s.timer = time.AfterFunc(s.cfg.Interval, func() { s.fire(arm) })
	return nil
}

func (s *Sim) IRQStatus() (IRQ, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, ErrClosed
	}
	return s.irq, nil
}

func (s *Sim) PacketStatus() (PacketStatus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return PacketStatus{}, ErrClosed
	}
	return s.status, nil
}

func (s *Sim) BufferStatus() (BufferStatus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return BufferStatus{}, ErrClosed
	}
	return BufferStatus{Length: uint8(len(s.buf)), Offset: 0}, nil
}

func (s *Sim) ReadBuffer(offset, length uint8) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrClosed
	}
	end := int(offset) + int(length)
	if end > len(s.buf) {
		return nil, fmt.Errorf("sim read buffer: %d bytes at %d exceeds %d", length, offset, len(s.buf))
	}
	out := make([]byte, length)
	copy(out, s.buf[offset:end])
	return out, nil
}

func (s *Sim) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	if s.timer != nil {
		s.timer.Stop()
	}
	s.mu.Unlock()
	if s.gps != nil {
		s.gps.Stop()
	}
	return nil
}

// fire latches one receive event of the given arm and raises the interrupt.
func (s *Sim) fire(arm uint64) {
	s.mu.Lock()
	if s.closed || arm != s.arm {
		s.mu.Unlock()
		return
	}
	s.timer = nil
	s.status = PacketStatus{
		RSSI: int8(-40 - s.rng.Intn(70)),
		SNR:  int8(s.rng.Intn(20) - 5),
	}
	s.txCount++

	roll := s.rng.Float64()
	switch {
	case roll < s.cfg.CRCErrorRate:
		s.irq |= IRQRxDone | IRQCRCError
	case roll < s.cfg.CRCErrorRate+s.cfg.TimeoutRate:
		s.irq |= IRQTimeout
	case roll < s.cfg.CRCErrorRate+s.cfg.TimeoutRate+s.cfg.GarbageRate:
		s.buf = s.garbage()
		s.irq |= IRQRxDone
	default:
		s.buf = parser.EncodePacket(s.packet())
		s.irq |= IRQRxDone
	}
	handler := s.handler
	s.mu.Unlock()

	if handler != nil {
		handler()
	}
}

func (s *Sim) packet() model.TelemetryPacket {
	f := s.pos.Position()
	p := model.TelemetryPacket{
		Magic:      parser.Magic,
		Latitude:   float32(f.Lat),
		Longitude:  float32(f.Lon),
		SpeedKph:   float32(f.SpeedKph),
		Altitude:   float32(f.Altitude),
		TxCount:    s.txCount,
		Satellites: uint8(f.Satellites),
	}
	if f.Valid {
		p.FixValid = 1
	}
	return p
}

// garbage is either a truncated frame or a full frame from a foreign sender.
func (s *Sim) garbage() []byte {
	if s.rng.Intn(2) == 0 {
		b := make([]byte, 1+s.rng.Intn(parser.PacketSize-1))
		s.rng.Read(b)
		return b
	}
	b := parser.EncodePacket(s.packet())
	b[0] ^= 0xFF
	return b
}

// randomWalk drifts around a home point at walking-to-driving speeds.
type randomWalk struct {
	mu       sync.Mutex
	rng      *rand.Rand
	lat, lon float64
	alt      float64
	heading  float64
}

func newRandomWalk(lat, lon float64, seed int64) *randomWalk {
	return &randomWalk{rng: rand.New(rand.NewSource(seed + 1)), lat: lat, lon: lon, alt: 30}
}

func (w *randomWalk) Position() model.Fix {
	w.mu.Lock()
	defer w.mu.Unlock()
	speed := 5 + w.rng.Float64()*40 // km/h
	w.heading += (w.rng.Float64() - 0.5) * 0.6
	step := speed / 3600 / 111.0 // degrees per second at this speed
	w.lat += step * math.Cos(w.heading)
	w.lon += step * math.Sin(w.heading) / math.Cos(w.lat*math.Pi/180)
	w.alt += (w.rng.Float64() - 0.5) * 0.5
	return model.Fix{
		Lat:        w.lat,
		Lon:        w.lon,
		Altitude:   w.alt,
		SpeedKph:   speed,
		Satellites: 7 + w.rng.Intn(6),
		Valid:      true,
	}
}
