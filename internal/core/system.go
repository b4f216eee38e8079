// Package core contains the receive runtime of FS26Rx: the interrupt latch, the receive
// cycle controller, the main loop, the report sinks and the System that wires them together.
package core

import (
	"FS26Rx/internal/app"
	"FS26Rx/internal/model"
	"FS26Rx/internal/radio"
	"FS26Rx/internal/util"
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// System manages the lifecycle of the receiver and its sinks.
type System struct {
	cfg *model.Config
	log zerolog.Logger

	Radio    radio.Radio
	Receiver *Receiver
	Loop     *Loop
	History  *History
	App      *app.App
	Relay    *SerialRelay
	NATS     *NATSPublisher

	socat *util.SocatManager

	cancel  context.CancelFunc
	errc    chan error
	wg      sync.WaitGroup
	started bool
	mu      sync.Mutex
}

// NewSystem opens the radio and builds every configured component. On error anything
// already opened is closed again.
func NewSystem(cfg *model.Config, logger zerolog.Logger) (*System, error) {
	s := &System{
		cfg:  cfg,
		log:  logger.With().Str("component", "system").Logger(),
		errc: make(chan error, 1),
	}
	if err := s.build(logger); err != nil {
		s.closeAll()
		return nil, err
	}
	return s, nil
}

func (s *System) build(logger zerolog.Logger) error {
	cfg := s.cfg
	var err error
	s.Radio, err = radio.Open(cfg.Radio, logger.With().Str("component", "radio").Logger())
	if err != nil {
		return fmt.Errorf("open radio: %w", err)
	}
	if cfg.Radio.Driver == model.DriverSim {
		s.log.Warn().Msg("radio is simulated, no RF reception")
	}
	s.Receiver = NewReceiver(s.Radio, logger.With().Str("component", "receiver").Logger())
	s.History = NewHistory(cfg.Receiver.HistorySize)
	s.Loop = NewLoop(s.Receiver, LoopOptions{
		Policy: Policy{
			MaxPayload:   cfg.Receiver.MaxPayload,
			PollInterval: cfg.Receiver.PollInterval,
			Watchdog:     cfg.Receiver.Watchdog,
		},
		IdleDelay: cfg.Receiver.IdleDelay,
		History:   s.History,
		Logger:    logger.With().Str("component", "receiver").Logger(),
	})

	if cfg.Display.Console {
		s.Loop.AddSink(NewConsoleSink(os.Stdout))
	}

	if cfg.Relay.Device != "" {
		relayLog := logger.With().Str("component", "relay").Logger()
		if cfg.Relay.VirtualPair != "" {
			s.socat = util.NewSocatManager(relayLog)
			if err = s.socat.CreatePair(cfg.Relay.Device, cfg.Relay.VirtualPair, 3*time.Second); err != nil {
				return fmt.Errorf("relay virtual pair: %w", err)
			}
		}
		s.Relay, err = NewSerialRelay(cfg.Relay.Device, cfg.Relay.Baud, relayLog)
		if err != nil {
			return fmt.Errorf("open relay %s: %w", cfg.Relay.Device, err)
		}
		s.Loop.AddSink(s.Relay)
	}

	if cfg.NATS.URL != "" {
		s.NATS, err = ConnectNATS(cfg.NATS, logger.With().Str("component", "nats").Logger())
		if err != nil {
			return err
		}
		s.Loop.AddSink(s.NATS)
	}

	if cfg.App.Addr != "" {
		s.App = app.NewApp(s.History, s.Loop, logger.With().Str("component", "app").Logger())
		s.Loop.AddSink(s.App)
	}
	return nil
}

// StartAll starts the app server and the receive loop in the background.
func (s *System) StartAll() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return nil
	}
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel

	if s.App != nil {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			if err := s.App.Start(s.cfg.App.Addr); err != nil {
				s.log.Error().Err(err).Msg("app server failed")
			}
		}()
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := s.Loop.Run(ctx); err != nil {
			s.errc <- err
		}
	}()

	s.started = true
	s.log.Info().
		Str("driver", s.cfg.Radio.Driver).
		Str("session", s.Loop.SessionID().String()).
		Msg("system started")
	return nil
}

// Err delivers the radio failure that stopped the receive loop.
func (s *System) Err() <-chan error { return s.errc }

// StopAll cancels the loop and closes every component.
func (s *System) StopAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.started {
		s.closeAll()
		return
	}
	s.cancel()
	if s.App != nil {
		s.App.Stop()
	}
	s.wg.Wait()
	s.closeAll()
	s.started = false

	st := s.Loop.Stats()
	s.log.Info().
		Uint32("received", st.Received).
		Uint32("errors", st.Errors).
		Uint64("decoded", st.Decoded).
		Msg("system stopped")
}

func (s *System) closeAll() {
	if s.NATS != nil {
		if err := s.NATS.Close(); err != nil {
			s.log.Warn().Err(err).Msg("nats close")
		}
		s.NATS = nil
	}
	if s.Relay != nil {
		s.Relay.Stop()
		s.Relay = nil
	}
	if s.socat != nil {
		s.socat.Cleanup()
		s.socat = nil
	}
	if s.Radio != nil {
		if err := s.Radio.Close(); err != nil {
			s.log.Warn().Err(err).Msg("radio close")
		}
		s.Radio = nil
	}
}
