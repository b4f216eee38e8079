package core

import (
	"FS26Rx/internal/model"
	"FS26Rx/internal/parser"
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// State is the main loop state.
type State int32

const (
	StateIdle State = iota
	StateListening
	StateDecoding
	StateErrorReported
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateListening:
		return "listening"
	case StateDecoding:
		return "decoding"
	case StateErrorReported:
		return "error_reported"
	default:
		return "unknown"
	}
}

// LoopOptions configures a Loop. Zero values fall back to DefaultPolicy and a 10 ms idle delay.
type LoopOptions struct {
	Policy    Policy
	IdleDelay time.Duration
	Sinks     []Sink
	History   *History
	Logger    zerolog.Logger
}

// Loop drives the receiver forever, decoding packets and fanning reports out to sinks.
type Loop struct {
	rx        *Receiver
	policy    Policy
	idleDelay time.Duration
	history   *History
	log       zerolog.Logger

	sinkMu sync.RWMutex
	sinks  []Sink

	session   uuid.UUID
	startedAt time.Time
	state     atomic.Int32

	timeouts  atomic.Uint64
	unknown   atomic.Uint64
	oversized atomic.Uint64
	rejected  atomic.Uint64
	decoded   atomic.Uint64
}

// NewLoop builds a loop over rx.
func NewLoop(rx *Receiver, opts LoopOptions) *Loop {
	p := opts.Policy
	if p.MaxPayload <= 0 {
		p.MaxPayload = DefaultPolicy().MaxPayload
	}
	if p.PollInterval <= 0 {
		p.PollInterval = DefaultPolicy().PollInterval
	}
	delay := opts.IdleDelay
	if delay <= 0 {
		delay = 10 * time.Millisecond
	}
	return &Loop{
		rx:        rx,
		policy:    p,
		idleDelay: delay,
		history:   opts.History,
		log:       opts.Logger,
		sinks:     append([]Sink(nil), opts.Sinks...),
		session:   uuid.New(),
		startedAt: time.Now(),
	}
}

// AddSink registers another report consumer. Safe to call while the loop runs.
func (l *Loop) AddSink(s Sink) {
	l.sinkMu.Lock()
	l.sinks = append(l.sinks, s)
	l.sinkMu.Unlock()
}

// SessionID identifies this receive session in reports and stats.
func (l *Loop) SessionID() uuid.UUID { return l.session }

// State returns the current loop state.
func (l *Loop) State() State { return State(l.state.Load()) }

// History returns the report history, or nil if none was configured.
func (l *Loop) History() *History { return l.history }

// Stats snapshots the session counters.
func (l *Loop) Stats() model.Stats {
	c := l.rx.Counters()
	return model.Stats{
		SessionID: l.session,
		StartedAt: l.startedAt,
		State:     l.State().String(),
		Received:  c.Received(),
		Errors:    c.Errors(),
		Timeouts:  l.timeouts.Load(),
		Unknown:   l.unknown.Load(),
		Oversized: l.oversized.Load(),
		Rejected:  l.rejected.Load(),
		Decoded:   l.decoded.Load(),
	}
}

// Run cycles until ctx is cancelled or the radio fails. Cancellation returns nil.
func (l *Loop) Run(ctx context.Context) error {
	l.log.Info().Str("session", l.session.String()).Int("max_payload", l.policy.MaxPayload).Msg("receive loop started")
	idle := time.NewTimer(0)
	defer idle.Stop()
	<-idle.C

	for {
		if err := l.Cycle(ctx); err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				l.log.Info().Msg("receive loop stopped")
				return nil
			}
			return err
		}
		idle.Reset(l.idleDelay)
		select {
		case <-ctx.Done():
			l.log.Info().Msg("receive loop stopped")
			return nil
		case <-idle.C:
		}
	}
}

// Cycle runs one pass Idle → Listening → Decoding|ErrorReported → Idle.
// It returns an error only for radio failures or cancellation.
func (l *Loop) Cycle(ctx context.Context) error {
	l.setState(StateListening)
	out, err := l.rx.ArmAndReceive(ctx, l.policy)
	if err != nil {
		l.setState(StateIdle)
		return err
	}

	if out.Kind == OutcomePacket {
		l.setState(StateDecoding)
		l.decode(out)
	} else {
		l.setState(StateErrorReported)
		l.report(out)
	}
	l.setState(StateIdle)
	return nil
}

func (l *Loop) setState(s State) { l.state.Store(int32(s)) }

// report emits the single diagnostic for a cycle-level rejection.
func (l *Loop) report(out Outcome) {
	switch out.Kind {
	case OutcomeCRCError:
		l.log.Warn().Uint32("errors", l.rx.Counters().Errors()).Msg("CRC error")
	case OutcomeTimeout:
		l.timeouts.Add(1)
		l.log.Info().Bool("watchdog", out.Watchdog).Msg("RX timeout")
	case OutcomeUnknownIRQ:
		l.unknown.Add(1)
		l.log.Warn().Str("irq", out.Status.Hex()).Stringer("bits", out.Status).Msg("unknown IRQ")
	case OutcomeOversized:
		l.oversized.Add(1)
		l.log.Warn().Int("length", out.Length).Int("max", l.policy.MaxPayload).Msg("packet too large")
	}
}

// decode validates a payload and either publishes a report or emits one rejection diagnostic.
func (l *Loop) decode(out Outcome) {
	pkt, err := parser.DecodePacket(out.Payload)
	if err != nil {
		l.rejected.Add(1)
		var short *parser.ShortPacketError
		var magic *parser.BadMagicError
		switch {
		case errors.As(err, &short):
			l.log.Warn().
				Int("length", short.Length).
				Int("expected", parser.PacketSize).
				Str("hex", parser.HexDump(out.Payload)).
				Msg("packet too small")
		case errors.As(err, &magic):
			l.log.Warn().
				Str("magic", hex32(magic.Actual)).
				Str("expected", hex32(parser.Magic)).
				Msg("invalid magic")
		default:
			l.log.Warn().Err(err).Msg("packet rejected")
		}
		return
	}

	l.decoded.Add(1)
	r := model.Report{
		ID:         uuid.New(),
		SessionID:  l.session,
		Packet:     pkt,
		RSSI:       out.RSSI,
		SNR:        out.SNR,
		RxCount:    l.rx.Counters().Received(),
		ReceivedAt: time.Now().UTC(),
	}
	l.log.Debug().
		Uint16("tx", pkt.TxCount).
		Int8("rssi", r.RSSI).
		Int8("snr", r.SNR).
		Uint32("rx", r.RxCount).
		Msg("packet decoded")

	if l.history != nil {
		l.history.Add(r)
	}
	l.sinkMu.RLock()
	sinks := l.sinks
	l.sinkMu.RUnlock()
	for _, s := range sinks {
		s.Publish(r)
	}
}

func hex32(v uint32) string { return fmt.Sprintf("0x%08X", v) }
