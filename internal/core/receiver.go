package core

import (
	"FS26Rx/internal/radio"
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// Receiver runs receive cycles against a radio. It owns the interrupt latch and the
// session counters; if the radio implements radio.Interrupter its handler is the latch.
type Receiver struct {
	radio    radio.Radio
	latch    *Latch
	counters Counters
	log      zerolog.Logger
}

// NewReceiver binds a receiver to r.
func NewReceiver(r radio.Radio, logger zerolog.Logger) *Receiver {
	rx := &Receiver{radio: r, latch: NewLatch(), log: logger}
	if it, ok := r.(radio.Interrupter); ok {
		it.OnInterrupt(rx.latch.Signal)
	}
	return rx
}

// Latch exposes the interrupt latch for radios wired outside radio.Interrupter.
func (rx *Receiver) Latch() *Latch { return rx.latch }

// Counters returns the live session counters.
func (rx *Receiver) Counters() *Counters { return &rx.counters }

// ArmAndReceive runs one receive cycle: arm, wait for a terminal IRQ, read and clear the
// status, then classify. A returned error is a radio transport failure or ctx cancellation;
// CRC errors, timeouts, unknown interrupts and oversized payloads are ordinary outcomes.
func (rx *Receiver) ArmAndReceive(ctx context.Context, p Policy) (Outcome, error) {
	if err := rx.arm(); err != nil {
		return Outcome{}, err
	}

	expired, waitErr := rx.wait(ctx, p)
	if waitErr != nil && ctx.Err() == nil {
		return Outcome{}, waitErr
	}

	status, err := rx.radio.IRQStatus()
	if err != nil {
		return Outcome{}, fmt.Errorf("read irq status: %w", err)
	}
	if err := rx.radio.ClearIRQ(radio.IRQAll); err != nil {
		return Outcome{}, fmt.Errorf("clear irq status: %w", err)
	}
	if waitErr != nil {
		if err := rx.radio.SetIdle(); err != nil {
			return Outcome{}, fmt.Errorf("set idle: %w", err)
		}
		return Outcome{}, waitErr
	}

	switch {
	case status.Has(radio.IRQCRCError):
		rx.counters.addError()
		return Outcome{Kind: OutcomeCRCError, Status: status}, nil
	case status.Has(radio.IRQTimeout):
		return Outcome{Kind: OutcomeTimeout, Status: status}, nil
	case !status.Has(radio.IRQRxDone):
		if expired {
			return Outcome{Kind: OutcomeTimeout, Status: status, Watchdog: true}, nil
		}
		return Outcome{Kind: OutcomeUnknownIRQ, Status: status}, nil
	}

	ps, err := rx.radio.PacketStatus()
	if err != nil {
		return Outcome{}, fmt.Errorf("read packet status: %w", err)
	}
	bs, err := rx.radio.BufferStatus()
	if err != nil {
		return Outcome{}, fmt.Errorf("read buffer status: %w", err)
	}
	out := Outcome{Length: int(bs.Length), RSSI: ps.RSSI, SNR: ps.SNR, Status: status}
	if out.Length > p.MaxPayload {
		out.Kind = OutcomeOversized
		return out, nil
	}

	buf, err := rx.radio.ReadBuffer(bs.Offset, bs.Length)
	if err != nil {
		return Outcome{}, fmt.Errorf("read buffer: %w", err)
	}
	rx.counters.addReceived()
	out.Kind = OutcomePacket
	out.Payload = buf
	return out, nil
}

// arm puts the radio in a known state and starts continuous reception.
// The latch is cleared only after the hardware status, so no pending IRQ is lost.
func (rx *Receiver) arm() error {
	if err := rx.radio.SetIdle(); err != nil {
		return fmt.Errorf("set idle: %w", err)
	}
	if err := rx.radio.ClearIRQ(radio.IRQAll); err != nil {
		return fmt.Errorf("clear irq status: %w", err)
	}
	rx.latch.Clear()
	if err := rx.radio.StartRx(); err != nil {
		return fmt.Errorf("start rx: %w", err)
	}
	return nil
}

// wait blocks until the latch fires or a direct poll of the IRQ register shows a terminal
// condition. The register is ground truth; the latch only wakes the wait early.
// expired reports that the policy watchdog ran out first.
func (rx *Receiver) wait(ctx context.Context, p Policy) (expired bool, err error) {
	interval := p.PollInterval
	if interval <= 0 {
		interval = time.Millisecond
	}
	poll := time.NewTicker(interval)
	defer poll.Stop()

	var watchdog <-chan time.Time
	if p.Watchdog > 0 {
		t := time.NewTimer(p.Watchdog)
		defer t.Stop()
		watchdog = t.C
	}

	for {
		if rx.latch.TakeAndClear() {
			return false, nil
		}
		status, err := rx.radio.IRQStatus()
		if err != nil {
			return false, fmt.Errorf("poll irq status: %w", err)
		}
		if status.Terminal() {
			return false, nil
		}
		select {
		case <-ctx.Done():
			return false, ctx.Err()
		case <-watchdog:
			return true, nil
		case <-rx.latch.Wake():
		case <-poll.C:
		}
	}
}
