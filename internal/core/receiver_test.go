package core

import (
	"FS26Rx/internal/model"
	"FS26Rx/internal/parser"
	"FS26Rx/internal/radio"
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func testPolicy() Policy {
	return Policy{MaxPayload: 255, PollInterval: time.Millisecond, Watchdog: time.Second}
}

func scenarioPacket() model.TelemetryPacket {
	return model.TelemetryPacket{
		Magic:      parser.Magic,
		Latitude:   37.422,
		Longitude:  -122.084,
		SpeedKph:   0,
		Altitude:   30.5,
		TxCount:    42,
		Satellites: 9,
		FixValid:   1,
	}
}

func TestArmAndReceiveOutcomes(t *testing.T) {
	payload := parser.EncodePacket(scenarioPacket())
	tests := []struct {
		name     string
		step     step
		want     OutcomeKind
		watchdog bool
		errors   uint32
		received uint32
	}{
		{"packet", step{irq: radio.IRQRxDone, payload: payload, rssi: -71, snr: 9}, OutcomePacket, false, 0, 1},
		{"crc error", step{irq: radio.IRQRxDone | radio.IRQCRCError}, OutcomeCRCError, false, 1, 0},
		{"crc wins over timeout", step{irq: radio.IRQCRCError | radio.IRQTimeout}, OutcomeCRCError, false, 1, 0},
		{"timeout", step{irq: radio.IRQTimeout}, OutcomeTimeout, false, 0, 0},
		{"timeout wins over rx done", step{irq: radio.IRQTimeout | radio.IRQRxDone}, OutcomeTimeout, false, 0, 0},
		{"unknown irq", step{irq: radio.IRQPreambleDetected | radio.IRQHeaderValid}, OutcomeUnknownIRQ, false, 0, 0},
		{"oversized", step{irq: radio.IRQRxDone, length: 200}, OutcomeOversized, false, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fr := newFakeRadio(tt.step)
			fr.interrupt = true
			rx := NewReceiver(fr, zerolog.Nop())
			p := testPolicy()
			p.MaxPayload = 100

			out, err := rx.ArmAndReceive(context.Background(), p)
			if err != nil {
				t.Fatalf("ArmAndReceive error = %v", err)
			}
			if out.Kind != tt.want {
				t.Errorf("Kind = %v, want %v", out.Kind, tt.want)
			}
			if out.Watchdog != tt.watchdog {
				t.Errorf("Watchdog = %v, want %v", out.Watchdog, tt.watchdog)
			}
			if out.Status != tt.step.irq {
				t.Errorf("Status = %v, want %v", out.Status, tt.step.irq)
			}
			if got := rx.Counters().Errors(); got != tt.errors {
				t.Errorf("Errors() = %d, want %d", got, tt.errors)
			}
			if got := rx.Counters().Received(); got != tt.received {
				t.Errorf("Received() = %d, want %d", got, tt.received)
			}
			if got := fr.pending(); got != 0 {
				t.Errorf("irq after cycle = %v, want cleared", got)
			}
		})
	}
}

func TestArmAndReceiveArmSequence(t *testing.T) {
	fr := newFakeRadio(step{irq: radio.IRQTimeout})
	rx := NewReceiver(fr, zerolog.Nop())
	rx.Latch().Signal() // stale signal from before arming

	if _, err := rx.ArmAndReceive(context.Background(), testPolicy()); err != nil {
		t.Fatalf("ArmAndReceive error = %v", err)
	}
	calls := fr.callLog()
	want := []string{"SetIdle", "ClearIRQ", "StartRx", "ClearIRQ"}
	if len(calls) != len(want) {
		t.Fatalf("calls = %v, want %v", calls, want)
	}
	for i := range want {
		if calls[i] != want[i] {
			t.Errorf("calls[%d] = %s, want %s", i, calls[i], want[i])
		}
	}
	if rx.Latch().TakeAndClear() {
		t.Error("latch still set after cycle")
	}
}

func TestArmAndReceivePacket(t *testing.T) {
	payload := parser.EncodePacket(scenarioPacket())
	fr := newFakeRadio(step{irq: radio.IRQRxDone, payload: payload, rssi: -71, snr: 9})
	rx := NewReceiver(fr, zerolog.Nop())

	out, err := rx.ArmAndReceive(context.Background(), testPolicy())
	if err != nil {
		t.Fatalf("ArmAndReceive error = %v", err)
	}
	if !bytes.Equal(out.Payload, payload) {
		t.Errorf("Payload = % X, want % X", out.Payload, payload)
	}
	if out.Length != parser.PacketSize {
		t.Errorf("Length = %d, want %d", out.Length, parser.PacketSize)
	}
	if out.RSSI != -71 || out.SNR != 9 {
		t.Errorf("RSSI/SNR = %d/%d, want -71/9", out.RSSI, out.SNR)
	}
}

func TestOversizedSkipsRead(t *testing.T) {
	fr := newFakeRadio(step{irq: radio.IRQRxDone, length: 255})
	rx := NewReceiver(fr, zerolog.Nop())
	p := testPolicy()
	p.MaxPayload = 64

	out, err := rx.ArmAndReceive(context.Background(), p)
	if err != nil {
		t.Fatalf("ArmAndReceive error = %v", err)
	}
	if out.Kind != OutcomeOversized || out.Length != 255 {
		t.Errorf("outcome = %v length %d, want oversized length 255", out.Kind, out.Length)
	}
	if n := fr.readCount(); n != 0 {
		t.Errorf("ReadBuffer calls = %d, want 0", n)
	}
	if got := rx.Counters().Received(); got != 0 {
		t.Errorf("Received() = %d, want 0", got)
	}
}

func TestCountersMonotonic(t *testing.T) {
	payload := parser.EncodePacket(scenarioPacket())
	garbage := []byte{0xDE, 0xAD}
	steps := []step{
		{irq: radio.IRQRxDone, payload: payload},
		{irq: radio.IRQCRCError},
		{irq: radio.IRQTimeout},
		{irq: radio.IRQRxDone, payload: garbage},
		{irq: radio.IRQCRCError | radio.IRQRxDone},
		{irq: radio.IRQPreambleDetected},
		{irq: radio.IRQRxDone, length: 250},
		{irq: radio.IRQRxDone, payload: payload},
		{irq: radio.IRQCRCError},
	}
	fr := newFakeRadio(steps...)
	fr.interrupt = true
	rx := NewReceiver(fr, zerolog.Nop())
	p := testPolicy()
	p.MaxPayload = 200

	var lastRx, lastErr uint32
	for i := range steps {
		if _, err := rx.ArmAndReceive(context.Background(), p); err != nil {
			t.Fatalf("cycle %d: error = %v", i, err)
		}
		r, e := rx.Counters().Received(), rx.Counters().Errors()
		if r < lastRx || e < lastErr {
			t.Fatalf("cycle %d: counters went backwards (%d,%d) -> (%d,%d)", i, lastRx, lastErr, r, e)
		}
		lastRx, lastErr = r, e
	}
	// N buffer reads (the garbage one included), M CRC errors.
	if got := rx.Counters().Received(); got != 3 {
		t.Errorf("Received() = %d, want 3", got)
	}
	if got := rx.Counters().Errors(); got != 3 {
		t.Errorf("Errors() = %d, want 3", got)
	}
	if got := fr.readCount(); got != 3 {
		t.Errorf("ReadBuffer calls = %d, want 3", got)
	}
}

func TestWatchdog(t *testing.T) {
	fr := newFakeRadio(step{}) // radio never reports
	rx := NewReceiver(fr, zerolog.Nop())
	p := testPolicy()
	p.Watchdog = 20 * time.Millisecond

	start := time.Now()
	out, err := rx.ArmAndReceive(context.Background(), p)
	if err != nil {
		t.Fatalf("ArmAndReceive error = %v", err)
	}
	if out.Kind != OutcomeTimeout || !out.Watchdog {
		t.Errorf("outcome = %v watchdog=%v, want timeout from watchdog", out.Kind, out.Watchdog)
	}
	if d := time.Since(start); d < p.Watchdog {
		t.Errorf("returned after %v, before the %v watchdog", d, p.Watchdog)
	}
}

func TestLatchWakesWait(t *testing.T) {
	fr := newFakeRadio(step{})
	rx := NewReceiver(fr, zerolog.Nop())
	p := Policy{MaxPayload: 255, PollInterval: time.Hour, Watchdog: 5 * time.Second}

	go func() {
		time.Sleep(20 * time.Millisecond)
		fr.mu.Lock()
		fr.irq = radio.IRQTimeout
		fr.mu.Unlock()
		rx.Latch().Signal()
	}()

	start := time.Now()
	out, err := rx.ArmAndReceive(context.Background(), p)
	if err != nil {
		t.Fatalf("ArmAndReceive error = %v", err)
	}
	if out.Kind != OutcomeTimeout || out.Watchdog {
		t.Errorf("outcome = %v watchdog=%v, want radio timeout", out.Kind, out.Watchdog)
	}
	if d := time.Since(start); d > 2*time.Second {
		t.Errorf("latch did not wake the wait (took %v)", d)
	}
}

func TestPollFindsStatusWithoutLatch(t *testing.T) {
	fr := newFakeRadio(step{})
	rx := NewReceiver(fr, zerolog.Nop())
	p := Policy{MaxPayload: 255, PollInterval: time.Millisecond, Watchdog: 5 * time.Second}

	go func() {
		time.Sleep(10 * time.Millisecond)
		fr.mu.Lock()
		fr.irq = radio.IRQCRCError
		fr.mu.Unlock()
	}()

	out, err := rx.ArmAndReceive(context.Background(), p)
	if err != nil {
		t.Fatalf("ArmAndReceive error = %v", err)
	}
	if out.Kind != OutcomeCRCError {
		t.Errorf("Kind = %v, want %v", out.Kind, OutcomeCRCError)
	}
}

func TestCancelClearsIRQ(t *testing.T) {
	fr := newFakeRadio(step{})
	rx := NewReceiver(fr, zerolog.Nop())
	p := testPolicy()
	p.Watchdog = 0

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := rx.ArmAndReceive(ctx, p)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("error = %v, want %v", err, context.DeadlineExceeded)
	}
	calls := fr.callLog()
	tail := calls[len(calls)-2:]
	if tail[0] != "ClearIRQ" || tail[1] != "SetIdle" {
		t.Errorf("calls after cancel = %v, want [ClearIRQ SetIdle]", tail)
	}
}

func TestRadioFailureIsError(t *testing.T) {
	for _, op := range []string{"SetIdle", "ClearIRQ", "StartRx", "IRQStatus", "PacketStatus", "BufferStatus", "ReadBuffer"} {
		t.Run(op, func(t *testing.T) {
			fr := newFakeRadio(step{irq: radio.IRQRxDone, payload: parser.EncodePacket(scenarioPacket())})
			fr.failOn = op
			rx := NewReceiver(fr, zerolog.Nop())
			_, err := rx.ArmAndReceive(context.Background(), testPolicy())
			if !errors.Is(err, errBus) {
				t.Errorf("error = %v, want wrapped %v", err, errBus)
			}
		})
	}
}
