package core

import (
	"FS26Rx/internal/radio"
	"errors"
	"sync"
)

var errBus = errors.New("spi transfer failed")

// step is what the fake radio reports for one StartRx.
type step struct {
	irq     radio.IRQ
	payload []byte
	length  int // reported length; defaults to len(payload)
	rssi    int8
	snr     int8
}

// fakeRadio replays a script, one step per StartRx. With interrupt set it signals
// the registered handler when a step is armed.
type fakeRadio struct {
	mu        sync.Mutex
	script    []step
	cur       step
	irq       radio.IRQ
	calls     []string
	reads     int
	failOn    string
	interrupt bool
	handler   func()
}

func newFakeRadio(steps ...step) *fakeRadio {
	return &fakeRadio{script: steps}
}

func (f *fakeRadio) record(name string) error {
	f.calls = append(f.calls, name)
	if f.failOn == name {
		return errBus
	}
	return nil
}

func (f *fakeRadio) OnInterrupt(fn func()) {
	f.mu.Lock()
	f.handler = fn
	f.mu.Unlock()
}

func (f *fakeRadio) SetIdle() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.record("SetIdle")
}

func (f *fakeRadio) ClearIRQ(mask radio.IRQ) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("ClearIRQ"); err != nil {
		return err
	}
	f.irq &^= mask
	return nil
}

func (f *fakeRadio) StartRx() error {
	f.mu.Lock()
	if err := f.record("StartRx"); err != nil {
		f.mu.Unlock()
		return err
	}
	f.cur = step{}
	if len(f.script) > 0 {
		f.cur = f.script[0]
		f.script = f.script[1:]
	}
	f.irq = f.cur.irq
	h := f.handler
	fire := f.interrupt && f.cur.irq != 0
	f.mu.Unlock()
	if fire && h != nil {
		h()
	}
	return nil
}

func (f *fakeRadio) IRQStatus() (radio.IRQ, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failOn == "IRQStatus" {
		return 0, errBus
	}
	return f.irq, nil
}

func (f *fakeRadio) PacketStatus() (radio.PacketStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("PacketStatus"); err != nil {
		return radio.PacketStatus{}, err
	}
	return radio.PacketStatus{RSSI: f.cur.rssi, SNR: f.cur.snr}, nil
}

func (f *fakeRadio) BufferStatus() (radio.BufferStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("BufferStatus"); err != nil {
		return radio.BufferStatus{}, err
	}
	n := f.cur.length
	if n == 0 {
		n = len(f.cur.payload)
	}
	return radio.BufferStatus{Length: uint8(n), Offset: 0}, nil
}

func (f *fakeRadio) ReadBuffer(offset, length uint8) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("ReadBuffer"); err != nil {
		return nil, err
	}
	f.reads++
	out := make([]byte, length)
	copy(out, f.cur.payload[offset:])
	return out, nil
}

func (f *fakeRadio) Close() error { return nil }

func (f *fakeRadio) callLog() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeRadio) readCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.reads
}

func (f *fakeRadio) pending() radio.IRQ {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.irq
}
