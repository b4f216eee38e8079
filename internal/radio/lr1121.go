package radio

import (
	"FS26Rx/internal/model"
	"encoding/binary"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/host/v3"
)

// LR11xx command opcodes.
const (
	opGetStatus           = 0x0100
	opReadBuffer8         = 0x010A
	opSetDioIrqParams     = 0x0113
	opClearIrq            = 0x0114
	opSetStandby          = 0x011C
	opGetRxBufferStatus   = 0x0203
	opGetPacketStatus     = 0x0204
	opSetRx               = 0x0209
	opSetRfFrequency      = 0x020B
	opSetPacketType       = 0x020E
	opSetModulationParams = 0x020F
	opSetPacketParams     = 0x0210
)

const (
	standbyRC      = 0x00
	packetTypeLoRa = 0x02
	busyTimeout    = 100 * time.Millisecond
	resetPulse     = time.Millisecond
	irqWaitTimeout = time.Second
)

// rxContinuous is the SetRx timeout that keeps the radio listening until told otherwise.
var rxContinuous = []byte{0xFF, 0xFF, 0xFF}

// LR1121 drives a Semtech LR1121 over SPI with BUSY and IRQ lines on GPIO.
type LR1121 struct {
	port  spi.PortCloser
	conn  spi.Conn
	reset gpio.PinIO
	busy  gpio.PinIO
	irq   gpio.PinIO
	led   gpio.PinIO // optional

	handler atomic.Pointer[func()]
	log     zerolog.Logger

	mu     sync.Mutex
	closed bool
	stop   chan struct{}
	wg     sync.WaitGroup
}

// OpenLR1121 initializes the periph host, opens the SPI port and GPIO lines named in cfg,
// resets the radio and configures it for LoRa reception with RX_DONE, CRC_ERROR and TIMEOUT
// routed to the IRQ line.
func OpenLR1121(cfg model.RadioConfig, logger zerolog.Logger) (*LR1121, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("periph host init: %w", err)
	}
	port, err := spireg.Open(cfg.SPIPort)
	if err != nil {
		return nil, fmt.Errorf("open spi %q: %w", cfg.SPIPort, err)
	}
	conn, err := port.Connect(physic.Frequency(cfg.SPIHz)*physic.Hertz, spi.Mode0, 8)
	if err != nil {
		_ = port.Close()
		return nil, fmt.Errorf("connect spi: %w", err)
	}

	r := &LR1121{port: port, conn: conn, log: logger, stop: make(chan struct{})}
	pins := []struct {
		name string
		dst  *gpio.PinIO
		opt  bool
	}{
		{cfg.Pins.Reset, &r.reset, false},
		{cfg.Pins.Busy, &r.busy, false},
		{cfg.Pins.IRQ, &r.irq, false},
		{cfg.Pins.LED, &r.led, true},
	}
	for _, p := range pins {
		if p.name == "" && p.opt {
			continue
		}
		pin := gpioreg.ByName(p.name)
		if pin == nil {
			_ = port.Close()
			return nil, fmt.Errorf("gpio %q not found", p.name)
		}
		*p.dst = pin
	}

	if err := r.busy.In(gpio.PullNoChange, gpio.NoEdge); err != nil {
		_ = port.Close()
		return nil, fmt.Errorf("busy pin: %w", err)
	}
	if err := r.irq.In(gpio.PullDown, gpio.RisingEdge); err != nil {
		_ = port.Close()
		return nil, fmt.Errorf("irq pin: %w", err)
	}
	if err := r.hardReset(); err != nil {
		_ = port.Close()
		return nil, err
	}
	if err := r.configure(cfg); err != nil {
		_ = port.Close()
		return nil, err
	}

	r.wg.Add(1)
	go r.watchIRQ()

	r.log.Info().
		Str("spi", port.String()).
		Uint32("freq_hz", cfg.FrequencyHz).
		Uint8("sf", cfg.SpreadingFactor).
		Msg("LR1121 ready")
	return r, nil
}

func (r *LR1121) hardReset() error {
	if err := r.reset.Out(gpio.Low); err != nil {
		return fmt.Errorf("reset pin: %w", err)
	}
	time.Sleep(resetPulse)
	if err := r.reset.Out(gpio.High); err != nil {
		return fmt.Errorf("reset pin: %w", err)
	}
	return r.waitBusy()
}

func (r *LR1121) configure(cfg model.RadioConfig) error {
	freq := make([]byte, 4)
	binary.BigEndian.PutUint32(freq, cfg.FrequencyHz)
	steps := []struct {
		name   string
		op     uint16
		params []byte
	}{
		{"set packet type", opSetPacketType, []byte{packetTypeLoRa}},
		{"set rf frequency", opSetRfFrequency, freq},
		{"set modulation params", opSetModulationParams, []byte{cfg.SpreadingFactor, cfg.Bandwidth, cfg.CodingRate, 0x00}},
		// preamble 8, explicit header, max payload, CRC on, standard IQ
		{"set packet params", opSetPacketParams, []byte{0x00, 0x08, 0x00, 0xFF, 0x01, 0x00}},
		{"set dio irq params", opSetDioIrqParams, append(be32(IRQTerminal), be32(0)...)},
	}
	for _, s := range steps {
		if err := r.command(s.op, s.params...); err != nil {
			return fmt.Errorf("lr1121 %s: %w", s.name, err)
		}
	}
	return r.ClearIRQ(IRQAll)
}

// OnInterrupt registers fn to run on every rising edge of the IRQ line.
func (r *LR1121) OnInterrupt(fn func()) {
	r.handler.Store(&fn)
}

// watchIRQ turns IRQ line edges into handler calls.
func (r *LR1121) watchIRQ() {
	defer r.wg.Done()
	for {
		select {
		case <-r.stop:
			return
		default:
		}
		if !r.irq.WaitForEdge(irqWaitTimeout) {
			continue
		}
		if fn := r.handler.Load(); fn != nil {
			(*fn)()
		}
	}
}

func (r *LR1121) SetIdle() error {
	if err := r.command(opSetStandby, standbyRC); err != nil {
		return fmt.Errorf("lr1121 set standby: %w", err)
	}
	r.setLED(gpio.Low)
	return nil
}

func (r *LR1121) ClearIRQ(mask IRQ) error {
	if err := r.command(opClearIrq, be32(mask)...); err != nil {
		return fmt.Errorf("lr1121 clear irq: %w", err)
	}
	return nil
}

func (r *LR1121) StartRx() error {
	if err := r.command(opSetRx, rxContinuous...); err != nil {
		return fmt.Errorf("lr1121 set rx: %w", err)
	}
	r.setLED(gpio.High)
	return nil
}

// IRQStatus reads Stat1, Stat2 and the 32-bit IRQ status in one GetStatus transfer.
func (r *LR1121) IRQStatus() (IRQ, error) {
	if err := r.waitBusy(); err != nil {
		return 0, fmt.Errorf("lr1121 get status: %w", err)
	}
	w := []byte{byte(opGetStatus >> 8), byte(opGetStatus & 0xFF), 0, 0, 0, 0}
	rd := make([]byte, len(w))
	if err := r.conn.Tx(w, rd); err != nil {
		return 0, fmt.Errorf("lr1121 get status: %w", err)
	}
	return IRQ(binary.BigEndian.Uint32(rd[2:])), nil
}

func (r *LR1121) PacketStatus() (PacketStatus, error) {
	b, err := r.read(opGetPacketStatus, 3)
	if err != nil {
		return PacketStatus{}, fmt.Errorf("lr1121 get packet status: %w", err)
	}
	return PacketStatus{
		RSSI: int8(-int(b[0]) / 2),
		SNR:  (int8(b[1]) + 2) >> 2,
	}, nil
}

func (r *LR1121) BufferStatus() (BufferStatus, error) {
	b, err := r.read(opGetRxBufferStatus, 2)
	if err != nil {
		return BufferStatus{}, fmt.Errorf("lr1121 get rx buffer status: %w", err)
	}
	return BufferStatus{Length: b[0], Offset: b[1]}, nil
}

func (r *LR1121) ReadBuffer(offset, length uint8) ([]byte, error) {
	b, err := r.read(opReadBuffer8, int(length), offset, length)
	if err != nil {
		return nil, fmt.Errorf("lr1121 read buffer: %w", err)
	}
	return b, nil
}

// Close stops the IRQ watcher, puts the radio in standby and releases the SPI port.
func (r *LR1121) Close() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	r.mu.Unlock()

	close(r.stop)
	// dropping edge detection wakes WaitForEdge
	_ = r.irq.In(gpio.PullDown, gpio.NoEdge)
	r.wg.Wait()
	_ = r.SetIdle()
	return r.port.Close()
}

func (r *LR1121) setLED(l gpio.Level) {
	if r.led == nil {
		return
	}
	if err := r.led.Out(l); err != nil {
		r.log.Debug().Err(err).Msg("led write failed")
	}
}

func (r *LR1121) waitBusy() error {
	deadline := time.Now().Add(busyTimeout)
	for r.busy.Read() == gpio.High {
		if time.Now().After(deadline) {
			return ErrBusyTimeout
		}
		time.Sleep(50 * time.Microsecond)
	}
	return nil
}

// command writes a 2-byte opcode followed by params.
func (r *LR1121) command(op uint16, params ...byte) error {
	if err := r.waitBusy(); err != nil {
		return err
	}
	w := append([]byte{byte(op >> 8), byte(op & 0xFF)}, params...)
	return r.conn.Tx(w, nil)
}

// read issues a command and clocks out n response bytes in a second transfer.
// The first byte of the response transfer is Stat1 and is dropped.
func (r *LR1121) read(op uint16, n int, params ...byte) ([]byte, error) {
	if err := r.command(op, params...); err != nil {
		return nil, err
	}
	if err := r.waitBusy(); err != nil {
		return nil, err
	}
	w := make([]byte, n+1)
	rd := make([]byte, n+1)
	if err := r.conn.Tx(w, rd); err != nil {
		return nil, err
	}
	return rd[1:], nil
}

func be32(v IRQ) []byte {
	b := make([]byte, 4)
	binary.BigEndian.PutUint32(b, uint32(v))
	return b
}
