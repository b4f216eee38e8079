package device

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	serial "go.bug.st/serial"
)

type lineResult struct {
	line string
	err  error
}

// LineDevice implements Device over any byte stream. A single reader goroutine
// splits the stream into lines so a timed out ReadLine never loses data.
type LineDevice struct {
	rwc   io.ReadWriteCloser
	lines chan lineResult
	done  chan struct{}

	wmu  sync.Mutex
	once sync.Once
}

// NewLineDevice wraps rwc and starts reading lines from it.
func NewLineDevice(rwc io.ReadWriteCloser) *LineDevice {
	d := &LineDevice{
		rwc:   rwc,
		lines: make(chan lineResult, 64),
		done:  make(chan struct{}),
	}
	go d.readLoop()
	return d
}

// NewSerialDevice opens a serial device with the given path and baudrate.
func NewSerialDevice(dev string, baud int) (*LineDevice, error) {
	p, err := serial.Open(dev, &serial.Mode{BaudRate: baud})
	if err != nil {
		return nil, fmt.Errorf("failed to open serial %s: %w", dev, err)
	}
	return NewLineDevice(p), nil
}

// ListPorts returns the serial ports present on the host.
func ListPorts() ([]string, error) {
	return serial.GetPortsList()
}

func (d *LineDevice) readLoop() {
	defer close(d.lines)
	r := bufio.NewReader(d.rwc)
	for {
		line, err := r.ReadString('\n')
		if line != "" {
			select {
			case d.lines <- lineResult{line: strings.TrimRight(line, "\r\n")}:
			case <-d.done:
				return
			}
		}
		if err != nil {
			select {
			case d.lines <- lineResult{err: err}:
			case <-d.done:
			}
			return
		}
	}
}

// ReadLine returns the next line. After the stream ends it returns the read error
// once and ErrClosed afterwards.
func (d *LineDevice) ReadLine(timeout time.Duration) (string, error) {
	var after <-chan time.Time
	if timeout > 0 {
		t := time.NewTimer(timeout)
		defer t.Stop()
		after = t.C
	}
	select {
	case res, ok := <-d.lines:
		if !ok {
			return "", ErrClosed
		}
		return res.line, res.err
	case <-after:
		return "", ErrReadTimeout
	case <-d.done:
		return "", ErrClosed
	}
}

// WriteLine writes a single line followed by '\n'.
func (d *LineDevice) WriteLine(line string) error {
	d.wmu.Lock()
	defer d.wmu.Unlock()
	select {
	case <-d.done:
		return ErrClosed
	default:
	}
	_, err := d.rwc.Write(append([]byte(line), '\n'))
	return err
}

// Close closes the underlying stream. It is safe to call more than once.
func (d *LineDevice) Close() error {
	var err error
	d.once.Do(func() {
		close(d.done)
		err = d.rwc.Close()
	})
	return err
}
