package core

import (
	"FS26Rx/internal/device"
	"FS26Rx/internal/model"
	"FS26Rx/internal/parser"
	"sync"

	"github.com/rs/zerolog"
)

const relayQueue = 64

// SerialRelay forwards each report as one CSV line to a host over a serial device.
// Writes happen on a background goroutine so a slow port never stalls the receive loop.
type SerialRelay struct {
	Device device.Device

	lines chan string
	stop  chan struct{}
	once  sync.Once
	wg    sync.WaitGroup
	log   zerolog.Logger
}

// NewSerialRelay opens devPath at baud and starts the writer.
func NewSerialRelay(devPath string, baud int, logger zerolog.Logger) (*SerialRelay, error) {
	dev, err := device.NewSerialDevice(devPath, baud)
	if err != nil {
		return nil, err
	}
	return StartSerialRelay(dev, logger), nil
}

// StartSerialRelay starts a relay on an already open device.
func StartSerialRelay(dev device.Device, logger zerolog.Logger) *SerialRelay {
	s := &SerialRelay{
		Device: dev,
		lines:  make(chan string, relayQueue),
		stop:   make(chan struct{}),
		log:    logger,
	}
	s.wg.Add(1)
	go s.loop()
	return s
}

// Publish queues r. When the queue is full the report is dropped and logged.
func (s *SerialRelay) Publish(r model.Report) {
	select {
	case <-s.stop:
		return
	default:
	}
	select {
	case s.lines <- parser.EncodeReportCSV(r):
	default:
		s.log.Warn().Uint16("tx", r.Packet.TxCount).Msg("relay queue full, report dropped")
	}
}

func (s *SerialRelay) loop() {
	defer s.wg.Done()
	for {
		select {
		case <-s.stop:
			return
		case line := <-s.lines:
			if err := s.Device.WriteLine(line); err != nil {
				s.log.Warn().Err(err).Msg("relay write failed")
			}
		}
	}
}

// Stop ends the writer and closes the device.
func (s *SerialRelay) Stop() {
	s.once.Do(func() {
		close(s.stop)
		s.wg.Wait()
		if err := s.Device.Close(); err != nil {
			s.log.Warn().Err(err).Msg("relay close failed")
		}
	})
}
