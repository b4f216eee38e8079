// Package model defines shared configuration structures used to initialize the receiver.
package model

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ErrInvalidConfig is returned by Validate for out-of-range settings.
var ErrInvalidConfig = errors.New("invalid config")

// Radio driver names accepted in radio.driver.
const (
	DriverLR1121 = "lr1121"
	DriverSim    = "sim"
)

// Config represents the root structure loaded from the YAML configuration file.
type Config struct {
	Log      LogConfig      `yaml:"log"`
	Radio    RadioConfig    `yaml:"radio"`
	Receiver ReceiverConfig `yaml:"receiver"`
	Display  DisplayConfig  `yaml:"display"`
	Relay    RelayConfig    `yaml:"relay"`
	NATS     NATSConfig     `yaml:"nats"`
	App      AppConfig      `yaml:"app"`
}

// LogConfig selects the zerolog level and output format (console/json).
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// RadioConfig defines which transceiver driver to use and how to reach it.
type RadioConfig struct {
	Driver          string    `yaml:"driver"`   // lr1121 or sim
	SPIPort         string    `yaml:"spi_port"` // empty selects the first SPI port
	SPIHz           int64     `yaml:"spi_hz"`
	Pins            PinConfig `yaml:"pins"`
	FrequencyHz     uint32    `yaml:"frequency_hz"`
	SpreadingFactor uint8     `yaml:"spreading_factor"`
	Bandwidth       uint8     `yaml:"bandwidth"`   // LR11xx bandwidth code
	CodingRate      uint8     `yaml:"coding_rate"` // LR11xx coding rate code
	Sim             SimConfig `yaml:"sim"`
}

// PinConfig names the GPIO lines wired to the transceiver.
type PinConfig struct {
	Reset string `yaml:"reset"`
	Busy  string `yaml:"busy"`
	IRQ   string `yaml:"irq"`
	LED   string `yaml:"led"`
}

// SimConfig drives the host radio simulator.
type SimConfig struct {
	Interval     time.Duration `yaml:"interval"`
	CRCErrorRate float64       `yaml:"crc_error_rate"`
	TimeoutRate  float64       `yaml:"timeout_rate"`
	GarbageRate  float64       `yaml:"garbage_rate"`
	HomeLat      float64       `yaml:"home_lat"`
	HomeLon      float64       `yaml:"home_lon"`
	GPSDevice    string        `yaml:"gps_device"` // optional NMEA source for positions
	GPSBaud      int           `yaml:"gps_baud"`
	Seed         int64         `yaml:"seed"`
}

// ReceiverConfig tunes the receive cycle and the main loop.
type ReceiverConfig struct {
	MaxPayload   int           `yaml:"max_payload"`
	PollInterval time.Duration `yaml:"poll_interval"`
	IdleDelay    time.Duration `yaml:"idle_delay"`
	Watchdog     time.Duration `yaml:"watchdog"` // 0 disables
	HistorySize  int           `yaml:"history_size"`
}

// DisplayConfig controls the console rendering of decoded packets.
type DisplayConfig struct {
	Console bool `yaml:"console"`
}

// RelayConfig defines the serial line that mirrors decoded reports to a host.
type RelayConfig struct {
	Device      string `yaml:"device"`
	Baud        int    `yaml:"baud"`
	VirtualPair string `yaml:"virtual_pair"` // when set, socat links Device to this path
}

// NATSConfig defines the optional NATS publisher. An empty URL disables it.
type NATSConfig struct {
	URL           string        `yaml:"url"`
	Subject       string        `yaml:"subject"`
	Name          string        `yaml:"name"`
	MaxReconnects int           `yaml:"max_reconnects"`
	ReconnectWait time.Duration `yaml:"reconnect_wait"`
}

// AppConfig defines the operator HTTP API. An empty Addr disables it.
type AppConfig struct {
	Addr string `yaml:"addr"`
}

// DefaultConfig returns the settings used when no configuration file is given.
func DefaultConfig() *Config {
	return &Config{
		Log: LogConfig{Level: "info", Format: "console"},
		Radio: RadioConfig{
			Driver: DriverLR1121,
			SPIHz:  10_000_000,
			Pins: PinConfig{
				Reset: "GPIO8",
				Busy:  "GPIO9",
				IRQ:   "GPIO14",
				LED:   "GPIO25",
			},
			FrequencyHz:     2_400_000_000,
			SpreadingFactor: 7,
			Bandwidth:       0x0F,
			CodingRate:      0x01,
			Sim: SimConfig{
				Interval: time.Second,
				HomeLat:  37.422,
				HomeLon:  -122.084,
				GPSBaud:  9600,
				Seed:     1,
			},
		},
		Receiver: ReceiverConfig{
			MaxPayload:   255,
			PollInterval: time.Millisecond,
			IdleDelay:    10 * time.Millisecond,
			HistorySize:  500,
		},
		Display: DisplayConfig{Console: true},
		Relay:   RelayConfig{Baud: 115200},
		NATS: NATSConfig{
			Subject:       "fs26.telemetry",
			Name:          "fs26rx",
			MaxReconnects: -1,
			ReconnectWait: 2 * time.Second,
		},
		App: AppConfig{Addr: ":8026"},
	}
}

// LoadConfig reads the YAML file at path over the defaults and applies environment overrides.
// An empty path skips the file.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(b, cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}
	cfg.applyEnvOverrides()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("FS26_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("FS26_LOG_FORMAT"); v != "" {
		c.Log.Format = v
	}
	if v := os.Getenv("FS26_RADIO_DRIVER"); v != "" {
		c.Radio.Driver = strings.ToLower(v)
	}
	if v := os.Getenv("FS26_NATS_URL"); v != "" {
		c.NATS.URL = v
	}
	if v, ok := os.LookupEnv("FS26_APP_ADDR"); ok {
		c.App.Addr = v
	}
	if v := os.Getenv("FS26_RELAY_DEVICE"); v != "" {
		c.Relay.Device = v
	}
}

// Validate checks the settings the receive loop depends on.
func (c *Config) Validate() error {
	switch c.Radio.Driver {
	case DriverLR1121, DriverSim:
	default:
		return fmt.Errorf("%w: unknown radio driver %q", ErrInvalidConfig, c.Radio.Driver)
	}
	r := c.Receiver
	if r.MaxPayload < 1 || r.MaxPayload > 255 {
		return fmt.Errorf("%w: receiver.max_payload must be in 1..255, got %d", ErrInvalidConfig, r.MaxPayload)
	}
	if r.PollInterval <= 0 {
		return fmt.Errorf("%w: receiver.poll_interval must be positive", ErrInvalidConfig)
	}
	if r.IdleDelay < 0 || r.Watchdog < 0 {
		return fmt.Errorf("%w: receiver durations must not be negative", ErrInvalidConfig)
	}
	if r.HistorySize < 1 {
		return fmt.Errorf("%w: receiver.history_size must be positive", ErrInvalidConfig)
	}
	s := c.Radio.Sim
	for _, rate := range []float64{s.CRCErrorRate, s.TimeoutRate, s.GarbageRate} {
		if rate < 0 || rate > 1 {
			return fmt.Errorf("%w: sim rates must be in [0,1]", ErrInvalidConfig)
		}
	}
	if s.CRCErrorRate+s.TimeoutRate+s.GarbageRate > 1 {
		return fmt.Errorf("%w: sim rates add up to more than 1", ErrInvalidConfig)
	}
	if c.Radio.Driver == DriverSim && s.Interval <= 0 {
		return fmt.Errorf("%w: radio.sim.interval must be positive", ErrInvalidConfig)
	}
	if c.Relay.Device != "" && c.Relay.Baud <= 0 {
		return fmt.Errorf("%w: relay.baud must be positive", ErrInvalidConfig)
	}
	return nil
}
