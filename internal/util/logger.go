// Package util provides logger setup and small host helpers.
package util

import (
	"FS26Rx/internal/model"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// NewLogger builds a zerolog logger writing to w. Format "json" writes raw JSON lines,
// anything else a human readable console format. Unknown levels fall back to info.
func NewLogger(cfg model.LogConfig, w io.Writer) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || cfg.Level == "" {
		level = zerolog.InfoLevel
	}
	out := w
	if cfg.Format != "json" {
		out = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}
	return zerolog.New(out).Level(level).With().Timestamp().Logger()
}

// SetupLogger installs the global logger on stderr.
func SetupLogger(cfg model.LogConfig) {
	log.Logger = NewLogger(cfg, os.Stderr)
}

// Component returns a child of the global logger tagged with a component name.
func Component(name string) zerolog.Logger {
	return log.With().Str("component", name).Logger()
}
