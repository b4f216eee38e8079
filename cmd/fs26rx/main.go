// Package main is the entry point of the FS26 receiver.
// It loads the configuration, builds the radio, receive loop and sinks, and runs until
// interrupted or until the radio fails.
package main

import (
	"FS26Rx/internal/core"
	"FS26Rx/internal/model"
	"FS26Rx/internal/util"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
)

func main() {
	cfgPath := flag.String("c", "", "path to configuration file (built-in defaults when empty)")
	flag.Parse()

	cfg, err := model.LoadConfig(*cfgPath)
	if err != nil {
		util.SetupLogger(model.DefaultConfig().Log)
		log.Fatal().Err(err).Msg("failed to load config")
	}
	util.SetupLogger(cfg.Log)
	if *cfgPath != "" {
		log.Info().Str("path", *cfgPath).Msg("using config")
	}

	sys, err := core.NewSystem(cfg, log.Logger)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create system")
	}
	if err := sys.StartAll(); err != nil {
		sys.StopAll()
		log.Fatal().Err(err).Msg("failed to start system")
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-stop:
		log.Info().Str("signal", sig.String()).Msg("shutting down")
		sys.StopAll()
	case err := <-sys.Err():
		sys.StopAll()
		log.Fatal().Err(err).Msg("radio failure, receiver stopped")
	}
}
