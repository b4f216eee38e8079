// Package app implements the operator HTTP API and live websocket feed of the receiver.
package app

import (
	"FS26Rx/internal/model"
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// HistorySource is the report history the API reads from.
type HistorySource interface {
	Latest() (model.Report, bool)
	Last(n int) []model.Report
}

// StatsSource provides the live session counters.
type StatsSource interface {
	Stats() model.Stats
}

// App serves the API and broadcasts every published report to websocket clients.
// It is a report sink of the receive loop.
type App struct {
	Router chi.Router
	Server *http.Server

	history HistorySource
	stats   StatsSource
	hub     *hub
	log     zerolog.Logger

	mu      sync.Mutex
	stopped bool
}

// NewApp builds the router over the given sources.
func NewApp(history HistorySource, stats StatsSource, logger zerolog.Logger) *App {
	a := &App{
		Router:  chi.NewRouter(),
		history: history,
		stats:   stats,
		hub:     newHub(logger),
		log:     logger,
	}
	a.registerRoutes()
	return a
}

// Publish queues r for the websocket feed. It never blocks on a client.
func (a *App) Publish(r model.Report) {
	a.hub.broadcast(r)
}

// Start launches the web server and blocks until stopped.
func (a *App) Start(addr string) error {
	if addr == "" {
		a.log.Info().Msg("app server not started (empty address)")
		return nil
	}
	addr = strings.TrimPrefix(addr, "http://")
	if !strings.Contains(addr, ":") {
		addr = ":" + addr
	}

	a.mu.Lock()
	if a.stopped {
		a.mu.Unlock()
		return nil
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           a.Router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	a.Server = srv
	a.mu.Unlock()

	a.log.Info().Str("addr", addr).Msg("app server listening")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("app server: %w", err)
	}
	return nil
}

// Stop closes websocket clients and shuts the server down.
func (a *App) Stop() {
	a.mu.Lock()
	a.stopped = true
	srv := a.Server
	a.mu.Unlock()

	a.hub.closeAll()
	if srv == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		a.log.Warn().Err(err).Msg("app server shutdown")
		return
	}
	a.log.Info().Msg("app server stopped")
}
