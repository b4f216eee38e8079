// Package util provides helpers for virtual serial management using socat.
package util

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// ErrLinkTimeout is returned when socat does not create its links in time.
var ErrLinkTimeout = errors.New("virtual serial links not ready")

// SocatManager manages lifecycle of socat-created virtual serial pairs.
// The receiver uses one pair to relay reports to a monitor on the same host.
type SocatManager struct {
	log zerolog.Logger

	mu     sync.Mutex
	cmds   []*exec.Cmd
	links  []string
	closed bool
}

// NewSocatManager initializes an empty manager.
func NewSocatManager(logger zerolog.Logger) *SocatManager {
	return &SocatManager{log: logger}
}

// CreatePair starts a socat process that links two PTYs (bidirectional)
// and waits until both links exist.
func (m *SocatManager) CreatePair(left, right string, wait time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return errors.New("socat manager closed")
	}

	cmd := exec.Command(
		"socat",
		fmt.Sprintf("pty,raw,echo=0,link=%s", left),
		fmt.Sprintf("pty,raw,echo=0,link=%s", right),
	)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start socat: %w", err)
	}
	m.cmds = append(m.cmds, cmd)
	m.links = append(m.links, left, right)
	m.log.Info().Int("pid", cmd.Process.Pid).Str("left", left).Str("right", right).Msg("started socat")

	deadline := time.Now().Add(wait)
	for !exists(left) || !exists(right) {
		if time.Now().After(deadline) {
			return fmt.Errorf("%w: %s <-> %s", ErrLinkTimeout, left, right)
		}
		time.Sleep(10 * time.Millisecond)
	}
	return nil
}

// Cleanup stops all socat processes and removes created links.
func (m *SocatManager) Cleanup() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}
	m.closed = true

	for _, cmd := range m.cmds {
		if cmd.Process != nil {
			m.log.Debug().Int("pid", cmd.Process.Pid).Msg("killing socat")
			_ = cmd.Process.Kill()
			_, _ = cmd.Process.Wait()
		}
	}

	for _, path := range m.links {
		if _, err := os.Lstat(path); err == nil {
			_ = os.Remove(path)
		}
	}
	m.log.Info().Int("pairs", len(m.links)/2).Msg("virtual serial cleanup complete")
}

func exists(path string) bool {
	_, err := os.Lstat(path)
	return err == nil
}
