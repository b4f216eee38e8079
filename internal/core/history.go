package core

import (
	"FS26Rx/internal/model"
	"sync"
)

// DefaultHistorySize matches the window of the host dashboard.
const DefaultHistorySize = 500

// History is a bounded ring of the most recent reports, safe for concurrent use.
type History struct {
	mu    sync.RWMutex
	buf   []model.Report
	next  int
	count int
}

// NewHistory returns a ring holding up to size reports. size <= 0 uses DefaultHistorySize.
func NewHistory(size int) *History {
	if size <= 0 {
		size = DefaultHistorySize
	}
	return &History{buf: make([]model.Report, size)}
}

// Add stores r, evicting the oldest report when full.
func (h *History) Add(r model.Report) {
	h.mu.Lock()
	h.buf[h.next] = r
	h.next = (h.next + 1) % len(h.buf)
	if h.count < len(h.buf) {
		h.count++
	}
	h.mu.Unlock()
}

// Len is the number of stored reports.
func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.count
}

// Cap is the ring size.
func (h *History) Cap() int { return len(h.buf) }

// Latest returns the newest report.
func (h *History) Latest() (model.Report, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.count == 0 {
		return model.Report{}, false
	}
	return h.buf[(h.next-1+len(h.buf))%len(h.buf)], true
}

// Last returns up to n reports, oldest first. n <= 0 returns everything stored.
func (h *History) Last(n int) []model.Report {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if n <= 0 || n > h.count {
		n = h.count
	}
	out := make([]model.Report, n)
	start := (h.next - n + len(h.buf)) % len(h.buf)
	for i := 0; i < n; i++ {
		out[i] = h.buf[(start+i)%len(h.buf)]
	}
	return out
}
