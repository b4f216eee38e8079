package core

import "sync/atomic"

// Latch is the only state shared with the interrupt context. Signal sets it,
// the receive cycle consumes it. Signals that arrive before consumption collapse into one.
type Latch struct {
	flag atomic.Bool
	wake chan struct{}
}

// NewLatch returns a cleared latch.
func NewLatch() *Latch {
	return &Latch{wake: make(chan struct{}, 1)}
}

// Signal sets the latch and posts a non-blocking wake hint. It never blocks.
func (l *Latch) Signal() {
	l.flag.Store(true)
	select {
	case l.wake <- struct{}{}:
	default:
	}
}

// TakeAndClear atomically reads and clears the latch.
func (l *Latch) TakeAndClear() bool {
	return l.flag.Swap(false)
}

// Clear drops any pending signal. Only call it after the hardware IRQ status was cleared.
func (l *Latch) Clear() {
	l.flag.Store(false)
	select {
	case <-l.wake:
	default:
	}
}

// Wake is readable after Signal; it lets a waiter sleep instead of spinning on the flag.
func (l *Latch) Wake() <-chan struct{} {
	return l.wake
}
