package core

import "sync/atomic"

// Counters holds the session counters. Only the receive cycle writes them;
// readers on other goroutines see consistent values through the atomics.
type Counters struct {
	received atomic.Uint32
	errors   atomic.Uint32
}

// Received is the number of payloads read from the radio, valid or not.
func (c *Counters) Received() uint32 { return c.received.Load() }

// Errors is the number of CRC errors.
func (c *Counters) Errors() uint32 { return c.errors.Load() }

func (c *Counters) addReceived() uint32 { return c.received.Add(1) }

func (c *Counters) addError() uint32 { return c.errors.Add(1) }
