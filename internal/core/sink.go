package core

import "FS26Rx/internal/model"

// Sink consumes decoded reports. Publish is called on the loop goroutine and must not block
// for long; a sink logs its own failures and never returns them to the loop.
type Sink interface {
	Publish(r model.Report)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(r model.Report)

// Publish calls f(r).
func (f SinkFunc) Publish(r model.Report) { f(r) }
