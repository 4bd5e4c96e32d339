// Package metrics records request latency and cache size. A Sink is passed to
// the components that report; nothing here is global.
package metrics

import "time"

// Sink receives measurements from the server and the size sampler.
type Sink interface {
	// ObserveCommand records how long one command took, labelled by its
	// lower-case name.
	ObserveCommand(command string, d time.Duration)
	// SetCacheSize records the current number of cache entries.
	SetCacheSize(n int)
}

// Nop discards every measurement.
type Nop struct{}

func (Nop) ObserveCommand(string, time.Duration) {}
func (Nop) SetCacheSize(int)                     {}

var _ Sink = Nop{}
