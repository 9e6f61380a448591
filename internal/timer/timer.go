// Package timer implements the elapsed-time threshold checks that drive the
// refresh policy.
package timer

import "time"

// Clock supplies the current instant. Values returned by time.Now carry a
// monotonic reading, so differences are immune to wall-clock steps.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// System is the process monotonic clock.
var System Clock = systemClock{}

// Timer measures time since the last Start.
type Timer struct {
	clock Clock
	start time.Time
}

// New returns a started timer. A nil clock selects System.
func New(clock Clock) *Timer {
	if clock == nil {
		clock = System
	}
	t := &Timer{clock: clock}
	t.Start()
	return t
}

// Start captures the current instant.
func (t *Timer) Start() {
	t.start = t.clock.Now()
}

// Elapsed returns the time since Start.
func (t *Timer) Elapsed() time.Duration {
	return t.clock.Now().Sub(t.start)
}

// ElapsedAtLeast reports whether at least d has passed since Start.
func (t *Timer) ElapsedAtLeast(d time.Duration) bool {
	return t.Elapsed() >= d
}
