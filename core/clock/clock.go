// Package clock provides an injectable time source and a cancellable timer
// scheduler. Production code uses Real(); tests drive time with a FakeClock.
package clock

import "time"

// Clock is the subset of the time package that timer-driven components use
type Clock interface {
	Now() time.Time
	// AfterFunc calls f on its own goroutine (or, for FakeClock, during Advance)
	// once d has elapsed.
	AfterFunc(d time.Duration, f func()) Timer
}

// Timer is a pending AfterFunc call
type Timer interface {
	// Stop prevents the call from firing. It reports whether the call was still pending.
	Stop() bool
}

type realClock struct{}

// Real returns a Clock backed by the time package
func Real() Clock {
	return realClock{}
}

func (realClock) Now() time.Time {
	return time.Now()
}

func (realClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}
