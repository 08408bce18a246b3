// Package clock abstracts time so that wait and day-reset behavior can be
// driven deterministically in tests.
package clock

import "time"

// Timer is the subset of time.Timer the library relies on.
type Timer interface {
	Chan() <-chan time.Time
	Stop() bool
}

// TimeSource supplies the current instant and timers.
type TimeSource interface {
	Now() time.Time
	NewTimer(d time.Duration) Timer
}

// RealTimeSource is a TimeSource backed by the wall clock.
type RealTimeSource struct{}

// NewRealTimeSource returns a TimeSource backed by the time package.
func NewRealTimeSource() RealTimeSource {
	return RealTimeSource{}
}

// Now returns the current wall-clock time.
func (RealTimeSource) Now() time.Time {
	return time.Now()
}

// NewTimer starts a timer that fires after d.
func (RealTimeSource) NewTimer(d time.Duration) Timer {
	return realTimer{timer: time.NewTimer(d)}
}

type realTimer struct {
	timer *time.Timer
}

func (t realTimer) Chan() <-chan time.Time {
	return t.timer.C
}

func (t realTimer) Stop() bool {
	return t.timer.Stop()
}
