package clock

import (
	"sync"
	"time"
)

// FakeTimeSource is a manually advanced TimeSource for tests. Timers fire
// when Advance moves the fake clock at or past their deadline.
type FakeTimeSource struct {
	mu     sync.Mutex
	now    time.Time
	timers []*fakeTimer
}

// NewFakeTimeSource returns a fake clock pinned at the given start instant.
func NewFakeTimeSource(start time.Time) *FakeTimeSource {
	return &FakeTimeSource{now: start}
}

// Now returns the fake clock's current instant.
func (f *FakeTimeSource) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

// NewTimer registers a timer that fires once the fake clock reaches now+d.
// A non-positive d fires immediately.
func (f *FakeTimeSource) NewTimer(d time.Duration) Timer {
	f.mu.Lock()
	defer f.mu.Unlock()

	t := &fakeTimer{
		deadline: f.now.Add(d),
		ch:       make(chan time.Time, 1),
	}
	if d <= 0 {
		t.fire(f.now)
		return t
	}

	f.timers = append(f.timers, t)
	return t
}

// Advance moves the fake clock forward by d and fires any due timers.
func (f *FakeTimeSource) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.now = f.now.Add(d)

	remaining := f.timers[:0]
	for _, t := range f.timers {
		if !t.deadline.After(f.now) {
			t.fire(f.now)
			continue
		}
		remaining = append(remaining, t)
	}
	f.timers = remaining
}

// Set jumps the fake clock to an absolute instant and fires any due timers.
func (f *FakeTimeSource) Set(now time.Time) {
	f.mu.Lock()
	d := now.Sub(f.now)
	f.mu.Unlock()

	if d > 0 {
		f.Advance(d)
	}
}

type fakeTimer struct {
	mu       sync.Mutex
	deadline time.Time
	ch       chan time.Time
	fired    bool
}

func (t *fakeTimer) Chan() <-chan time.Time {
	return t.ch
}

func (t *fakeTimer) Stop() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.fired {
		return false
	}
	t.fired = true
	return true
}

func (t *fakeTimer) fire(now time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.fired {
		return
	}
	t.fired = true
	t.ch <- now
}
