package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFakeTimeSource_Advance(t *testing.T) {
	start := time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)
	ts := NewFakeTimeSource(start)

	assert.Equal(t, start, ts.Now())

	ts.Advance(time.Minute)
	assert.Equal(t, start.Add(time.Minute), ts.Now())
}

func TestFakeTimeSource_TimerFiresAtDeadline(t *testing.T) {
	ts := NewFakeTimeSource(time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC))
	timer := ts.NewTimer(time.Second)

	select {
	case <-timer.Chan():
		t.Fatal("timer fired before the clock advanced")
	default:
	}

	ts.Advance(999 * time.Millisecond)
	select {
	case <-timer.Chan():
		t.Fatal("timer fired before its deadline")
	default:
	}

	ts.Advance(time.Millisecond)
	select {
	case fired := <-timer.Chan():
		assert.Equal(t, ts.Now(), fired)
	default:
		t.Fatal("timer did not fire at its deadline")
	}
}

func TestFakeTimeSource_NonPositiveTimerFiresImmediately(t *testing.T) {
	ts := NewFakeTimeSource(time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC))

	timer := ts.NewTimer(0)
	select {
	case <-timer.Chan():
	default:
		t.Fatal("zero-duration timer did not fire")
	}
}

func TestFakeTimeSource_StoppedTimerNeverFires(t *testing.T) {
	ts := NewFakeTimeSource(time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC))

	timer := ts.NewTimer(time.Second)
	require.True(t, timer.Stop())
	assert.False(t, timer.Stop())

	ts.Advance(2 * time.Second)
	select {
	case <-timer.Chan():
		t.Fatal("stopped timer fired")
	default:
	}
}

func TestFakeTimeSource_Set(t *testing.T) {
	start := time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)
	ts := NewFakeTimeSource(start)

	target := start.Add(time.Hour)
	timer := ts.NewTimer(30 * time.Minute)

	ts.Set(target)
	assert.Equal(t, target, ts.Now())

	select {
	case <-timer.Chan():
	default:
		t.Fatal("timer due before the target instant did not fire")
	}

	// Setting the clock backwards is ignored.
	ts.Set(start)
	assert.Equal(t, target, ts.Now())
}
