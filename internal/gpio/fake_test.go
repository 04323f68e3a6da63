package gpio

import (
	"errors"
	"testing"
	"time"
)

func TestFakeReaderRead(t *testing.T) {
	f := NewFakeReader([]bool{true, false, true})

	for i, want := range []bool{true, false, true} {
		got, err := f.Read()
		if err != nil {
			t.Fatalf("sample %d: unexpected error: %v", i, err)
		}
		if got != want {
			t.Errorf("sample %d: expected %v, got %v", i, want, got)
		}
	}

	// Fourth read should repeat last sample
	got, err := f.Read()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != true {
		t.Errorf("sample 3 (repeat): expected true, got %v", got)
	}
}

func TestFakeReaderNoSamples(t *testing.T) {
	f := NewFakeReader(nil)

	_, err := f.Read()
	if err == nil {
		t.Error("expected error with no samples")
	}
}

func TestFakeReaderError(t *testing.T) {
	f := NewFakeReader([]bool{true})
	f.ReadError = errors.New("simulated error")

	_, err := f.Read()
	if err == nil {
		t.Error("expected error to be returned")
	}
	if err.Error() != "simulated error" {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestFakeReaderClose(t *testing.T) {
	f := NewFakeReader([]bool{true})

	if f.Closed {
		t.Error("should not be closed initially")
	}

	if err := f.Close(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}

	if !f.Closed {
		t.Error("should be closed after Close()")
	}
}

func TestFakeReaderReset(t *testing.T) {
	f := NewFakeReader([]bool{true, false})

	// Consume first sample
	f.Read()

	f.Reset()

	// Should read first sample again
	got, _ := f.Read()
	if got != true {
		t.Errorf("after reset: expected true, got %v", got)
	}
}

func TestFakeIndicator(t *testing.T) {
	var ind FakeIndicator
	ind.Pulse(100 * time.Millisecond)
	ind.Pulse(400 * time.Millisecond)

	got := ind.Pulses()
	if len(got) != 2 || got[0] != 100*time.Millisecond || got[1] != 400*time.Millisecond {
		t.Errorf("unexpected pulses: %v", got)
	}

	// Returned slice is a copy.
	got[0] = 0
	if ind.Pulses()[0] != 100*time.Millisecond {
		t.Error("Pulses should return a copy")
	}
}

// manualTimer records the armed hold callback so tests fire it by hand.
type manualTimer struct {
	d       time.Duration
	f       func()
	stopped bool
}

func (m *manualTimer) Stop() bool {
	m.stopped = true
	return true
}

type buttonHarness struct {
	tracker *buttonTracker
	timers  []*manualTimer
	presses int
	holds   int
}

func newButtonHarness() *buttonHarness {
	bh := &buttonHarness{}
	bh.tracker = &buttonTracker{
		h: Handlers{
			Press: func() { bh.presses++ },
			Hold:  func() { bh.holds++ },
		},
		after: func(d time.Duration, f func()) stopper {
			m := &manualTimer{d: d, f: f}
			bh.timers = append(bh.timers, m)
			return m
		},
	}
	return bh
}

func TestButtonPressFiresOnPressDown(t *testing.T) {
	bh := newButtonHarness()

	bh.tracker.edge(true)
	if bh.presses != 1 || bh.holds != 0 {
		t.Fatalf("after press-down: presses=%d holds=%d", bh.presses, bh.holds)
	}
	if len(bh.timers) != 1 || bh.timers[0].d != HoldTime {
		t.Fatalf("expected one hold timer of %v, got %+v", HoldTime, bh.timers)
	}

	bh.tracker.edge(false)
	if !bh.timers[0].stopped {
		t.Error("release should stop the hold timer")
	}
	if bh.presses != 1 {
		t.Errorf("release must not add a press, got %d", bh.presses)
	}
}

func TestButtonHoldFiresWhileStillDown(t *testing.T) {
	bh := newButtonHarness()

	bh.tracker.edge(true)
	bh.timers[0].f()
	if bh.presses != 1 || bh.holds != 1 {
		t.Fatalf("long press: presses=%d holds=%d, want 1 and 1", bh.presses, bh.holds)
	}

	bh.tracker.edge(false)
	if bh.holds != 1 {
		t.Errorf("release after hold must not fire again, got %d holds", bh.holds)
	}
}

func TestButtonHoldSkippedAfterRelease(t *testing.T) {
	bh := newButtonHarness()

	bh.tracker.edge(true)
	bh.tracker.edge(false)
	// A timer that races the release still finds the button up.
	bh.timers[0].f()
	if bh.holds != 0 {
		t.Errorf("stale timer fired Hold")
	}
}

func TestButtonHoldBelongsToItsPress(t *testing.T) {
	bh := newButtonHarness()

	bh.tracker.edge(true)
	bh.tracker.edge(false)
	bh.tracker.edge(true)
	bh.timers[0].f()
	if bh.holds != 0 {
		t.Error("timer from the first press fired Hold for the second")
	}
	bh.timers[1].f()
	if bh.holds != 1 || bh.presses != 2 {
		t.Errorf("got presses=%d holds=%d, want 2 and 1", bh.presses, bh.holds)
	}
}

func TestButtonTrackerIgnoresRepeatedEdges(t *testing.T) {
	bh := newButtonHarness()

	bh.tracker.edge(false)
	bh.tracker.edge(true)
	bh.tracker.edge(true)
	if bh.presses != 1 || len(bh.timers) != 1 {
		t.Errorf("got presses=%d timers=%d, want 1 and 1", bh.presses, len(bh.timers))
	}
}

func TestButtonTrackerNilHandlers(t *testing.T) {
	var fired func()
	b := &buttonTracker{after: func(_ time.Duration, f func()) stopper {
		fired = f
		return &manualTimer{}
	}}
	b.edge(true)
	fired()
	b.edge(false)
}

func TestFaultLatchReportsOncePerRun(t *testing.T) {
	var reports int
	l := faultLatch{report: func(error) { reports++ }}
	boom := errors.New("line gone")

	for i := 0; i < 5; i++ {
		l.observe(boom)
	}
	if reports != 1 {
		t.Fatalf("expected 1 report for a run of failures, got %d", reports)
	}

	l.observe(nil)
	l.observe(boom)
	l.observe(boom)
	if reports != 2 {
		t.Errorf("expected a new report after recovery, got %d", reports)
	}
}

func TestFaultLatchNilReport(t *testing.T) {
	var l faultLatch
	l.observe(errors.New("x"))
	l.observe(nil)
}

func TestNopIndicator(t *testing.T) {
	var ind Indicator = NopIndicator{}
	ind.Pulse(time.Second)
}
