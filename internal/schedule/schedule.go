// Package schedule drives periodic work from a one-shot timer that is
// re-armed after each run, so a slow run delays the next one instead of
// queueing ticks behind it.
package schedule

import "time"

// Ticker is the tick source consumed by the daemon loop.
type Ticker interface {
	// C delivers one value per armed period.
	C() <-chan time.Time
	// Rearm schedules the next tick one interval from now.
	Rearm()
	// Stop cancels any pending tick.
	Stop()
}

// Task is a Ticker backed by time.Timer.
type Task struct {
	timer    *time.Timer
	interval time.Duration
}

// New creates a Task whose first tick fires after interval.
func New(interval time.Duration) *Task {
	return &Task{
		timer:    time.NewTimer(interval),
		interval: interval,
	}
}

// C returns the tick channel.
func (t *Task) C() <-chan time.Time {
	return t.timer.C
}

// Rearm schedules the next tick. A tick that fired but was not received is
// discarded.
func (t *Task) Rearm() {
	if !t.timer.Stop() {
		select {
		case <-t.timer.C:
		default:
		}
	}
	t.timer.Reset(t.interval)
}

// Stop cancels the pending tick.
func (t *Task) Stop() {
	t.timer.Stop()
}
