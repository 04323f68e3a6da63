package schedule

import (
	"sync"
	"time"
)

// FakeTicker is a manually driven Ticker for tests.
type FakeTicker struct {
	ch chan time.Time

	mu      sync.Mutex
	rearms  int
	stopped bool
}

// NewFakeTicker creates a FakeTicker.
func NewFakeTicker() *FakeTicker {
	return &FakeTicker{ch: make(chan time.Time)}
}

// C returns the tick channel.
func (f *FakeTicker) C() <-chan time.Time {
	return f.ch
}

// Tick delivers t and blocks until the receiver takes it.
func (f *FakeTicker) Tick(t time.Time) {
	f.ch <- t
}

// Rearm counts the call.
func (f *FakeTicker) Rearm() {
	f.mu.Lock()
	f.rearms++
	f.mu.Unlock()
}

// Stop records the call.
func (f *FakeTicker) Stop() {
	f.mu.Lock()
	f.stopped = true
	f.mu.Unlock()
}

// Rearms returns how many times Rearm was called.
func (f *FakeTicker) Rearms() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.rearms
}

// Stopped reports whether Stop was called.
func (f *FakeTicker) Stopped() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stopped
}
