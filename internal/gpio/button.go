package gpio

import (
	"sync"
	"time"
)

// stopper is the part of *time.Timer the tracker needs.
type stopper interface {
	Stop() bool
}

func realAfter(d time.Duration, f func()) stopper {
	return time.AfterFunc(d, f)
}

// buttonTracker turns raw button edges into press/hold callbacks.
// Press fires on press-down. Hold fires once HoldTime has passed with the
// button still down, without waiting for the release.
type buttonTracker struct {
	h     Handlers
	after func(time.Duration, func()) stopper // nil means time.AfterFunc

	mu      sync.Mutex
	pressed bool
	gen     int
	timer   stopper
}

func newButtonTracker(h Handlers) *buttonTracker {
	return &buttonTracker{h: h, after: realAfter}
}

func (b *buttonTracker) edge(down bool) {
	b.mu.Lock()
	if down == b.pressed {
		b.mu.Unlock()
		return
	}
	b.pressed = down
	b.gen++
	if b.timer != nil {
		b.timer.Stop()
		b.timer = nil
	}
	if !down {
		b.mu.Unlock()
		return
	}
	after := b.after
	if after == nil {
		after = realAfter
	}
	gen := b.gen
	b.timer = after(HoldTime, func() { b.holdElapsed(gen) })
	b.mu.Unlock()

	if b.h.Press != nil {
		b.h.Press()
	}
}

// holdElapsed fires Hold if the press that armed the timer is still down.
func (b *buttonTracker) holdElapsed(gen int) {
	b.mu.Lock()
	fire := b.pressed && b.gen == gen
	b.timer = nil
	b.mu.Unlock()

	if fire && b.h.Hold != nil {
		b.h.Hold()
	}
}
