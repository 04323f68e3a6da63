//go:build linux

package gpio

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/warthog618/go-gpiocdev"
)

// RealReader reads the door contact from actual hardware using Linux GPIO character device.
type RealReader struct {
	line *gpiocdev.Line
}

// NewRealReader requests the door line as an input.
func NewRealReader(chip string, pin int) (*RealReader, error) {
	// Pull-down so an unplugged contact reads as open.
	line, err := gpiocdev.RequestLine(chip, pin, gpiocdev.AsInput, gpiocdev.WithPullDown)
	if err != nil {
		return nil, fmt.Errorf("request door pin %d: %w", pin, err)
	}
	return &RealReader{line: line}, nil
}

// Read returns true when the door is closed.
func (r *RealReader) Read() (bool, error) {
	v, err := r.line.Value()
	if err != nil {
		return false, fmt.Errorf("read door pin: %w", err)
	}
	return v == 1, nil
}

// Close releases the door line.
// Reconfigures it to input with pull-down (matching Pi boot defaults) first.
func (r *RealReader) Close() error {
	return closeLine(r.line, "door")
}

// RealWatcher delivers PIR and button edges.
type RealWatcher struct {
	pir    *gpiocdev.Line
	button *gpiocdev.Line
	h      Handlers
}

// NewRealWatcher requests the PIR and button lines with edge detection.
// A negative pin skips that input.
func NewRealWatcher(chip string, pirPin, buttonPin int, h Handlers) (*RealWatcher, error) {
	w := &RealWatcher{h: h}

	if pirPin >= 0 {
		line, err := gpiocdev.RequestLine(chip, pirPin,
			gpiocdev.WithPullDown,
			gpiocdev.WithRisingEdge,
			gpiocdev.WithEventHandler(func(gpiocdev.LineEvent) {
				if h.Motion != nil {
					h.Motion()
				}
			}))
		if err != nil {
			return nil, fmt.Errorf("request PIR pin %d: %w", pirPin, err)
		}
		w.pir = line
	}

	if buttonPin >= 0 {
		bt := newButtonTracker(h)
		line, err := gpiocdev.RequestLine(chip, buttonPin,
			gpiocdev.WithPullDown,
			gpiocdev.WithBothEdges,
			gpiocdev.WithDebounce(10*time.Millisecond),
			gpiocdev.WithEventHandler(func(evt gpiocdev.LineEvent) {
				bt.edge(evt.Type == gpiocdev.LineEventRisingEdge)
			}))
		if err != nil {
			w.Close()
			return nil, fmt.Errorf("request button pin %d: %w", buttonPin, err)
		}
		w.button = line
	}

	return w, nil
}

// Watch checks the PIR line every interval until ctx is done. A run of read
// failures is reported once through Handlers.MotionFault.
func (w *RealWatcher) Watch(ctx context.Context, interval time.Duration) {
	if w.pir == nil {
		return
	}
	latch := faultLatch{report: w.h.MotionFault}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := w.pir.Value(); err != nil {
				latch.observe(fmt.Errorf("read PIR pin: %w", err))
			} else {
				latch.observe(nil)
			}
		}
	}
}

// Close releases the watched lines.
func (w *RealWatcher) Close() error {
	var errs []error
	if err := closeLine(w.pir, "PIR"); err != nil {
		errs = append(errs, err)
	}
	if err := closeLine(w.button, "button"); err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}

// RealIndicator drives the LED line.
type RealIndicator struct {
	mu    sync.Mutex
	line  *gpiocdev.Line
	timer *time.Timer
	until time.Time
}

// NewRealIndicator requests the LED line as an output, initially off.
func NewRealIndicator(chip string, pin int) (*RealIndicator, error) {
	line, err := gpiocdev.RequestLine(chip, pin, gpiocdev.AsOutput(0))
	if err != nil {
		return nil, fmt.Errorf("request LED pin %d: %w", pin, err)
	}
	return &RealIndicator{line: line}, nil
}

// Pulse turns the LED on for d.
func (i *RealIndicator) Pulse(d time.Duration) {
	i.mu.Lock()
	defer i.mu.Unlock()

	until := time.Now().Add(d)
	if until.Before(i.until) {
		return
	}
	i.until = until
	i.line.SetValue(1)
	if i.timer != nil {
		i.timer.Stop()
	}
	i.timer = time.AfterFunc(d, func() {
		i.mu.Lock()
		defer i.mu.Unlock()
		if time.Now().Before(i.until) {
			return
		}
		i.line.SetValue(0)
	})
}

// Close switches the LED off and releases the line.
func (i *RealIndicator) Close() error {
	i.mu.Lock()
	if i.timer != nil {
		i.timer.Stop()
	}
	i.line.SetValue(0)
	i.mu.Unlock()
	return closeLine(i.line, "LED")
}

// closeLine reconfigures a line to input with pull-down before closing it.
// This prevents boot issues when external hardware is connected and might
// hold pins in unexpected states during early boot.
func closeLine(l *gpiocdev.Line, name string) error {
	if l == nil {
		return nil
	}
	var errs []error
	if err := l.Reconfigure(gpiocdev.AsInput, gpiocdev.WithPullDown); err != nil {
		errs = append(errs, fmt.Errorf("reconfigure %s pin: %w", name, err))
	}
	if err := l.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close %s pin: %w", name, err))
	}
	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}
