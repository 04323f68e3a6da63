//go:build !linux

package gpio

import (
	"context"
	"errors"
	"time"
)

var errUnsupported = errors.New("gpio: not supported on this platform (requires Linux)")

// RealReader is not available on non-Linux platforms.
type RealReader struct{}

// NewRealReader returns an error on non-Linux platforms.
func NewRealReader(chip string, pin int) (*RealReader, error) {
	return nil, errUnsupported
}

// Read is not implemented on non-Linux platforms.
func (r *RealReader) Read() (bool, error) {
	return false, errUnsupported
}

// Close is not implemented on non-Linux platforms.
func (r *RealReader) Close() error {
	return nil
}

// RealWatcher is not available on non-Linux platforms.
type RealWatcher struct{}

// NewRealWatcher returns an error on non-Linux platforms.
func NewRealWatcher(chip string, pirPin, buttonPin int, h Handlers) (*RealWatcher, error) {
	return nil, errUnsupported
}

// Watch returns immediately on non-Linux platforms.
func (w *RealWatcher) Watch(ctx context.Context, interval time.Duration) {}

// Close is not implemented on non-Linux platforms.
func (w *RealWatcher) Close() error {
	return nil
}

// RealIndicator is not available on non-Linux platforms.
type RealIndicator struct{}

// NewRealIndicator returns an error on non-Linux platforms.
func NewRealIndicator(chip string, pin int) (*RealIndicator, error) {
	return nil, errUnsupported
}

// Pulse does nothing on non-Linux platforms.
func (i *RealIndicator) Pulse(d time.Duration) {}

// Close is not implemented on non-Linux platforms.
func (i *RealIndicator) Close() error {
	return nil
}
