// Package gpio provides door, motion, button and indicator I/O with hardware abstraction.
// The real implementation uses Linux GPIO character device.
// The fake implementation allows testing without hardware.
package gpio

import "time"

// DoorReader samples the door contact.
type DoorReader interface {
	// Read returns true when the door is closed.
	// The reed switch pulls the line high when the magnet is present.
	Read() (bool, error)

	// Close releases GPIO resources.
	Close() error
}

// Indicator drives the status LED.
type Indicator interface {
	// Pulse turns the LED on for d. A longer pulse replaces a shorter one.
	Pulse(d time.Duration)
}

// Handlers receives notifications from the push-driven inputs.
// Callbacks run on GPIO event or timer goroutines and must not block.
type Handlers struct {
	Motion      func()
	MotionFault func(err error)
	// Press fires when the button goes down, Hold after HoldTime if it
	// is still down. A long press therefore reports both.
	Press func()
	Hold  func()
}

// Default pin assignment (BCM numbering).
const (
	DefaultPinDoor   = 17
	DefaultPinPIR    = 27
	DefaultPinButton = 22
	DefaultPinLED    = 23
)

// DefaultChip is the GPIO character device used on a Raspberry Pi.
const DefaultChip = "gpiochip0"

// HoldTime is how long the button must stay down before Hold fires.
const HoldTime = 2 * time.Second

// NopIndicator is used when no LED is wired.
type NopIndicator struct{}

// Pulse does nothing.
func (NopIndicator) Pulse(time.Duration) {}
