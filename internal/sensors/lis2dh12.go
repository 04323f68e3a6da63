package sensors

import (
	"fmt"

	"periph.io/x/conn/v3/i2c"
)

const (
	lis2dh12RegWhoAmI = 0x0F
	lis2dh12RegCtrl1  = 0x20
	lis2dh12RegCtrl4  = 0x23
	lis2dh12RegOutX   = 0x28

	lis2dh12ID = 0x33

	// 100 Hz, normal mode, X/Y/Z enabled.
	lis2dh12Ctrl1 = 0x57
	// ±2 g full scale.
	lis2dh12Ctrl4 = 0x00

	// Register auto-increment for multi-byte reads.
	lis2dh12AutoInc = 0x80

	// 10-bit normal mode at ±2 g.
	lis2dh12GPerDigit = 0.004
)

// LIS2DH12 is an ST 3-axis accelerometer.
type LIS2DH12 struct {
	dev *i2c.Dev
}

// NewLIS2DH12 checks the device id and starts sampling.
func NewLIS2DH12(bus i2c.Bus, addr uint16) (*LIS2DH12, error) {
	d := &i2c.Dev{Bus: bus, Addr: addr}

	id := make([]byte, 1)
	if err := d.Tx([]byte{lis2dh12RegWhoAmI}, id); err != nil {
		return nil, fmt.Errorf("lis2dh12 who am i: %w", err)
	}
	if id[0] != lis2dh12ID {
		return nil, fmt.Errorf("lis2dh12: unexpected id 0x%02x", id[0])
	}
	if err := d.Tx([]byte{lis2dh12RegCtrl1, lis2dh12Ctrl1}, nil); err != nil {
		return nil, fmt.Errorf("lis2dh12 ctrl1: %w", err)
	}
	if err := d.Tx([]byte{lis2dh12RegCtrl4, lis2dh12Ctrl4}, nil); err != nil {
		return nil, fmt.Errorf("lis2dh12 ctrl4: %w", err)
	}
	return &LIS2DH12{dev: d}, nil
}

// Read returns the current acceleration.
func (l *LIS2DH12) Read() (Vector, error) {
	r := make([]byte, 6)
	if err := l.dev.Tx([]byte{lis2dh12RegOutX | lis2dh12AutoInc}, r); err != nil {
		return Vector{}, fmt.Errorf("lis2dh12 read: %w", err)
	}
	return Vector{
		X: AccelFromRaw(r[0], r[1]),
		Y: AccelFromRaw(r[2], r[3]),
		Z: AccelFromRaw(r[4], r[5]),
	}, nil
}

// AccelFromRaw converts a left-justified output register pair to g.
func AccelFromRaw(lo, hi byte) float64 {
	v := int16(uint16(lo)|uint16(hi)<<8) >> 6
	return float64(v) * lis2dh12GPerDigit
}
