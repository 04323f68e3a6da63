package sensors

import (
	"fmt"

	"periph.io/x/conn/v3/i2c"
)

const (
	opt3001RegResult = 0x00
	opt3001RegConfig = 0x01

	// Automatic full-scale, 800 ms conversion, continuous mode.
	opt3001Config = 0xCE10
)

// OPT3001 is a TI ambient light sensor.
type OPT3001 struct {
	dev *i2c.Dev
}

// NewOPT3001 configures the sensor for continuous conversions.
func NewOPT3001(bus i2c.Bus, addr uint16) (*OPT3001, error) {
	d := &i2c.Dev{Bus: bus, Addr: addr}
	w := []byte{opt3001RegConfig, opt3001Config >> 8, opt3001Config & 0xff}
	if err := d.Tx(w, nil); err != nil {
		return nil, fmt.Errorf("opt3001 configure: %w", err)
	}
	return &OPT3001{dev: d}, nil
}

// Lux returns the latest conversion result.
func (o *OPT3001) Lux() (float64, error) {
	r := make([]byte, 2)
	if err := o.dev.Tx([]byte{opt3001RegResult}, r); err != nil {
		return 0, fmt.Errorf("opt3001 read: %w", err)
	}
	return LuxFromRaw(uint16(r[0])<<8 | uint16(r[1])), nil
}

// LuxFromRaw converts the result register: 0.01 × 2^E × R with the exponent
// in the top four bits.
func LuxFromRaw(raw uint16) float64 {
	exp := raw >> 12
	mantissa := raw & 0x0fff
	return 0.01 * float64(uint32(1)<<exp) * float64(mantissa)
}
