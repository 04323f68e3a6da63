package sensors

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/devices/v3/bmxx80"
	"periph.io/x/host/v3"
)

// HardwareConfig selects the I2C bus and device addresses.
type HardwareConfig struct {
	Bus              string
	BME280           uint16
	OPT3001          uint16
	LIS2DH12         uint16
	PositionInterval time.Duration
}

// Hardware owns the I2C bus and the pollers built on it.
// Env or Accel is nil when none of its devices answered.
type Hardware struct {
	bus   i2c.BusCloser
	bme   *bmxx80.Dev
	Env   *Environment
	Accel *Accelerometer
}

// OpenHardware initialises the host drivers and opens every device it can.
// A device that fails to initialise is logged and skipped.
func OpenHardware(cfg HardwareConfig) (*Hardware, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("host init: %w", err)
	}
	bus, err := i2creg.Open(cfg.Bus)
	if err != nil {
		return nil, fmt.Errorf("open i2c bus %q: %w", cfg.Bus, err)
	}

	h := &Hardware{bus: bus}

	var hyg Hygrometer
	if cfg.BME280 != 0 {
		if dev, err := bmxx80.NewI2C(bus, cfg.BME280, &bmxx80.DefaultOpts); err != nil {
			slog.Warn("bme280 unavailable", "addr", cfg.BME280, "err", err)
		} else {
			h.bme = dev
			hyg = dev
		}
	}

	var lux LuxMeter
	if cfg.OPT3001 != 0 {
		if dev, err := NewOPT3001(bus, cfg.OPT3001); err != nil {
			slog.Warn("opt3001 unavailable", "addr", cfg.OPT3001, "err", err)
		} else {
			lux = dev
		}
	}

	if hyg != nil || lux != nil {
		h.Env = NewEnvironment(hyg, lux)
	}

	if cfg.LIS2DH12 != 0 {
		if dev, err := NewLIS2DH12(bus, cfg.LIS2DH12); err != nil {
			slog.Warn("lis2dh12 unavailable", "addr", cfg.LIS2DH12, "err", err)
		} else {
			h.Accel = NewAccelerometer(dev, cfg.PositionInterval)
		}
	}

	return h, nil
}

// Close halts the BME280 and releases the bus.
func (h *Hardware) Close() error {
	var errs []error
	if h.bme != nil {
		if err := h.bme.Halt(); err != nil {
			errs = append(errs, fmt.Errorf("halt bme280: %w", err))
		}
	}
	if err := h.bus.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close i2c bus: %w", err))
	}
	return errors.Join(errs...)
}
