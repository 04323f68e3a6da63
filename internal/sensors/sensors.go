// Package sensors polls the I2C environmental sensors and the accelerometer
// and turns their readings into logic events.
package sensors

import (
	"context"
	"log/slog"
	"time"

	"periph.io/x/conn/v3/physic"

	"github.com/sweeney/occupancy-sensor/internal/logic"
)

// AccelSampleInterval is how often the accelerometer is read.
const AccelSampleInterval = 100 * time.Millisecond

// AlarmThreshold is the X-axis acceleration, in g, above which a bump is reported.
const AlarmThreshold = 1.0

// Sink receives events. It must not block.
type Sink func(logic.Event)

// Hygrometer reads temperature and humidity. *bmxx80.Dev satisfies it.
type Hygrometer interface {
	Sense(env *physic.Env) error
}

// LuxMeter reads ambient light.
type LuxMeter interface {
	Lux() (float64, error)
}

// AccelReader reads acceleration in g.
type AccelReader interface {
	Read() (Vector, error)
}

// Vector is an acceleration sample in g.
type Vector struct {
	X, Y, Z float64
}

// Environment samples the temperature, humidity and illuminance channels.
// Either device may be nil.
type Environment struct {
	hyg Hygrometer
	lux LuxMeter
}

// NewEnvironment creates an Environment poller.
func NewEnvironment(hyg Hygrometer, lux LuxMeter) *Environment {
	return &Environment{hyg: hyg, lux: lux}
}

// Sample reads every channel once. A channel that cannot be read is skipped.
func (e *Environment) Sample(emit Sink) {
	if e.hyg != nil {
		var env physic.Env
		if err := e.hyg.Sense(&env); err != nil {
			slog.Debug("hygrometer read failed", "err", err)
		} else {
			emit(logic.EnvReading{Channel: logic.ChannelTemperature, Value: env.Temperature.Celsius()})
			emit(logic.EnvReading{Channel: logic.ChannelHumidity, Value: HumidityPercent(env.Humidity)})
		}
	}
	if e.lux != nil {
		lux, err := e.lux.Lux()
		if err != nil {
			slog.Debug("lux meter read failed", "err", err)
		} else {
			emit(logic.EnvReading{Channel: logic.ChannelIlluminance, Value: lux})
		}
	}
}

// Run samples every interval until ctx is done.
func (e *Environment) Run(ctx context.Context, interval time.Duration, emit Sink) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	e.Sample(emit)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			e.Sample(emit)
		}
	}
}

// HumidityPercent converts a periph humidity reading to percent.
func HumidityPercent(h physic.RelativeHumidity) float64 {
	return float64(h) / float64(physic.PercentRH)
}

// Accelerometer watches for bumps and optionally reports position.
type Accelerometer struct {
	dev              AccelReader
	positionInterval time.Duration
	lastPosition     time.Time
	failing          bool
}

// NewAccelerometer creates an Accelerometer poller. positionInterval of 0
// disables position updates.
func NewAccelerometer(dev AccelReader, positionInterval time.Duration) *Accelerometer {
	return &Accelerometer{dev: dev, positionInterval: positionInterval}
}

// Sample reads the device once. A failed read emits AccelError once per run
// of consecutive failures.
func (a *Accelerometer) Sample(now time.Time, emit Sink) {
	v, err := a.dev.Read()
	if err != nil {
		if !a.failing {
			slog.Warn("accelerometer read failed", "err", err)
			emit(logic.AccelError{})
		}
		a.failing = true
		return
	}
	a.failing = false

	if v.X > AlarmThreshold {
		emit(logic.AccelAlarm{})
	}
	if a.positionInterval > 0 && (a.lastPosition.IsZero() || now.Sub(a.lastPosition) >= a.positionInterval) {
		a.lastPosition = now
		emit(logic.AccelUpdate{X: v.X, Y: v.Y, Z: v.Z})
	}
}

// Run samples every AccelSampleInterval until ctx is done.
func (a *Accelerometer) Run(ctx context.Context, emit Sink) {
	ticker := time.NewTicker(AccelSampleInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case t := <-ticker.C:
			a.Sample(t, emit)
		}
	}
}
