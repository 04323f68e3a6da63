package sensors

import (
	"errors"
	"fmt"
	"math"
	"testing"
	"time"

	"periph.io/x/conn/v3/physic"

	"github.com/sweeney/occupancy-sensor/internal/logic"
)

// fakeBus is an i2c.Bus backed by a register map per address.
type fakeBus struct {
	regs   map[uint16]map[byte][]byte
	writes []string
	err    error
}

func newFakeBus() *fakeBus {
	return &fakeBus{regs: map[uint16]map[byte][]byte{}}
}

func (b *fakeBus) set(addr uint16, reg byte, data ...byte) {
	if b.regs[addr] == nil {
		b.regs[addr] = map[byte][]byte{}
	}
	b.regs[addr][reg] = data
}

func (b *fakeBus) String() string { return "fake" }

func (b *fakeBus) SetSpeed(physic.Frequency) error { return nil }

func (b *fakeBus) Tx(addr uint16, w, r []byte) error {
	if b.err != nil {
		return b.err
	}
	if len(r) == 0 {
		b.writes = append(b.writes, fmt.Sprintf("%02x:% x", addr, w))
		return nil
	}
	data, ok := b.regs[addr][w[0]]
	if !ok {
		return fmt.Errorf("no data at 0x%02x/0x%02x", addr, w[0])
	}
	copy(r, data)
	return nil
}

type fakeHygrometer struct {
	env physic.Env
	err error
}

func (f *fakeHygrometer) Sense(env *physic.Env) error {
	if f.err != nil {
		return f.err
	}
	*env = f.env
	return nil
}

type fakeLux struct {
	lux float64
	err error
}

func (f *fakeLux) Lux() (float64, error) { return f.lux, f.err }

type fakeAccel struct {
	v   Vector
	err error
}

func (f *fakeAccel) Read() (Vector, error) { return f.v, f.err }

type recorder []logic.Event

func (r *recorder) emit(ev logic.Event) { *r = append(*r, ev) }

func near(a, b float64) bool { return math.Abs(a-b) <= 1e-9*math.Max(1, math.Abs(b)) }

func TestLuxFromRaw(t *testing.T) {
	tests := []struct {
		raw  uint16
		want float64
	}{
		{0x0000, 0},
		{0x0001, 0.01},
		{0x1001, 0.02},
		{0x2100, 10.24},
		{0x0FFF, 40.95},
		{0xFFFF, 0.01 * 32768 * 4095},
	}
	for _, tt := range tests {
		if got := LuxFromRaw(tt.raw); !near(got, tt.want) {
			t.Errorf("LuxFromRaw(0x%04x): got %v, want %v", tt.raw, got, tt.want)
		}
	}
}

func TestAccelFromRaw(t *testing.T) {
	tests := []struct {
		lo, hi byte
		want   float64
	}{
		{0x00, 0x00, 0},
		{0x00, 0x40, 1.024},
		{0xC0, 0xFF, -0.004},
		{0x00, 0x80, -2.048},
		{0xC0, 0x7F, 511 * 0.004},
		// Low six bits are padding.
		{0x3F, 0x00, 0},
	}
	for _, tt := range tests {
		if got := AccelFromRaw(tt.lo, tt.hi); !near(got, tt.want) {
			t.Errorf("AccelFromRaw(0x%02x, 0x%02x): got %v, want %v", tt.lo, tt.hi, got, tt.want)
		}
	}
}

func TestOPT3001(t *testing.T) {
	bus := newFakeBus()
	bus.set(0x44, opt3001RegResult, 0x21, 0x00)

	dev, err := NewOPT3001(bus, 0x44)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(bus.writes) != 1 || bus.writes[0] != "44:01 ce 10" {
		t.Errorf("unexpected config writes %q", bus.writes)
	}

	lux, err := dev.Lux()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !near(lux, 10.24) {
		t.Errorf("lux: got %v, want 10.24", lux)
	}
}

func TestOPT3001BusError(t *testing.T) {
	bus := newFakeBus()
	bus.err = errors.New("nack")
	if _, err := NewOPT3001(bus, 0x44); err == nil {
		t.Error("expected configure error")
	}
}

func TestLIS2DH12(t *testing.T) {
	bus := newFakeBus()
	bus.set(0x19, lis2dh12RegWhoAmI, lis2dh12ID)
	bus.set(0x19, lis2dh12RegOutX|lis2dh12AutoInc, 0x00, 0x40, 0xC0, 0xFF, 0x00, 0x00)

	dev, err := NewLIS2DH12(bus, 0x19)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{"19:20 57", "19:23 00"}
	if len(bus.writes) != 2 || bus.writes[0] != want[0] || bus.writes[1] != want[1] {
		t.Errorf("unexpected setup writes %q, want %q", bus.writes, want)
	}

	v, err := dev.Read()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !near(v.X, 1.024) || !near(v.Y, -0.004) || v.Z != 0 {
		t.Errorf("unexpected vector %+v", v)
	}
}

func TestLIS2DH12WrongID(t *testing.T) {
	bus := newFakeBus()
	bus.set(0x19, lis2dh12RegWhoAmI, 0x32)
	if _, err := NewLIS2DH12(bus, 0x19); err == nil {
		t.Error("expected error for unexpected device id")
	}
	if len(bus.writes) != 0 {
		t.Errorf("must not configure an unknown device, wrote %q", bus.writes)
	}
}

func TestEnvironmentSample(t *testing.T) {
	hyg := &fakeHygrometer{env: physic.Env{
		Temperature: physic.ZeroCelsius + 21500*physic.MilliCelsius,
		Humidity:    45 * physic.PercentRH,
	}}
	env := NewEnvironment(hyg, &fakeLux{lux: 312.5})

	var got recorder
	env.Sample(got.emit)

	want := []logic.EnvReading{
		{Channel: logic.ChannelTemperature, Value: 21.5},
		{Channel: logic.ChannelHumidity, Value: 45},
		{Channel: logic.ChannelIlluminance, Value: 312.5},
	}
	if len(got) != len(want) {
		t.Fatalf("expected %d events, got %d: %+v", len(want), len(got), got)
	}
	for i, w := range want {
		r, ok := got[i].(logic.EnvReading)
		if !ok || r.Channel != w.Channel || !near(r.Value, w.Value) {
			t.Errorf("event %d: got %+v, want %+v", i, got[i], w)
		}
	}
}

func TestEnvironmentSkipsFailedChannels(t *testing.T) {
	env := NewEnvironment(&fakeHygrometer{err: errors.New("bus busy")}, &fakeLux{lux: 3})

	var got recorder
	env.Sample(got.emit)

	if len(got) != 1 {
		t.Fatalf("expected only the lux reading, got %+v", got)
	}
	if r := got[0].(logic.EnvReading); r.Channel != logic.ChannelIlluminance {
		t.Errorf("unexpected reading %+v", r)
	}
}

func TestEnvironmentNilDevices(t *testing.T) {
	var got recorder
	NewEnvironment(nil, nil).Sample(got.emit)
	if len(got) != 0 {
		t.Errorf("expected no events, got %+v", got)
	}
}

func TestAccelerometerAlarm(t *testing.T) {
	tests := []struct {
		x     float64
		alarm bool
	}{
		{0.2, false},
		{1.0, false},
		{1.004, true},
		{-1.5, false},
	}
	for _, tt := range tests {
		dev := &fakeAccel{v: Vector{X: tt.x}}
		a := NewAccelerometer(dev, 0)

		var got recorder
		a.Sample(time.Unix(0, 0), got.emit)

		alarmed := len(got) == 1
		if alarmed {
			if _, ok := got[0].(logic.AccelAlarm); !ok {
				t.Errorf("x=%v: unexpected event %T", tt.x, got[0])
			}
		}
		if alarmed != tt.alarm || len(got) > 1 {
			t.Errorf("x=%v: got events %+v, want alarm=%v", tt.x, got, tt.alarm)
		}
	}
}

func TestAccelerometerPositionInterval(t *testing.T) {
	dev := &fakeAccel{v: Vector{X: 0.1, Y: 0.2, Z: 0.98}}
	a := NewAccelerometer(dev, time.Second)
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	var got recorder
	for ms := 0; ms <= 2000; ms += 100 {
		a.Sample(base.Add(time.Duration(ms)*time.Millisecond), got.emit)
	}

	// Positions at 0, 1000 and 2000.
	if len(got) != 3 {
		t.Fatalf("expected 3 position updates, got %d", len(got))
	}
	if u := got[0].(logic.AccelUpdate); u.X != 0.1 || u.Y != 0.2 || u.Z != 0.98 {
		t.Errorf("unexpected update %+v", u)
	}
}

func TestAccelerometerPositionDisabled(t *testing.T) {
	a := NewAccelerometer(&fakeAccel{v: Vector{Z: 1}}, 0)

	var got recorder
	for i := 0; i < 50; i++ {
		a.Sample(time.Unix(int64(i), 0), got.emit)
	}
	if len(got) != 0 {
		t.Errorf("expected no events with position disabled, got %d", len(got))
	}
}

func TestAccelerometerErrorOncePerStreak(t *testing.T) {
	dev := &fakeAccel{err: errors.New("nack")}
	a := NewAccelerometer(dev, 0)

	var got recorder
	a.Sample(time.Unix(0, 0), got.emit)
	a.Sample(time.Unix(1, 0), got.emit)
	a.Sample(time.Unix(2, 0), got.emit)
	if len(got) != 1 {
		t.Fatalf("expected one error event for the streak, got %d", len(got))
	}
	if _, ok := got[0].(logic.AccelError); !ok {
		t.Errorf("unexpected event %T", got[0])
	}

	// Recover, then fail again.
	dev.err = nil
	a.Sample(time.Unix(3, 0), got.emit)
	dev.err = errors.New("nack")
	a.Sample(time.Unix(4, 0), got.emit)
	if len(got) != 2 {
		t.Errorf("expected a second error after recovery, got %d events", len(got))
	}
}
