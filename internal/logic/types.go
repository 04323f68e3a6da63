// Package logic contains the occupancy inference and publish-suppression rules.
// This package has NO external dependencies (no GPIO, MQTT, OS, or time.Sleep).
// Time is always injectable via time.Time parameters.
package logic

import (
	"fmt"
	"time"
)

// Timing constants. These are fixed at compile time.
const (
	MinMoveTime         = 7 * time.Second
	NoMoveDebounce      = 700 * time.Millisecond
	GameplayWindow      = 120 * time.Second
	StateUpdateInterval = 2 * time.Minute
	DoorPollInterval    = 500 * time.Millisecond
	BumpInterval        = 1 * time.Second
	NoChangeInterval    = 15 * time.Minute

	// SensorUpdateInterval is how often environmental channels are sampled.
	SensorUpdateInterval = 5 * time.Second
)

// Indicator pulse lengths.
const (
	PulseMessage = 100 * time.Millisecond
	PulseDoor    = 4 * PulseMessage
	PulsePairing = 50 * PulseMessage
)

// Pairing identity announced on startup and on long press.
const (
	AppName    = "IoT/TOI app"
	AppVersion = "v0.1"
)

// Subtopics. The transport prepends the node prefix.
const (
	TopicStatus        = "toi/-/state"
	TopicAccelPosition = "accelerometer/1:19/position"
	TopicAccelAlarm    = "accelerometer/1:19/alarm"
	TopicAccelError    = "accelerometer/1:19/error"
	TopicButtonCount   = "push-button/-/event-count"
	TopicPairing       = "pairing"

	// MotionErrorText is sent on TopicStatus when the PIR reports a fault.
	MotionErrorText = "PIR error"
)

// Channel identifies an environmental measurement channel.
type Channel string

const (
	ChannelTemperature Channel = "temperature"
	ChannelHumidity    Channel = "humidity"
	ChannelIlluminance Channel = "illuminance"
)

// Channels lists the environmental channels in publish order.
var Channels = []Channel{ChannelTemperature, ChannelHumidity, ChannelIlluminance}

// Threshold returns the minimum change that forces a publish on the channel.
func (c Channel) Threshold() float64 {
	switch c {
	case ChannelTemperature:
		return 1.0
	case ChannelHumidity, ChannelIlluminance:
		return 5.0
	}
	return 0
}

// Topic returns the subtopic readings on this channel are published to.
func (c Channel) Topic() string {
	switch c {
	case ChannelTemperature:
		return "thermometer/0:1/temperature"
	case ChannelHumidity:
		return "hygrometer/0:4/relative-humidity"
	case ChannelIlluminance:
		return "lux-meter/0:0/illuminance"
	}
	return "unknown/-/" + string(c)
}

// Status is the bit-packed occupancy value sent on TopicStatus.
// The layout is part of the wire format.
type Status uint8

const (
	StatusOccupied   Status = 1 << 0
	StatusDoorClosed Status = 1 << 1
	StatusActivity   Status = 1 << 2
)

// Occupied reports whether bit0 is set.
func (s Status) Occupied() bool { return s&StatusOccupied != 0 }

// DoorClosed reports whether bit1 is set.
func (s Status) DoorClosed() bool { return s&StatusDoorClosed != 0 }

// Activity reports whether the activity-window flag (bit2) is set.
func (s Status) Activity() bool { return s&StatusActivity != 0 }

// Label names the conceptual occupancy state for logs and the status page.
func (s Status) Label() string {
	switch {
	case s.DoorClosed() && s.Activity():
		return "SUSPICIOUS_AFTER_CLOSE"
	case !s.DoorClosed() && s.Activity():
		return "RECENT_ARRIVAL"
	case s.Occupied():
		return "OCCUPIED"
	default:
		return "VACANT"
	}
}

// Trigger names the reason a status publish happened.
type Trigger string

const (
	TriggerDoor        Trigger = "door"
	TriggerOccupancy   Trigger = "occupancy"
	TriggerMotion      Trigger = "motion"
	TriggerMotionEnded Trigger = "motion_ended"
	TriggerKeepalive   Trigger = "keepalive"
)

// Triggers lists every trigger, highest priority first.
var Triggers = []Trigger{TriggerDoor, TriggerOccupancy, TriggerMotion, TriggerMotionEnded, TriggerKeepalive}

// Edge is an observed door transition.
type Edge string

const (
	EdgeOpened Edge = "OPENED"
	EdgeClosed Edge = "CLOSED"
)

// Kind classifies an outgoing message.
type Kind string

const (
	KindStatus      Kind = "status"
	KindDiagnostic  Kind = "diagnostic"
	KindPosition    Kind = "position"
	KindBump        Kind = "bump"
	KindAccelError  Kind = "accel_error"
	KindEnvironment Kind = "environment"
	KindButton      Kind = "button"
	KindPairing     Kind = "pairing"
)

// Message is a single publish produced by the engine.
type Message struct {
	Timestamp time.Time
	Topic     string
	Kind      Kind
	// Value is the payload: Status, float64, int, string or Pairing.
	Value any
	// Trigger is set for KindStatus only.
	Trigger Trigger
	// Channel is set for KindEnvironment only.
	Channel Channel
}

// Pairing is the payload of a pairing request.
type Pairing struct {
	Name    string `json:"name"`
	Version string `json:"version"`
	NodeID  string `json:"node_id,omitempty"`
}

// Result is what handling one event or one tick asks the caller to do.
type Result struct {
	Messages []Message
	// Pulse is the indicator pulse to fire, zero for none.
	Pulse time.Duration
}

func (r *Result) pulse(d time.Duration) {
	if d > r.Pulse {
		r.Pulse = d
	}
}

func (r *Result) add(m Message) {
	r.Messages = append(r.Messages, m)
}

// Event is a sensor notification consumed by Engine.Dispatch.
// The set of variants is closed; see the types below.
type Event interface {
	isEvent()
}

// DoorSample is a sampled door level.
type DoorSample struct{ Closed bool }

// MotionDetected is a PIR motion notification.
type MotionDetected struct{}

// MotionError is a PIR fault notification.
type MotionError struct{}

// AccelUpdate is a position reading in g.
type AccelUpdate struct{ X, Y, Z float64 }

// AccelAlarm is an accelerometer threshold alarm.
type AccelAlarm struct{}

// AccelError is an accelerometer fault notification.
type AccelError struct{}

// EnvReading is a successfully read environmental value.
type EnvReading struct {
	Channel Channel
	Value   float64
}

// ButtonPress is a short press of the push button.
type ButtonPress struct{}

// ButtonHold is a long press of the push button.
type ButtonHold struct{}

func (DoorSample) isEvent()     {}
func (MotionDetected) isEvent() {}
func (MotionError) isEvent()    {}
func (AccelUpdate) isEvent()    {}
func (AccelAlarm) isEvent()     {}
func (AccelError) isEvent()     {}
func (EnvReading) isEvent()     {}
func (ButtonPress) isEvent()    {}
func (ButtonHold) isEvent()     {}

// EventName returns a short name for logging.
func EventName(ev Event) string {
	switch e := ev.(type) {
	case DoorSample:
		return "door_sample"
	case MotionDetected:
		return "motion"
	case MotionError:
		return "motion_error"
	case AccelUpdate:
		return "accel_update"
	case AccelAlarm:
		return "accel_alarm"
	case AccelError:
		return "accel_error"
	case EnvReading:
		return "env_" + string(e.Channel)
	case ButtonPress:
		return "button_press"
	case ButtonHold:
		return "button_hold"
	}
	return fmt.Sprintf("%T", ev)
}

// PublishCounts tracks status publishes per trigger since startup.
type PublishCounts struct {
	Door        int
	Occupancy   int
	Motion      int
	MotionEnded int
	Keepalive   int
	// BumpsDropped counts alarms swallowed by the bump rate limit.
	BumpsDropped int
}

func (c *PublishCounts) count(t Trigger) {
	switch t {
	case TriggerDoor:
		c.Door++
	case TriggerOccupancy:
		c.Occupancy++
	case TriggerMotion:
		c.Motion++
	case TriggerMotionEnded:
		c.MotionEnded++
	case TriggerKeepalive:
		c.Keepalive++
	}
}
