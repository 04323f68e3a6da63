// Package status provides a thread-safe status tracker for the occupancy-sensor daemon.
// It is read by HTTP handlers and by the lifecycle events published over MQTT.
package status

import (
	"sync"
	"time"

	"github.com/sweeney/occupancy-sensor/internal/logic"
)

// NetworkInfo contains network state. This is a local copy to avoid
// importing internal/mqtt from status.
type NetworkInfo struct {
	Type       string
	IP         string
	Status     string
	Gateway    string
	WifiStatus string
	SSID       string
}

// Config contains daemon configuration for display.
type Config struct {
	NodeID      string
	Broker      string
	TopicPrefix string
	HTTPAddr    string
	DoorPollMs  int64
	KeepaliveMs int64
	// AccelPositionMs is the accelerometer position interval, 0 when disabled.
	AccelPositionMs int64
}

// Snapshot is a point-in-time view of daemon state.
// It is a value type, safe to use after the lock is released.
type Snapshot struct {
	Engine        logic.View
	Updated       bool
	EventsDropped int
	StartTime     time.Time
	Now           time.Time
	MQTTConnected bool
	// MQTTBuffered counts messages held back while the broker is unreachable.
	MQTTBuffered int
	Network      *NetworkInfo
	Config       Config
}

// Uptime returns the duration since the daemon started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// Tracker holds mutable daemon state behind an RWMutex.
type Tracker struct {
	mu   sync.RWMutex
	snap Snapshot
}

// NewTracker creates a Tracker with the given start time and config.
func NewTracker(startTime time.Time, cfg Config) *Tracker {
	return &Tracker{
		snap: Snapshot{
			StartTime: startTime,
			Config:    cfg,
		},
	}
}

// Update stores the latest engine view.
// Called from runLoop after every tick and event.
func (t *Tracker) Update(view logic.View) {
	t.mu.Lock()
	t.snap.Engine = view
	t.snap.Updated = true
	t.mu.Unlock()
}

// SetEventsDropped records how many sensor events were dropped on a full queue.
func (t *Tracker) SetEventsDropped(n int) {
	t.mu.Lock()
	t.snap.EventsDropped = n
	t.mu.Unlock()
}

// SetMQTTConnected sets the MQTT connection status.
func (t *Tracker) SetMQTTConnected(connected bool) {
	t.mu.Lock()
	t.snap.MQTTConnected = connected
	t.mu.Unlock()
}

// SetMQTTBuffered records how many messages wait for the broker.
func (t *Tracker) SetMQTTBuffered(n int) {
	t.mu.Lock()
	t.snap.MQTTBuffered = n
	t.mu.Unlock()
}

// SetNetwork sets the network info.
func (t *Tracker) SetNetwork(info *NetworkInfo) {
	t.mu.Lock()
	t.snap.Network = info
	t.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the daemon state.
// The Now field is set to the current time at the moment of the call.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	t.mu.RUnlock()
	s.Now = time.Now()
	return s
}
