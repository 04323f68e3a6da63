package status

import (
	"encoding/json"
	"time"

	"github.com/sweeney/occupancy-sensor/internal/logic"
)

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	Event         string             `json:"event,omitempty"`
	Reason        string             `json:"reason,omitempty"`
	NodeID        string             `json:"node_id"`
	State         uint8              `json:"state"`
	Label         string             `json:"label"`
	Ready         bool               `json:"ready"`
	Door          DoorJSON           `json:"door"`
	Occupied      bool               `json:"occupied"`
	Motion        MotionJSON         `json:"motion"`
	LastBump      string             `json:"last_bump,omitempty"`
	LastSent      string             `json:"last_sent,omitempty"`
	Environment   map[string]float64 `json:"environment,omitempty"`
	ButtonCount   int                `json:"button_count"`
	UptimeSeconds int64              `json:"uptime_seconds"`
	StartTime     string             `json:"start_time"`
	Timestamp     string             `json:"timestamp"`
	MQTT          MQTTStatus         `json:"mqtt"`
	Counts        CountsJSON         `json:"publish_counts"`
	Network       *NetworkJSON       `json:"network,omitempty"`
	Config        ConfigJSON         `json:"config"`
}

// DoorJSON is the JSON representation of the door contact.
type DoorJSON struct {
	Closed    bool   `json:"closed"`
	ChangedAt string `json:"changed_at,omitempty"`
}

// MotionJSON is the JSON representation of the motion tracker.
type MotionJSON struct {
	Active bool   `json:"active"`
	Last   string `json:"last,omitempty"`
}

// MQTTStatus reports MQTT connection state.
type MQTTStatus struct {
	Connected bool   `json:"connected"`
	Broker    string `json:"broker"`
	Buffered  int    `json:"buffered"`
}

// CountsJSON is the JSON representation of publish counts.
type CountsJSON struct {
	Door          int `json:"door"`
	Occupancy     int `json:"occupancy"`
	Motion        int `json:"motion"`
	MotionEnded   int `json:"motion_ended"`
	Keepalive     int `json:"keepalive"`
	BumpsDropped  int `json:"bumps_dropped"`
	EventsDropped int `json:"events_dropped"`
}

// NetworkJSON is the JSON representation of network info.
type NetworkJSON struct {
	Type       string `json:"type"`
	IP         string `json:"ip"`
	Status     string `json:"status"`
	Gateway    string `json:"gateway"`
	WifiStatus string `json:"wifi_status"`
	SSID       string `json:"ssid"`
}

// ConfigJSON is the JSON representation of daemon config.
type ConfigJSON struct {
	Broker          string `json:"broker"`
	TopicPrefix     string `json:"topic_prefix"`
	HTTPAddr        string `json:"http_addr"`
	DoorPollMs      int64  `json:"door_poll_ms"`
	KeepaliveMs     int64  `json:"keepalive_ms"`
	AccelPositionMs int64  `json:"accel_position_ms"`
}

// formatTime renders t as RFC 3339 UTC, or "" for the zero time.
func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func buildInner(snap Snapshot) StatusInner {
	v := snap.Engine
	return StatusInner{
		NodeID:        snap.Config.NodeID,
		State:         uint8(v.Status),
		Label:         labelOrUnknown(snap),
		Ready:         snap.Updated,
		Door:          DoorJSON{Closed: v.DoorClosed, ChangedAt: formatTime(v.DoorChangedAt)},
		Occupied:      v.Occupied,
		Motion:        MotionJSON{Active: v.MotionActive, Last: formatTime(v.LastMotionAt)},
		LastBump:      formatTime(v.LastBumpAt),
		LastSent:      formatTime(v.LastSentAt),
		Environment:   envJSON(v.Environment),
		ButtonCount:   v.ButtonCount,
		UptimeSeconds: int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:     snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:     snap.Now.UTC().Format(time.RFC3339),
		MQTT:          MQTTStatus{Connected: snap.MQTTConnected, Broker: snap.Config.Broker, Buffered: snap.MQTTBuffered},
		Counts: CountsJSON{
			Door:          v.Counts.Door,
			Occupancy:     v.Counts.Occupancy,
			Motion:        v.Counts.Motion,
			MotionEnded:   v.Counts.MotionEnded,
			Keepalive:     v.Counts.Keepalive,
			BumpsDropped:  v.Counts.BumpsDropped,
			EventsDropped: snap.EventsDropped,
		},
		Config: ConfigJSON{
			Broker:          snap.Config.Broker,
			TopicPrefix:     snap.Config.TopicPrefix,
			HTTPAddr:        snap.Config.HTTPAddr,
			DoorPollMs:      snap.Config.DoorPollMs,
			KeepaliveMs:     snap.Config.KeepaliveMs,
			AccelPositionMs: snap.Config.AccelPositionMs,
		},
	}
}

// envJSON keys readings by channel name; nil when nothing was published yet.
func envJSON(env map[logic.Channel]float64) map[string]float64 {
	if len(env) == 0 {
		return nil
	}
	out := make(map[string]float64, len(env))
	for c, val := range env {
		out[string(c)] = val
	}
	return out
}

// labelOrUnknown reports UNKNOWN until the first engine update.
func labelOrUnknown(snap Snapshot) string {
	if !snap.Updated {
		return "UNKNOWN"
	}
	return snap.Engine.Status.Label()
}

func buildNetwork(snap Snapshot, inner *StatusInner) {
	if snap.Network != nil {
		inner.Network = &NetworkJSON{
			Type:       snap.Network.Type,
			IP:         snap.Network.IP,
			Status:     snap.Network.Status,
			Gateway:    snap.Network.Gateway,
			WifiStatus: snap.Network.WifiStatus,
			SSID:       snap.Network.SSID,
		}
	}
}

// FormatJSON returns the JSON status for the web endpoint (no event/reason).
func FormatJSON(snap Snapshot) []byte {
	inner := buildInner(snap)
	buildNetwork(snap, &inner)

	data, _ := json.MarshalIndent(StatusJSON{Status: inner}, "", "  ")
	return data
}

// FormatStatusEvent returns the JSON status for an MQTT system event.
func FormatStatusEvent(snap Snapshot, event, reason string) []byte {
	inner := buildInner(snap)
	inner.Event = event
	inner.Reason = reason
	buildNetwork(snap, &inner)

	data, _ := json.Marshal(StatusJSON{Status: inner})
	return data
}
