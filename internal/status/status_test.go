package status

import (
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/sweeney/occupancy-sensor/internal/logic"
)

var start = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

func occupiedView() logic.View {
	return logic.View{
		DoorClosed:    true,
		DoorChangedAt: start.Add(2 * time.Minute),
		Occupied:      true,
		MotionActive:  true,
		LastMotionAt:  start.Add(3 * time.Minute),
		LastSentAt:    start.Add(3 * time.Minute),
		Status:        logic.StatusOccupied | logic.StatusDoorClosed | logic.StatusActivity,
		Counts:        logic.PublishCounts{Door: 2, Occupancy: 1, Motion: 4, Keepalive: 6, BumpsDropped: 3},
		ButtonCount:   7,
		Environment:   map[logic.Channel]float64{logic.ChannelTemperature: 21.5},
	}
}

func TestNewTracker(t *testing.T) {
	cfg := Config{NodeID: "abc", DoorPollMs: 500, Broker: "tcp://localhost:1883", HTTPAddr: ":80"}
	tr := NewTracker(start, cfg)

	snap := tr.Snapshot()
	if !snap.StartTime.Equal(start) {
		t.Errorf("StartTime: got %v, want %v", snap.StartTime, start)
	}
	if snap.Config.DoorPollMs != 500 {
		t.Errorf("Config.DoorPollMs: got %d, want 500", snap.Config.DoorPollMs)
	}
	if snap.Config.HTTPAddr != ":80" {
		t.Errorf("Config.HTTPAddr: got %q, want %q", snap.Config.HTTPAddr, ":80")
	}
	if snap.Updated {
		t.Error("expected Updated=false initially")
	}
	if snap.MQTTConnected {
		t.Error("expected MQTTConnected=false initially")
	}
}

func TestUpdateAndSnapshot(t *testing.T) {
	tr := NewTracker(start, Config{})
	tr.Update(occupiedView())
	tr.SetEventsDropped(4)

	snap := tr.Snapshot()
	if !snap.Updated {
		t.Error("expected Updated=true")
	}
	if !snap.Engine.Occupied || !snap.Engine.DoorClosed {
		t.Errorf("unexpected engine view %+v", snap.Engine)
	}
	if snap.Engine.Counts.Motion != 4 {
		t.Errorf("Counts.Motion: got %d, want 4", snap.Engine.Counts.Motion)
	}
	if snap.EventsDropped != 4 {
		t.Errorf("EventsDropped: got %d, want 4", snap.EventsDropped)
	}
}

func TestSetMQTTBuffered(t *testing.T) {
	tr := NewTracker(start, Config{})

	tr.SetMQTTBuffered(5)
	if got := tr.Snapshot().MQTTBuffered; got != 5 {
		t.Errorf("MQTTBuffered: got %d, want 5", got)
	}
	tr.SetMQTTBuffered(0)
	if got := tr.Snapshot().MQTTBuffered; got != 0 {
		t.Errorf("MQTTBuffered after flush: got %d, want 0", got)
	}
}

func TestSetMQTTConnected(t *testing.T) {
	tr := NewTracker(start, Config{})

	tr.SetMQTTConnected(true)
	if !tr.Snapshot().MQTTConnected {
		t.Error("expected MQTTConnected=true")
	}

	tr.SetMQTTConnected(false)
	if tr.Snapshot().MQTTConnected {
		t.Error("expected MQTTConnected=false")
	}
}

func TestSetNetwork(t *testing.T) {
	tr := NewTracker(start, Config{})

	if tr.Snapshot().Network != nil {
		t.Error("expected nil Network initially")
	}

	tr.SetNetwork(&NetworkInfo{Type: "wifi", IP: "192.168.1.42", Status: "connected"})

	snap := tr.Snapshot()
	if snap.Network == nil {
		t.Fatal("expected non-nil Network")
	}
	if snap.Network.IP != "192.168.1.42" {
		t.Errorf("Network.IP: got %q, want %q", snap.Network.IP, "192.168.1.42")
	}
}

func TestSnapshotUptime(t *testing.T) {
	snap := Snapshot{StartTime: start, Now: start.Add(15 * time.Minute)}
	if snap.Uptime() != 15*time.Minute {
		t.Errorf("Uptime: got %v, want 15m", snap.Uptime())
	}
}

func TestSnapshotNowIsSet(t *testing.T) {
	tr := NewTracker(start, Config{})

	before := time.Now()
	snap := tr.Snapshot()
	after := time.Now()

	if snap.Now.Before(before) || snap.Now.After(after) {
		t.Errorf("Now (%v) not between %v and %v", snap.Now, before, after)
	}
}

func TestSnapshotIsCopy(t *testing.T) {
	tr := NewTracker(start, Config{})
	tr.Update(occupiedView())

	snap1 := tr.Snapshot()
	tr.Update(logic.View{})

	if !snap1.Engine.Occupied {
		t.Error("snapshot should be a copy; engine view was modified")
	}
}

func TestFormatJSON(t *testing.T) {
	snap := Snapshot{
		Engine:        occupiedView(),
		Updated:       true,
		EventsDropped: 1,
		StartTime:     start,
		Now:           start.Add(15 * time.Minute),
		MQTTConnected: true,
		MQTTBuffered:  12,
		Config:        Config{NodeID: "abc", DoorPollMs: 500, KeepaliveMs: 120000, Broker: "tcp://localhost:1883", HTTPAddr: ":80"},
	}

	data := FormatJSON(snap)

	var parsed StatusJSON
	if err := json.Unmarshal(data, &parsed); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}

	s := parsed.Status
	if s.State != 7 || s.Label != "OCCUPIED" {
		t.Errorf("state: got %d/%s, want 7/OCCUPIED", s.State, s.Label)
	}
	if !s.Ready || !s.Occupied || !s.Door.Closed || !s.Motion.Active {
		t.Errorf("unexpected flags %+v", s)
	}
	if s.Door.ChangedAt != "2026-01-01T00:02:00Z" {
		t.Errorf("Door.ChangedAt: got %q", s.Door.ChangedAt)
	}
	if s.LastBump != "" {
		t.Errorf("LastBump should be omitted when never bumped, got %q", s.LastBump)
	}
	if s.UptimeSeconds != 900 {
		t.Errorf("UptimeSeconds: got %d, want 900", s.UptimeSeconds)
	}
	if s.Counts.Motion != 4 || s.Counts.BumpsDropped != 3 || s.Counts.EventsDropped != 1 {
		t.Errorf("unexpected counts %+v", s.Counts)
	}
	if s.Environment["temperature"] != 21.5 {
		t.Errorf("Environment: got %v", s.Environment)
	}
	if s.ButtonCount != 7 {
		t.Errorf("ButtonCount: got %d, want 7", s.ButtonCount)
	}
	if !s.MQTT.Connected || s.MQTT.Broker != "tcp://localhost:1883" || s.MQTT.Buffered != 12 {
		t.Errorf("unexpected MQTT %+v", s.MQTT)
	}
	if s.NodeID != "abc" || s.Config.KeepaliveMs != 120000 {
		t.Errorf("unexpected config %+v node=%s", s.Config, s.NodeID)
	}
	// Event and Reason should be omitted
	if s.Event != "" || s.Reason != "" {
		t.Errorf("expected empty event/reason for web format, got %q/%q", s.Event, s.Reason)
	}
}

func TestFormatJSONBeforeFirstUpdate(t *testing.T) {
	snap := Snapshot{StartTime: start, Now: start.Add(time.Second)}

	var parsed StatusJSON
	if err := json.Unmarshal(FormatJSON(snap), &parsed); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if parsed.Status.Label != "UNKNOWN" {
		t.Errorf("Label: got %q, want UNKNOWN", parsed.Status.Label)
	}
	if parsed.Status.Ready {
		t.Error("expected Ready=false")
	}
	if parsed.Status.Environment != nil {
		t.Errorf("expected no environment, got %v", parsed.Status.Environment)
	}
}

func TestFormatStatusEvent(t *testing.T) {
	snap := Snapshot{
		Engine:    occupiedView(),
		Updated:   true,
		StartTime: start,
		Now:       start.Add(30 * time.Minute),
		Config:    Config{Broker: "tcp://localhost:1883"},
	}

	data := FormatStatusEvent(snap, "SHUTDOWN", "SIGTERM")

	var parsed StatusJSON
	if err := json.Unmarshal(data, &parsed); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if parsed.Status.Event != "SHUTDOWN" {
		t.Errorf("Event: got %q, want SHUTDOWN", parsed.Status.Event)
	}
	if parsed.Status.Reason != "SIGTERM" {
		t.Errorf("Reason: got %q, want SIGTERM", parsed.Status.Reason)
	}
	if parsed.Status.UptimeSeconds != 1800 {
		t.Errorf("UptimeSeconds: got %d, want 1800", parsed.Status.UptimeSeconds)
	}
}

func TestFormatStatusEventOmitsReasonWhenEmpty(t *testing.T) {
	snap := Snapshot{StartTime: start, Now: start.Add(time.Second)}

	data := FormatStatusEvent(snap, "STARTUP", "")

	var raw map[string]interface{}
	json.Unmarshal(data, &raw)
	status := raw["status"].(map[string]interface{})
	if _, exists := status["reason"]; exists {
		t.Error("reason should be omitted when empty")
	}
	if status["event"] != "STARTUP" {
		t.Errorf("event: got %v, want STARTUP", status["event"])
	}
}

func TestFormatJSONWithNetwork(t *testing.T) {
	snap := Snapshot{
		StartTime: start,
		Now:       start.Add(time.Minute),
		Network:   &NetworkInfo{Type: "wifi", IP: "192.168.1.42", Status: "connected", SSID: "MyNet"},
	}

	var parsed StatusJSON
	json.Unmarshal(FormatJSON(snap), &parsed)

	if parsed.Status.Network == nil {
		t.Fatal("expected Network in JSON")
	}
	if parsed.Status.Network.IP != "192.168.1.42" {
		t.Errorf("Network.IP: got %q, want 192.168.1.42", parsed.Status.Network.IP)
	}
	if parsed.Status.Network.SSID != "MyNet" {
		t.Errorf("Network.SSID: got %q, want MyNet", parsed.Status.Network.SSID)
	}
}

func TestConcurrentAccess(t *testing.T) {
	tr := NewTracker(start, Config{})
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			tr.Update(logic.View{ButtonCount: i})
			tr.SetEventsDropped(i)
			tr.SetMQTTConnected(i%2 == 0)
			tr.SetNetwork(&NetworkInfo{IP: "1.2.3.4"})
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			_ = FormatJSON(tr.Snapshot())
		}
	}()

	wg.Wait()
}
