// Package mqtt provides MQTT publishing with abstraction for testing.
package mqtt

import (
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/sweeney/occupancy-sensor/internal/logic"
)

// SubtopicSystem is the subtopic for system lifecycle events.
const SubtopicSystem = "system"

// Publisher publishes engine messages to MQTT.
type Publisher interface {
	// Publish sends a message to the broker. It does not wait for delivery.
	// Returns error if publishing fails (should not crash the process).
	Publish(msg logic.Message) error

	// PublishSystem sends a system lifecycle event to the broker.
	PublishSystem(event SystemEvent) error

	// Close disconnects from the broker.
	Close() error
}

// ConnectionStatus reports the state of the MQTT connection.
type ConnectionStatus interface {
	IsConnected() bool
	// Buffered returns the number of messages waiting for the broker.
	Buffered() int
}

// SystemEvent represents a system lifecycle event (e.g., startup, shutdown).
type SystemEvent struct {
	Timestamp  time.Time
	Event      string // e.g., "STARTUP", "SHUTDOWN", "OFFLINE"
	Reason     string // e.g., "SIGTERM", "SIGINT" (shutdown only)
	RawPayload []byte // Pre-formatted JSON payload; if set, FormatSystemPayload returns it directly
	Retained   bool   // Whether the message should be retained by the broker
}

// Topic joins the node prefix and a subtopic.
func Topic(prefix, subtopic string) string {
	prefix = strings.TrimSuffix(prefix, "/")
	if prefix == "" {
		return subtopic
	}
	return prefix + "/" + subtopic
}

// FormatPayload encodes a message value as JSON. Status and counters become
// numbers, text becomes a JSON string.
func FormatPayload(msg logic.Message) ([]byte, error) {
	if msg.Value == nil {
		return nil, errors.New("message has no value")
	}
	return json.Marshal(msg.Value)
}

// QoS returns the MQTT QoS level used for a message kind.
// State changes and faults are sent at-least-once; periodic readings are not.
func QoS(kind logic.Kind) byte {
	switch kind {
	case logic.KindStatus, logic.KindDiagnostic, logic.KindBump, logic.KindAccelError, logic.KindPairing:
		return 1
	}
	return 0
}

// SystemPayload represents the MQTT message payload for system events.
// Used for simple events (LWT) that don't carry a full status snapshot.
type SystemPayload struct {
	System SystemPayloadInner `json:"system"`
}

// SystemPayloadInner contains the system event details.
type SystemPayloadInner struct {
	Timestamp string `json:"timestamp,omitempty"`
	Event     string `json:"event"`
	Reason    string `json:"reason,omitempty"`
}

// FormatSystemPayload creates the JSON payload for a system event.
// If event.RawPayload is set, it is returned directly (used for full status snapshots).
func FormatSystemPayload(event SystemEvent) ([]byte, error) {
	if event.RawPayload != nil {
		return event.RawPayload, nil
	}

	inner := SystemPayloadInner{
		Event:  event.Event,
		Reason: event.Reason,
	}
	if !event.Timestamp.IsZero() {
		inner.Timestamp = event.Timestamp.UTC().Format(time.RFC3339)
	}
	return json.Marshal(SystemPayload{System: inner})
}
