// Package mqtt publishes diagnostics to an MQTT broker.
package mqtt

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/sweeney/tea-sensor/internal/diag"
)

// Topic is the MQTT topic for state machine transitions.
const Topic = "kitchen/tea/sensor/events"

// TopicSystem is the MQTT topic for system lifecycle events.
const TopicSystem = "kitchen/tea/sensor/system"

// ErrNotConnected is returned when a message can be neither sent nor buffered.
var ErrNotConnected = errors.New("mqtt: not connected")

// Publisher publishes events to MQTT.
type Publisher interface {
	// Publish sends a transition to the broker. Failures must not stop the
	// controller; callers log them.
	Publish(t diag.Transition) error

	// PublishSystem sends a system lifecycle event to the broker.
	PublishSystem(event SystemEvent) error

	// Close disconnects from the broker.
	Close() error
}

// ConnectionStatus reports whether the MQTT connection is active.
type ConnectionStatus interface {
	IsConnected() bool
}

// SystemEvent is a lifecycle event: STARTUP, SHUTDOWN, HEARTBEAT, RECONNECTED.
type SystemEvent struct {
	Timestamp time.Time
	Event     string
	// Reason is set on SHUTDOWN (SIGTERM, SIGINT).
	Reason string
	// RawPayload, if set, is sent as is. Used for full status snapshots.
	RawPayload []byte
	Retained   bool
}

// Payload is the JSON body of a transition message.
type Payload struct {
	Tea TransitionPayload `json:"tea"`
}

// TransitionPayload contains the transition details.
type TransitionPayload struct {
	Timestamp string `json:"timestamp"`
	Machine   string `json:"machine"`
	From      string `json:"from"`
	To        string `json:"to"`
	DwellMs   int64  `json:"dwell_ms"`
	Seq       int    `json:"seq"`
}

// FormatPayload creates the JSON payload for a transition.
func FormatPayload(t diag.Transition) ([]byte, error) {
	return json.Marshal(Payload{
		Tea: TransitionPayload{
			Timestamp: t.At.UTC().Format(time.RFC3339),
			Machine:   t.Machine,
			From:      t.From,
			To:        t.To,
			DwellMs:   t.Dwell.Milliseconds(),
			Seq:       t.Seq,
		},
	})
}

// SystemPayload is the JSON body for simple system events (LWT, RECONNECTED)
// that carry no status snapshot.
type SystemPayload struct {
	System SystemPayloadInner `json:"system"`
}

// SystemPayloadInner contains the system event details.
type SystemPayloadInner struct {
	Timestamp string `json:"timestamp"`
	Event     string `json:"event"`
	Reason    string `json:"reason,omitempty"`
}

// FormatSystemPayload creates the JSON payload for a system event.
func FormatSystemPayload(event SystemEvent) ([]byte, error) {
	if event.RawPayload != nil {
		return event.RawPayload, nil
	}
	return json.Marshal(SystemPayload{
		System: SystemPayloadInner{
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
			Event:     event.Event,
			Reason:    event.Reason,
		},
	})
}
