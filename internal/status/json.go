package status

import (
	"encoding/json"
	"time"
)

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	Event              string          `json:"event,omitempty"`
	Reason             string          `json:"reason,omitempty"`
	DeviceID           string          `json:"device_id"`
	State              string          `json:"state"`
	TimeInStateSeconds int64           `json:"time_in_state_seconds"`
	Light              LightJSON       `json:"light"`
	Presence           PresenceJSON    `json:"presence"`
	Volume             float64         `json:"volume"`
	UptimeSeconds      int64           `json:"uptime_seconds"`
	StartTime          string          `json:"start_time"`
	Timestamp          string          `json:"timestamp"`
	MQTT               MQTTStatus      `json:"mqtt"`
	Transitions        TransitionsJSON `json:"transitions"`
	Network            *NetworkJSON    `json:"network,omitempty"`
	Config             *ConfigJSON     `json:"config,omitempty"`
}

// LightJSON reports the LED.
type LightJSON struct {
	State      string  `json:"state"`
	Brightness float64 `json:"brightness"`
	Target     float64 `json:"target"`
}

// PresenceJSON reports the cup sensor.
type PresenceJSON struct {
	Present bool `json:"present"`
	Ready   bool `json:"ready"`
	Placed  int  `json:"placed"`
	Lifted  int  `json:"lifted"`
}

// MQTTStatus reports MQTT connection state.
type MQTTStatus struct {
	Connected bool   `json:"connected"`
	Broker    string `json:"broker"`
}

// TransitionsJSON reports transition counts and the latest alarm change.
type TransitionsJSON struct {
	Alarm int             `json:"alarm"`
	Light int             `json:"light"`
	Last  *LastTransition `json:"last,omitempty"`
}

// LastTransition is the most recent alarm transition.
type LastTransition struct {
	From      string `json:"from"`
	To        string `json:"to"`
	Timestamp string `json:"timestamp"`
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
	PollMs      int64  `json:"poll_ms"`
	DebounceMs  int64  `json:"debounce_ms"`
	HeartbeatMs int64  `json:"heartbeat_ms"`
	BrewMs      int64  `json:"brew_ms"`
	DrinkMs     int64  `json:"drink_ms"`
	Broker      string `json:"broker"`
	HTTPAddr    string `json:"http_addr"`
	Telemetry   bool   `json:"telemetry"`
}

func orUnknown(s string) string {
	if s == "" {
		return "UNKNOWN"
	}
	return s
}

func buildInner(snap Snapshot) StatusInner {
	inner := StatusInner{
		DeviceID:           snap.Config.DeviceID,
		State:              orUnknown(snap.State),
		TimeInStateSeconds: int64(snap.TimeInState.Truncate(time.Second).Seconds()),
		Light: LightJSON{
			State:      orUnknown(snap.LightState),
			Brightness: snap.Brightness,
			Target:     snap.Target,
		},
		Presence: PresenceJSON{
			Present: snap.Present,
			Ready:   snap.Baselined,
			Placed:  snap.Cups.Placed,
			Lifted:  snap.Cups.Lifted,
		},
		Volume:        snap.Volume,
		UptimeSeconds: int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:     snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:     snap.Now.UTC().Format(time.RFC3339),
		MQTT:          MQTTStatus{Connected: snap.MQTTConnected, Broker: snap.Config.Broker},
		Transitions: TransitionsJSON{
			Alarm: snap.Transitions.Alarm,
			Light: snap.Transitions.Light,
		},
	}
	if last := snap.LastTransition; last != nil {
		inner.Transitions.Last = &LastTransition{
			From:      last.From,
			To:        last.To,
			Timestamp: last.At.UTC().Format(time.RFC3339),
		}
	}
	if n := snap.Network; n != nil {
		inner.Network = &NetworkJSON{
			Type:       n.Type,
			IP:         n.IP,
			Status:     n.Status,
			Gateway:    n.Gateway,
			WifiStatus: n.WifiStatus,
			SSID:       n.SSID,
		}
	}
	return inner
}

func buildConfig(cfg Config) *ConfigJSON {
	return &ConfigJSON{
		PollMs:      cfg.PollMs,
		DebounceMs:  cfg.DebounceMs,
		HeartbeatMs: cfg.HeartbeatMs,
		BrewMs:      cfg.BrewMs,
		DrinkMs:     cfg.DrinkMs,
		Broker:      cfg.Broker,
		HTTPAddr:    cfg.HTTPAddr,
		Telemetry:   cfg.Telemetry,
	}
}

// FormatJSON returns the indented JSON status for the web endpoint.
func FormatJSON(snap Snapshot) []byte {
	inner := buildInner(snap)
	inner.Config = buildConfig(snap.Config)
	data, _ := json.MarshalIndent(StatusJSON{Status: inner}, "", "  ")
	return data
}

// FormatStatusEvent returns the JSON status for an MQTT system event.
// Config is included on STARTUP only.
func FormatStatusEvent(snap Snapshot, event, reason string) []byte {
	inner := buildInner(snap)
	inner.Event = event
	inner.Reason = reason
	if event == "STARTUP" {
		inner.Config = buildConfig(snap.Config)
	}
	data, _ := json.Marshal(StatusJSON{Status: inner})
	return data
}
