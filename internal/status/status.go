// Package status keeps a thread-safe snapshot of the controller for the
// status page and lifecycle messages. The control loop writes it; HTTP
// handlers and the MQTT publisher read it.
package status

import (
	"sync"
	"time"

	"github.com/zoobzio/clockz"

	"github.com/sweeney/tea-sensor/internal/diag"
	"github.com/sweeney/tea-sensor/internal/presence"
)

// NetworkInfo contains network state reported by the host helper.
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
	DeviceID    string
	PollMs      int64
	DebounceMs  int64
	HeartbeatMs int64
	BrewMs      int64
	DrinkMs     int64
	Broker      string
	HTTPAddr    string
	Telemetry   bool
}

// Live is the part of the snapshot refreshed on every tick.
type Live struct {
	State       string
	LightState  string
	Brightness  float64
	Target      float64
	Volume      float64
	Present     bool
	Baselined   bool
	TimeInState time.Duration
	Cups        presence.Counts
}

// TransitionCounts counts committed transitions per machine.
type TransitionCounts struct {
	Alarm int
	Light int
}

// Snapshot is a point-in-time view of daemon state. It is a value type and
// safe to use after the lock is released.
type Snapshot struct {
	Live
	Transitions    TransitionCounts
	LastTransition *diag.Transition
	StartTime      time.Time
	Now            time.Time
	MQTTConnected  bool
	Network        *NetworkInfo
	Config         Config
}

// Uptime returns the duration since the daemon started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// Tracker holds mutable daemon state behind an RWMutex.
type Tracker struct {
	clock clockz.Clock

	mu   sync.RWMutex
	snap Snapshot
}

// NewTracker creates a Tracker. The start time is read from clock.
func NewTracker(clock clockz.Clock, cfg Config) *Tracker {
	if clock == nil {
		clock = clockz.RealClock
	}
	return &Tracker{
		clock: clock,
		snap: Snapshot{
			StartTime: clock.Now(),
			Config:    cfg,
		},
	}
}

// Update replaces the live part of the snapshot. Called on every tick.
func (t *Tracker) Update(live Live) {
	t.mu.Lock()
	t.snap.Live = live
	t.mu.Unlock()
}

// RecordTransition counts tr and remembers the latest alarm transition.
func (t *Tracker) RecordTransition(tr diag.Transition) {
	t.mu.Lock()
	defer t.mu.Unlock()
	switch tr.Machine {
	case "alarm":
		t.snap.Transitions.Alarm++
		last := tr
		t.snap.LastTransition = &last
	case "light":
		t.snap.Transitions.Light++
	}
}

// SetMQTTConnected sets the MQTT connection status.
func (t *Tracker) SetMQTTConnected(connected bool) {
	t.mu.Lock()
	t.snap.MQTTConnected = connected
	t.mu.Unlock()
}

// SetNetwork sets the network info.
func (t *Tracker) SetNetwork(info *NetworkInfo) {
	t.mu.Lock()
	t.snap.Network = info
	t.mu.Unlock()
}

// Snapshot returns a copy of the daemon state with Now set to the current
// time.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	t.mu.RUnlock()
	if s.LastTransition != nil {
		last := *s.LastTransition
		s.LastTransition = &last
	}
	s.Now = t.clock.Now()
	return s
}
