package status

import (
	"encoding/json"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/zoobzio/clockz"

	"github.com/sweeney/tea-sensor/internal/diag"
	"github.com/sweeney/tea-sensor/internal/presence"
)

var testConfig = Config{
	DeviceID:    "kitchen-1",
	PollMs:      10,
	DebounceMs:  500,
	HeartbeatMs: 900000,
	BrewMs:      540000,
	DrinkMs:     270000,
	Broker:      "tcp://broker.local:1883",
	HTTPAddr:    ":80",
}

func newTestTracker() (*Tracker, *clockz.FakeClock) {
	clock := clockz.NewFakeClock()
	return NewTracker(clock, testConfig), clock
}

func TestNewTrackerEmpty(t *testing.T) {
	tr, clock := newTestTracker()
	clock.Advance(90 * time.Second)

	snap := tr.Snapshot()
	if snap.State != "" || snap.Present {
		t.Errorf("unexpected live data: %+v", snap.Live)
	}
	if snap.Uptime() != 90*time.Second {
		t.Errorf("Uptime: got %v, want 90s", snap.Uptime())
	}
	if snap.Config != testConfig {
		t.Errorf("Config: got %+v", snap.Config)
	}
}

func TestUpdateAndRecordTransition(t *testing.T) {
	tr, clock := newTestTracker()

	tr.Update(Live{
		State:       "steeping",
		LightState:  "on",
		Brightness:  0.1,
		Target:      0.1,
		Present:     true,
		Baselined:   true,
		TimeInState: 2 * time.Minute,
		Cups:        presence.Counts{Placed: 3, Lifted: 2},
	})
	tr.RecordTransition(diag.Transition{Machine: "alarm", From: "presence_detected", To: "steeping", At: clock.Now()})
	tr.RecordTransition(diag.Transition{Machine: "light", From: "brightening", To: "on"})
	tr.RecordTransition(diag.Transition{Machine: "light", From: "on", To: "dimming"})
	tr.SetMQTTConnected(true)

	snap := tr.Snapshot()
	if snap.State != "steeping" || snap.Cups.Placed != 3 {
		t.Errorf("Live: got %+v", snap.Live)
	}
	if snap.Transitions != (TransitionCounts{Alarm: 1, Light: 2}) {
		t.Errorf("Transitions: got %+v", snap.Transitions)
	}
	if snap.LastTransition == nil || snap.LastTransition.To != "steeping" {
		t.Errorf("LastTransition: got %+v", snap.LastTransition)
	}
	if !snap.MQTTConnected {
		t.Error("expected MQTTConnected")
	}
}

func TestSnapshotIsACopy(t *testing.T) {
	tr, _ := newTestTracker()
	tr.RecordTransition(diag.Transition{Machine: "alarm", From: "startup", To: "waiting"})

	snap := tr.Snapshot()
	snap.LastTransition.To = "mutated"

	if got := tr.Snapshot().LastTransition.To; got != "waiting" {
		t.Errorf("tracker state changed through snapshot: got %q", got)
	}
}

func TestConcurrentAccess(t *testing.T) {
	tr, _ := newTestTracker()
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				tr.Update(Live{State: "waiting"})
				tr.RecordTransition(diag.Transition{Machine: "light"})
			}
		}()
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				_ = FormatJSON(tr.Snapshot())
			}
		}()
	}
	wg.Wait()

	if got := tr.Snapshot().Transitions.Light; got != 400 {
		t.Errorf("Light transitions: got %d, want 400", got)
	}
}

func TestFormatJSONUnknownBeforeFirstTick(t *testing.T) {
	tr, _ := newTestTracker()

	var sj StatusJSON
	if err := json.Unmarshal(FormatJSON(tr.Snapshot()), &sj); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if sj.Status.State != "UNKNOWN" || sj.Status.Light.State != "UNKNOWN" {
		t.Errorf("states: got %q / %q, want UNKNOWN", sj.Status.State, sj.Status.Light.State)
	}
	if sj.Status.Transitions.Last != nil {
		t.Errorf("Last: got %+v, want nil", sj.Status.Transitions.Last)
	}
	if sj.Status.Config == nil || sj.Status.Config.BrewMs != 540000 {
		t.Errorf("Config: got %+v", sj.Status.Config)
	}
}

func TestFormatJSONFields(t *testing.T) {
	tr, clock := newTestTracker()
	start := clock.Now()
	clock.Advance(time.Hour + 500*time.Millisecond)
	tr.Update(Live{
		State:       "sound_alert",
		LightState:  "on",
		Brightness:  1,
		Target:      1,
		Volume:      0.2,
		Present:     true,
		Baselined:   true,
		TimeInState: 12*time.Second + 900*time.Millisecond,
		Cups:        presence.Counts{Placed: 1},
	})
	tr.RecordTransition(diag.Transition{Machine: "alarm", From: "silent_alert", To: "sound_alert", At: clock.Now()})
	tr.SetNetwork(&NetworkInfo{Type: "wifi", IP: "10.0.0.7", Status: "up", SSID: "kitchen"})

	var sj StatusJSON
	if err := json.Unmarshal(FormatJSON(tr.Snapshot()), &sj); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	s := sj.Status

	if s.DeviceID != "kitchen-1" {
		t.Errorf("DeviceID: got %q", s.DeviceID)
	}
	if s.State != "sound_alert" || s.TimeInStateSeconds != 12 {
		t.Errorf("State: got %q for %ds", s.State, s.TimeInStateSeconds)
	}
	if s.Volume != 0.2 || s.Light.Brightness != 1 {
		t.Errorf("Volume/Brightness: got %v/%v", s.Volume, s.Light.Brightness)
	}
	if !s.Presence.Present || !s.Presence.Ready || s.Presence.Placed != 1 {
		t.Errorf("Presence: got %+v", s.Presence)
	}
	if s.UptimeSeconds != 3600 {
		t.Errorf("UptimeSeconds: got %d, want 3600", s.UptimeSeconds)
	}
	if s.StartTime != start.UTC().Format(time.RFC3339) {
		t.Errorf("StartTime: got %q", s.StartTime)
	}
	if s.Transitions.Last == nil || s.Transitions.Last.From != "silent_alert" {
		t.Errorf("Last: got %+v", s.Transitions.Last)
	}
	if s.Network == nil || s.Network.SSID != "kitchen" {
		t.Errorf("Network: got %+v", s.Network)
	}
}

func TestFormatStatusEvent(t *testing.T) {
	tr, _ := newTestTracker()
	snap := tr.Snapshot()

	startup := string(FormatStatusEvent(snap, "STARTUP", ""))
	if !strings.Contains(startup, `"event":"STARTUP"`) || !strings.Contains(startup, `"config":`) {
		t.Errorf("STARTUP payload: %s", startup)
	}
	if strings.Contains(startup, `"reason"`) {
		t.Errorf("STARTUP payload should omit reason: %s", startup)
	}

	shutdown := string(FormatStatusEvent(snap, "SHUTDOWN", "SIGTERM"))
	if !strings.Contains(shutdown, `"reason":"SIGTERM"`) {
		t.Errorf("SHUTDOWN payload: %s", shutdown)
	}
	if strings.Contains(shutdown, `"config":`) {
		t.Errorf("SHUTDOWN payload should omit config: %s", shutdown)
	}
	if strings.Contains(shutdown, "\n") {
		t.Error("event payload should be compact")
	}
}
