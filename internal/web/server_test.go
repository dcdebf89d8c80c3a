package web

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/zoobzio/clockz"

	"github.com/sweeney/tea-sensor/internal/diag"
	"github.com/sweeney/tea-sensor/internal/presence"
	"github.com/sweeney/tea-sensor/internal/status"
)

func newTestServer(t *testing.T) (*httptest.Server, *status.Tracker, *clockz.FakeClock) {
	t.Helper()
	clock := clockz.NewFakeClock()
	tr := status.NewTracker(clock, status.Config{
		DeviceID:    "kitchen-1",
		PollMs:      10,
		DebounceMs:  500,
		HeartbeatMs: 900000,
		BrewMs:      540000,
		DrinkMs:     270000,
		Broker:      "tcp://broker.local:1883",
		HTTPAddr:    ":80",
	})
	srv := New(":0", tr, nil)
	ts := httptest.NewServer(srv.httpServer.Handler)
	t.Cleanup(ts.Close)
	return ts, tr, clock
}

func get(t *testing.T, url string) (*http.Response, string) {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return resp, string(body)
}

func TestJSONEndpoint(t *testing.T) {
	ts, tr, clock := newTestServer(t)
	tr.Update(status.Live{
		State:       "steeping",
		LightState:  "on",
		Brightness:  0.1,
		Target:      0.1,
		Present:     true,
		Baselined:   true,
		TimeInState: 3 * time.Minute,
		Cups:        presence.Counts{Placed: 2, Lifted: 1},
	})
	tr.RecordTransition(diag.Transition{Machine: "alarm", From: "presence_detected", To: "steeping", At: clock.Now()})
	tr.SetMQTTConnected(true)

	resp, body := get(t, ts.URL+"/index.json")
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status: got %d, want 200", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type: got %q", ct)
	}

	var sj status.StatusJSON
	if err := json.Unmarshal([]byte(body), &sj); err != nil {
		t.Fatalf("decode JSON: %v", err)
	}
	s := sj.Status
	if s.State != "steeping" {
		t.Errorf("State: got %q, want steeping", s.State)
	}
	if s.TimeInStateSeconds != 180 {
		t.Errorf("TimeInStateSeconds: got %d, want 180", s.TimeInStateSeconds)
	}
	if !s.Presence.Present || s.Presence.Placed != 2 {
		t.Errorf("Presence: got %+v", s.Presence)
	}
	if !s.MQTT.Connected || s.MQTT.Broker != "tcp://broker.local:1883" {
		t.Errorf("MQTT: got %+v", s.MQTT)
	}
	if s.Transitions.Alarm != 1 {
		t.Errorf("Transitions.Alarm: got %d, want 1", s.Transitions.Alarm)
	}
	if s.Config == nil || s.Config.PollMs != 10 {
		t.Errorf("Config: got %+v", s.Config)
	}
}

func TestIndexPage(t *testing.T) {
	ts, tr, _ := newTestServer(t)
	tr.Update(status.Live{State: "sound_alert", LightState: "on", Brightness: 1, Volume: 0.2, Present: true})

	for _, path := range []string{"/", "/index.html"} {
		resp, body := get(t, ts.URL+path)
		if resp.StatusCode != http.StatusOK {
			t.Errorf("%s: status %d", path, resp.StatusCode)
		}
		if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
			t.Errorf("%s: Content-Type %q", path, ct)
		}
		for _, want := range []string{
			"<title>Tea Sensor</title>",
			`class="alert">sound_alert`,
			"<td>20%</td>",
			"<td>100%</td>",
			"kitchen-1",
		} {
			if !strings.Contains(body, want) {
				t.Errorf("%s: body missing %q", path, want)
			}
		}
	}
}

func TestIndexPageBeforeFirstTick(t *testing.T) {
	ts, _, _ := newTestServer(t)
	_, body := get(t, ts.URL+"/")
	if !strings.Contains(body, `class="calm">UNKNOWN`) {
		t.Error("expected UNKNOWN state before first update")
	}
	if strings.Contains(body, "Last change") {
		t.Error("no last change expected before any transition")
	}
}

func TestHealthz(t *testing.T) {
	ts, _, _ := newTestServer(t)
	resp, body := get(t, ts.URL+"/healthz")
	if resp.StatusCode != http.StatusOK || body != "ok\n" {
		t.Errorf("healthz: %d %q", resp.StatusCode, body)
	}
}

func TestUnknownPath(t *testing.T) {
	ts, _, _ := newTestServer(t)
	resp, _ := get(t, ts.URL+"/nope")
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status: got %d, want 404", resp.StatusCode)
	}
}

func TestPostNotAllowed(t *testing.T) {
	ts, _, _ := newTestServer(t)
	resp, err := http.Post(ts.URL+"/index.json", "application/json", strings.NewReader("{}"))
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Errorf("status: got %d, want 405", resp.StatusCode)
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{0, "0s"},
		{42*time.Second + 900*time.Millisecond, "42s"},
		{9 * time.Minute, "9m 0s"},
		{2*time.Hour + 3*time.Minute + 4*time.Second, "2h 3m 4s"},
		{50 * time.Hour, "2d 2h 0m 0s"},
	}
	for _, tt := range tests {
		if got := formatDuration(tt.d); got != tt.want {
			t.Errorf("formatDuration(%v): got %q, want %q", tt.d, got, tt.want)
		}
	}
}
