package telemetry

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/sweeney/tea-sensor/internal/config"
	"github.com/sweeney/tea-sensor/internal/diag"
)

var at = time.Date(2026, 3, 4, 8, 15, 0, 0, time.UTC)

func tagsOf(p *write.Point) map[string]string {
	tags := make(map[string]string)
	for _, tag := range p.TagList() {
		tags[tag.Key] = tag.Value
	}
	return tags
}

func fieldsOf(p *write.Point) map[string]interface{} {
	fields := make(map[string]interface{})
	for _, f := range p.FieldList() {
		fields[f.Key] = f.Value
	}
	return fields
}

func TestTransitionPoint(t *testing.T) {
	p := TransitionPoint("kitchen-1", diag.Transition{
		Machine: "alarm",
		From:    "sound_alert",
		To:      "alert_pause",
		At:      at,
		Dwell:   30*time.Second + 10*time.Millisecond,
		Seq:     7,
	})

	if p.Name() != MeasurementTransition {
		t.Errorf("Name: got %q, want %q", p.Name(), MeasurementTransition)
	}
	if !p.Time().Equal(at) {
		t.Errorf("Time: got %v, want %v", p.Time(), at)
	}

	tags := tagsOf(p)
	wantTags := map[string]string{
		"device_id": "kitchen-1",
		"machine":   "alarm",
		"from":      "sound_alert",
		"to":        "alert_pause",
	}
	for k, v := range wantTags {
		if tags[k] != v {
			t.Errorf("tag %s: got %q, want %q", k, tags[k], v)
		}
	}

	fields := fieldsOf(p)
	if fields["dwell_ms"] != int64(30010) {
		t.Errorf("dwell_ms: got %v (%T), want 30010", fields["dwell_ms"], fields["dwell_ms"])
	}
	if fields["seq"] != int64(7) {
		t.Errorf("seq: got %v, want 7", fields["seq"])
	}
}

func TestStatusPoint(t *testing.T) {
	p := StatusPoint("kitchen-1", Sample{
		At:          at,
		State:       "steeping",
		LightState:  "on",
		Brightness:  0.1,
		Volume:      0,
		Present:     true,
		TimeInState: 90 * time.Second,
	})

	if p.Name() != MeasurementStatus {
		t.Errorf("Name: got %q", p.Name())
	}
	tags := tagsOf(p)
	if tags["state"] != "steeping" || tags["light"] != "on" {
		t.Errorf("tags: got %v", tags)
	}
	fields := fieldsOf(p)
	if fields["brightness"] != 0.1 {
		t.Errorf("brightness: got %v", fields["brightness"])
	}
	if fields["present"] != true {
		t.Errorf("present: got %v", fields["present"])
	}
	if fields["time_in_state_ms"] != int64(90000) {
		t.Errorf("time_in_state_ms: got %v", fields["time_in_state_ms"])
	}
}

func TestLineProtocol(t *testing.T) {
	p := TransitionPoint("kitchen-1", diag.Transition{Machine: "light", From: "off", To: "brightening", At: at, Seq: 1})
	line := write.PointToLineProtocol(p, time.Second)

	for _, want := range []string{"tea_transition,", "machine=light", "to=brightening", "seq=1i", "1772612100"} {
		if !strings.Contains(line, want) {
			t.Errorf("line protocol %q missing %q", line, want)
		}
	}
}

func TestConnectDisabled(t *testing.T) {
	_, err := Connect(context.Background(), config.InfluxDBConfig{}, "kitchen-1")
	if !errors.Is(err, ErrDisabled) {
		t.Errorf("Connect: got %v, want ErrDisabled", err)
	}
}

func TestConnectUnreachable(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	_, err := Connect(ctx, config.InfluxDBConfig{
		Enabled: true,
		URL:     "http://127.0.0.1:1",
		Bucket:  "tea",
	}, "kitchen-1")
	if !errors.Is(err, ErrConnectionFailed) {
		t.Errorf("Connect: got %v, want ErrConnectionFailed", err)
	}
}
