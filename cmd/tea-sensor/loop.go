package main

import (
	"fmt"
	"io"
	"os"
	"syscall"
	"time"

	"github.com/sweeney/tea-sensor/internal/alarm"
	"github.com/sweeney/tea-sensor/internal/diag"
	"github.com/sweeney/tea-sensor/internal/logging"
	"github.com/sweeney/tea-sensor/internal/mqtt"
	"github.com/sweeney/tea-sensor/internal/presence"
	"github.com/sweeney/tea-sensor/internal/sensor"
	"github.com/sweeney/tea-sensor/internal/status"
	"github.com/sweeney/tea-sensor/internal/telemetry"
)

// sampleWriter receives a status sample on every heartbeat.
type sampleWriter interface {
	WriteSample(s telemetry.Sample)
}

// controller is the poll loop: sensor -> debouncer -> sequencer, once per
// tick, all on one goroutine. publisher, mqttStatus and samples may be nil.
type controller struct {
	reader     sensor.Reader
	debouncer  *presence.Debouncer
	seq        *alarm.Sequencer
	tracker    *status.Tracker
	publisher  mqtt.Publisher
	mqttStatus mqtt.ConnectionStatus
	samples    sampleWriter
	heartbeat  *diag.Heartbeat
	now        func() time.Time
	log        *logging.Logger

	readErr   latch
	updateErr latch
}

// latch suppresses repeats of the same error until a success clears it.
type latch struct {
	last string
}

// fail reports whether err differs from the previous failure.
func (l *latch) fail(err error) bool {
	msg := err.Error()
	if msg == l.last {
		return false
	}
	l.last = msg
	return true
}

// clear reports whether a failure was pending.
func (l *latch) clear() bool {
	was := l.last != ""
	l.last = ""
	return was
}

func (c *controller) runLoop(tick <-chan time.Time, sig <-chan os.Signal) error {
	for {
		select {
		case s := <-sig:
			c.shutdown(s)
			return nil
		case <-tick:
			c.tick()
		}
	}
}

// tick runs one control step. Errors are logged and never stop the loop.
func (c *controller) tick() {
	t := c.now()

	pressure, err := c.reader.Read()
	if err != nil {
		if c.readErr.fail(err) {
			c.log.Warn("sensor read failed", "error", err)
		}
	} else {
		if c.readErr.clear() {
			c.log.Info("sensor read recovered")
		}
		if ev, ok := c.debouncer.Process(pressure, t); ok {
			c.log.Info("presence", "event", string(ev))
		}
	}

	// The sequencer keeps ticking on a failed read so its timers still run;
	// presence holds its last debounced value.
	if err := c.seq.Update(); err != nil {
		if c.updateErr.fail(err) {
			c.log.Error("sequencer update failed", "state", c.seq.State().Name(), "error", err)
		}
	} else if c.updateErr.clear() {
		c.log.Info("sequencer update recovered")
	}

	c.refresh()

	if hb, ok := c.heartbeat.Check(t); ok {
		c.beat(hb)
	}
}

// live reads the current controller state.
func (c *controller) live() status.Live {
	l := c.seq.Light()
	return status.Live{
		State:       c.seq.State().Name(),
		LightState:  l.State().Name(),
		Brightness:  l.Brightness(),
		Target:      l.Target(),
		Volume:      c.seq.Volume(),
		Present:     c.seq.PresenceDetected(),
		Baselined:   c.debouncer.IsBaselined(),
		TimeInState: c.seq.TimeInState(),
		Cups:        c.debouncer.Counts(),
	}
}

func (c *controller) refresh() {
	c.tracker.Update(c.live())
	if c.mqttStatus != nil {
		c.tracker.SetMQTTConnected(c.mqttStatus.IsConnected())
	}
}

func (c *controller) beat(hb diag.HeartbeatData) {
	live := c.live()
	c.log.Info("heartbeat",
		"uptime", hb.Uptime.Truncate(time.Second),
		"state", live.State,
		"present", live.Present,
		"placed", live.Cups.Placed,
		"lifted", live.Cups.Lifted,
	)

	if net := readNetworkInfo(); net != nil {
		c.tracker.SetNetwork(net)
	}
	if c.samples != nil {
		c.samples.WriteSample(telemetry.Sample{
			At:          hb.Timestamp,
			State:       live.State,
			LightState:  live.LightState,
			Brightness:  live.Brightness,
			Volume:      live.Volume,
			Present:     live.Present,
			TimeInState: live.TimeInState,
		})
	}
	c.publishSystem(mqtt.SystemEvent{Timestamp: hb.Timestamp, Event: "HEARTBEAT"})
}

func (c *controller) startup() {
	c.refresh()
	c.publishSystem(mqtt.SystemEvent{Timestamp: c.now(), Event: "STARTUP", Retained: true})
}

func (c *controller) shutdown(s os.Signal) {
	name := signalName(s)
	c.log.Info("shutting down", "signal", name)
	c.publishSystem(mqtt.SystemEvent{Timestamp: c.now(), Event: "SHUTDOWN", Reason: name, Retained: true})
}

// publishSystem attaches a full status snapshot to event and publishes it.
func (c *controller) publishSystem(event mqtt.SystemEvent) {
	if c.publisher == nil {
		return
	}
	if c.mqttStatus != nil {
		c.tracker.SetMQTTConnected(c.mqttStatus.IsConnected())
	}
	event.RawPayload = status.FormatStatusEvent(c.tracker.Snapshot(), event.Event, event.Reason)
	if err := c.publisher.PublishSystem(event); err != nil {
		c.log.Warn("publish system event", "event", event.Event, "error", err)
	}
}

func signalName(s os.Signal) string {
	switch s {
	case syscall.SIGINT:
		return "SIGINT"
	case syscall.SIGTERM:
		return "SIGTERM"
	}
	return "UNKNOWN"
}

// printReading writes one sensor sample and the presence it implies.
func printReading(w io.Writer, reader sensor.Reader, threshold float64) error {
	p, err := reader.Read()
	if err != nil {
		return fmt.Errorf("read sensor: %w", err)
	}
	cup := "absent"
	if p > threshold {
		cup = "present"
	}
	_, err = fmt.Fprintf(w, "pressure: %.2f, cup: %s\n", p, cup)
	return err
}
