// Package light runs the LED brightness state machine: linear fades between
// brightness levels over commanded durations, and one-shot pulses.
package light

import (
	"time"

	"github.com/sweeney/tea-sensor/internal/led"
	"github.com/sweeney/tea-sensor/internal/machine"
	"github.com/zoobzio/clockz"
)

// Light owns the brightness ramp data and is the only writer to its LED.
type Light struct {
	host *machine.Host[*Light]
	out  led.Writer

	brightness float64
	start      float64
	target     float64
	lighting   time.Duration
	dimming    time.Duration
}

// New creates a Light in the Off state writing to out.
func New(out led.Writer, clock clockz.Clock) (*Light, error) {
	l := &Light{out: out}
	h, err := machine.New[*Light](l, Off, clock)
	if err != nil {
		return nil, err
	}
	l.host = h
	return l, nil
}

// TurnOff switches the LED off on the next update. The dimming duration is
// accepted for symmetry with the other commands but not honoured: Off zeroes
// the brightness immediately.
func (l *Light) TurnOff(dimming time.Duration) error {
	l.start = l.brightness
	l.target = 0
	l.lighting = 0
	l.dimming = dimming
	return l.host.Transition(Off)
}

// TurnOn ramps to full brightness over lighting and holds there.
// It does nothing if the LED is already on at full brightness.
func (l *Light) TurnOn(lighting time.Duration) error {
	if l.host.State() == On && l.target == 1 && l.brightness == 1 {
		return nil
	}
	l.start = l.brightness
	l.target = 1
	l.lighting = lighting
	l.dimming = 0
	return l.host.Transition(Brightening)
}

// AdjustTo fades to target over d. Upward fades end On; downward fades end
// On, or Off when target is 0.
func (l *Light) AdjustTo(target float64, d time.Duration) error {
	l.start = l.brightness
	l.target = clamp(target)
	if l.target < l.start {
		l.lighting = 0
		l.dimming = d
		return l.host.Transition(Dimming)
	}
	l.lighting = d
	l.dimming = 0
	return l.host.Transition(Brightening)
}

// Pulse rises to peak over rise, then falls to 0 over fall and ends Off.
func (l *Light) Pulse(peak float64, rise, fall time.Duration) error {
	l.start = l.brightness
	l.target = clamp(peak)
	l.lighting = rise
	l.dimming = fall
	return l.host.Transition(Brightening)
}

// Update advances the active ramp and writes the LED if the level changed.
func (l *Light) Update() error {
	return l.host.Update()
}

// Brightness returns the last level written to the LED.
func (l *Light) Brightness() float64 {
	return l.brightness
}

// Target returns the level the current ramp is heading for.
func (l *Light) Target() float64 {
	return l.target
}

// State returns the active lighting state.
func (l *Light) State() machine.State[*Light] {
	return l.host.State()
}

// TimeInState returns the time since the active state was entered.
func (l *Light) TimeInState() time.Duration {
	return l.host.TimeInState()
}

// Observers returns the notifier for lighting transitions.
func (l *Light) Observers() *machine.Notifier[*Light] {
	return l.host.Observers()
}

// setBrightness clamps v and writes it if it differs from the current level.
// On a failed write the stored brightness is left unchanged.
func (l *Light) setBrightness(v float64) error {
	v = clamp(v)
	if v == l.brightness {
		return nil
	}
	if err := l.out.SetIntensity(v); err != nil {
		return err
	}
	l.brightness = v
	return nil
}

// ramp returns the interpolated level after elapsed of a ramp lasting d.
func (l *Light) ramp(elapsed, d time.Duration) float64 {
	return l.start + (l.target-l.start)*(float64(elapsed)/float64(d))
}

func clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
