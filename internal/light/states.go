package light

import "github.com/sweeney/tea-sensor/internal/machine"

// Lighting states. They hold no data; the Light carries the ramp.
var (
	Off         machine.State[*Light] = offState{}
	On          machine.State[*Light] = onState{}
	Brightening machine.State[*Light] = brighteningState{}
	Dimming     machine.State[*Light] = dimmingState{}
)

type offState struct{ machine.NopEnter[*Light] }

func (offState) Name() string { return "off" }

func (s offState) Update(l *Light) (machine.State[*Light], error) {
	if l.brightness != 0 {
		if err := l.setBrightness(0); err != nil {
			return nil, err
		}
	}
	return s, nil
}

type onState struct{ machine.NopEnter[*Light] }

func (onState) Name() string { return "on" }

func (s onState) Update(l *Light) (machine.State[*Light], error) {
	if l.brightness != l.target {
		if err := l.setBrightness(l.target); err != nil {
			return nil, err
		}
	}
	return s, nil
}

type brighteningState struct{ machine.NopEnter[*Light] }

func (brighteningState) Name() string { return "brightening" }

func (s brighteningState) Update(l *Light) (machine.State[*Light], error) {
	elapsed := l.host.TimeInState()
	if elapsed < l.lighting {
		return s, l.setBrightness(l.ramp(elapsed, l.lighting))
	}

	if err := l.setBrightness(l.target); err != nil {
		return nil, err
	}
	l.lighting = 0
	if l.dimming > 0 {
		// Second half of a pulse.
		l.start = l.target
		l.target = 0
		return Dimming, nil
	}
	return On, nil
}

type dimmingState struct{ machine.NopEnter[*Light] }

func (dimmingState) Name() string { return "dimming" }

func (s dimmingState) Update(l *Light) (machine.State[*Light], error) {
	elapsed := l.host.TimeInState()
	if elapsed < l.dimming {
		return s, l.setBrightness(l.ramp(elapsed, l.dimming))
	}

	if err := l.setBrightness(l.target); err != nil {
		return nil, err
	}
	l.dimming = 0
	if l.target > 0 {
		return On, nil
	}
	return Off, nil
}
