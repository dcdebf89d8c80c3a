package alarm

import "github.com/sweeney/tea-sensor/internal/machine"

// Escalation states.
var (
	Startup          machine.State[*Sequencer] = startupState{}
	Waiting          machine.State[*Sequencer] = waitingState{}
	PresenceDetected machine.State[*Sequencer] = presenceDetectedState{}
	Steeping         machine.State[*Sequencer] = steepingState{}
	Consuming        machine.State[*Sequencer] = consumingState{}
	PresenceLost     machine.State[*Sequencer] = presenceLostState{}
	SilentAlert      machine.State[*Sequencer] = silentAlertState{}
	SoundAlert       machine.State[*Sequencer] = soundAlertState{}
	AlertPause       machine.State[*Sequencer] = alertPauseState{}
)

// States lists every escalation state in escalation order.
func States() []machine.State[*Sequencer] {
	return []machine.State[*Sequencer]{
		Startup, Waiting, PresenceDetected, Steeping, Consuming,
		PresenceLost, SilentAlert, SoundAlert, AlertPause,
	}
}

type startupState struct{}

func (startupState) Name() string { return "startup" }

func (startupState) Enter(s *Sequencer) error {
	half := s.cfg.Startup / 2
	return s.light.Pulse(s.cfg.StartupPeak, half, half)
}

func (st startupState) Update(s *Sequencer) (machine.State[*Sequencer], error) {
	if s.host.TimeInState() >= s.cfg.Startup {
		return Waiting, nil
	}
	return st, nil
}

type waitingState struct{}

func (waitingState) Name() string { return "waiting" }

func (waitingState) Enter(s *Sequencer) error {
	if err := s.silence(); err != nil {
		return err
	}
	return s.light.AdjustTo(s.cfg.IdleBrightness, s.cfg.Fade)
}

func (st waitingState) Update(s *Sequencer) (machine.State[*Sequencer], error) {
	if s.PresenceDetected() {
		return PresenceDetected, nil
	}
	return st, nil
}

// presenceDetectedState lasts exactly one tick; it only exists to fire the
// acknowledgement pulse on entry.
type presenceDetectedState struct{}

func (presenceDetectedState) Name() string { return "presence_detected" }

func (presenceDetectedState) Enter(s *Sequencer) error {
	return s.light.Pulse(1, s.cfg.BlinkOn, s.cfg.BlinkOff)
}

func (presenceDetectedState) Update(*Sequencer) (machine.State[*Sequencer], error) {
	return Steeping, nil
}

type steepingState struct{}

func (steepingState) Name() string { return "steeping" }

func (steepingState) Enter(s *Sequencer) error {
	return s.light.AdjustTo(s.cfg.ActiveBrightness, s.cfg.Fade)
}

func (st steepingState) Update(s *Sequencer) (machine.State[*Sequencer], error) {
	if !s.PresenceDetected() {
		return PresenceLost, nil
	}
	if s.host.TimeInState() > s.cfg.Brew {
		return SilentAlert, nil
	}
	return st, nil
}

// consumingState is steeping's shorter-deadline twin, entered when a lifted
// cup comes back.
type consumingState struct{}

func (consumingState) Name() string { return "consuming" }

func (consumingState) Enter(s *Sequencer) error {
	return s.light.AdjustTo(s.cfg.ActiveBrightness, s.cfg.Fade)
}

func (st consumingState) Update(s *Sequencer) (machine.State[*Sequencer], error) {
	if !s.PresenceDetected() {
		return PresenceLost, nil
	}
	if s.host.TimeInState() > s.cfg.Drink {
		return SilentAlert, nil
	}
	return st, nil
}

type presenceLostState struct{}

func (presenceLostState) Name() string { return "presence_lost" }

func (presenceLostState) Enter(s *Sequencer) error {
	if err := s.silence(); err != nil {
		return err
	}
	return s.light.AdjustTo(s.cfg.IdleBrightness, s.cfg.Fade)
}

func (st presenceLostState) Update(s *Sequencer) (machine.State[*Sequencer], error) {
	if s.PresenceDetected() {
		return Consuming, nil
	}
	if s.host.TimeInState() > s.cfg.CupAbsence {
		return Waiting, nil
	}
	return st, nil
}

type silentAlertState struct{}

func (silentAlertState) Name() string { return "silent_alert" }

func (silentAlertState) Enter(s *Sequencer) error {
	return s.light.TurnOn(s.cfg.SilentAlert)
}

func (st silentAlertState) Update(s *Sequencer) (machine.State[*Sequencer], error) {
	if !s.PresenceDetected() {
		return PresenceLost, nil
	}
	if s.host.TimeInState() > s.cfg.SilentAlert {
		return SoundAlert, nil
	}
	return st, nil
}

type soundAlertState struct{}

func (soundAlertState) Name() string { return "sound_alert" }

func (soundAlertState) Enter(s *Sequencer) error {
	return s.play()
}

func (st soundAlertState) Update(s *Sequencer) (machine.State[*Sequencer], error) {
	if !s.PresenceDetected() {
		return PresenceLost, nil
	}
	if s.host.TimeInState() > s.cfg.ClipLength {
		return AlertPause, nil
	}
	return st, nil
}

type alertPauseState struct{}

func (alertPauseState) Name() string { return "alert_pause" }

func (alertPauseState) Enter(s *Sequencer) error {
	return s.silence()
}

func (st alertPauseState) Update(s *Sequencer) (machine.State[*Sequencer], error) {
	if !s.PresenceDetected() {
		return PresenceLost, nil
	}
	if s.host.TimeInState() > s.cfg.AlertPause {
		return SoundAlert, nil
	}
	return st, nil
}
