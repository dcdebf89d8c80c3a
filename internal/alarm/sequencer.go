// Package alarm contains the escalation policy: it watches cup presence,
// decides when a drink has been forgotten and escalates from a light cue to
// a repeating audible alert. It commands the light engine and the audio
// player as side effects of its own transitions.
package alarm

import (
	"fmt"
	"time"

	"github.com/sweeney/tea-sensor/internal/audio"
	"github.com/sweeney/tea-sensor/internal/light"
	"github.com/sweeney/tea-sensor/internal/machine"
	"github.com/zoobzio/clockz"
)

// Presence is the debounced "cup on the sensor" signal. The sequencer only
// reads it.
type Presence interface {
	Present() bool
}

// Config holds the escalation policy constants.
type Config struct {
	Startup     time.Duration // startup pulse and settle time
	BlinkOn     time.Duration // rise of the "cup detected" pulse
	BlinkOff    time.Duration // fall of the "cup detected" pulse
	Fade        time.Duration // fade between idle and active levels
	Brew        time.Duration // steeping time before alerting
	Drink       time.Duration // time after a cup is returned before alerting
	CupAbsence  time.Duration // time without a cup before going back to waiting
	SilentAlert time.Duration // light ramp before sound
	ClipLength  time.Duration // sound on
	AlertPause  time.Duration // sound off between clips

	StartupPeak      float64
	IdleBrightness   float64
	ActiveBrightness float64

	Clip        string
	AlertVolume float64
}

// DefaultConfig returns the policy the device ships with.
func DefaultConfig() Config {
	const clip = 30 * time.Second
	return Config{
		Startup:     2 * time.Second,
		BlinkOn:     500 * time.Millisecond,
		BlinkOff:    250 * time.Millisecond,
		Fade:        500 * time.Millisecond,
		Brew:        9 * time.Minute,
		Drink:       9 * time.Minute / 2,
		CupAbsence:  time.Minute,
		SilentAlert: time.Minute,
		ClipLength:  clip,
		AlertPause:  clip / 2,

		StartupPeak:      0.5,
		IdleBrightness:   0.05,
		ActiveBrightness: 0.1,

		Clip:        "/ffsong.wav",
		AlertVolume: 0.2,
	}
}

// Sequencer owns the light engine and drives the audio player.
type Sequencer struct {
	host     *machine.Host[*Sequencer]
	light    *light.Light
	player   audio.Player
	presence Presence
	cfg      Config
	volume   float64
}

// NewSequencer silences the player and starts the sequencer in Startup.
// The sequencer takes ownership of l: nothing else should command or tick it.
func NewSequencer(l *light.Light, player audio.Player, presence Presence, cfg Config, clock clockz.Clock) (*Sequencer, error) {
	s := &Sequencer{
		light:    l,
		player:   player,
		presence: presence,
		cfg:      cfg,
	}
	if err := s.silence(); err != nil {
		return nil, fmt.Errorf("silence audio: %w", err)
	}

	h, err := machine.New[*Sequencer](s, Startup, clock)
	if err != nil {
		return nil, fmt.Errorf("enter %s: %w", Startup.Name(), err)
	}
	s.host = h
	return s, nil
}

// Update ticks the sequencer, then the light engine it owns.
// On error the tick is abandoned and no transition is committed.
func (s *Sequencer) Update() error {
	if err := s.host.Update(); err != nil {
		return fmt.Errorf("update %s: %w", s.host.State().Name(), err)
	}
	if err := s.light.Update(); err != nil {
		return fmt.Errorf("update light: %w", err)
	}
	return nil
}

// State returns the active escalation state.
func (s *Sequencer) State() machine.State[*Sequencer] {
	return s.host.State()
}

// TimeInState returns the time since the active state was entered.
func (s *Sequencer) TimeInState() time.Duration {
	return s.host.TimeInState()
}

// Observers returns the notifier for escalation transitions.
func (s *Sequencer) Observers() *machine.Notifier[*Sequencer] {
	return s.host.Observers()
}

// Light returns the owned light engine, for observation only.
func (s *Sequencer) Light() *light.Light {
	return s.light
}

// PresenceDetected reads through to the presence signal.
func (s *Sequencer) PresenceDetected() bool {
	return s.presence.Present()
}

// Volume returns the last commanded playback volume.
func (s *Sequencer) Volume() float64 {
	return s.volume
}

// Config returns the policy in use.
func (s *Sequencer) Config() Config {
	return s.cfg
}

func (s *Sequencer) play() error {
	if err := s.player.Play(s.cfg.Clip, s.cfg.AlertVolume); err != nil {
		return fmt.Errorf("play %s: %w", s.cfg.Clip, err)
	}
	s.volume = s.cfg.AlertVolume
	return nil
}

func (s *Sequencer) silence() error {
	if err := s.player.Silence(); err != nil {
		return err
	}
	s.volume = 0
	return nil
}
