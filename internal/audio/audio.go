// Package audio plays the alert clip with hardware abstraction.
// The real implementation runs an external command-line player; the fake
// records calls for tests.
package audio

import "errors"

// ErrInvalidVolume is returned for volumes outside [0, 1].
var ErrInvalidVolume = errors.New("audio: volume must be within [0, 1]")

// Player plays and silences audio clips.
type Player interface {
	// Play starts clip at volume, replacing anything already playing.
	Play(clip string, volume float64) error

	// Silence stops playback. Silencing an idle player is not an error.
	Silence() error
}

// Placeholders substituted into ExecPlayer arguments.
const (
	ArgClip   = "{clip}"
	ArgVolume = "{volume}"
)

// DefaultPlayer is sox's play command; -v scales the amplitude.
const DefaultPlayer = "play"

// DefaultArgs returns the argument template used with DefaultPlayer.
func DefaultArgs() []string {
	return []string{"-q", "-v", ArgVolume, ArgClip}
}
