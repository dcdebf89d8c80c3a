package audio

// Call records one Play invocation.
type Call struct {
	Clip   string
	Volume float64
}

// FakePlayer records playback requests for test assertions.
type FakePlayer struct {
	// Plays contains every successful Play call.
	Plays []Call

	// Silences counts successful Silence calls.
	Silences int

	// Playing reports whether a clip is currently "playing".
	Playing bool

	// PlayError, if set, will be returned by Play.
	PlayError error

	// SilenceError, if set, will be returned by Silence.
	SilenceError error
}

// NewFakePlayer creates a FakePlayer.
func NewFakePlayer() *FakePlayer {
	return &FakePlayer{}
}

// Play records the call.
func (f *FakePlayer) Play(clip string, volume float64) error {
	if f.PlayError != nil {
		return f.PlayError
	}
	if volume < 0 || volume > 1 {
		return ErrInvalidVolume
	}
	f.Plays = append(f.Plays, Call{Clip: clip, Volume: volume})
	f.Playing = true
	return nil
}

// Silence records the call.
func (f *FakePlayer) Silence() error {
	if f.SilenceError != nil {
		return f.SilenceError
	}
	f.Silences++
	f.Playing = false
	return nil
}

// Reset clears recorded calls and errors.
func (f *FakePlayer) Reset() {
	f.Plays = nil
	f.Silences = 0
	f.Playing = false
	f.PlayError = nil
	f.SilenceError = nil
}
