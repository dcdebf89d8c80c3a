// Package presence turns raw pressure samples into a debounced "cup present"
// signal. It has no hardware or clock dependencies; time is passed in with
// every sample.
package presence

import "time"

// Event is a debounced change of presence.
type Event string

const (
	EventPlaced Event = "CUP_PLACED"
	EventLifted Event = "CUP_LIFTED"
)

// Counts tracks the number of each event since startup.
type Counts struct {
	Placed int
	Lifted int
}

// Debouncer reports presence only after the thresholded reading has held
// steady for the debounce duration.
type Debouncer struct {
	threshold float64
	debounce  time.Duration

	// Current stable (debounced) state
	stable bool
	// Pending state during debounce
	pending    bool
	hasPending bool
	// Time when pending state was first observed
	pendingSince time.Time
	// Whether we have established a baseline
	baselined bool

	counts Counts
}

// NewDebouncer creates a Debouncer. A sample strictly above threshold counts
// as pressure.
func NewDebouncer(threshold float64, debounce time.Duration) *Debouncer {
	return &Debouncer{
		threshold: threshold,
		debounce:  debounce,
	}
}

// Process takes a new pressure sample and reports a debounced change, if one
// completed with this sample. No events are reported until a baseline is
// established.
func (d *Debouncer) Process(pressure float64, now time.Time) (Event, bool) {
	raw := pressure > d.threshold

	// First readings: wait for a stable baseline
	if !d.baselined {
		if !d.hasPending || d.pending != raw {
			d.startPending(raw, now)
			return "", false
		}
		if now.Sub(d.pendingSince) >= d.debounce {
			d.stable = raw
			d.baselined = true
			d.hasPending = false
		}
		return "", false
	}

	// Already baselined - detect transitions
	if raw == d.stable {
		d.hasPending = false
		return "", false
	}

	if !d.hasPending || d.pending != raw {
		d.startPending(raw, now)
		return "", false
	}

	if now.Sub(d.pendingSince) < d.debounce {
		return "", false
	}

	d.stable = raw
	d.hasPending = false
	if raw {
		d.counts.Placed++
		return EventPlaced, true
	}
	d.counts.Lifted++
	return EventLifted, true
}

func (d *Debouncer) startPending(raw bool, now time.Time) {
	d.pending = raw
	d.hasPending = true
	d.pendingSince = now
}

// Present reports the debounced presence. It is false until baselined.
func (d *Debouncer) Present() bool {
	return d.baselined && d.stable
}

// IsBaselined returns whether the debouncer has established a baseline.
func (d *Debouncer) IsBaselined() bool {
	return d.baselined
}

// Counts returns a copy of the event counts.
func (d *Debouncer) Counts() Counts {
	return d.counts
}
