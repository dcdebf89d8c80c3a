// Package diag turns state machine transitions into diagnostics: log lines,
// capitan signals for the network sinks, and heartbeat timing.
package diag

import (
	"context"
	"sync"
	"time"

	"github.com/zoobzio/capitan"
	"github.com/zoobzio/clockz"

	"github.com/sweeney/tea-sensor/internal/machine"
)

// Transition is one committed state change.
type Transition struct {
	Machine string
	From    string
	To      string
	At      time.Time
	Dwell   time.Duration
	Seq     int
}

// Emitter receives transitions from a Recorder.
type Emitter func(Transition)

// Recorder is a machine.Observer that stamps each transition and hands it to
// an Emitter. It runs on the control thread, so emitters must not block.
type Recorder[M any] struct {
	name  string
	clock clockz.Clock
	emit  Emitter

	mu    sync.Mutex
	since time.Time
	seq   int
	last  Transition
}

// NewRecorder creates a Recorder for the machine called name.
// A nil emit publishes through Emit.
func NewRecorder[M any](name string, clock clockz.Clock, emit Emitter) *Recorder[M] {
	if clock == nil {
		clock = clockz.RealClock
	}
	if emit == nil {
		emit = Emit
	}
	return &Recorder[M]{
		name:  name,
		clock: clock,
		emit:  emit,
		since: clock.Now(),
	}
}

// Resume backdates the start of the current state by inState, for a
// recorder attached to a machine that is already running.
func (r *Recorder[M]) Resume(inState time.Duration) {
	r.mu.Lock()
	r.since = r.clock.Now().Add(-inState)
	r.mu.Unlock()
}

// StateChanged implements machine.Observer.
func (r *Recorder[M]) StateChanged(from, to machine.State[M]) {
	now := r.clock.Now()

	r.mu.Lock()
	r.seq++
	t := Transition{
		Machine: r.name,
		From:    from.Name(),
		To:      to.Name(),
		At:      now,
		Dwell:   now.Sub(r.since),
		Seq:     r.seq,
	}
	r.since = now
	r.last = t
	r.mu.Unlock()

	r.emit(t)
}

// Count returns the number of transitions recorded.
func (r *Recorder[M]) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.seq
}

// Last returns the most recent transition and false if there has been none.
func (r *Recorder[M]) Last() (Transition, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.last, r.seq > 0
}

// Emit publishes t as a TransitionRecorded signal. Delivery to hooks is
// asynchronous.
func Emit(t Transition) {
	capitan.Emit(context.Background(), TransitionRecorded,
		KeyMachine.Field(t.Machine),
		KeyFrom.Field(t.From),
		KeyTo.Field(t.To),
		KeyAt.Field(t.At.Format(time.RFC3339Nano)),
		KeyDwell.Field(t.Dwell),
		KeySeq.Field(t.Seq),
	)
}

// OnTransition registers fn for every TransitionRecorded signal.
func OnTransition(fn func(context.Context, Transition)) {
	capitan.Hook(TransitionRecorded, func(ctx context.Context, e *capitan.Event) {
		if t, ok := TransitionFrom(e); ok {
			fn(ctx, t)
		}
	})
}

// TransitionFrom decodes a TransitionRecorded event.
// It reports false if a required field is missing.
func TransitionFrom(e *capitan.Event) (Transition, bool) {
	var t Transition
	var ok bool
	if t.Machine, ok = KeyMachine.From(e); !ok {
		return Transition{}, false
	}
	if t.From, ok = KeyFrom.From(e); !ok {
		return Transition{}, false
	}
	if t.To, ok = KeyTo.From(e); !ok {
		return Transition{}, false
	}
	if at, ok := KeyAt.From(e); ok {
		t.At, _ = time.Parse(time.RFC3339Nano, at)
	}
	t.Dwell, _ = KeyDwell.From(e)
	t.Seq, _ = KeySeq.From(e)
	return t, true
}

// Shutdown drains pending signal deliveries.
func Shutdown() {
	capitan.Shutdown()
}
