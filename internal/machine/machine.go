// Package machine provides a small time-driven state machine host.
// States are stateless values shared by every host of the same owner type;
// all mutable data lives on the owner. Time is read from an injected clock so
// tests can drive transitions deterministically.
package machine

import (
	"time"

	"github.com/zoobzio/clockz"
)

// State is one named behaviour of a machine whose mutable data lives on M.
// Implementations must be comparable and carry no instance data: equality of
// two State values is state identity.
type State[M any] interface {
	// Name returns a stable identifier for logs and diagnostics.
	Name() string

	// Enter runs once when the host moves into the state, before the first
	// Update and before observers are notified.
	Enter(m M) error

	// Update returns the receiver to remain, or another state to transition.
	Update(m M) (State[M], error)
}

// NopEnter can be embedded by states that have nothing to do on entry.
type NopEnter[M any] struct{}

// Enter does nothing.
func (NopEnter[M]) Enter(M) error { return nil }

// Host owns the runtime data of a state machine: the active state, the
// moment it was entered and the observers interested in transitions.
// Not safe for concurrent use.
type Host[M any] struct {
	owner     M
	current   State[M]
	enteredAt time.Time
	clock     clockz.Clock
	observers Notifier[M]
}

// New creates a host for owner and enters the initial state.
// Observers are not notified of the initial state.
func New[M any](owner M, initial State[M], clock clockz.Clock) (*Host[M], error) {
	if clock == nil {
		clock = clockz.RealClock
	}
	h := &Host[M]{
		owner: owner,
		clock: clock,
	}
	if err := initial.Enter(owner); err != nil {
		return nil, err
	}
	h.current = initial
	h.enteredAt = clock.Now()
	return h, nil
}

// Update runs the active state's Update and commits whatever transition it
// asks for. An error from the state or from the next state's Enter aborts the
// tick without changing the active state.
func (h *Host[M]) Update() error {
	next, err := h.current.Update(h.owner)
	if err != nil {
		return err
	}
	if next == nil || next == h.current {
		return nil
	}
	return h.commit(next)
}

// Transition moves to next immediately, bypassing the active state's Update.
func (h *Host[M]) Transition(next State[M]) error {
	return h.commit(next)
}

func (h *Host[M]) commit(next State[M]) error {
	if err := next.Enter(h.owner); err != nil {
		return err
	}
	old := h.current
	h.current, h.enteredAt = next, h.clock.Now()
	h.observers.Notify(old, next)
	return nil
}

// State returns the active state.
func (h *Host[M]) State() State[M] {
	return h.current
}

// TimeInState returns the time elapsed since the active state was entered.
func (h *Host[M]) TimeInState() time.Duration {
	return h.clock.Since(h.enteredAt)
}

// Observers returns the notifier for transitions of this host.
func (h *Host[M]) Observers() *Notifier[M] {
	return &h.observers
}
