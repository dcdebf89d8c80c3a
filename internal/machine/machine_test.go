package machine

import (
	"errors"
	"testing"
	"time"

	"github.com/zoobzio/clockz"
)

// testOwner records callbacks so ordering can be asserted.
type testOwner struct {
	log       []string
	next      State[*testOwner]
	enterErr  error
	updateErr error
}

type idleState struct{}

func (idleState) Name() string { return "idle" }

func (idleState) Enter(o *testOwner) error {
	o.log = append(o.log, "enter:idle")
	return nil
}

func (s idleState) Update(o *testOwner) (State[*testOwner], error) {
	o.log = append(o.log, "update:idle")
	if o.updateErr != nil {
		return nil, o.updateErr
	}
	if o.next != nil {
		return o.next, nil
	}
	return s, nil
}

type busyState struct{}

func (busyState) Name() string { return "busy" }

func (busyState) Enter(o *testOwner) error {
	if o.enterErr != nil {
		return o.enterErr
	}
	o.log = append(o.log, "enter:busy")
	return nil
}

func (s busyState) Update(o *testOwner) (State[*testOwner], error) {
	o.log = append(o.log, "update:busy")
	return s, nil
}

type quietState struct {
	NopEnter[*testOwner]
}

func (quietState) Name() string { return "quiet" }

func (s quietState) Update(*testOwner) (State[*testOwner], error) { return s, nil }

var (
	idle  State[*testOwner] = idleState{}
	busy  State[*testOwner] = busyState{}
	quiet State[*testOwner] = quietState{}
)

type recordingObserver struct {
	owner *testOwner
	name  string
}

func (r *recordingObserver) StateChanged(from, to State[*testOwner]) {
	r.owner.log = append(r.owner.log, r.name+":"+from.Name()+"->"+to.Name())
}

func newTestHost(t *testing.T) (*Host[*testOwner], *testOwner, *clockz.FakeClock) {
	t.Helper()
	clock := clockz.NewFakeClock()
	o := &testOwner{}
	h, err := New[*testOwner](o, idle, clock)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return h, o, clock
}

func assertLog(t *testing.T, got []string, want ...string) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("log: got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("log[%d]: got %q, want %q", i, got[i], want[i])
		}
	}
}

func TestNewEntersInitialState(t *testing.T) {
	h, o, _ := newTestHost(t)

	if h.State() != idle {
		t.Errorf("State: got %s, want idle", h.State().Name())
	}
	if h.TimeInState() != 0 {
		t.Errorf("TimeInState: got %v, want 0", h.TimeInState())
	}
	assertLog(t, o.log, "enter:idle")
}

func TestNewEnterError(t *testing.T) {
	o := &testOwner{enterErr: errors.New("driver down")}
	h, err := New[*testOwner](o, busy, clockz.NewFakeClock())
	if err == nil {
		t.Fatal("expected error from failing initial Enter")
	}
	if h != nil {
		t.Error("expected nil host on error")
	}
}

func TestNewNilClockUsesRealClock(t *testing.T) {
	h, err := New[*testOwner](&testOwner{}, quiet, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if h.TimeInState() < 0 {
		t.Errorf("TimeInState: got %v, want >= 0", h.TimeInState())
	}
}

func TestUpdateRemainInState(t *testing.T) {
	h, o, clock := newTestHost(t)
	obs := &recordingObserver{owner: o, name: "obs"}
	h.Observers().Attach(obs)

	for i := 1; i <= 3; i++ {
		clock.Advance(100 * time.Millisecond)
		if err := h.Update(); err != nil {
			t.Fatalf("Update: %v", err)
		}
		want := time.Duration(i) * 100 * time.Millisecond
		if got := h.TimeInState(); got != want {
			t.Errorf("tick %d: TimeInState got %v, want %v", i, got, want)
		}
	}
	assertLog(t, o.log, "enter:idle", "update:idle", "update:idle", "update:idle")
}

func TestUpdateTransitionOrder(t *testing.T) {
	h, o, clock := newTestHost(t)
	h.Observers().Attach(&recordingObserver{owner: o, name: "obs"})

	clock.Advance(time.Second)
	o.next = busy
	if err := h.Update(); err != nil {
		t.Fatalf("Update: %v", err)
	}

	if h.State() != busy {
		t.Errorf("State: got %s, want busy", h.State().Name())
	}
	if h.TimeInState() != 0 {
		t.Errorf("TimeInState after transition: got %v, want 0", h.TimeInState())
	}
	assertLog(t, o.log, "enter:idle", "update:idle", "enter:busy", "obs:idle->busy")

	// Enter precedes the first Update of the new state.
	if err := h.Update(); err != nil {
		t.Fatalf("Update: %v", err)
	}
	assertLog(t, o.log, "enter:idle", "update:idle", "enter:busy", "obs:idle->busy", "update:busy")
}

func TestUpdateErrorAbortsTick(t *testing.T) {
	h, o, clock := newTestHost(t)
	h.Observers().Attach(&recordingObserver{owner: o, name: "obs"})

	clock.Advance(time.Second)
	o.next = busy
	o.updateErr = errors.New("sensor failed")
	if err := h.Update(); !errors.Is(err, o.updateErr) {
		t.Fatalf("Update error: got %v, want %v", err, o.updateErr)
	}
	if h.State() != idle {
		t.Errorf("State: got %s, want idle", h.State().Name())
	}
	if h.TimeInState() != time.Second {
		t.Errorf("TimeInState: got %v, want 1s (not reset)", h.TimeInState())
	}
	assertLog(t, o.log, "enter:idle", "update:idle")
}

func TestEnterErrorAbortsTransition(t *testing.T) {
	h, o, clock := newTestHost(t)
	h.Observers().Attach(&recordingObserver{owner: o, name: "obs"})

	clock.Advance(time.Second)
	o.next = busy
	o.enterErr = errors.New("led write failed")
	if err := h.Update(); !errors.Is(err, o.enterErr) {
		t.Fatalf("Update error: got %v, want %v", err, o.enterErr)
	}
	if h.State() != idle {
		t.Errorf("State: got %s, want idle", h.State().Name())
	}
	if h.TimeInState() != time.Second {
		t.Errorf("TimeInState: got %v, want 1s", h.TimeInState())
	}
	assertLog(t, o.log, "enter:idle", "update:idle")

	// Retried on the next tick once the failure clears.
	o.enterErr = nil
	if err := h.Update(); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if h.State() != busy {
		t.Errorf("State: got %s, want busy", h.State().Name())
	}
}

func TestTransitionForced(t *testing.T) {
	h, o, clock := newTestHost(t)
	h.Observers().Attach(&recordingObserver{owner: o, name: "obs"})

	clock.Advance(500 * time.Millisecond)
	if err := h.Transition(busy); err != nil {
		t.Fatalf("Transition: %v", err)
	}
	if h.State() != busy {
		t.Errorf("State: got %s, want busy", h.State().Name())
	}
	if h.TimeInState() != 0 {
		t.Errorf("TimeInState: got %v, want 0", h.TimeInState())
	}
	assertLog(t, o.log, "enter:idle", "enter:busy", "obs:idle->busy")
}

func TestTransitionToSameStateReenters(t *testing.T) {
	h, o, clock := newTestHost(t)

	clock.Advance(time.Second)
	if err := h.Transition(idle); err != nil {
		t.Fatalf("Transition: %v", err)
	}
	if h.TimeInState() != 0 {
		t.Errorf("TimeInState: got %v, want 0", h.TimeInState())
	}
	assertLog(t, o.log, "enter:idle", "enter:idle")
}

func TestNopEnterState(t *testing.T) {
	h, o, _ := newTestHost(t)
	if err := h.Transition(quiet); err != nil {
		t.Fatalf("Transition: %v", err)
	}
	if err := h.Update(); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if h.State() != quiet {
		t.Errorf("State: got %s, want quiet", h.State().Name())
	}
	assertLog(t, o.log, "enter:idle")
}

func TestNotifierOrderAndDetach(t *testing.T) {
	h, o, _ := newTestHost(t)
	first := &recordingObserver{owner: o, name: "first"}
	second := &recordingObserver{owner: o, name: "second"}
	third := &recordingObserver{owner: o, name: "third"}

	n := h.Observers()
	n.Attach(first)
	n.Attach(second)
	n.Attach(third)
	if n.Len() != 3 {
		t.Fatalf("Len: got %d, want 3", n.Len())
	}

	if err := h.Transition(busy); err != nil {
		t.Fatalf("Transition: %v", err)
	}
	assertLog(t, o.log, "enter:idle", "enter:busy", "first:idle->busy", "second:idle->busy", "third:idle->busy")

	n.Detach(second)
	n.Detach(&recordingObserver{owner: o, name: "stranger"})
	if n.Len() != 2 {
		t.Fatalf("Len after detach: got %d, want 2", n.Len())
	}

	o.log = nil
	if err := h.Transition(idle); err != nil {
		t.Fatalf("Transition: %v", err)
	}
	assertLog(t, o.log, "enter:idle", "first:busy->idle", "third:busy->idle")
}

// selfDetaching removes itself from n the first time it is notified.
type selfDetaching struct {
	recordingObserver
	n *Notifier[*testOwner]
}

func (s *selfDetaching) StateChanged(from, to State[*testOwner]) {
	s.recordingObserver.StateChanged(from, to)
	s.n.Detach(s)
}

func TestNotifierDetachDuringNotify(t *testing.T) {
	h, o, _ := newTestHost(t)
	n := h.Observers()
	first := &selfDetaching{recordingObserver: recordingObserver{owner: o, name: "first"}, n: n}
	n.Attach(first)
	n.Attach(&recordingObserver{owner: o, name: "second"})
	n.Attach(&recordingObserver{owner: o, name: "third"})

	if err := h.Transition(busy); err != nil {
		t.Fatalf("Transition: %v", err)
	}
	assertLog(t, o.log, "enter:idle", "enter:busy", "first:idle->busy", "second:idle->busy", "third:idle->busy")
	if n.Len() != 2 {
		t.Fatalf("Len after self-detach: got %d, want 2", n.Len())
	}

	o.log = nil
	if err := h.Transition(idle); err != nil {
		t.Fatalf("Transition: %v", err)
	}
	assertLog(t, o.log, "enter:idle", "second:busy->idle", "third:busy->idle")
}
