package diag

import "github.com/zoobzio/capitan"

// TransitionRecorded is emitted once per committed state change of any
// attached machine.
var TransitionRecorded = capitan.NewSignal(
	"tea.machine.transition",
	"State machine transition committed",
)

// Field keys for TransitionRecorded events.
var (
	// KeyMachine names the machine that changed state ("alarm" or "light").
	KeyMachine = capitan.NewStringKey("machine")

	// KeyFrom is the state that was left.
	KeyFrom = capitan.NewStringKey("from")

	// KeyTo is the state that was entered.
	KeyTo = capitan.NewStringKey("to")

	// KeyAt is the commit time, RFC 3339 with nanoseconds.
	KeyAt = capitan.NewStringKey("at")

	// KeyDwell is how long the machine spent in the state that was left.
	KeyDwell = capitan.NewDurationKey("dwell")

	// KeySeq counts transitions of this machine since startup.
	KeySeq = capitan.NewIntKey("seq")
)
