package execution

// State represents the lifecycle state of a simulated process
type State string

const (
	StateNew        State = "new"
	StateReady      State = "ready"
	StateRunning    State = "running"
	StateBlocked    State = "blocked"
	StateTerminated State = "terminated"
)

// Queued lists the states backed by a registry membership list, in display order.
var Queued = []State{StateNew, StateReady, StateBlocked, StateTerminated}

// IsTerminal reports whether no further transition is possible.
func (s State) IsTerminal() bool {
	return s == StateTerminated
}

// OwnsPages reports whether a process in this state must own memory pages.
func (s State) OwnsPages() bool {
	switch s {
	case StateReady, StateRunning, StateBlocked:
		return true
	}
	return false
}

// CanTransition reports whether from -> to is an edge of the lifecycle.
func CanTransition(from, to State) bool {
	switch from {
	case "":
		return to == StateNew
	case StateNew:
		return to == StateReady
	case StateReady:
		return to == StateRunning
	case StateRunning:
		return to == StateBlocked || to == StateTerminated
	case StateBlocked:
		return to == StateReady
	}
	return false
}
