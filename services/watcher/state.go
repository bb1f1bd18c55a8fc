package watcher

import "fmt"

// State is the poll loop's position in its cycle.
type State string

const (
	StateIdle        State = "idle"
	StateExtracting  State = "extracting"
	StateReconciling State = "reconciling"
	StateReporting   State = "reporting"
	StateSleeping    State = "sleeping"
	StateStopped     State = "stopped"
)

// validTransitions encodes the cycle: Idle starts it, Extracting →
// Reconciling → Reporting → Sleeping → Extracting repeats it, and
// Stopped is reachable from anywhere (cancellation or fatal error).
var validTransitions = map[State][]State{
	StateIdle:        {StateExtracting, StateStopped},
	StateExtracting:  {StateReconciling, StateReporting, StateStopped},
	StateReconciling: {StateReporting, StateStopped},
	StateReporting:   {StateSleeping, StateStopped},
	StateSleeping:    {StateExtracting, StateStopped},
	StateStopped:     {},
}

func validateTransition(from, to State) error {
	allowed, ok := validTransitions[from]
	if !ok {
		return fmt.Errorf("unknown state: %s", from)
	}
	for _, s := range allowed {
		if s == to {
			return nil
		}
	}
	return fmt.Errorf("invalid state transition from %s to %s", from, to)
}

// IsTerminal reports whether the loop can never leave this state.
func IsTerminal(s State) bool {
	return s == StateStopped
}
