package monitor

import "time"

// State is the condition of one monitored alert key.
type State int

const (
	StateOK State = iota
	StateAlerting
)

func (s State) String() string {
	if s == StateAlerting {
		return "alerting"
	}
	return "ok"
}

// MarshalJSON renders the state as its name.
func (s State) MarshalJSON() ([]byte, error) {
	return []byte(`"` + s.String() + `"`), nil
}

// Event is what a transition asks the caller to do. Suppressed events are
// counted, never logged: an ongoing condition produces exactly one started
// event until it clears.
type Event int

const (
	EventNone Event = iota
	EventStarted
	EventSuppressed
	EventResolved
)

// Transition is the pure level-triggered transition function:
// (current state, breached measurement) -> (next state, event).
func Transition(current State, breached bool) (State, Event) {
	switch {
	case current == StateOK && breached:
		return StateAlerting, EventStarted
	case current == StateAlerting && breached:
		return StateAlerting, EventSuppressed
	case current == StateAlerting && !breached:
		return StateOK, EventResolved
	default:
		return StateOK, EventNone
	}
}

// AlertState carries the suppression state for one monitored condition.
type AlertState struct {
	Key             string    `json:"key"`
	State           State     `json:"state"`
	EnteredAt       time.Time `json:"enteredAt"`
	SuppressedCount int       `json:"suppressedCount"`
}

// Observe applies one measurement and returns the resulting event, with
// entry/exit bookkeeping applied.
func (a *AlertState) Observe(breached bool, now time.Time) Event {
	next, event := Transition(a.State, breached)
	switch event {
	case EventStarted:
		a.EnteredAt = now
		a.SuppressedCount = 0
	case EventSuppressed:
		a.SuppressedCount++
	case EventResolved:
		a.EnteredAt = now
	}
	a.State = next
	return event
}
