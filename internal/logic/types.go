// Package logic models the outlet without touching hardware. Callers pass the
// current time in; nothing here sleeps or reads a clock.
package logic

import "time"

// State is the relay position as reported to the outside world.
type State string

const (
	StateOn  State = "ON"
	StateOff State = "OFF"
)

func StateFor(on bool) State {
	if on {
		return StateOn
	}
	return StateOff
}

type EventType string

const (
	EventOn  EventType = "OUTLET_ON"
	EventOff EventType = "OUTLET_OFF"
)

// Source identifies what caused a transition.
type Source string

const (
	SourceSchedule Source = "SCHEDULE"
	SourceButton   Source = "BUTTON"
	SourceHTTP     Source = "HTTP"
	SourceMQTT     Source = "MQTT"
)

// NoCycle marks an event that did not come from a schedule cycle.
const NoCycle = -1

// Event is one relay transition.
type Event struct {
	Timestamp time.Time
	Type      EventType
	State     State
	Source    Source
	Cycle     int // schedule cycle index, or NoCycle
}

// EventCounts are totals since boot.
type EventCounts struct {
	On       int
	Off      int
	Schedule int // transitions caused by a cycle
	Manual   int // button, HTTP and MQTT transitions
}
