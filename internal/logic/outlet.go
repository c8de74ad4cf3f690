package logic

import "time"

// Outlet is the logical relay state. It is owned by the main loop.
type Outlet struct {
	state  State
	counts EventCounts
}

// NewOutlet returns an outlet in the given initial state.
func NewOutlet(initial State) *Outlet {
	if initial != StateOn {
		initial = StateOff
	}
	return &Outlet{state: initial}
}

// State returns the current state.
func (o *Outlet) State() State {
	return o.state
}

// Counts returns the transition counts since startup.
func (o *Outlet) Counts() EventCounts {
	return o.counts
}

// Apply drives the outlet to on or off. It returns nil when the outlet is
// already in that state, so repeated assertions are harmless.
func (o *Outlet) Apply(on bool, source Source, cycle int, now time.Time) *Event {
	to := StateFor(on)
	if to == o.state {
		return nil
	}
	o.state = to

	ev := &Event{
		Timestamp: now,
		State:     to,
		Source:    source,
		Cycle:     cycle,
	}
	if on {
		ev.Type = EventOn
		o.counts.On++
	} else {
		ev.Type = EventOff
		o.counts.Off++
	}
	if source == SourceSchedule {
		o.counts.Schedule++
	} else {
		o.counts.Manual++
	}
	return ev
}

// Toggle flips the outlet.
func (o *Outlet) Toggle(source Source, now time.Time) *Event {
	return o.Apply(o.state != StateOn, source, NoCycle, now)
}
